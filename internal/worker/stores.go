package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/state"
)

// Зависимости worker'а объявлены интерфейсами: в production их
// реализуют pgx-репозитории и mq.Publisher, в тестах — фейки.

// JobStore — доступ к единственному job.
type JobStore interface {
	Get(ctx context.Context) (*domain.Job, error)
	SetStartedAt(ctx context.Context, startedAt time.Time) error
}

// SourceStore — доступ к sources job'а.
type SourceStore interface {
	List(ctx context.Context) ([]domain.Source, error)
	GetByPath(ctx context.Context, path string) (*domain.Source, error)
}

// ConfigStore — доступ к конфигурациям tests.
type ConfigStore interface {
	GetOrCreate(ctx context.Context, browser, url string) (*domain.TestConfiguration, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TestConfiguration, error)
}

// TestStore — доступ к tests.
type TestStore interface {
	CreateAll(ctx context.Context, tests []domain.Test) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Test, error)
	NextAwaiting(ctx context.Context) (*domain.Test, error)
	List(ctx context.Context) ([]domain.Test, error)
	Update(ctx context.Context, t *domain.Test) error
	FinishRunning(ctx context.Context, t *domain.Test) (bool, error)
	CancelUnfinished(ctx context.Context) (int64, error)
	MaxPosition(ctx context.Context) (int, error)
	Counts(ctx context.Context) (total, running, unfinished, failed int, err error)
}

// EventStore — доступ к worker events.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkerEvent, error)
	Update(ctx context.Context, event *domain.WorkerEvent) error
	ListUndelivered(ctx context.Context, maxAttempts, limit int) ([]domain.WorkerEvent, error)
	ExistsByReference(ctx context.Context, eventType domain.EventType, reference string) (bool, error)
}

// StateAggregator — агрегатные статусы конвейера.
type StateAggregator interface {
	Counts(ctx context.Context) (state.Counts, error)
	JobEnded(ctx context.Context) (bool, error)
}

// TaskPublisher — публикация задач конвейера в очереди.
type TaskPublisher interface {
	PublishSourceCompile(ctx context.Context, path string) error
	PublishTestExecute(ctx context.Context, testID uuid.UUID) error
	PublishEventDeliver(ctx context.Context, eventID uuid.UUID) error
}

// EventDeliverer — исходящая HTTP доставка worker event.
type EventDeliverer interface {
	Deliver(ctx context.Context, job *domain.Job, event *domain.WorkerEvent) error
}

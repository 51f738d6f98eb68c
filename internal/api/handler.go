package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/state"
)

// Хранилища API объявлены интерфейсами: в production их реализуют
// pgx-репозитории и mq.Publisher, в тестах — фейки.

// JobStore — доступ к единственному job.
type JobStore interface {
	Create(ctx context.Context, job *domain.Job) error
	Get(ctx context.Context) (*domain.Job, error)
}

// SourceStore — доступ к sources job'а.
type SourceStore interface {
	CreateAll(ctx context.Context, sources []domain.Source) error
	List(ctx context.Context) ([]domain.Source, error)
}

// ConfigStore — доступ к конфигурациям tests.
type ConfigStore interface {
	List(ctx context.Context) ([]domain.TestConfiguration, error)
}

// TestStore — доступ к tests.
type TestStore interface {
	List(ctx context.Context) ([]domain.Test, error)
}

// EventStore — доступ к worker events.
type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkerEvent, error)
}

// StateReader — срез агрегатных статусов.
type StateReader interface {
	Snapshot(ctx context.Context) (state.Snapshot, error)
}

// JobPublisher — сигнал worker'у о принятом job.
type JobPublisher interface {
	PublishJobReady(ctx context.Context) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	pool       *pgxpool.Pool
	jobRepo    JobStore
	sourceRepo SourceStore
	configRepo ConfigStore
	testRepo   TestStore
	eventRepo  EventStore
	aggregator StateReader
	publisher  JobPublisher
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	// Pool нужен для DELETE /job (полный сброс состояния).
	Pool *pgxpool.Pool

	JobRepo    JobStore
	SourceRepo SourceStore
	ConfigRepo ConfigStore
	TestRepo   TestStore
	EventRepo  EventStore
	Aggregator StateReader
	Publisher  JobPublisher
	Logger     *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		pool:       cfg.Pool,
		jobRepo:    cfg.JobRepo,
		sourceRepo: cfg.SourceRepo,
		configRepo: cfg.ConfigRepo,
		testRepo:   cfg.TestRepo,
		eventRepo:  cfg.EventRepo,
		aggregator: cfg.Aggregator,
		publisher:  cfg.Publisher,
		logger:     cfg.Logger,
	}
}

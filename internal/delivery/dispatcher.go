package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/events"
)

// PriorityDispatch — приоритет подписки dispatcher'а на шине.
// Доставка регистрируется после обработчиков, меняющих доменное
// состояние: worker event фиксирует уже применённый факт.
const PriorityDispatch = 100

// EventStore — персистентность worker events, нужная dispatcher'у.
type EventStore interface {
	CreateOrGet(ctx context.Context, event *domain.WorkerEvent) (*domain.WorkerEvent, bool, error)
	Update(ctx context.Context, event *domain.WorkerEvent) error
}

// JobProvider — доступ к текущему job.
type JobProvider interface {
	Get(ctx context.Context) (*domain.Job, error)
}

// QueuePublisher — публикация задачи доставки.
type QueuePublisher interface {
	PublishEventDeliver(ctx context.Context, eventID uuid.UUID) error
}

// Dispatcher слушает шину доменных событий и ставит worker events
// в очередь доставки.
//
// Для каждого события: factory строит запись, CreateOrGet её сохраняет
// (или возвращает существующую при повторной эмиссии), запись переходит
// в queued, в очередь уходит сообщение только с идентификатором —
// handler доставки перечитает актуальное состояние сам.
type Dispatcher struct {
	factory   *Factory
	jobs      JobProvider
	store     EventStore
	publisher QueuePublisher
	logger    *slog.Logger
}

// NewDispatcher создаёт новый Dispatcher.
func NewDispatcher(jobs JobProvider, store EventStore, publisher QueuePublisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		factory:   NewFactory(),
		jobs:      jobs,
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Register подписывает dispatcher на все типы доменных событий.
func (d *Dispatcher) Register(bus *events.Bus) {
	bus.SubscribeAll(PriorityDispatch, d.Dispatch)
}

// Dispatch обрабатывает одно доменное событие.
//
// No-op, если factory не построил worker event либо запись уже была
// поставлена в очередь ранее (повторная эмиссия того же события).
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) error {
	job, err := d.jobs.Get(ctx)
	if err != nil {
		return fmt.Errorf("load job for dispatch: %w", err)
	}

	candidate := d.factory.CreateForEvent(job, event)
	if candidate == nil {
		return nil
	}

	stored, created, err := d.store.CreateOrGet(ctx, candidate)
	if err != nil {
		return fmt.Errorf("persist worker event: %w", err)
	}

	if !created && stored.State != domain.WorkerEventStateAwaiting {
		// Запись уже в конвейере доставки или завершена.
		d.logger.Debug("worker event already dispatched",
			"type", stored.Type,
			"reference", stored.Reference,
			"state", stored.State,
		)
		return nil
	}

	stored.MarkQueued()
	if err := d.store.Update(ctx, stored); err != nil {
		return fmt.Errorf("mark worker event queued: %w", err)
	}

	if err := d.publisher.PublishEventDeliver(ctx, stored.ID); err != nil {
		return fmt.Errorf("enqueue event delivery: %w", err)
	}

	d.logger.Debug("worker event queued for delivery",
		"type", stored.Type,
		"reference", stored.Reference,
		"seq", stored.Seq,
	)

	return nil
}

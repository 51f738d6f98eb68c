package events

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/shaiso/Relay/internal/domain"
)

// Handler — обработчик доменного события.
// Возвращённая ошибка не останавливает остальных подписчиков,
// Publish собирает все ошибки вместе.
type Handler func(ctx context.Context, event Event) error

// subscription — одна подписка с приоритетом.
type subscription struct {
	// priority — порядок вызова: меньший приоритет вызывается раньше.
	priority int

	// order — порядковый номер регистрации (для стабильности
	// при равных приоритетах).
	order int

	handler Handler
}

// Bus — шина доменных событий.
//
// Реестр тип → упорядоченный список обработчиков. Подписки
// регистрируются при старте worker'а, Publish вызывается из
// message handler'ов синхронно: доставка события подписчикам
// завершается до ack сообщения.
type Bus struct {
	mu     sync.RWMutex
	subs   map[domain.EventType][]subscription
	nextID int
	logger *slog.Logger
}

// NewBus создаёт новую шину.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[domain.EventType][]subscription),
		logger: logger,
	}
}

// Subscribe регистрирует обработчик для одного типа события.
func (b *Bus) Subscribe(eventType domain.EventType, priority int, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := append(b.subs[eventType], subscription{
		priority: priority,
		order:    b.nextID,
		handler:  handler,
	})
	b.nextID++

	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].priority != subs[j].priority {
			return subs[i].priority < subs[j].priority
		}
		return subs[i].order < subs[j].order
	})

	b.subs[eventType] = subs
}

// SubscribeAll регистрирует обработчик для каждого известного типа события.
func (b *Bus) SubscribeAll(priority int, handler Handler) {
	for _, eventType := range domain.EventTypes {
		b.Subscribe(eventType, priority, handler)
	}
}

// Publish доставляет событие всем подписчикам его типа в порядке приоритета.
//
// Ошибки обработчиков собираются и возвращаются вместе; упавший
// обработчик не мешает остальным.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := b.subs[event.EventType()]
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.logger.Debug("no subscribers for event", "type", event.EventType())
		return nil
	}

	var errs []error
	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			b.logger.Error("event handler failed",
				"type", event.EventType(),
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

package events

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/Relay/internal/domain"
)

func TestBus_PublishInPriorityOrder(t *testing.T) {
	bus := NewBus(nil)

	var calls []string
	bus.Subscribe(domain.EventTypeJobStarted, 20, func(_ context.Context, _ Event) error {
		calls = append(calls, "second")
		return nil
	})
	bus.Subscribe(domain.EventTypeJobStarted, 10, func(_ context.Context, _ Event) error {
		calls = append(calls, "first")
		return nil
	})

	if err := bus.Publish(context.Background(), JobStarted{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("handlers called out of priority order: %v", calls)
	}
}

func TestBus_EqualPriorityKeepsRegistrationOrder(t *testing.T) {
	bus := NewBus(nil)

	var calls []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(domain.EventTypeTestPassed, 10, func(_ context.Context, _ Event) error {
			calls = append(calls, i)
			return nil
		})
	}

	bus.Publish(context.Background(), TestPassed{Test: &domain.Test{}})

	for i, got := range calls {
		if got != i {
			t.Fatalf("expected registration order, got %v", calls)
		}
	}
}

func TestBus_PublishNoSubscribers(t *testing.T) {
	bus := NewBus(nil)

	if err := bus.Publish(context.Background(), JobCompleted{}); err != nil {
		t.Errorf("publish without subscribers should be a no-op, got %v", err)
	}
}

func TestBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewBus(nil)

	errBoom := errors.New("boom")
	secondCalled := false

	bus.Subscribe(domain.EventTypeJobFailed, 1, func(_ context.Context, _ Event) error {
		return errBoom
	})
	bus.Subscribe(domain.EventTypeJobFailed, 2, func(_ context.Context, _ Event) error {
		secondCalled = true
		return nil
	})

	err := bus.Publish(context.Background(), JobFailed{})
	if !errors.Is(err, errBoom) {
		t.Errorf("expected wrapped handler error, got %v", err)
	}
	if !secondCalled {
		t.Error("second handler should run despite first failing")
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus(nil)

	count := 0
	bus.SubscribeAll(10, func(_ context.Context, _ Event) error {
		count++
		return nil
	})

	bus.Publish(context.Background(), JobStarted{})
	bus.Publish(context.Background(), CompilationStarted{Source: "a.yml"})
	bus.Publish(context.Background(), StepFailed{Test: &domain.Test{}, StepName: "s"})

	if count != 3 {
		t.Errorf("expected handler called for every type, got %d calls", count)
	}
}

func TestEventTypes_CoverAllVariants(t *testing.T) {
	// Каждый вариант события должен возвращать тип из закрытого множества
	variants := []Event{
		JobStarted{}, JobCompiled{}, JobTimedOut{}, JobCompleted{}, JobFailed{},
		CompilationStarted{}, CompilationPassed{}, CompilationFailed{},
		ExecutionStarted{}, ExecutionCompleted{},
		TestStarted{}, TestPassed{}, TestFailed{},
		StepPassed{}, StepFailed{},
	}

	known := make(map[domain.EventType]bool, len(domain.EventTypes))
	for _, et := range domain.EventTypes {
		known[et] = true
	}

	seen := make(map[domain.EventType]bool)
	for _, v := range variants {
		et := v.EventType()
		if !known[et] {
			t.Errorf("variant %T has unknown type %s", v, et)
		}
		if seen[et] {
			t.Errorf("duplicate event type %s", et)
		}
		seen[et] = true
	}

	if len(seen) != len(domain.EventTypes) {
		t.Errorf("expected %d distinct types, got %d", len(domain.EventTypes), len(seen))
	}
}

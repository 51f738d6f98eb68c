package delivery

import (
	"testing"
	"time"

	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/events"
	"github.com/shaiso/Relay/internal/manifest"
)

func testJob() *domain.Job {
	return &domain.Job{
		Label:                    "nightly-regression",
		EventDeliveryURL:         "http://collector.local/events",
		MaximumDurationInSeconds: 600,
		CreatedAt:                time.Now(),
	}
}

func TestReference_Deterministic(t *testing.T) {
	// Одинаковые label и компоненты — байт-в-байт одинаковый reference
	a := Reference("job-1", "tests/login.yaml", "login.side")
	b := Reference("job-1", "tests/login.yaml", "login.side")

	if a != b {
		t.Errorf("reference not deterministic: %s != %s", a, b)
	}

	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
}

func TestReference_DistinguishesComponents(t *testing.T) {
	tests := []struct {
		name   string
		first  string
		second string
	}{
		{
			name:   "different label",
			first:  Reference("job-1", "tests/login.yaml"),
			second: Reference("job-2", "tests/login.yaml"),
		},
		{
			name:   "different source",
			first:  Reference("job-1", "tests/login.yaml"),
			second: Reference("job-1", "tests/cart.yaml"),
		},
		{
			name:   "extra component",
			first:  Reference("job-1", "tests/login.yaml"),
			second: Reference("job-1", "tests/login.yaml", "step-1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.first == tt.second {
				t.Errorf("expected distinct references, both %s", tt.first)
			}
		})
	}
}

func TestFactory_JobScopedEvents(t *testing.T) {
	factory := NewFactory()
	job := testJob()

	// Job-scoped события различаются только типом: reference одинаковый
	started := factory.CreateForEvent(job, events.JobStarted{})
	completed := factory.CreateForEvent(job, events.JobCompleted{})

	if started == nil || completed == nil {
		t.Fatal("expected worker events for job-scoped events")
	}

	if started.Type != domain.EventTypeJobStarted {
		t.Errorf("expected type %s, got %s", domain.EventTypeJobStarted, started.Type)
	}
	if started.Reference != completed.Reference {
		t.Error("job-scoped events must share the label-only reference")
	}
	if started.State != domain.WorkerEventStateAwaiting {
		t.Errorf("new worker event must be awaiting, got %s", started.State)
	}
}

func TestFactory_CompilationPassedPayload(t *testing.T) {
	factory := NewFactory()
	job := testJob()

	event := factory.CreateForEvent(job, events.CompilationPassed{
		Source: "tests/login.yaml",
		Tests: []manifest.CompiledTest{
			{Source: "tests/login.yaml", Target: "login.side"},
			{Source: "tests/login.yaml", Target: "login-admin.side"},
		},
	})
	if event == nil {
		t.Fatal("expected worker event")
	}

	if event.Payload["source"] != "tests/login.yaml" {
		t.Errorf("unexpected source in payload: %v", event.Payload["source"])
	}
	documents, ok := event.Payload["documents"].([]string)
	if !ok || len(documents) != 2 {
		t.Fatalf("expected 2 documents, got %v", event.Payload["documents"])
	}
	if documents[1] != "login-admin.side" {
		t.Errorf("unexpected document: %s", documents[1])
	}

	// Reference не зависит от результата компиляции — только от source
	failed := factory.CreateForEvent(job, events.CompilationFailed{Source: "tests/login.yaml"})
	if event.Reference != failed.Reference {
		t.Error("passed and failed compilation of one source must share reference")
	}
}

func TestFactory_TestEvents(t *testing.T) {
	factory := NewFactory()
	job := testJob()

	test := &domain.Test{
		Source:    "tests/login.yaml",
		Target:    "login.side",
		StepCount: 3,
		StepNames: []string{"open", "type", "submit"},
		Error:     "element not found",
	}

	passed := factory.CreateForEvent(job, events.TestPassed{Test: test})
	failed := factory.CreateForEvent(job, events.TestFailed{Test: test})

	if passed.Reference != failed.Reference {
		t.Error("test events with identical components must share reference")
	}
	if passed.Payload["document"] != "login.side" {
		t.Errorf("unexpected document: %v", passed.Payload["document"])
	}
	if _, ok := passed.Payload["error"]; ok {
		t.Error("test_passed payload must not carry an error")
	}
	if failed.Payload["error"] != "element not found" {
		t.Errorf("unexpected error in payload: %v", failed.Payload["error"])
	}
}

func TestFactory_StepEvents(t *testing.T) {
	factory := NewFactory()
	job := testJob()

	test := &domain.Test{Source: "tests/login.yaml", Target: "login.side"}

	first := factory.CreateForEvent(job, events.StepPassed{
		Test:     test,
		StepName: "open",
		StepPath: "login.side#0",
	})
	second := factory.CreateForEvent(job, events.StepPassed{
		Test:     test,
		StepName: "submit",
		StepPath: "login.side#2",
	})

	// Шаги различаются компонентами step path / step name
	if first.Reference == second.Reference {
		t.Error("distinct steps must produce distinct references")
	}
	if first.Payload["step_name"] != "open" {
		t.Errorf("unexpected step_name: %v", first.Payload["step_name"])
	}
}

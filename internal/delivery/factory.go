package delivery

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/events"
)

// Factory превращает domain events в персистируемые WorkerEvents.
//
// Reference строится конкатенацией [label, source, document, stepPath,
// stepName] (компоненты, применимые к категории события) и хешируется
// MD5 — ключ дедупликации, не криптография.
type Factory struct{}

// NewFactory создаёт новый Factory.
func NewFactory() *Factory {
	return &Factory{}
}

// CreateForEvent строит WorkerEvent для domain event.
// Возвращает nil для событий, не требующих доставки.
// Полученная запись ещё не сохранена и не поставлена в очередь.
func (f *Factory) CreateForEvent(job *domain.Job, event events.Event) *domain.WorkerEvent {
	var (
		components []string
		payload    map[string]any
	)

	switch e := event.(type) {
	// События уровня job: компонентов кроме label нет,
	// тип события различает их между собой.
	case events.JobStarted, events.JobCompiled, events.JobTimedOut,
		events.JobCompleted, events.JobFailed,
		events.ExecutionStarted, events.ExecutionCompleted:
		payload = map[string]any{}

	case events.CompilationStarted:
		components = []string{e.Source}
		payload = map[string]any{"source": e.Source}

	case events.CompilationPassed:
		components = []string{e.Source}
		documents := make([]string, len(e.Tests))
		for i, t := range e.Tests {
			documents[i] = t.Target
		}
		payload = map[string]any{
			"source":    e.Source,
			"documents": documents,
		}

	case events.CompilationFailed:
		components = []string{e.Source}
		payload = map[string]any{
			"source": e.Source,
			"output": e.Output,
		}

	case events.TestStarted:
		components = testComponents(e.Test)
		payload = testPayload(e.Test)

	case events.TestPassed:
		components = testComponents(e.Test)
		payload = testPayload(e.Test)

	case events.TestFailed:
		components = testComponents(e.Test)
		payload = testPayload(e.Test)
		payload["error"] = e.Test.Error

	case events.StepPassed:
		components = append(testComponents(e.Test), e.StepPath, e.StepName)
		payload = testPayload(e.Test)
		payload["step_path"] = e.StepPath
		payload["step_name"] = e.StepName

	case events.StepFailed:
		components = append(testComponents(e.Test), e.StepPath, e.StepName)
		payload = testPayload(e.Test)
		payload["step_path"] = e.StepPath
		payload["step_name"] = e.StepName
		payload["error"] = e.Error

	default:
		return nil
	}

	return &domain.WorkerEvent{
		ID:        uuid.New(),
		Type:      event.EventType(),
		Reference: Reference(job.Label, components...),
		Payload:   payload,
		State:     domain.WorkerEventStateAwaiting,
		CreatedAt: time.Now(),
	}
}

// Reference вычисляет детерминированный ключ дедупликации:
// hex MD5 от конкатенации label и компонентов события.
func Reference(label string, components ...string) string {
	var b strings.Builder
	b.WriteString(label)
	for _, c := range components {
		b.WriteString(c)
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// testComponents возвращает компоненты reference для событий уровня test.
func testComponents(t *domain.Test) []string {
	return []string{t.Source, t.Target}
}

// testPayload возвращает общий payload для событий уровня test.
func testPayload(t *domain.Test) map[string]any {
	return map[string]any{
		"source":     t.Source,
		"document":   t.Target,
		"step_count": t.StepCount,
		"step_names": t.StepNames,
	}
}

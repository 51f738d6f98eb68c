package domain

import (
	"time"

	"github.com/google/uuid"
)

// Test — одна исполняемая единица, полученная при компиляции source.
//
// Test создаётся compile-handler'ом (по одной записи на запись манифеста
// компилятора) и выполняется строго по возрастанию Position: следующий
// test ставится в очередь только после завершения предыдущего.
type Test struct {
	// ID — уникальный идентификатор test.
	ID uuid.UUID `json:"id"`

	// ConfigurationID — ссылка на TestConfiguration (browser, url).
	ConfigurationID uuid.UUID `json:"configuration_id"`

	// Source — путь исходного YAML-файла.
	Source string `json:"source"`

	// Target — путь скомпилированного артефакта.
	Target string `json:"target"`

	// StepCount — количество шагов в скомпилированном test.
	StepCount int `json:"step_count"`

	// StepNames — имена шагов из манифеста компилятора.
	StepNames []string `json:"step_names,omitempty"`

	// Position — глобальный порядок выполнения.
	// Уникален среди всех tests текущего job.
	Position int `json:"position"`

	// State — текущий статус test.
	State TestState `json:"state"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки при неудаче.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания test.
	CreatedAt time.Time `json:"created_at"`
}

// IsFinished возвращает true, если test завершён.
func (t *Test) IsFinished() bool {
	return t.State.IsEndState()
}

// MarkRunning переводит test в статус running.
func (t *Test) MarkRunning() {
	now := time.Now()
	t.State = TestStateRunning
	t.StartedAt = &now
}

// MarkComplete переводит test в статус complete.
func (t *Test) MarkComplete() {
	now := time.Now()
	t.State = TestStateComplete
	t.FinishedAt = &now
}

// MarkFailed переводит test в статус failed с ошибкой.
func (t *Test) MarkFailed(err string) {
	now := time.Now()
	t.State = TestStateFailed
	t.FinishedAt = &now
	t.Error = err
}

// MarkCancelled переводит test в статус cancelled.
// Вызывается только для незавершённых tests (при таймауте job).
func (t *Test) MarkCancelled() {
	now := time.Now()
	t.State = TestStateCancelled
	t.FinishedAt = &now
}

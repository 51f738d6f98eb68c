package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType — закрытое множество типов worker events.
// Значения входят в тело доставки, внешний потребитель опирается на них.
type EventType string

const (
	EventTypeJobStarted   EventType = "job_started"
	EventTypeJobCompiled  EventType = "job_compiled"
	EventTypeJobTimedOut  EventType = "job_timed_out"
	EventTypeJobCompleted EventType = "job_completed"
	EventTypeJobFailed    EventType = "job_failed"

	EventTypeCompilationStarted EventType = "compilation_started"
	EventTypeCompilationPassed  EventType = "compilation_passed"
	EventTypeCompilationFailed  EventType = "compilation_failed"

	EventTypeExecutionStarted   EventType = "execution_started"
	EventTypeExecutionCompleted EventType = "execution_completed"

	EventTypeTestStarted EventType = "test_started"
	EventTypeTestPassed  EventType = "test_passed"
	EventTypeTestFailed  EventType = "test_failed"

	EventTypeStepPassed EventType = "step_passed"
	EventTypeStepFailed EventType = "step_failed"
)

// EventTypes — все известные типы событий.
// Используется подписчиками, которым нужен каждый тип (delivery dispatcher).
var EventTypes = []EventType{
	EventTypeJobStarted,
	EventTypeJobCompiled,
	EventTypeJobTimedOut,
	EventTypeJobCompleted,
	EventTypeJobFailed,
	EventTypeCompilationStarted,
	EventTypeCompilationPassed,
	EventTypeCompilationFailed,
	EventTypeExecutionStarted,
	EventTypeExecutionCompleted,
	EventTypeTestStarted,
	EventTypeTestPassed,
	EventTypeTestFailed,
	EventTypeStepPassed,
	EventTypeStepFailed,
}

// WorkerEvent — долговечная запись одного доменного события,
// отслеживающая его доставку на внешний endpoint.
//
// Reference выводится детерминированно из label job и компонентов события
// (source, document, step), поэтому повторная эмиссия логически того же
// события даёт ту же запись — это и есть механизм идемпотентности при
// повторных вызовах handler'ов.
type WorkerEvent struct {
	// ID — уникальный идентификатор записи.
	ID uuid.UUID `json:"id"`

	// Seq — монотонно возрастающий порядковый номер.
	// Передаётся наружу как sequence_number.
	Seq int64 `json:"sequence_number"`

	// Type — тип события.
	Type EventType `json:"type"`

	// Reference — ключ дедупликации (стабильный hex-digest).
	// Уникален в пределах Type.
	Reference string `json:"reference"`

	// Payload — структурированные данные события.
	Payload map[string]any `json:"payload,omitempty"`

	// State — статус доставки.
	State WorkerEventState `json:"state"`

	// Attempts — количество выполненных попыток доставки.
	Attempts int `json:"attempts"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`

	// FinishedAt — время завершения доставки (complete или failed).
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// IsFinished возвращает true, если доставка завершена.
func (e *WorkerEvent) IsFinished() bool {
	return e.State.IsEndState()
}

// MarkQueued переводит событие в статус queued.
func (e *WorkerEvent) MarkQueued() {
	e.State = WorkerEventStateQueued
}

// MarkSending переводит событие в статус sending.
// Статус остаётся sending между неудачной попыткой и её retry.
func (e *WorkerEvent) MarkSending() {
	e.State = WorkerEventStateSending
}

// MarkComplete переводит событие в статус complete.
// Завершённое событие больше не изменяется.
func (e *WorkerEvent) MarkComplete() {
	now := time.Now()
	e.State = WorkerEventStateComplete
	e.FinishedAt = &now
}

// MarkFailed переводит событие в статус failed (retry исчерпаны
// или ошибка не подлежит повтору).
func (e *WorkerEvent) MarkFailed() {
	now := time.Now()
	e.State = WorkerEventStateFailed
	e.FinishedAt = &now
}

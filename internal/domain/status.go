package domain

// TestState — статус выполнения test.
//
// Жизненный цикл:
//
//	awaiting → running → complete
//	                   ↘ failed
//	          (или) → cancelled (при таймауте job)
type TestState string

const (
	// TestStateAwaiting — test создан, ожидает своей очереди.
	TestStateAwaiting TestState = "awaiting"

	// TestStateRunning — test выполняется executor'ом.
	TestStateRunning TestState = "running"

	// TestStateFailed — test завершился с ошибкой.
	TestStateFailed TestState = "failed"

	// TestStateComplete — test успешно завершён.
	TestStateComplete TestState = "complete"

	// TestStateCancelled — test отменён (job завершился раньше).
	TestStateCancelled TestState = "cancelled"
)

// IsEndState возвращает true, если статус финальный.
func (s TestState) IsEndState() bool {
	switch s {
	case TestStateFailed, TestStateComplete, TestStateCancelled:
		return true
	default:
		return false
	}
}

// IsSuccessState возвращает true, если статус успешный.
func (s TestState) IsSuccessState() bool {
	return s == TestStateComplete
}

// IsFailedState возвращает true, если статус финальный, но не успешный.
func (s TestState) IsFailedState() bool {
	return s.IsEndState() && !s.IsSuccessState()
}

// WorkerEventState — статус доставки WorkerEvent.
//
// Жизненный цикл:
//
//	awaiting → queued → sending → complete
//	                            ↘ failed (после исчерпания retry)
type WorkerEventState string

const (
	// WorkerEventStateAwaiting — событие создано, ещё не поставлено в очередь.
	WorkerEventStateAwaiting WorkerEventState = "awaiting"

	// WorkerEventStateQueued — событие поставлено в очередь на доставку.
	WorkerEventStateQueued WorkerEventState = "queued"

	// WorkerEventStateSending — попытка доставки в процессе
	// (или неудачна и ожидает retry).
	WorkerEventStateSending WorkerEventState = "sending"

	// WorkerEventStateFailed — доставка не удалась после всех retry.
	WorkerEventStateFailed WorkerEventState = "failed"

	// WorkerEventStateComplete — событие доставлено (HTTP 2xx).
	WorkerEventStateComplete WorkerEventState = "complete"
)

// IsEndState возвращает true, если статус финальный.
func (s WorkerEventState) IsEndState() bool {
	switch s {
	case WorkerEventStateFailed, WorkerEventStateComplete:
		return true
	default:
		return false
	}
}

// IsSuccessState возвращает true, если статус успешный.
func (s WorkerEventState) IsSuccessState() bool {
	return s == WorkerEventStateComplete
}

// IsFailedState возвращает true, если статус финальный, но не успешный.
func (s WorkerEventState) IsFailedState() bool {
	return s.IsEndState() && !s.IsSuccessState()
}

// CompilationState — агрегатный статус компиляции sources.
// Вычисляется по счётчикам, не хранится в БД.
type CompilationState string

const (
	CompilationStateAwaiting CompilationState = "awaiting"
	CompilationStateRunning  CompilationState = "running"
	CompilationStateComplete CompilationState = "complete"
	CompilationStateFailed   CompilationState = "failed"
)

// IsEndState возвращает true, если статус финальный.
func (s CompilationState) IsEndState() bool {
	return s == CompilationStateComplete || s == CompilationStateFailed
}

// IsSuccessState возвращает true, если статус успешный.
func (s CompilationState) IsSuccessState() bool {
	return s == CompilationStateComplete
}

// IsFailedState возвращает true, если статус финальный, но не успешный.
func (s CompilationState) IsFailedState() bool {
	return s.IsEndState() && !s.IsSuccessState()
}

// ExecutionState — агрегатный статус выполнения tests.
type ExecutionState string

const (
	ExecutionStateAwaiting ExecutionState = "awaiting"
	ExecutionStateRunning  ExecutionState = "running"
	ExecutionStateComplete ExecutionState = "complete"
	ExecutionStateFailed   ExecutionState = "failed"
)

// IsEndState возвращает true, если статус финальный.
func (s ExecutionState) IsEndState() bool {
	return s == ExecutionStateComplete || s == ExecutionStateFailed
}

// IsSuccessState возвращает true, если статус успешный.
func (s ExecutionState) IsSuccessState() bool {
	return s == ExecutionStateComplete
}

// IsFailedState возвращает true, если статус финальный, но не успешный.
func (s ExecutionState) IsFailedState() bool {
	return s.IsEndState() && !s.IsSuccessState()
}

// EventDeliveryState — агрегатный статус доставки worker events.
type EventDeliveryState string

const (
	EventDeliveryStateAwaiting EventDeliveryState = "awaiting"
	EventDeliveryStateRunning  EventDeliveryState = "running"
	EventDeliveryStateComplete EventDeliveryState = "complete"
	EventDeliveryStateFailed   EventDeliveryState = "failed"
)

// IsEndState возвращает true, если статус финальный.
func (s EventDeliveryState) IsEndState() bool {
	return s == EventDeliveryStateComplete || s == EventDeliveryStateFailed
}

// IsSuccessState возвращает true, если статус успешный.
func (s EventDeliveryState) IsSuccessState() bool {
	return s == EventDeliveryStateComplete
}

// IsFailedState возвращает true, если статус финальный, но не успешный.
func (s EventDeliveryState) IsFailedState() bool {
	return s.IsEndState() && !s.IsSuccessState()
}

// ApplicationState — сводный статус всего worker'а.
//
// Композиция трёх агрегатов:
//
//	awaiting-job → compiling → executing → completing-event-delivery → complete
//	                                     ↘ timed-out | failed
type ApplicationState string

const (
	// ApplicationStateAwaitingJob — job ещё не создан.
	ApplicationStateAwaitingJob ApplicationState = "awaiting-job"

	// ApplicationStateCompiling — есть ещё нескомпилированные sources.
	ApplicationStateCompiling ApplicationState = "compiling"

	// ApplicationStateExecuting — есть ещё незавершённые tests.
	ApplicationStateExecuting ApplicationState = "executing"

	// ApplicationStateCompletingEventDelivery — tests завершены,
	// но остались недоставленные события.
	ApplicationStateCompletingEventDelivery ApplicationState = "completing-event-delivery"

	// ApplicationStateComplete — все три стадии завершились успешно.
	ApplicationStateComplete ApplicationState = "complete"

	// ApplicationStateTimedOut — job превысил максимальную длительность.
	ApplicationStateTimedOut ApplicationState = "timed-out"

	// ApplicationStateFailed — одна из стадий завершилась с ошибкой.
	ApplicationStateFailed ApplicationState = "failed"
)

// IsEndState возвращает true, если статус финальный.
func (s ApplicationState) IsEndState() bool {
	switch s {
	case ApplicationStateComplete, ApplicationStateTimedOut, ApplicationStateFailed:
		return true
	default:
		return false
	}
}

// IsSuccessState возвращает true, если статус успешный.
func (s ApplicationState) IsSuccessState() bool {
	return s == ApplicationStateComplete
}

// IsFailedState возвращает true, если статус финальный, но не успешный.
func (s ApplicationState) IsFailedState() bool {
	return s.IsEndState() && !s.IsSuccessState()
}

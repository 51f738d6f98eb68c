package state

import "github.com/shaiso/Relay/internal/domain"

// Counts — счётчики сущностей, из которых выводятся агрегатные статусы.
type Counts struct {
	// JobExists — принят ли job.
	JobExists bool

	// TimedOut — зафиксирован ли timeout (наличие job_timed_out события).
	TimedOut bool

	// Sources — всего sources в манифесте job'а.
	Sources int

	// SourcesPassed / SourcesFailed — исходы компиляции по sources.
	SourcesPassed int
	SourcesFailed int

	// Tests* — счётчики tests по статусам.
	TestsTotal      int
	TestsUnfinished int
	TestsFailed     int

	// Events* — счётчики worker events по статусам доставки.
	EventsTotal      int
	EventsUnfinished int
	EventsFailed     int
}

// ComputeCompilationState выводит статус компиляции из счётчиков sources.
func ComputeCompilationState(c Counts) domain.CompilationState {
	if !c.JobExists || c.Sources == 0 {
		return domain.CompilationStateAwaiting
	}

	finished := c.SourcesPassed + c.SourcesFailed
	if finished < c.Sources {
		return domain.CompilationStateRunning
	}
	if c.SourcesFailed > 0 {
		return domain.CompilationStateFailed
	}
	return domain.CompilationStateComplete
}

// ComputeExecutionState выводит статус выполнения из счётчиков tests.
// Tests появляются только после компиляции, поэтому до неё статус awaiting.
func ComputeExecutionState(c Counts) domain.ExecutionState {
	if c.TestsTotal == 0 {
		return domain.ExecutionStateAwaiting
	}
	if c.TestsUnfinished > 0 {
		return domain.ExecutionStateRunning
	}
	if c.TestsFailed > 0 {
		return domain.ExecutionStateFailed
	}
	return domain.ExecutionStateComplete
}

// ComputeEventDeliveryState выводит статус доставки из счётчиков worker events.
func ComputeEventDeliveryState(c Counts) domain.EventDeliveryState {
	if c.EventsTotal == 0 {
		return domain.EventDeliveryStateAwaiting
	}
	if c.EventsUnfinished > 0 {
		return domain.EventDeliveryStateRunning
	}
	if c.EventsFailed > 0 {
		return domain.EventDeliveryStateFailed
	}
	return domain.EventDeliveryStateComplete
}

// ComputeApplicationState композирует три статуса стадий в общий статус
// приложения.
//
// Порядок проверок отражает конвейер: job → компиляция → выполнение →
// доставка событий. Timeout перекрывает всё, кроме отсутствия job'а.
func ComputeApplicationState(c Counts) domain.ApplicationState {
	if !c.JobExists {
		return domain.ApplicationStateAwaitingJob
	}
	if c.TimedOut {
		return domain.ApplicationStateTimedOut
	}

	compilation := ComputeCompilationState(c)
	execution := ComputeExecutionState(c)
	eventDelivery := ComputeEventDeliveryState(c)

	if !compilation.IsEndState() {
		return domain.ApplicationStateCompiling
	}
	if compilation.IsFailedState() {
		return domain.ApplicationStateFailed
	}

	if !execution.IsEndState() {
		return domain.ApplicationStateExecuting
	}

	if !eventDelivery.IsEndState() {
		return domain.ApplicationStateCompletingEventDelivery
	}

	if execution.IsSuccessState() && eventDelivery.IsSuccessState() {
		return domain.ApplicationStateComplete
	}
	return domain.ApplicationStateFailed
}

// Snapshot — срез всех агрегатных статусов в один момент времени.
type Snapshot struct {
	Application   domain.ApplicationState   `json:"application"`
	Compilation   domain.CompilationState   `json:"compilation"`
	Execution     domain.ExecutionState     `json:"execution"`
	EventDelivery domain.EventDeliveryState `json:"event_delivery"`
}

// ComputeSnapshot выводит все статусы из одного набора счётчиков.
func ComputeSnapshot(c Counts) Snapshot {
	return Snapshot{
		Application:   ComputeApplicationState(c),
		Compilation:   ComputeCompilationState(c),
		Execution:     ComputeExecutionState(c),
		EventDelivery: ComputeEventDeliveryState(c),
	}
}

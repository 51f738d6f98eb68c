package events

import (
	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/manifest"
)

// Event — одно доменное событие.
//
// Каждый вариант — неизменяемая запись с типом из закрытого множества
// domain.EventTypes и полезными данными своей категории
// (job-scoped, source-scoped, test-scoped, step-scoped).
type Event interface {
	// EventType возвращает тип события.
	EventType() domain.EventType
}

// --- Job-scoped события ---

// JobStarted — job создан и готов к обработке.
type JobStarted struct{}

// JobCompiled — все sources скомпилированы.
type JobCompiled struct{}

// JobTimedOut — job превысил максимальную длительность.
type JobTimedOut struct{}

// JobCompleted — job завершился успешно.
type JobCompleted struct{}

// JobFailed — job завершился с ошибкой.
type JobFailed struct{}

func (JobStarted) EventType() domain.EventType   { return domain.EventTypeJobStarted }
func (JobCompiled) EventType() domain.EventType  { return domain.EventTypeJobCompiled }
func (JobTimedOut) EventType() domain.EventType  { return domain.EventTypeJobTimedOut }
func (JobCompleted) EventType() domain.EventType { return domain.EventTypeJobCompleted }
func (JobFailed) EventType() domain.EventType    { return domain.EventTypeJobFailed }

// --- Source-scoped события ---

// CompilationStarted — компиляция source началась.
type CompilationStarted struct {
	// Source — путь компилируемого файла.
	Source string
}

// CompilationPassed — source успешно скомпилирован.
type CompilationPassed struct {
	// Source — путь скомпилированного файла.
	Source string

	// Tests — записи выходного манифеста компилятора.
	Tests []manifest.CompiledTest
}

// CompilationFailed — компиляция source не удалась.
type CompilationFailed struct {
	// Source — путь файла.
	Source string

	// Output — структурированный вывод компилятора.
	Output manifest.CompilationOutput
}

func (CompilationStarted) EventType() domain.EventType { return domain.EventTypeCompilationStarted }
func (CompilationPassed) EventType() domain.EventType  { return domain.EventTypeCompilationPassed }
func (CompilationFailed) EventType() domain.EventType  { return domain.EventTypeCompilationFailed }

// --- Execution-scoped события ---

// ExecutionStarted — выполнение tests началось.
type ExecutionStarted struct{}

// ExecutionCompleted — все tests завершены.
type ExecutionCompleted struct{}

func (ExecutionStarted) EventType() domain.EventType   { return domain.EventTypeExecutionStarted }
func (ExecutionCompleted) EventType() domain.EventType { return domain.EventTypeExecutionCompleted }

// --- Test-scoped события ---

// TestStarted — test начал выполняться.
type TestStarted struct {
	Test *domain.Test
}

// TestPassed — test успешно завершён.
type TestPassed struct {
	Test *domain.Test
}

// TestFailed — test завершился с ошибкой.
type TestFailed struct {
	Test *domain.Test
}

func (TestStarted) EventType() domain.EventType { return domain.EventTypeTestStarted }
func (TestPassed) EventType() domain.EventType  { return domain.EventTypeTestPassed }
func (TestFailed) EventType() domain.EventType  { return domain.EventTypeTestFailed }

// --- Step-scoped события ---

// StepPassed — шаг test'а прошёл.
type StepPassed struct {
	Test *domain.Test

	// StepName — имя шага.
	StepName string

	// StepPath — путь шага внутри документа.
	StepPath string
}

// StepFailed — шаг test'а упал.
type StepFailed struct {
	Test *domain.Test

	// StepName — имя шага.
	StepName string

	// StepPath — путь шага внутри документа.
	StepPath string

	// Error — сообщение executor'а.
	Error string
}

func (StepPassed) EventType() domain.EventType { return domain.EventTypeStepPassed }
func (StepFailed) EventType() domain.EventType { return domain.EventTypeStepFailed }

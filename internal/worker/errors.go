package worker

import "errors"

// Ошибки воркера.
var (
	// ErrNoJob — job не существует.
	ErrNoJob = errors.New("no job exists")

	// ErrCompilationNotRunning — компиляция не в статусе running.
	ErrCompilationNotRunning = errors.New("compilation is not running")

	// ErrSourceNotFound — source не найден в БД.
	ErrSourceNotFound = errors.New("source not found")

	// ErrTestNotFound — test не найден в БД.
	ErrTestNotFound = errors.New("test not found")

	// ErrTestNotAwaiting — test не в статусе awaiting.
	ErrTestNotAwaiting = errors.New("test is not in awaiting state")

	// ErrExecutionFinished — выполнение tests уже завершено.
	ErrExecutionFinished = errors.New("execution already finished")

	// ErrEventNotFound — worker event не найден в БД.
	ErrEventNotFound = errors.New("worker event not found")

	// ErrCompilerRequest — запрос к внешнему compiler'у завершился ошибкой.
	ErrCompilerRequest = errors.New("compiler request failed")

	// ErrExecutorRequest — запрос к внешнему executor'у завершился ошибкой.
	ErrExecutorRequest = errors.New("executor request failed")
)

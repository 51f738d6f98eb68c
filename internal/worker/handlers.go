package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/events"
	"github.com/shaiso/Relay/internal/mq"
	"github.com/shaiso/Relay/internal/repo"
	"github.com/shaiso/Relay/internal/state"
	"github.com/shaiso/Relay/internal/telemetry"
)

// expectedError сообщает, является ли ошибка ожидаемой ситуацией
// идемпотентного handler'а (сообщение подтверждается без retry).
func expectedError(err error) bool {
	return errors.Is(err, ErrNoJob) ||
		errors.Is(err, ErrCompilationNotRunning) ||
		errors.Is(err, ErrSourceNotFound) ||
		errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrTestNotAwaiting) ||
		errors.Is(err, ErrExecutionFinished) ||
		errors.Is(err, ErrEventNotFound)
}

// --- jobs.ready ---

// handleJobReady обрабатывает сообщение о принятом job.
func (w *Worker) handleJobReady(ctx context.Context, delivery *mq.Delivery) error {
	if err := w.processJobReady(ctx); err != nil {
		if expectedError(err) {
			w.logger.Debug("job.ready skipped", "reason", err)
			return nil
		}
		w.logger.Error("failed to process job.ready", "error", err)
		return err
	}
	return nil
}

// processJobReady запускает конвейер: эмитирует job_started и ставит
// каждый source в очередь компиляции.
func (w *Worker) processJobReady(ctx context.Context) error {
	if _, err := w.loadJob(ctx); err != nil {
		return err
	}

	if err := w.bus.Publish(ctx, events.JobStarted{}); err != nil {
		return fmt.Errorf("publish job started: %w", err)
	}

	// Монитор перезапускается на каждый принятый job: после сброса
	// состояния предыдущий job мог остановить его насовсем
	if err := w.monitor.Start(w.runCtx); err != nil {
		return fmt.Errorf("start timeout monitor: %w", err)
	}

	sources, err := w.sourceRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}

	for i := range sources {
		if err := w.publisher.PublishSourceCompile(ctx, sources[i].Path); err != nil {
			return fmt.Errorf("enqueue compilation of %s: %w", sources[i].Path, err)
		}
	}

	w.logger.Info("job pipeline started", "sources", len(sources))
	return nil
}

// --- sources.compile ---

// handleSourceCompile обрабатывает задачу компиляции одного source.
func (w *Worker) handleSourceCompile(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.SourceCompilePayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse source.compile payload", "error", err)
		return err
	}

	if err := w.processCompileSource(ctx, payload.Path); err != nil {
		if expectedError(err) {
			w.logger.Debug("source.compile skipped", "path", payload.Path, "reason", err)
			return nil
		}
		w.logger.Error("failed to compile source", "path", payload.Path, "error", err)
		return err
	}
	return nil
}

// processCompileSource компилирует один source внешним compiler'ом.
//
// No-op, если job не существует, компиляция не running или у source
// уже есть зафиксированный исход (повторная доставка сообщения).
func (w *Worker) processCompileSource(ctx context.Context, path string) error {
	job, err := w.loadJob(ctx)
	if err != nil {
		return err
	}

	counts, err := w.aggregator.Counts(ctx)
	if err != nil {
		return fmt.Errorf("aggregate counts: %w", err)
	}
	if state.ComputeCompilationState(counts) != domain.CompilationStateRunning {
		return ErrCompilationNotRunning
	}

	finished, err := w.compilationFinished(ctx, job, path)
	if err != nil {
		return err
	}
	if finished {
		// Исход уже зафиксирован — дубликат сообщения
		return nil
	}

	source, err := w.sourceRepo.GetByPath(ctx, path)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return fmt.Errorf("get source: %w", err)
	}

	if err := w.bus.Publish(ctx, events.CompilationStarted{Source: path}); err != nil {
		return fmt.Errorf("publish compilation started: %w", err)
	}

	w.logger.Info("compiling source", "path", path, "type", source.Type)

	result, err := w.compiler.Compile(ctx, source)
	if err != nil {
		// Инфраструктурная ошибка — сообщение вернётся в очередь
		return err
	}

	if result.Passed {
		telemetry.CompilationsTotal.WithLabelValues(telemetry.OutcomePassed).Inc()
		err = w.bus.Publish(ctx, events.CompilationPassed{Source: path, Tests: result.Tests})
	} else {
		telemetry.CompilationsTotal.WithLabelValues(telemetry.OutcomeFailed).Inc()
		w.logger.Warn("compilation failed", "path", path, "errors", result.Output.Errors)
		err = w.bus.Publish(ctx, events.CompilationFailed{Source: path, Output: result.Output})
	}
	if err != nil {
		return fmt.Errorf("publish compilation outcome: %w", err)
	}

	return w.afterCompilation(ctx)
}

// afterCompilation проверяет, завершилась ли компиляция целиком,
// и переводит конвейер к стадии выполнения.
func (w *Worker) afterCompilation(ctx context.Context) error {
	counts, err := w.aggregator.Counts(ctx)
	if err != nil {
		return fmt.Errorf("aggregate counts: %w", err)
	}

	compilation := state.ComputeCompilationState(counts)
	if !compilation.IsEndState() {
		return nil
	}

	if compilation.IsFailedState() {
		// Компиляция провалена — job завершается, созданные tests отменяются
		if _, err := w.testRepo.CancelUnfinished(ctx); err != nil {
			return fmt.Errorf("cancel tests after compilation failure: %w", err)
		}
		if err := w.bus.Publish(ctx, events.JobFailed{}); err != nil {
			return fmt.Errorf("publish job failed: %w", err)
		}
		w.monitor.Stop()
		w.logger.Warn("job failed: compilation errors")
		return nil
	}

	if err := w.bus.Publish(ctx, events.JobCompiled{}); err != nil {
		return fmt.Errorf("publish job compiled: %w", err)
	}
	if err := w.bus.Publish(ctx, events.ExecutionStarted{}); err != nil {
		return fmt.Errorf("publish execution started: %w", err)
	}

	w.logger.Info("compilation complete, starting execution")

	// Первый test конвейера выполнения
	return w.enqueueNextTest(ctx)
}

// onCompilationPassed — подписчик шины: создаёт tests по записям
// выходного манифеста компилятора.
func (w *Worker) onCompilationPassed(ctx context.Context, event events.Event) error {
	passed, ok := event.(events.CompilationPassed)
	if !ok {
		return nil
	}

	// Guard от повторной эмиссии: tests этого source уже созданы
	existing, err := w.testRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list tests: %w", err)
	}
	for i := range existing {
		if existing[i].Source == passed.Source {
			return nil
		}
	}

	maxPosition, err := w.testRepo.MaxPosition(ctx)
	if err != nil {
		return err
	}

	tests := make([]domain.Test, 0, len(passed.Tests))
	for i, compiled := range passed.Tests {
		cfg, err := w.configRepo.GetOrCreate(ctx, compiled.Browser, compiled.URL)
		if err != nil {
			return fmt.Errorf("get or create test configuration: %w", err)
		}

		tests = append(tests, domain.Test{
			ID:              uuid.New(),
			ConfigurationID: cfg.ID,
			Source:          compiled.Source,
			Target:          compiled.Target,
			StepCount:       compiled.StepCount,
			StepNames:       compiled.StepNames,
			Position:        maxPosition + i + 1,
			State:           domain.TestStateAwaiting,
			CreatedAt:       time.Now(),
		})
	}

	if len(tests) == 0 {
		return nil
	}

	if err := w.testRepo.CreateAll(ctx, tests); err != nil {
		return fmt.Errorf("create tests: %w", err)
	}

	w.logger.Info("tests created",
		"source", passed.Source,
		"count", len(tests),
	)
	return nil
}

// --- tests.execute ---

// handleTestExecute обрабатывает задачу выполнения одного test.
func (w *Worker) handleTestExecute(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.TestExecutePayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse test.execute payload", "error", err)
		return err
	}

	if err := w.processExecuteTest(ctx, payload.TestID); err != nil {
		if expectedError(err) {
			w.logger.Debug("test.execute skipped", "test_id", payload.TestID, "reason", err)
			return nil
		}
		w.logger.Error("failed to execute test", "test_id", payload.TestID, "error", err)
		return err
	}
	return nil
}

// processExecuteTest выполняет один test внешним executor'ом.
//
// Guards против дубликатов и запоздавших сообщений: job должен
// существовать, выполнение не должно быть завершено, test должен
// существовать и быть awaiting.
func (w *Worker) processExecuteTest(ctx context.Context, testID uuid.UUID) error {
	if _, err := w.loadJob(ctx); err != nil {
		return err
	}

	counts, err := w.aggregator.Counts(ctx)
	if err != nil {
		return fmt.Errorf("aggregate counts: %w", err)
	}
	if state.ComputeExecutionState(counts).IsEndState() {
		return ErrExecutionFinished
	}

	test, err := w.testRepo.GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTestNotFound, testID)
		}
		return fmt.Errorf("get test: %w", err)
	}

	if test.State != domain.TestStateAwaiting {
		return ErrTestNotAwaiting
	}

	// Первое выполнение любого test фиксирует старт отсчёта
	// максимальной длительности job'а
	if err := w.jobRepo.SetStartedAt(ctx, time.Now()); err != nil {
		return err
	}

	test.MarkRunning()
	if err := w.testRepo.Update(ctx, test); err != nil {
		return fmt.Errorf("update test to running: %w", err)
	}

	if err := w.bus.Publish(ctx, events.TestStarted{Test: test}); err != nil {
		return fmt.Errorf("publish test started: %w", err)
	}

	w.logger.Info("test started",
		"test_id", test.ID,
		"source", test.Source,
		"position", test.Position,
	)

	cfg, err := w.configRepo.GetByID(ctx, test.ConfigurationID)
	if err != nil {
		return fmt.Errorf("get test configuration: %w", err)
	}

	result, execErr := w.executor.Execute(ctx, test, cfg)

	if execErr != nil {
		// Инфраструктурная ошибка executor'а — исход неизвестен,
		// test считается упавшим
		test.MarkFailed(execErr.Error())
	} else {
		if err := w.publishStepEvents(ctx, test, result); err != nil {
			return err
		}

		if result.Passed {
			test.MarkComplete()
		} else {
			test.MarkFailed(result.Error)
		}
	}

	// Исход записывается только если test всё ещё running: пока executor
	// работал, таймаут job'а мог отменить test — отмена имеет приоритет
	applied, err := w.testRepo.FinishRunning(ctx, test)
	if err != nil {
		return fmt.Errorf("update test outcome: %w", err)
	}
	if !applied {
		w.logger.Info("test outcome superseded",
			"test_id", test.ID,
			"source", test.Source,
		)
		return nil
	}

	var outcomeEvent events.Event
	if test.State.IsSuccessState() {
		telemetry.TestsExecutedTotal.WithLabelValues(telemetry.OutcomePassed).Inc()
		outcomeEvent = events.TestPassed{Test: test}
		w.logger.Info("test passed", "test_id", test.ID, "source", test.Source)
	} else {
		telemetry.TestsExecutedTotal.WithLabelValues(telemetry.OutcomeFailed).Inc()
		outcomeEvent = events.TestFailed{Test: test}
		w.logger.Warn("test failed", "test_id", test.ID, "source", test.Source, "error", test.Error)
	}
	if err := w.bus.Publish(ctx, outcomeEvent); err != nil {
		return fmt.Errorf("publish test outcome: %w", err)
	}

	// Строго последовательное выполнение: следующий test ставится
	// в очередь только после записи исхода предыдущего
	return w.driveNext(ctx)
}

// publishStepEvents эмитирует события по исходам шагов test'а.
func (w *Worker) publishStepEvents(ctx context.Context, test *domain.Test, result *ExecuteResult) error {
	for _, step := range result.Steps {
		var event events.Event
		if step.Passed {
			event = events.StepPassed{Test: test, StepName: step.Name, StepPath: step.Path}
		} else {
			event = events.StepFailed{Test: test, StepName: step.Name, StepPath: step.Path, Error: step.Error}
		}
		if err := w.bus.Publish(ctx, event); err != nil {
			return fmt.Errorf("publish step event: %w", err)
		}
	}
	return nil
}

// enqueueNextTest ставит в очередь awaiting test с минимальной позицией.
// Если таких нет — no-op.
func (w *Worker) enqueueNextTest(ctx context.Context) error {
	next, err := w.testRepo.NextAwaiting(ctx)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find next awaiting test: %w", err)
	}
	return w.publisher.PublishTestExecute(ctx, next.ID)
}

// driveNext продолжает конвейер выполнения: ставит следующий test
// либо, если awaiting tests не осталось, завершает стадию выполнения
// и сам job.
func (w *Worker) driveNext(ctx context.Context) error {
	next, err := w.testRepo.NextAwaiting(ctx)
	if err == nil {
		return w.publisher.PublishTestExecute(ctx, next.ID)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return fmt.Errorf("find next awaiting test: %w", err)
	}

	counts, err := w.aggregator.Counts(ctx)
	if err != nil {
		return fmt.Errorf("aggregate counts: %w", err)
	}

	if counts.TimedOut {
		// job_timed_out уже зафиксирован — итоговые события
		// выполнения и job'а после него не эмитируются
		return nil
	}

	execution := state.ComputeExecutionState(counts)
	if !execution.IsEndState() {
		// Остались running tests (запоздавший дубликат) — конвейер
		// продолжит движение после их завершения
		return nil
	}

	if err := w.bus.Publish(ctx, events.ExecutionCompleted{}); err != nil {
		return fmt.Errorf("publish execution completed: %w", err)
	}

	var jobOutcome events.Event
	if execution.IsSuccessState() {
		jobOutcome = events.JobCompleted{}
		w.logger.Info("job completed: all tests passed")
	} else {
		jobOutcome = events.JobFailed{}
		w.logger.Warn("job failed", "failed_tests", counts.TestsFailed)
	}
	if err := w.bus.Publish(ctx, jobOutcome); err != nil {
		return fmt.Errorf("publish job outcome: %w", err)
	}

	// Job достиг конечного состояния — таймаут больше не отслеживается
	w.monitor.Stop()
	return nil
}

// --- events.deliver ---

// handleEventDeliver обрабатывает задачу доставки одного worker event.
func (w *Worker) handleEventDeliver(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.EventDeliverPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse event.deliver payload", "error", err)
		return err
	}

	if err := w.processDeliverEvent(ctx, payload.EventID); err != nil {
		if expectedError(err) {
			w.logger.Debug("event.deliver skipped", "event_id", payload.EventID, "reason", err)
			return nil
		}
		w.logger.Error("failed to deliver event", "event_id", payload.EventID, "error", err)
		return err
	}
	return nil
}

// processDeliverEvent доставляет один worker event с retry.
//
// No-op, если запись не существует или доставка уже завершена.
// Статус sending сохраняется между неудачной попыткой и retry —
// он и есть durable-маркер незавершённой доставки.
func (w *Worker) processDeliverEvent(ctx context.Context, eventID uuid.UUID) error {
	event, err := w.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return fmt.Errorf("get worker event: %w", err)
	}

	if event.IsFinished() {
		return nil
	}

	job, err := w.loadJob(ctx)
	if err != nil {
		return err
	}

	for {
		event.Attempts++
		event.MarkSending()
		if err := w.eventRepo.Update(ctx, event); err != nil {
			return fmt.Errorf("update event to sending: %w", err)
		}

		deliverErr := w.deliverer.Deliver(ctx, job, event)
		if deliverErr == nil {
			telemetry.EventDeliveriesTotal.WithLabelValues(telemetry.OutcomeComplete).Inc()
			event.MarkComplete()
			if err := w.eventRepo.Update(ctx, event); err != nil {
				return fmt.Errorf("update event to complete: %w", err)
			}
			w.logger.Debug("event delivered",
				"type", event.Type,
				"reference", event.Reference,
				"attempts", event.Attempts,
			)
			return nil
		}

		if !w.retry.IsRetryable(event.Attempts) {
			telemetry.EventDeliveriesTotal.WithLabelValues(telemetry.OutcomeFailed).Inc()
			event.MarkFailed()
			if err := w.eventRepo.Update(ctx, event); err != nil {
				return fmt.Errorf("update event to failed: %w", err)
			}
			w.logger.Warn("event delivery exhausted retries",
				"type", event.Type,
				"reference", event.Reference,
				"attempts", event.Attempts,
				"error", deliverErr,
			)
			return nil
		}

		telemetry.EventDeliveryRetriesTotal.Inc()
		delay := w.retry.WaitingTime(event.Attempts, deliverErr)
		w.logger.Debug("retrying event delivery",
			"type", event.Type,
			"attempt", event.Attempts,
			"delay", delay,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// --- timeout ---

// CheckTimeout — периодическая проверка таймаута job'а.
//
// No-op, если job не существует. Если job достиг конечного состояния —
// монитор отменяется. Если превышена максимальная длительность —
// эмитируется job_timed_out (подписчик отменит незавершённые tests)
// и монитор останавливается.
func (w *Worker) CheckTimeout(ctx context.Context) error {
	job, err := w.jobRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get job: %w", err)
	}

	ended, err := w.aggregator.JobEnded(ctx)
	if err != nil {
		return err
	}
	if ended {
		w.monitor.Stop()
		return nil
	}

	if !job.HasReachedMaximumDuration(time.Now()) {
		return nil
	}

	telemetry.JobTimeoutsTotal.Inc()
	w.logger.Warn("job reached maximum duration",
		"label", job.Label,
		"maximum_duration_seconds", job.MaximumDurationInSeconds,
	)

	if err := w.bus.Publish(ctx, events.JobTimedOut{}); err != nil {
		return fmt.Errorf("publish job timed out: %w", err)
	}

	w.monitor.Stop()
	return nil
}

// onJobTimedOut — подписчик шины: отменяет все незавершённые tests.
func (w *Worker) onJobTimedOut(ctx context.Context, event events.Event) error {
	cancelled, err := w.testRepo.CancelUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("cancel unfinished tests: %w", err)
	}

	w.logger.Info("unfinished tests cancelled", "count", cancelled)
	return nil
}

// --- helpers ---

// loadJob возвращает текущий job либо ErrNoJob.
func (w *Worker) loadJob(ctx context.Context) (*domain.Job, error) {
	job, err := w.jobRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNoJob
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

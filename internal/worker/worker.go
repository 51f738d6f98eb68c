package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Relay/internal/delivery"
	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/events"
	"github.com/shaiso/Relay/internal/mq"
	"github.com/shaiso/Relay/internal/state"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultPrefetch     = 1
)

// PriorityDomain — приоритет доменных подписчиков на шине событий.
// Они выполняются раньше delivery dispatcher'а: worker event должен
// фиксировать уже применённое изменение состояния.
const PriorityDomain = 10

// Worker ведёт единственный job через конвейер
// компиляция → выполнение → доставка событий.
//
// Worker:
//   - Получает задачи из очередей RabbitMQ (event-driven)
//   - Периодически перепроверяет БД (polling fallback)
//   - Вызывает внешние compiler и executor по HTTP
//   - Доставляет worker events с retry и exponential backoff
//   - Следит за таймаутом job'а
type Worker struct {
	// Stores
	jobRepo    JobStore
	sourceRepo SourceStore
	configRepo ConfigStore
	testRepo   TestStore
	eventRepo  EventStore

	// Aggregated state
	aggregator StateAggregator

	// Event bus
	bus *events.Bus

	// MQ
	publisher TaskPublisher
	conn      *mq.Connection
	consumers []*mq.Consumer

	// External collaborators
	compiler Compiler
	executor Executor

	// Delivery
	deliverer EventDeliverer
	retry     *delivery.RetryStrategy

	// Timeout monitor
	monitor *TimeoutMonitor

	// Configuration
	pollInterval time.Duration

	// Lifecycle
	logger     *slog.Logger
	runCtx     context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Stores
	JobRepo    JobStore
	SourceRepo SourceStore
	ConfigRepo ConfigStore
	TestRepo   TestStore
	EventRepo  EventStore

	// Aggregator
	Aggregator StateAggregator

	// Event bus
	Bus *events.Bus

	// MQ
	Publisher TaskPublisher
	Conn      *mq.Connection

	// External collaborators
	Compiler Compiler
	Executor Executor

	// Delivery
	Deliverer EventDeliverer

	// TimeoutCheckInterval — период проверки таймаута job'а (default: 10s)
	TimeoutCheckInterval time.Duration

	// PollInterval — интервал polling fallback (default: 10s)
	PollInterval time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Worker{
		jobRepo:      cfg.JobRepo,
		sourceRepo:   cfg.SourceRepo,
		configRepo:   cfg.ConfigRepo,
		testRepo:     cfg.TestRepo,
		eventRepo:    cfg.EventRepo,
		aggregator:   cfg.Aggregator,
		bus:          cfg.Bus,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		compiler:     cfg.Compiler,
		executor:     cfg.Executor,
		deliverer:    cfg.Deliverer,
		retry:        delivery.NewRetryStrategy(),
		pollInterval: pollInterval,
		logger:       logger,
	}

	w.monitor = NewTimeoutMonitor(cfg.TimeoutCheckInterval, w.CheckTimeout, logger)

	// Доменные подписчики шины. Delivery dispatcher регистрируется
	// отдельно (в main) со своим приоритетом.
	w.bus.Subscribe(domain.EventTypeCompilationPassed, PriorityDomain, w.onCompilationPassed)
	w.bus.Subscribe(domain.EventTypeJobTimedOut, PriorityDomain, w.onJobTimedOut)

	return w
}

// Start запускает Worker.
//
// Запускает:
//   - Consumers для jobs.ready, sources.compile, tests.execute, events.deliver
//   - Polling горутину для fallback
//   - Монитор таймаута job'а
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.runCtx = ctx
	w.cancelFunc = cancel

	w.logger.Info("starting worker", "poll_interval", w.pollInterval)

	queues := []struct {
		queue    mq.Queue
		expected mq.MessageType
		handler  mq.Handler
	}{
		{mq.QueueJobsReady, mq.MessageTypeJobReady, w.handleJobReady},
		{mq.QueueSourcesCompile, mq.MessageTypeSourceCompile, w.handleSourceCompile},
		{mq.QueueTestsExecute, mq.MessageTypeTestExecute, w.handleTestExecute},
		{mq.QueueEventsDeliver, mq.MessageTypeEventDeliver, w.handleEventDeliver},
	}

	for _, q := range queues {
		consumer := mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    q.queue,
			Expected: q.expected,
			Handler:  q.handler,
			Prefetch: defaultPrefetch,
		})
		w.consumers = append(w.consumers, consumer)

		w.wg.Add(1)
		go func(c *mq.Consumer, queue mq.Queue) {
			defer w.wg.Done()
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("consumer error", "queue", queue, "error", err)
			}
		}(consumer, q.queue)
	}

	// Polling fallback
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	// Монитор таймаута
	w.monitor.Start(ctx)

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	w.monitor.Stop()

	if w.cancelFunc != nil {
		w.cancelFunc()
	}

	for _, consumer := range w.consumers {
		consumer.Stop()
	}

	// Ждём завершения горутин
	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// pollLoop — цикл polling для fallback.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем работу,
	// оставшуюся с прошлого запуска)
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling: подхватывает недоставленные события,
// source без исхода компиляции и следующий awaiting test, если их
// сообщения потерялись.
func (w *Worker) poll(ctx context.Context) {
	w.pollDeliveries(ctx)
	w.pollCompilation(ctx)
	w.pollExecution(ctx)
}

// pollDeliveries доставляет события, застрявшие в awaiting/queued, а также
// sending-события с потерянным сообщением доставки (в пределах лимита попыток).
func (w *Worker) pollDeliveries(ctx context.Context) {
	undelivered, err := w.eventRepo.ListUndelivered(ctx, delivery.MaxRetries, 50)
	if err != nil {
		w.logger.Error("failed to list undelivered events", "error", err)
		return
	}

	for i := range undelivered {
		event := &undelivered[i]
		if err := w.publisher.PublishEventDeliver(ctx, event.ID); err != nil {
			w.logger.Error("failed to re-enqueue event delivery",
				"event_id", event.ID,
				"error", err,
			)
		}
	}
}

// pollCompilation повторно ставит в очередь sources без исхода компиляции.
func (w *Worker) pollCompilation(ctx context.Context) {
	counts, err := w.aggregator.Counts(ctx)
	if err != nil {
		w.logger.Error("failed to aggregate counts", "error", err)
		return
	}
	if state.ComputeCompilationState(counts) != domain.CompilationStateRunning {
		return
	}

	job, err := w.jobRepo.Get(ctx)
	if err != nil {
		return
	}

	sources, err := w.sourceRepo.List(ctx)
	if err != nil {
		w.logger.Error("failed to list sources", "error", err)
		return
	}

	for i := range sources {
		source := &sources[i]

		finished, err := w.compilationFinished(ctx, job, source.Path)
		if err != nil {
			w.logger.Error("failed to check compilation outcome",
				"path", source.Path,
				"error", err,
			)
			continue
		}
		if finished {
			continue
		}

		if err := w.publisher.PublishSourceCompile(ctx, source.Path); err != nil {
			w.logger.Error("failed to re-enqueue source compilation",
				"path", source.Path,
				"error", err,
			)
		}
	}
}

// compilationFinished проверяет наличие исхода компиляции source
// по reference соответствующих worker events.
func (w *Worker) compilationFinished(ctx context.Context, job *domain.Job, path string) (bool, error) {
	reference := delivery.Reference(job.Label, path)

	passed, err := w.eventRepo.ExistsByReference(ctx, domain.EventTypeCompilationPassed, reference)
	if err != nil {
		return false, err
	}
	if passed {
		return true, nil
	}

	return w.eventRepo.ExistsByReference(ctx, domain.EventTypeCompilationFailed, reference)
}

// pollExecution ставит в очередь следующий awaiting test, если выполнение
// идёт, но ни один test сейчас не running.
func (w *Worker) pollExecution(ctx context.Context) {
	counts, err := w.aggregator.Counts(ctx)
	if err != nil {
		return
	}
	if state.ComputeExecutionState(counts) != domain.ExecutionStateRunning {
		return
	}

	_, running, _, _, err := w.testRepo.Counts(ctx)
	if err != nil || running > 0 {
		return
	}

	next, err := w.testRepo.NextAwaiting(ctx)
	if err != nil {
		return
	}

	if err := w.publisher.PublishTestExecute(ctx, next.ID); err != nil {
		w.logger.Error("failed to re-enqueue test execution",
			"test_id", next.ID,
			"error", err,
		)
	}
}

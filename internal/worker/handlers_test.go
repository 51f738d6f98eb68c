package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Relay/internal/delivery"
	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/events"
	"github.com/shaiso/Relay/internal/repo"
	"github.com/shaiso/Relay/internal/state"
)

// --- Фейки хранилищ ---

type fakeJobStore struct {
	job *domain.Job
}

func (s *fakeJobStore) Get(ctx context.Context) (*domain.Job, error) {
	if s.job == nil {
		return nil, repo.ErrNotFound
	}
	return s.job, nil
}

func (s *fakeJobStore) SetStartedAt(ctx context.Context, startedAt time.Time) error {
	if s.job != nil {
		s.job.MarkStarted(startedAt)
	}
	return nil
}

type fakeSourceStore struct {
	items []domain.Source
}

func (s *fakeSourceStore) List(ctx context.Context) ([]domain.Source, error) {
	return s.items, nil
}

func (s *fakeSourceStore) GetByPath(ctx context.Context, path string) (*domain.Source, error) {
	for i := range s.items {
		if s.items[i].Path == path {
			return &s.items[i], nil
		}
	}
	return nil, repo.ErrNotFound
}

type fakeConfigStore struct {
	items map[uuid.UUID]*domain.TestConfiguration
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{items: make(map[uuid.UUID]*domain.TestConfiguration)}
}

func (s *fakeConfigStore) add(browser, url string) uuid.UUID {
	id := uuid.New()
	s.items[id] = &domain.TestConfiguration{ID: id, Browser: browser, URL: url}
	return id
}

func (s *fakeConfigStore) GetOrCreate(ctx context.Context, browser, url string) (*domain.TestConfiguration, error) {
	for _, cfg := range s.items {
		if cfg.Browser == browser && cfg.URL == url {
			return cfg, nil
		}
	}
	cfg := &domain.TestConfiguration{ID: uuid.New(), Browser: browser, URL: url}
	s.items[cfg.ID] = cfg
	return cfg, nil
}

func (s *fakeConfigStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TestConfiguration, error) {
	cfg, ok := s.items[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return cfg, nil
}

// fakeTestStore повторяет семантику TestRepo в памяти, включая
// FinishRunning с проверкой текущего состояния.
type fakeTestStore struct {
	items []*domain.Test
}

func (s *fakeTestStore) find(id uuid.UUID) *domain.Test {
	for _, t := range s.items {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *fakeTestStore) CreateAll(ctx context.Context, tests []domain.Test) error {
	for i := range tests {
		t := tests[i]
		s.items = append(s.items, &t)
	}
	return nil
}

func (s *fakeTestStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Test, error) {
	stored := s.find(id)
	if stored == nil {
		return nil, repo.ErrNotFound
	}
	// Handler работает с копией, как при чтении из БД
	cp := *stored
	return &cp, nil
}

func (s *fakeTestStore) NextAwaiting(ctx context.Context) (*domain.Test, error) {
	var next *domain.Test
	for _, t := range s.items {
		if t.State != domain.TestStateAwaiting {
			continue
		}
		if next == nil || t.Position < next.Position {
			next = t
		}
	}
	if next == nil {
		return nil, repo.ErrNotFound
	}
	cp := *next
	return &cp, nil
}

func (s *fakeTestStore) List(ctx context.Context) ([]domain.Test, error) {
	out := make([]domain.Test, len(s.items))
	for i, t := range s.items {
		out[i] = *t
	}
	return out, nil
}

func (s *fakeTestStore) Update(ctx context.Context, t *domain.Test) error {
	stored := s.find(t.ID)
	if stored == nil {
		return repo.ErrNotFound
	}
	stored.State = t.State
	stored.StartedAt = t.StartedAt
	stored.FinishedAt = t.FinishedAt
	stored.Error = t.Error
	return nil
}

func (s *fakeTestStore) FinishRunning(ctx context.Context, t *domain.Test) (bool, error) {
	stored := s.find(t.ID)
	if stored == nil || stored.State != domain.TestStateRunning {
		return false, nil
	}
	stored.State = t.State
	stored.StartedAt = t.StartedAt
	stored.FinishedAt = t.FinishedAt
	stored.Error = t.Error
	return true, nil
}

func (s *fakeTestStore) CancelUnfinished(ctx context.Context) (int64, error) {
	var cancelled int64
	for _, t := range s.items {
		if t.State == domain.TestStateAwaiting || t.State == domain.TestStateRunning {
			t.MarkCancelled()
			cancelled++
		}
	}
	return cancelled, nil
}

func (s *fakeTestStore) MaxPosition(ctx context.Context) (int, error) {
	max := 0
	for _, t := range s.items {
		if t.Position > max {
			max = t.Position
		}
	}
	return max, nil
}

func (s *fakeTestStore) Counts(ctx context.Context) (total, running, unfinished, failed int, err error) {
	for _, t := range s.items {
		total++
		switch t.State {
		case domain.TestStateRunning:
			running++
			unfinished++
		case domain.TestStateAwaiting:
			unfinished++
		case domain.TestStateFailed, domain.TestStateCancelled:
			failed++
		}
	}
	return total, running, unfinished, failed, nil
}

type fakeEventStore struct {
	items   []*domain.WorkerEvent
	updates int
}

func (s *fakeEventStore) find(id uuid.UUID) *domain.WorkerEvent {
	for _, e := range s.items {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (s *fakeEventStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkerEvent, error) {
	stored := s.find(id)
	if stored == nil {
		return nil, repo.ErrNotFound
	}
	cp := *stored
	return &cp, nil
}

func (s *fakeEventStore) Update(ctx context.Context, event *domain.WorkerEvent) error {
	stored := s.find(event.ID)
	if stored == nil {
		return repo.ErrNotFound
	}
	stored.State = event.State
	stored.Attempts = event.Attempts
	stored.FinishedAt = event.FinishedAt
	s.updates++
	return nil
}

func (s *fakeEventStore) ListUndelivered(ctx context.Context, maxAttempts, limit int) ([]domain.WorkerEvent, error) {
	var out []domain.WorkerEvent
	for _, e := range s.items {
		undelivered := e.State == domain.WorkerEventStateAwaiting ||
			e.State == domain.WorkerEventStateQueued ||
			(e.State == domain.WorkerEventStateSending && e.Attempts < maxAttempts)
		if !undelivered {
			continue
		}
		out = append(out, *e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeEventStore) ExistsByReference(ctx context.Context, eventType domain.EventType, reference string) (bool, error) {
	for _, e := range s.items {
		if e.Type == eventType && e.Reference == reference {
			return true, nil
		}
	}
	return false, nil
}

// fakeAggregator выводит счётчики из фейковых хранилищ тем же способом,
// что и state.Aggregator из репозиториев.
type fakeAggregator struct {
	jobs  *fakeJobStore
	tests *fakeTestStore

	timedOut      bool
	sources       int
	sourcesPassed int
	sourcesFailed int
}

func (a *fakeAggregator) Counts(ctx context.Context) (state.Counts, error) {
	c := state.Counts{
		JobExists:     a.jobs.job != nil,
		TimedOut:      a.timedOut,
		Sources:       a.sources,
		SourcesPassed: a.sourcesPassed,
		SourcesFailed: a.sourcesFailed,
	}
	c.TestsTotal, _, c.TestsUnfinished, c.TestsFailed, _ = a.tests.Counts(ctx)
	return c, nil
}

func (a *fakeAggregator) JobEnded(ctx context.Context) (bool, error) {
	c, err := a.Counts(ctx)
	if err != nil {
		return false, err
	}
	return state.ComputeApplicationState(c).IsEndState(), nil
}

type fakeTaskPublisher struct {
	compiles []string
	executes []uuid.UUID
	delivers []uuid.UUID
}

func (p *fakeTaskPublisher) PublishSourceCompile(ctx context.Context, path string) error {
	p.compiles = append(p.compiles, path)
	return nil
}

func (p *fakeTaskPublisher) PublishTestExecute(ctx context.Context, testID uuid.UUID) error {
	p.executes = append(p.executes, testID)
	return nil
}

func (p *fakeTaskPublisher) PublishEventDeliver(ctx context.Context, eventID uuid.UUID) error {
	p.delivers = append(p.delivers, eventID)
	return nil
}

type fakeDeliverer struct {
	calls int
	err   error
}

func (d *fakeDeliverer) Deliver(ctx context.Context, job *domain.Job, event *domain.WorkerEvent) error {
	d.calls++
	return d.err
}

type fakeExecutor struct {
	fn func(ctx context.Context, test *domain.Test, cfg *domain.TestConfiguration) (*ExecuteResult, error)
}

func (e *fakeExecutor) Execute(ctx context.Context, test *domain.Test, cfg *domain.TestConfiguration) (*ExecuteResult, error) {
	return e.fn(ctx, test, cfg)
}

// busRecorder собирает типы всех опубликованных доменных событий.
type busRecorder struct {
	types []domain.EventType
}

func (r *busRecorder) record(ctx context.Context, event events.Event) error {
	r.types = append(r.types, event.EventType())
	return nil
}

func (r *busRecorder) has(eventType domain.EventType) bool {
	for _, t := range r.types {
		if t == eventType {
			return true
		}
	}
	return false
}

// --- Фикстура ---

type workerFixture struct {
	worker    *Worker
	jobs      *fakeJobStore
	sources   *fakeSourceStore
	configs   *fakeConfigStore
	tests     *fakeTestStore
	events    *fakeEventStore
	agg       *fakeAggregator
	publisher *fakeTaskPublisher
	deliverer *fakeDeliverer
	executor  *fakeExecutor
	recorder  *busRecorder
}

func newWorkerFixture() *workerFixture {
	f := &workerFixture{
		jobs:      &fakeJobStore{},
		sources:   &fakeSourceStore{},
		configs:   newFakeConfigStore(),
		tests:     &fakeTestStore{},
		events:    &fakeEventStore{},
		publisher: &fakeTaskPublisher{},
		deliverer: &fakeDeliverer{},
		executor:  &fakeExecutor{},
		recorder:  &busRecorder{},
	}
	f.agg = &fakeAggregator{jobs: f.jobs, tests: f.tests}

	bus := events.NewBus(testLogger())
	f.worker = New(Config{
		JobRepo:              f.jobs,
		SourceRepo:           f.sources,
		ConfigRepo:           f.configs,
		TestRepo:             f.tests,
		EventRepo:            f.events,
		Aggregator:           f.agg,
		Bus:                  bus,
		Publisher:            f.publisher,
		Executor:             f.executor,
		Deliverer:            f.deliverer,
		TimeoutCheckInterval: time.Minute,
		Logger:               testLogger(),
	})

	// Recorder после доменных подписчиков: фиксирует уже применённые события
	bus.SubscribeAll(PriorityDomain+100, f.recorder.record)
	return f
}

func (f *workerFixture) acceptJob(maximumDurationSeconds int) {
	f.jobs.job = &domain.Job{
		Label:                    "job-1",
		EventDeliveryURL:         "http://consumer.local/events",
		MaximumDurationInSeconds: maximumDurationSeconds,
		CreatedAt:                time.Now(),
	}
	// Компиляция завершена: единственный source прошёл
	f.agg.sources = 1
	f.agg.sourcesPassed = 1
}

func (f *workerFixture) addTest(position int, testState domain.TestState) *domain.Test {
	test := &domain.Test{
		ID:              uuid.New(),
		ConfigurationID: f.configs.add("chrome", "https://app.local"),
		Source:          "tests/login.yaml",
		Target:          "login.side",
		Position:        position,
		State:           testState,
		CreatedAt:       time.Now(),
	}
	f.tests.items = append(f.tests.items, test)
	return test
}

// --- Tests ---

// Таймаут срабатывает, пока executor выполняет test: отмена имеет
// приоритет над исходом executor'а, итоговые события не эмитируются.
func TestProcessExecuteTest_TimeoutDuringExecution(t *testing.T) {
	f := newWorkerFixture()
	f.acceptJob(3600)
	test := f.addTest(1, domain.TestStateAwaiting)

	f.executor.fn = func(ctx context.Context, _ *domain.Test, _ *domain.TestConfiguration) (*ExecuteResult, error) {
		// Пока executor работал, монитор зафиксировал таймаут
		// и отменил незавершённые tests
		f.tests.CancelUnfinished(ctx)
		f.agg.timedOut = true
		return &ExecuteResult{Passed: true}, nil
	}

	if err := f.worker.processExecuteTest(context.Background(), test.ID); err != nil {
		t.Fatalf("process execute test: %v", err)
	}

	stored := f.tests.find(test.ID)
	if stored.State != domain.TestStateCancelled {
		t.Errorf("cancelled test must not be overwritten, got state %s", stored.State)
	}

	for _, et := range []domain.EventType{
		domain.EventTypeTestPassed,
		domain.EventTypeExecutionCompleted,
		domain.EventTypeJobCompleted,
	} {
		if f.recorder.has(et) {
			t.Errorf("unexpected %s after job timeout", et)
		}
	}
	if len(f.publisher.executes) != 0 {
		t.Errorf("expected no further test dispatch, got %d", len(f.publisher.executes))
	}
}

// Запоздавший вызов driveNext после таймаута не эмитирует
// execution_completed и итог job'а.
func TestDriveNext_NoJobOutcomeAfterTimeout(t *testing.T) {
	f := newWorkerFixture()
	f.acceptJob(60)
	f.addTest(1, domain.TestStateCancelled)
	f.agg.timedOut = true

	if err := f.worker.driveNext(context.Background()); err != nil {
		t.Fatalf("drive next: %v", err)
	}

	for _, et := range []domain.EventType{
		domain.EventTypeExecutionCompleted,
		domain.EventTypeJobCompleted,
		domain.EventTypeJobFailed,
	} {
		if f.recorder.has(et) {
			t.Errorf("unexpected %s after job timeout", et)
		}
	}
}

// Таймаут отменяет только незавершённые tests: зафиксированные исходы
// уже завершённых остаются как есть.
func TestCheckTimeout_CancelsOnlyUnfinishedTests(t *testing.T) {
	f := newWorkerFixture()
	f.acceptJob(60)
	started := time.Now().Add(-10 * time.Minute)
	f.jobs.job.StartedAt = &started

	complete := f.addTest(1, domain.TestStateComplete)
	running := f.addTest(2, domain.TestStateRunning)
	awaiting := f.addTest(3, domain.TestStateAwaiting)

	if err := f.worker.CheckTimeout(context.Background()); err != nil {
		t.Fatalf("check timeout: %v", err)
	}

	if !f.recorder.has(domain.EventTypeJobTimedOut) {
		t.Error("expected job_timed_out event")
	}
	if got := f.tests.find(complete.ID).State; got != domain.TestStateComplete {
		t.Errorf("complete test must keep its outcome, got %s", got)
	}
	if got := f.tests.find(running.ID).State; got != domain.TestStateCancelled {
		t.Errorf("running test must be cancelled, got %s", got)
	}
	if got := f.tests.find(awaiting.ID).State; got != domain.TestStateCancelled {
		t.Errorf("awaiting test must be cancelled, got %s", got)
	}
}

// Таймаут не срабатывает, пока не начался отсчёт или не истёк лимит.
func TestCheckTimeout_NotReached(t *testing.T) {
	f := newWorkerFixture()
	f.acceptJob(3600)
	started := time.Now().Add(-time.Minute)
	f.jobs.job.StartedAt = &started
	f.addTest(1, domain.TestStateRunning)

	if err := f.worker.CheckTimeout(context.Background()); err != nil {
		t.Fatalf("check timeout: %v", err)
	}

	if f.recorder.has(domain.EventTypeJobTimedOut) {
		t.Error("unexpected job_timed_out before the limit")
	}
}

// Доставка удалённого события — no-op без единого HTTP вызова.
func TestProcessDeliverEvent_MissingEventIsNoOp(t *testing.T) {
	f := newWorkerFixture()
	f.acceptJob(3600)

	err := f.worker.processDeliverEvent(context.Background(), uuid.New())
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
	if !expectedError(err) {
		t.Error("missing event must be acked without retry")
	}
	if f.deliverer.calls != 0 {
		t.Errorf("expected no delivery attempts, got %d", f.deliverer.calls)
	}
	if f.events.updates != 0 {
		t.Errorf("expected no state writes, got %d", f.events.updates)
	}
}

// Polling fallback подхватывает и sending-события с потерянным
// сообщением доставки, пока не исчерпан лимит попыток.
func TestPollDeliveries_IncludesStalledSending(t *testing.T) {
	f := newWorkerFixture()
	f.acceptJob(3600)

	queued := &domain.WorkerEvent{ID: uuid.New(), Type: domain.EventTypeJobStarted, State: domain.WorkerEventStateQueued}
	stalled := &domain.WorkerEvent{ID: uuid.New(), Type: domain.EventTypeTestPassed, State: domain.WorkerEventStateSending, Attempts: 1}
	exhausted := &domain.WorkerEvent{ID: uuid.New(), Type: domain.EventTypeTestFailed, State: domain.WorkerEventStateSending, Attempts: delivery.MaxRetries}
	done := &domain.WorkerEvent{ID: uuid.New(), Type: domain.EventTypeJobCompleted, State: domain.WorkerEventStateComplete}
	f.events.items = []*domain.WorkerEvent{queued, stalled, exhausted, done}

	f.worker.pollDeliveries(context.Background())

	want := []uuid.UUID{queued.ID, stalled.ID}
	if len(f.publisher.delivers) != len(want) {
		t.Fatalf("expected %d re-enqueued deliveries, got %d", len(want), len(f.publisher.delivers))
	}
	for i, id := range want {
		if f.publisher.delivers[i] != id {
			t.Errorf("delivery %d: expected %s, got %s", i, id, f.publisher.delivers[i])
		}
	}
}

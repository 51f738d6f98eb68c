package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultTimeoutCheckInterval = 10 * time.Second

// TimeoutMonitor периодически проверяет, не превысил ли job максимальную
// длительность.
//
// Явная периодическая задача с явной отменой: когда job достигает
// конечного состояния, монитор останавливается, а не полагается на
// вечный no-op внутри проверки.
type TimeoutMonitor struct {
	interval time.Duration
	check    func(ctx context.Context) error
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	started bool
}

// NewTimeoutMonitor создаёт монитор с заданным периодом проверки.
func NewTimeoutMonitor(interval time.Duration, check func(ctx context.Context) error, logger *slog.Logger) *TimeoutMonitor {
	if interval <= 0 {
		interval = defaultTimeoutCheckInterval
	}
	return &TimeoutMonitor{
		interval: interval,
		check:    check,
		logger:   logger,
	}
}

// Start запускает периодическую проверку.
func (m *TimeoutMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	m.cron = cron.New()
	spec := fmt.Sprintf("@every %s", m.interval)
	if _, err := m.cron.AddFunc(spec, func() {
		if err := m.check(ctx); err != nil {
			m.logger.Error("timeout check failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule timeout check: %w", err)
	}

	m.cron.Start()
	m.started = true

	m.logger.Info("timeout monitor started", "interval", m.interval)
	return nil
}

// Stop отменяет периодическую проверку. Повторный вызов — no-op.
// Безопасен из самой проверки: cron.Stop не ждёт завершения задач.
func (m *TimeoutMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return
	}

	m.cron.Stop()
	m.started = false

	m.logger.Info("timeout monitor stopped")
}

// Relay Worker — ведёт job через конвейер
// компиляция → выполнение → доставка событий.
//
// Worker:
//   - Получает задачи из очередей RabbitMQ
//   - Компилирует sources через внешний compiler
//   - Выполняет tests строго по одному, в порядке position
//   - Доставляет worker events с retry и exponential backoff
//   - Следит за таймаутом job'а
//
// Worker обслуживает единственный job; горизонтально не масштабируется.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Relay/internal/config"
	"github.com/shaiso/Relay/internal/delivery"
	"github.com/shaiso/Relay/internal/events"
	"github.com/shaiso/Relay/internal/mq"
	"github.com/shaiso/Relay/internal/repo"
	"github.com/shaiso/Relay/internal/state"
	"github.com/shaiso/Relay/internal/telemetry"
	"github.com/shaiso/Relay/internal/worker"
)

func main() {
	cfg := config.Load()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting relay-worker")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// Создаём репозитории
	jobRepo := repo.NewJobRepo(pool)
	sourceRepo := repo.NewSourceRepo(pool)
	configRepo := repo.NewTestConfigRepo(pool)
	testRepo := repo.NewTestRepo(pool)
	eventRepo := repo.NewEventRepo(pool)

	aggregator := state.NewAggregator(jobRepo, sourceRepo, testRepo, eventRepo)

	// RabbitMQ: worker управляется очередями, без них не стартует.
	mqConn, err := mq.NewConnection(cfg.AMQPURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}
	logger.Info("RabbitMQ connected")

	publisher := mq.NewPublisher(mqConn, logger)

	// Шина доменных событий: доменные подписчики worker'а фиксируют
	// изменения состояния, delivery dispatcher после них ставит
	// worker events в очередь доставки.
	bus := events.NewBus(logger)

	dispatcher := delivery.NewDispatcher(jobRepo, eventRepo, publisher, logger)
	dispatcher.Register(bus)

	// Создаём worker
	w := worker.New(worker.Config{
		JobRepo:              jobRepo,
		SourceRepo:           sourceRepo,
		ConfigRepo:           configRepo,
		TestRepo:             testRepo,
		EventRepo:            eventRepo,
		Aggregator:           aggregator,
		Bus:                  bus,
		Publisher:            publisher,
		Conn:                 mqConn,
		Compiler:             worker.NewHTTPCompiler(cfg.CompilerURL),
		Executor:             worker.NewHTTPExecutor(cfg.ExecutorURL),
		Deliverer:            delivery.NewDeliverer(logger),
		TimeoutCheckInterval: cfg.TimeoutCheckInterval,
		PollInterval:         cfg.PollInterval,
		Logger:               logger,
	})

	// Запускаем worker
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		logger.Info("listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	// Останавливаем worker
	w.Stop()
	logger.Info("relay-worker stopped")
}

// Relay API — HTTP-интерфейс worker'а.
//
// API:
//   - Принимает единственный job (POST /job)
//   - Отдаёт job со стадиями конвейера и tests (GET /job)
//   - Отдаёт агрегатное состояние приложения (GET /application_state)
//   - Отдаёт отдельные worker events (GET /event/{id})
//   - Полностью сбрасывает состояние (DELETE /job)
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Relay/internal/api"
	"github.com/shaiso/Relay/internal/config"
	"github.com/shaiso/Relay/internal/mq"
	"github.com/shaiso/Relay/internal/repo"
	"github.com/shaiso/Relay/internal/state"
	"github.com/shaiso/Relay/internal/telemetry"
)

var (
	startTime = time.Now()
	reqTotal  = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_api_http_requests_total",
		Help: "Total HTTP requests handled by relay_api",
	})
)

func main() {
	cfg := config.Load()

	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting relay-api")

	// Подключаемся к базе данных
	ctx := context.Background()
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
	logger.Info("connected to database")

	// Создаём репозитории
	jobRepo := repo.NewJobRepo(pool)
	sourceRepo := repo.NewSourceRepo(pool)
	configRepo := repo.NewTestConfigRepo(pool)
	testRepo := repo.NewTestRepo(pool)
	eventRepo := repo.NewEventRepo(pool)

	aggregator := state.NewAggregator(jobRepo, sourceRepo, testRepo, eventRepo)

	// RabbitMQ: API публикует jobs.ready, без очереди worker не стартует.
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

	// Создаём API handler
	handler := api.NewHandler(api.Config{
		Pool:       pool,
		JobRepo:    jobRepo,
		SourceRepo: sourceRepo,
		ConfigRepo: configRepo,
		TestRepo:   testRepo,
		EventRepo:  eventRepo,
		Aggregator: aggregator,
		Publisher:  publisher,
		Logger:     logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		reqTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	// Создаём HTTP сервер с возможностью graceful shutdown
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	// Запускаем сервер в горутине
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Ожидаем сигнал завершения
	sigCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	<-sigCtx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

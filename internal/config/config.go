// Package config собирает конфигурацию сервисов из переменных окружения.
//
// Файл .env в рабочем каталоге подхватывается автоматически
// (локальная разработка); в production переменные задаёт окружение.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shaiso/Relay/internal/mq"
)

// Config — конфигурация сервисов Relay.
type Config struct {
	// HTTPAddr — адрес HTTP API (relay-api).
	HTTPAddr string

	// MetricsAddr — адрес endpoint'а /metrics (relay-worker).
	MetricsAddr string

	// AMQPURL — адрес RabbitMQ.
	AMQPURL string

	// CompilerURL — базовый URL внешнего компилятора.
	CompilerURL string

	// ExecutorURL — базовый URL внешнего executor'а.
	ExecutorURL string

	// PollInterval — интервал polling fallback worker'а.
	PollInterval time.Duration

	// TimeoutCheckInterval — период проверки таймаута job'а.
	TimeoutCheckInterval time.Duration
}

// Load читает конфигурацию из окружения, применяя значения по умолчанию.
// Отсутствие .env не является ошибкой.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:             envString("HTTP_ADDR", ":8080"),
		MetricsAddr:          envString("METRICS_ADDR", ":9090"),
		AMQPURL:              envString("AMQP_URL", mq.DefaultURL()),
		CompilerURL:          envString("COMPILER_URL", "http://localhost:8180"),
		ExecutorURL:          envString("EXECUTOR_URL", "http://localhost:8280"),
		PollInterval:         envDuration("POLL_INTERVAL", 10*time.Second),
		TimeoutCheckInterval: envDuration("TIMEOUT_CHECK_INTERVAL", 10*time.Second),
	}
}

// envString читает строковую переменную с умолчанием.
func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envDuration читает duration-переменную с умолчанием.
// Невалидное значение игнорируется.
func envDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

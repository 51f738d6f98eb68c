package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики конвейера обработки job'а.
var (
	// CompilationsTotal — количество компиляций sources по исходу.
	CompilationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "compilations_total",
		Help:      "Source compilations by outcome.",
	}, []string{"outcome"})

	// TestsExecutedTotal — количество выполненных tests по исходу.
	TestsExecutedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "tests_executed_total",
		Help:      "Executed tests by outcome.",
	}, []string{"outcome"})

	// EventDeliveriesTotal — количество попыток доставки worker events по исходу.
	EventDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "event_deliveries_total",
		Help:      "Worker event delivery attempts by outcome.",
	}, []string{"outcome"})

	// EventDeliveryRetriesTotal — количество retry доставки.
	EventDeliveryRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "event_delivery_retries_total",
		Help:      "Worker event delivery retries.",
	})

	// JobTimeoutsTotal — количество сработавших таймаутов job.
	JobTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "job_timeouts_total",
		Help:      "Jobs that reached their maximum duration.",
	})

	// QueueMessagesTotal — количество сообщений очередей по исходу обработки.
	QueueMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "queue_messages_total",
		Help:      "Queue messages by processing outcome.",
	}, []string{"queue", "outcome"})

	// QueueReconnectsTotal — количество восстановлений AMQP соединения.
	QueueReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "relay",
		Name:      "queue_reconnects_total",
		Help:      "AMQP connection recoveries.",
	})
)

// Значения label "outcome".
const (
	OutcomePassed   = "passed"
	OutcomeFailed   = "failed"
	OutcomeComplete = "complete"

	MessageProcessed = "processed"
	MessageRequeued  = "requeued"
	MessageRejected  = "rejected"
)

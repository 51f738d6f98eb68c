package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeJobs   Exchange = "relay.jobs"
	ExchangeTests  Exchange = "relay.tests"
	ExchangeEvents Exchange = "relay.events"
	ExchangeDLQ    Exchange = "relay.dlq"
)

// Queues — имена очередей.
const (
	QueueJobsReady      Queue = "jobs.ready"
	QueueSourcesCompile Queue = "sources.compile"
	QueueTestsExecute   Queue = "tests.execute"
	QueueEventsDeliver  Queue = "events.deliver"
	QueueDLQMessages    Queue = "dlq.messages"
)

// Routing keys.
const (
	RoutingKeyReady   RoutingKey = "ready"
	RoutingKeyCompile RoutingKey = "compile"
	RoutingKeyExecute RoutingKey = "execute"
	RoutingKeyDeliver RoutingKey = "deliver"
	RoutingKeyDLQ     RoutingKey = "messages"
)

func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		// 1. Создаём exchanges
		if err := declareExchanges(ch); err != nil {
			return err
		}

		// 2. Создаём queues
		if err := declareQueues(ch); err != nil {
			return err
		}

		// 3. Привязываем queues к exchanges
		if err := bindQueues(ch); err != nil {
			return err
		}

		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []Exchange{ExchangeJobs, ExchangeTests, ExchangeEvents, ExchangeDLQ}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex), // name
			"direct",   // type
			true,       // durable
			false,      // auto-deleted
			false,      // internal
			false,      // no-wait
			nil,        // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Аргументы для очередей с DLQ
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQ),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		// jobs.ready — без DLQ (единственный job обрабатывается один раз)
		{QueueJobsReady, nil},

		// sources.compile и tests.execute — с DLQ
		// (нечитаемое сообщение не должно блокировать очередь)
		{QueueSourcesCompile, dlqArgs},
		{QueueTestsExecute, dlqArgs},

		// events.deliver — с DLQ; retry доставки управляет handler,
		// в DLQ уходят только повреждённые сообщения
		{QueueEventsDeliver, dlqArgs},

		// dlq.messages — сама DLQ очередь
		{QueueDLQMessages, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueJobsReady, RoutingKeyReady, ExchangeJobs},
		{QueueSourcesCompile, RoutingKeyCompile, ExchangeTests},
		{QueueTestsExecute, RoutingKeyExecute, ExchangeTests},
		{QueueEventsDeliver, RoutingKeyDeliver, ExchangeEvents},
		{QueueDLQMessages, RoutingKeyDLQ, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Relay RabbitMQ Topology:

    relay.jobs (direct)
    └── jobs.ready [routing: ready]
            Consumer: Worker

    relay.tests (direct)
    ├── sources.compile [routing: compile]
    │       Consumer: Worker
    │       DLQ: dlq.messages
    └── tests.execute [routing: execute]
            Consumer: Worker
            DLQ: dlq.messages

    relay.events (direct)
    └── events.deliver [routing: deliver]
            Consumer: Worker
            DLQ: dlq.messages

    relay.dlq (direct)
    └── dlq.messages [routing: messages]
            Manual processing
  `
}

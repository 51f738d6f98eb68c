package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Relay/internal/telemetry"
)

// Handler обрабатывает одно сообщение очереди.
// Ненулевая ошибка возвращает сообщение в очередь для повторной обработки.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — принятое и распарсенное сообщение.
type Delivery struct {
	// Queue — очередь, из которой пришло сообщение.
	Queue Queue

	// Message — конверт сообщения.
	Message Message

	// Raw — исходная AMQP доставка.
	Raw amqp.Delivery
}

// Consumer читает одну очередь конвейера и передаёт сообщения handler'у.
//
// Каждая очередь переносит ровно один тип сообщений (jobs.ready —
// job.ready и т.д.). Сообщение с чужим или нечитаемым конвертом
// считается повреждённым и отклоняется в DLQ, не блокируя очередь.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    Queue
	expected MessageType
	handler  Handler
	prefetch int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	// Queue — очередь для чтения.
	Queue Queue

	// Expected — единственный допустимый тип сообщений очереди.
	Expected MessageType

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — окно необработанных сообщений (default: 1).
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		expected: cfg.Expected,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start читает очередь до отмены контекста, переживая разрывы соединения.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stream, err := c.openStream()
		if err != nil {
			c.logger.Error("failed to open queue stream", "queue", c.queue, "error", err)
			if err := c.awaitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consumer started", "queue", c.queue)

		if err := c.readStream(ctx, stream); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("queue stream closed", "queue", c.queue)
			if err := c.awaitReconnect(ctx); err != nil {
				return err
			}
		}
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// awaitReconnect блокируется до восстановления соединения либо
// отмены контекста.
func (c *Consumer) awaitReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		c.logger.Info("amqp restored, resuming consumer", "queue", c.queue)
		return nil
	}
}

// openStream настраивает prefetch и начинает чтение очереди
// с ручным подтверждением.
func (c *Consumer) openStream() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	stream, err := ch.Consume(
		string(c.queue),
		"",    // consumer tag (auto-generated)
		false, // auto-ack выключен: подтверждаем после handler'а
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}
	return stream, nil
}

// readStream обрабатывает сообщения до закрытия потока.
func (c *Consumer) readStream(ctx context.Context, stream <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-stream:
			if !ok {
				return fmt.Errorf("stream closed")
			}
			c.dispatch(ctx, raw)
		}
	}
}

// dispatch валидирует конверт сообщения и вызывает handler.
func (c *Consumer) dispatch(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("unreadable message envelope",
			"queue", c.queue,
			"error", err,
			"body", string(raw.Body),
		)
		c.reject(raw)
		return
	}

	if msg.Type != c.expected {
		c.logger.Error("message type does not belong to queue",
			"queue", c.queue,
			"type", msg.Type,
			"expected", c.expected,
			"message_id", msg.ID,
		)
		c.reject(raw)
		return
	}

	c.logger.Debug("message received",
		"queue", c.queue,
		"message_id", msg.ID,
		"type", msg.Type,
	)

	delivery := &Delivery{Queue: c.queue, Message: msg, Raw: raw}

	if err := c.handler(ctx, delivery); err != nil {
		c.logger.Error("handler failed",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		telemetry.QueueMessagesTotal.WithLabelValues(string(c.queue), telemetry.MessageRequeued).Inc()
		raw.Nack(false, true)
		return
	}

	telemetry.QueueMessagesTotal.WithLabelValues(string(c.queue), telemetry.MessageProcessed).Inc()
	raw.Ack(false)
}

// reject отправляет повреждённое сообщение в DLQ.
func (c *Consumer) reject(raw amqp.Delivery) {
	telemetry.QueueMessagesTotal.WithLabelValues(string(c.queue), telemetry.MessageRejected).Inc()
	raw.Nack(false, false)
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// Payload после Unmarshal конверта — map; прогоняем через json ещё раз
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}

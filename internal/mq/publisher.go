package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeJobReady      MessageType = "job.ready"
	MessageTypeSourceCompile MessageType = "source.compile"
	MessageTypeTestExecute   MessageType = "test.execute"
	MessageTypeEventDeliver  MessageType = "event.deliver"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// JobReadyPayload — payload для сообщения о принятом job.
// Job единственный, поэтому идентификатор не нужен.
type JobReadyPayload struct{}

// SourceCompilePayload — payload для сообщения о компиляции source.
type SourceCompilePayload struct {
	Path string `json:"path"`
}

// TestExecutePayload — payload для сообщения о выполнении test.
type TestExecutePayload struct {
	TestID uuid.UUID `json:"test_id"`
}

// EventDeliverPayload — payload для сообщения о доставке worker event.
type EventDeliverPayload struct {
	EventID uuid.UUID `json:"event_id"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishJobReady публикует событие о принятом job.
// Потребитель: Worker (запускает компиляцию).
func (p *Publisher) PublishJobReady(ctx context.Context) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeJobReady,
		Payload:   JobReadyPayload{},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeJobs, RoutingKeyReady, msg)
}

// PublishSourceCompile публикует событие о source, ожидающем компиляции.
// Потребитель: Worker.
func (p *Publisher) PublishSourceCompile(ctx context.Context, path string) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeSourceCompile,
		Payload:   SourceCompilePayload{Path: path},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeTests, RoutingKeyCompile, msg)
}

// PublishTestExecute публикует событие о test, готовом к выполнению.
// Потребитель: Worker.
func (p *Publisher) PublishTestExecute(ctx context.Context, testID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeTestExecute,
		Payload:   TestExecutePayload{TestID: testID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeTests, RoutingKeyExecute, msg)
}

// PublishEventDeliver публикует событие о worker event, ожидающем доставки.
// Потребитель: Worker.
func (p *Publisher) PublishEventDeliver(ctx context.Context, eventID uuid.UUID) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeEventDeliver,
		Payload:   EventDeliverPayload{EventID: eventID},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeEvents, RoutingKeyDeliver, msg)
}

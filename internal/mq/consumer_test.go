package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func executeConsumer(handler Handler) *Consumer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewConsumer(nil, logger, ConsumerConfig{
		Queue:    QueueTestsExecute,
		Expected: MessageTypeTestExecute,
		Handler:  handler,
	})
}

func rawDelivery(t *testing.T, ack *fakeAcknowledger, body []byte) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func envelope(t *testing.T, msgType MessageType, payload any) []byte {
	t.Helper()
	body, err := json.Marshal(Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return body
}

func TestConsumer_DispatchAcksProcessedMessage(t *testing.T) {
	testID := uuid.New()
	var got uuid.UUID
	consumer := executeConsumer(func(ctx context.Context, msg *Delivery) error {
		payload, err := ParsePayload[TestExecutePayload](&msg.Message)
		if err != nil {
			return err
		}
		got = payload.TestID
		return nil
	})

	ack := &fakeAcknowledger{}
	consumer.dispatch(context.Background(), rawDelivery(t, ack, envelope(t, MessageTypeTestExecute, TestExecutePayload{TestID: testID})))

	if !ack.acked {
		t.Error("expected message to be acked")
	}
	if got != testID {
		t.Errorf("expected test id %s, got %s", testID, got)
	}
}

func TestConsumer_DispatchRequeuesOnHandlerError(t *testing.T) {
	consumer := executeConsumer(func(ctx context.Context, msg *Delivery) error {
		return errors.New("database is down")
	})

	ack := &fakeAcknowledger{}
	consumer.dispatch(context.Background(), rawDelivery(t, ack, envelope(t, MessageTypeTestExecute, TestExecutePayload{TestID: uuid.New()})))

	if !ack.nacked || !ack.requeued {
		t.Errorf("expected nack with requeue, got nacked=%v requeued=%v", ack.nacked, ack.requeued)
	}
}

func TestConsumer_DispatchRejectsForeignMessageType(t *testing.T) {
	called := false
	consumer := executeConsumer(func(ctx context.Context, msg *Delivery) error {
		called = true
		return nil
	})

	// job.ready в очереди tests.execute — повреждённая маршрутизация
	ack := &fakeAcknowledger{}
	consumer.dispatch(context.Background(), rawDelivery(t, ack, envelope(t, MessageTypeJobReady, JobReadyPayload{})))

	if called {
		t.Error("handler must not run for a foreign message type")
	}
	if !ack.nacked || ack.requeued {
		t.Errorf("expected nack to DLQ, got nacked=%v requeued=%v", ack.nacked, ack.requeued)
	}
}

func TestConsumer_DispatchRejectsUnreadableEnvelope(t *testing.T) {
	called := false
	consumer := executeConsumer(func(ctx context.Context, msg *Delivery) error {
		called = true
		return nil
	})

	ack := &fakeAcknowledger{}
	consumer.dispatch(context.Background(), rawDelivery(t, ack, []byte("{not json")))

	if called {
		t.Error("handler must not run for an unreadable envelope")
	}
	if !ack.nacked || ack.requeued {
		t.Errorf("expected nack to DLQ, got nacked=%v requeued=%v", ack.nacked, ack.requeued)
	}
}

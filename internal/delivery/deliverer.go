package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shaiso/Relay/internal/domain"
)

// Error — ошибка доставки worker event.
type Error struct {
	// StatusCode — HTTP статус ответа (0 при транспортной ошибке).
	StatusCode int

	// RetryAfterSeconds — значение заголовка Retry-After, если сервер
	// прислал его целым числом секунд; иначе 0.
	RetryAfterSeconds int

	// Err — причина (транспортная ошибка), может быть nil.
	Err error
}

// Error реализует error.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deliver event: %v", e.Err)
	}
	return fmt.Sprintf("deliver event: endpoint returned %d", e.StatusCode)
}

// Unwrap возвращает причину.
func (e *Error) Unwrap() error {
	return e.Err
}

// envelope — тело исходящего POST запроса.
type envelope struct {
	Label          string         `json:"label"`
	Type           string         `json:"type"`
	Reference      string         `json:"reference"`
	Payload        map[string]any `json:"payload"`
	SequenceNumber int64          `json:"sequence_number"`
}

// Deliverer выполняет HTTP доставку worker event на endpoint job'а.
type Deliverer struct {
	client *http.Client
	logger *slog.Logger
}

// NewDeliverer создаёт новый Deliverer.
func NewDeliverer(logger *slog.Logger) *Deliverer {
	return &Deliverer{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Deliver отправляет worker event одним POST запросом.
// Не-2xx ответ или транспортная ошибка возвращаются как *Error.
func (d *Deliverer) Deliver(ctx context.Context, job *domain.Job, event *domain.WorkerEvent) error {
	body, err := json.Marshal(envelope{
		Label:          job.Label,
		Type:           string(event.Type),
		Reference:      event.Reference,
		Payload:        event.Payload,
		SequenceNumber: event.Seq,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.EventDeliveryURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return &Error{Err: err}
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			StatusCode:        resp.StatusCode,
			RetryAfterSeconds: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	d.logger.Debug("event delivered",
		"type", event.Type,
		"reference", event.Reference,
		"status", resp.StatusCode,
	)

	return nil
}

// parseRetryAfter разбирает Retry-After как целое число секунд.
// Формат даты не поддерживается: возвращается 0, backoff остаётся
// экспоненциальным.
func parseRetryAfter(value string) int {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}

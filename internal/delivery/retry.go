package delivery

import (
	"errors"
	"time"
)

// Параметры retry доставки.
const (
	// MaxRetries — максимальное число попыток доставки.
	MaxRetries = 3

	// baseDelay — базовая задержка экспоненциального backoff.
	baseDelay = 2 * time.Second
)

// RetryStrategy решает, повторять ли неудачную доставку и с какой задержкой.
type RetryStrategy struct{}

// NewRetryStrategy создаёт новую RetryStrategy.
func NewRetryStrategy() *RetryStrategy {
	return &RetryStrategy{}
}

// IsRetryable сообщает, допустима ли ещё одна попытка после attempt
// неудачных (attempt нумеруется с 1).
func (s *RetryStrategy) IsRetryable(attempt int) bool {
	return attempt < MaxRetries
}

// WaitingTime возвращает задержку перед следующей попыткой.
//
// Экспоненциальный backoff: baseDelay * 2^attempt (4s, 8s, 16s для
// попыток 1, 2, 3). Если сервер прислал Retry-After целым числом
// секунд — его значение имеет приоритет; Retry-After в формате даты
// игнорируется, остаётся экспоненциальный расчёт.
func (s *RetryStrategy) WaitingTime(attempt int, lastErr error) time.Duration {
	var deliveryErr *Error
	if errors.As(lastErr, &deliveryErr) && deliveryErr.RetryAfterSeconds > 0 {
		return time.Duration(deliveryErr.RetryAfterSeconds) * time.Second
	}

	return baseDelay << attempt
}

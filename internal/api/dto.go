package api

import (
	"time"

	"github.com/shaiso/Relay/internal/domain"
)

// CreateJobRequest — тело запроса POST /job.
type CreateJobRequest struct {
	// Label — метка job.
	Label string `json:"label"`

	// EventDeliveryURL — endpoint доставки worker events.
	EventDeliveryURL string `json:"event_delivery_url"`

	// CallbackURL — устаревшее имя EventDeliveryURL, принимается
	// для совместимости со старыми клиентами.
	CallbackURL string `json:"callback_url"`

	// MaximumDurationInSeconds — максимальная длительность выполнения.
	MaximumDurationInSeconds int `json:"maximum_duration_in_seconds"`

	// Source — сериализованная YAML-коллекция файлов.
	Source string `json:"source"`
}

// DeliveryURL возвращает endpoint доставки с учётом устаревшего поля.
func (r *CreateJobRequest) DeliveryURL() string {
	if r.EventDeliveryURL != "" {
		return r.EventDeliveryURL
	}
	return r.CallbackURL
}

// TestConfigurationResponse — конфигурация test в ответе GET /job.
type TestConfigurationResponse struct {
	Browser string `json:"browser"`
	URL     string `json:"url"`
}

// TestResponse — один test в ответе GET /job.
type TestResponse struct {
	Configuration TestConfigurationResponse `json:"configuration"`
	Source        string                    `json:"source"`
	Target        string                    `json:"target"`
	StepCount     int                       `json:"step_count"`
	State         domain.TestState          `json:"state"`
	Position      int                       `json:"position"`
}

// JobResponse — тело ответа GET /job: поля job, слитые со списком
// sources, агрегатными статусами стадий и списком tests.
type JobResponse struct {
	Label                    string     `json:"label"`
	EventDeliveryURL         string     `json:"event_delivery_url"`
	MaximumDurationInSeconds int        `json:"maximum_duration_in_seconds"`
	StartDateTime            *time.Time `json:"start_date_time,omitempty"`
	CreatedAt                time.Time  `json:"created_at"`

	Sources []string `json:"sources"`

	CompilationState   domain.CompilationState   `json:"compilation_state"`
	ExecutionState     domain.ExecutionState     `json:"execution_state"`
	EventDeliveryState domain.EventDeliveryState `json:"event_delivery_state"`

	Tests []TestResponse `json:"tests"`
}

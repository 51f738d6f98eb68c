package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoJob возвращается, когда job ещё не отправлен worker'у.
var ErrNoJob = errors.New("no job submitted")

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// TestConfigurationResponse — конфигурация test из API.
type TestConfigurationResponse struct {
	Browser string `json:"browser"`
	URL     string `json:"url"`
}

// TestResponse — test из API.
type TestResponse struct {
	Configuration TestConfigurationResponse `json:"configuration"`
	Source        string                    `json:"source"`
	Target        string                    `json:"target"`
	StepCount     int                       `json:"step_count"`
	State         string                    `json:"state"`
	Position      int                       `json:"position"`
}

// JobResponse — job из API.
type JobResponse struct {
	Label                    string `json:"label"`
	EventDeliveryURL         string `json:"event_delivery_url"`
	MaximumDurationInSeconds int    `json:"maximum_duration_in_seconds"`
	StartDateTime            string `json:"start_date_time,omitempty"`
	CreatedAt                string `json:"created_at"`

	Sources []string `json:"sources"`

	CompilationState   string `json:"compilation_state"`
	ExecutionState     string `json:"execution_state"`
	EventDeliveryState string `json:"event_delivery_state"`

	Tests []TestResponse `json:"tests"`
}

// StateResponse — агрегатное состояние приложения из API.
type StateResponse struct {
	Application   string `json:"application"`
	Compilation   string `json:"compilation"`
	Execution     string `json:"execution"`
	EventDelivery string `json:"event_delivery"`
}

// EventResponse — worker event из API.
type EventResponse struct {
	ID             string         `json:"id"`
	SequenceNumber int64          `json:"sequence_number"`
	Type           string         `json:"type"`
	Reference      string         `json:"reference"`
	Payload        map[string]any `json:"payload,omitempty"`
	State          string         `json:"state"`
	Attempts       int            `json:"attempts"`
	CreatedAt      string         `json:"created_at"`
	FinishedAt     string         `json:"finished_at,omitempty"`
}

// --- Request types ---

// SubmitJobRequest — отправка job.
type SubmitJobRequest struct {
	Label                    string `json:"label"`
	EventDeliveryURL         string `json:"event_delivery_url"`
	MaximumDurationInSeconds int    `json:"maximum_duration_in_seconds"`
	Source                   string `json:"source"`
}

// errorStateResponse — тело ошибки API.
type errorStateResponse struct {
	ErrorState string `json:"error_state"`
}

// --- Client ---

// Client — HTTP-клиент для Relay API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SubmitJob отправляет job worker'у.
func (c *Client) SubmitJob(req SubmitJobRequest) error {
	resp, err := c.do(http.MethodPost, "/job", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

// GetJob возвращает текущий job со всеми tests и агрегатными статусами.
// Если job не отправлен — ErrNoJob.
func (c *Client) GetJob() (*JobResponse, error) {
	resp, err := c.do(http.MethodGet, "/job", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Отсутствующий job API отдаёт как 400 с пустым объектом.
	if resp.StatusCode == http.StatusBadRequest {
		return nil, ErrNoJob
	}
	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var job JobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &job, nil
}

// DeleteJob удаляет job и всё связанное с ним состояние.
func (c *Client) DeleteJob() error {
	resp, err := c.do(http.MethodDelete, "/job", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

// ApplicationState возвращает агрегатное состояние приложения.
func (c *Client) ApplicationState() (*StateResponse, error) {
	resp, err := c.do(http.MethodGet, "/application_state", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var state StateResponse
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &state, nil
}

// GetEvent возвращает worker event по ID.
func (c *Client) GetEvent(id string) (*EventResponse, error) {
	resp, err := c.do(http.MethodGet, "/event/"+id, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("event %s not found", id)
	}
	if err := c.checkError(resp); err != nil {
		return nil, err
	}

	var event EventResponse
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &event, nil
}

// --- HTTP helpers ---

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.ErrorState == "" {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("API error: %s", er.ErrorState)
}

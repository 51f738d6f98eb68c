package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shaiso/Relay/internal/domain"
)

const defaultExecutorTimeout = 10 * time.Minute

// StepResult — исход одного шага test'а.
type StepResult struct {
	// Name — имя шага.
	Name string `json:"name"`

	// Path — путь шага внутри документа.
	Path string `json:"path"`

	// Passed — прошёл ли шаг.
	Passed bool `json:"passed"`

	// Error — сообщение executor'а (для упавшего шага).
	Error string `json:"error,omitempty"`
}

// ExecuteResult — исход выполнения одного test.
type ExecuteResult struct {
	// Passed — успешен ли test целиком.
	Passed bool `json:"passed"`

	// Error — сообщение об ошибке (для упавшего test).
	Error string `json:"error,omitempty"`

	// Steps — исходы шагов в порядке выполнения.
	Steps []StepResult `json:"steps"`
}

// Executor — внешний исполнитель скомпилированных tests.
type Executor interface {
	Execute(ctx context.Context, test *domain.Test, cfg *domain.TestConfiguration) (*ExecuteResult, error)
}

// HTTPExecutor — клиент HTTP API executor'а.
//
// Запрос: POST {baseURL}/execute с документом и конфигурацией браузера.
// Любой не-200 ответ — инфраструктурная ошибка: исход test'а неизвестен.
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExecutor создаёт клиент executor'а.
func NewHTTPExecutor(baseURL string) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultExecutorTimeout},
	}
}

// executeRequest — тело запроса к executor'у.
type executeRequest struct {
	Document string `json:"document"`
	Browser  string `json:"browser"`
	URL      string `json:"url"`
}

// Execute выполняет один test.
func (e *HTTPExecutor) Execute(ctx context.Context, test *domain.Test, cfg *domain.TestConfiguration) (*ExecuteResult, error) {
	body, err := json.Marshal(executeRequest{
		Document: test.Target,
		Browser:  cfg.Browser,
		URL:      cfg.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal execute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrExecutorRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExecutorRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: executor returned %d", ErrExecutorRequest, resp.StatusCode)
	}

	var result ExecuteResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrExecutorRequest, err)
	}

	return &result, nil
}

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/manifest"
)

const defaultCompilerTimeout = 60 * time.Second

// CompileResult — исход компиляции одного source.
type CompileResult struct {
	// Passed — успешна ли компиляция.
	Passed bool

	// Tests — записи выходного манифеста (при успехе).
	Tests []manifest.CompiledTest

	// Output — структурированные ошибки компиляции (при неудаче).
	Output manifest.CompilationOutput
}

// Compiler — внешний компилятор YAML sources.
type Compiler interface {
	Compile(ctx context.Context, source *domain.Source) (*CompileResult, error)
}

// HTTPCompiler — клиент HTTP API компилятора.
//
// Запрос: POST {baseURL}/compile с {path, type, content}.
// Ответ 200 — манифест скомпилированных tests; 422 — структурированные
// ошибки компиляции (логическая неудача, не инфраструктурная).
type HTTPCompiler struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCompiler создаёт клиент компилятора.
func NewHTTPCompiler(baseURL string) *HTTPCompiler {
	return &HTTPCompiler{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultCompilerTimeout},
	}
}

// compileRequest — тело запроса к компилятору.
type compileRequest struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

// compileResponse — тело ответа компилятора.
type compileResponse struct {
	Tests  []manifest.CompiledTest `json:"tests"`
	Errors []string                `json:"errors"`
}

// Compile компилирует один source.
func (c *HTTPCompiler) Compile(ctx context.Context, source *domain.Source) (*CompileResult, error) {
	body, err := json.Marshal(compileRequest{
		Path:    source.Path,
		Type:    string(source.Type),
		Content: source.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal compile request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/compile", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrCompilerRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompilerRequest, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out compileResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", ErrCompilerRequest, err)
		}
		return &CompileResult{Passed: true, Tests: out.Tests}, nil

	case http.StatusUnprocessableEntity:
		// Логическая неудача компиляции — не ошибка handler'а
		var out compileResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("%w: decode error response: %v", ErrCompilerRequest, err)
		}
		return &CompileResult{
			Passed: false,
			Output: manifest.CompilationOutput{
				Source: source.Path,
				Errors: out.Errors,
			},
		}, nil

	default:
		return nil, fmt.Errorf("%w: compiler returned %d", ErrCompilerRequest, resp.StatusCode)
	}
}

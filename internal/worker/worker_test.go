package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/manifest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPCompiler_Passed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/compile" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req compileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Path != "tests/login.yaml" {
			t.Errorf("unexpected path in request: %s", req.Path)
		}

		json.NewEncoder(w).Encode(compileResponse{
			Tests: []manifest.CompiledTest{
				{
					Source:    "tests/login.yaml",
					Target:    "login.side",
					Browser:   "chrome",
					URL:       "https://app.local",
					StepCount: 2,
					StepNames: []string{"open", "submit"},
				},
			},
		})
	}))
	defer server.Close()

	compiler := NewHTTPCompiler(server.URL)
	result, err := compiler.Compile(context.Background(), &domain.Source{
		Type:    domain.SourceTypeTest,
		Path:    "tests/login.yaml",
		Content: "steps: []",
	})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !result.Passed {
		t.Error("expected passed result")
	}
	if len(result.Tests) != 1 || result.Tests[0].Target != "login.side" {
		t.Errorf("unexpected manifest: %+v", result.Tests)
	}
}

func TestHTTPCompiler_CompilationErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []string{"unknown step kind: clcik"},
		})
	}))
	defer server.Close()

	compiler := NewHTTPCompiler(server.URL)
	result, err := compiler.Compile(context.Background(), &domain.Source{
		Type: domain.SourceTypeTest,
		Path: "tests/login.yaml",
	})
	if err != nil {
		t.Fatalf("compilation errors are not an infrastructure error: %v", err)
	}

	if result.Passed {
		t.Error("expected failed compilation")
	}
	if len(result.Output.Errors) != 1 || result.Output.Errors[0] != "unknown step kind: clcik" {
		t.Errorf("unexpected output errors: %v", result.Output.Errors)
	}
	if result.Output.Source != "tests/login.yaml" {
		t.Errorf("unexpected output source: %s", result.Output.Source)
	}
}

func TestHTTPCompiler_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	compiler := NewHTTPCompiler(server.URL)
	_, err := compiler.Compile(context.Background(), &domain.Source{Path: "tests/login.yaml"})

	if !errors.Is(err, ErrCompilerRequest) {
		t.Errorf("expected ErrCompilerRequest, got %v", err)
	}
}

func TestHTTPExecutor_Execute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req executeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Document != "login.side" {
			t.Errorf("unexpected document: %s", req.Document)
		}
		if req.Browser != "chrome" {
			t.Errorf("unexpected browser: %s", req.Browser)
		}

		json.NewEncoder(w).Encode(ExecuteResult{
			Passed: false,
			Error:  "element not found",
			Steps: []StepResult{
				{Name: "open", Path: "login.side#0", Passed: true},
				{Name: "submit", Path: "login.side#1", Passed: false, Error: "element not found"},
			},
		})
	}))
	defer server.Close()

	executor := NewHTTPExecutor(server.URL)
	result, err := executor.Execute(context.Background(),
		&domain.Test{ID: uuid.New(), Target: "login.side"},
		&domain.TestConfiguration{Browser: "chrome", URL: "https://app.local"},
	)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.Passed {
		t.Error("expected failed test")
	}
	if len(result.Steps) != 2 {
		t.Fatalf("expected 2 step results, got %d", len(result.Steps))
	}
	if result.Steps[1].Error != "element not found" {
		t.Errorf("unexpected step error: %s", result.Steps[1].Error)
	}
}

func TestHTTPExecutor_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	executor := NewHTTPExecutor(server.URL)
	_, err := executor.Execute(context.Background(),
		&domain.Test{Target: "login.side"},
		&domain.TestConfiguration{Browser: "chrome"},
	)

	if !errors.Is(err, ErrExecutorRequest) {
		t.Errorf("expected ErrExecutorRequest, got %v", err)
	}
}

func TestExpectedError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrNoJob, true},
		{ErrTestNotAwaiting, true},
		{ErrEventNotFound, true},
		{errors.New("database is down"), false},
		{ErrCompilerRequest, false},
	}

	for _, tt := range tests {
		if got := expectedError(tt.err); got != tt.want {
			t.Errorf("expectedError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestTimeoutMonitor_StopIsIdempotent(t *testing.T) {
	monitor := NewTimeoutMonitor(time.Second, func(ctx context.Context) error { return nil }, testLogger())

	// Stop до Start и повторный Stop не должны паниковать
	monitor.Stop()

	if err := monitor.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	monitor.Stop()
	monitor.Stop()
}

package cli

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_SubmitJob(t *testing.T) {
	var got SubmitJobRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/job" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.SubmitJob(SubmitJobRequest{
		Label:                    "nightly",
		EventDeliveryURL:         "http://consumer.local/events",
		MaximumDurationInSeconds: 600,
		Source:                   "files:\n  - path: login.yaml\n",
	})
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}

	if got.Label != "nightly" {
		t.Errorf("label not sent: %q", got.Label)
	}
	if !strings.Contains(got.Source, "login.yaml") {
		t.Errorf("source not sent: %q", got.Source)
	}
}

func TestClient_SubmitJob_ErrorState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error_state": "job/already_exists"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.SubmitJob(SubmitJobRequest{Label: "nightly"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "job/already_exists") {
		t.Errorf("error_state not surfaced: %v", err)
	}
}

func TestClient_GetJob_NoJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetJob()
	if !errors.Is(err, ErrNoJob) {
		t.Fatalf("expected ErrNoJob, got %v", err)
	}
}

func TestClient_ApplicationState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/application_state" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"application": "executing", "compilation": "complete", "execution": "running", "event_delivery": "running"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	state, err := client.ApplicationState()
	if err != nil {
		t.Fatalf("ApplicationState: %v", err)
	}
	if state.Application != "executing" {
		t.Errorf("unexpected application state: %s", state.Application)
	}
	if state.Compilation != "complete" {
		t.Errorf("unexpected compilation state: %s", state.Compilation)
	}
}

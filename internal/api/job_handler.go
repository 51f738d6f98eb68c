package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Relay/internal/domain"
	"github.com/shaiso/Relay/internal/manifest"
	"github.com/shaiso/Relay/internal/repo"
)

// CreateJob обрабатывает POST /job.
//
// Валидация синхронная: любое нарушение — 400 с machine-readable
// error_state, без каких-либо побочных эффектов.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequestState(w, ErrStateRequestInvalid)
		return
	}

	if req.Label == "" {
		BadRequestState(w, ErrStateLabelMissing)
		return
	}
	if req.DeliveryURL() == "" {
		BadRequestState(w, ErrStateURLMissing)
		return
	}
	if req.MaximumDurationInSeconds <= 0 {
		BadRequestState(w, ErrStateDurationMissing)
		return
	}
	if req.Source == "" {
		BadRequestState(w, ErrStateSourceMissing)
		return
	}

	collection, err := manifest.Parse(req.Source)
	if err != nil {
		BadRequestState(w, ErrStateSourceUnparseable)
		return
	}
	if err := manifest.Validate(collection); err != nil {
		BadRequestState(w, manifestErrorState(err))
		return
	}

	now := time.Now()
	job := &domain.Job{
		Label:                    req.Label,
		EventDeliveryURL:         req.DeliveryURL(),
		MaximumDurationInSeconds: req.MaximumDurationInSeconds,
		TestPaths:                collection.TestPaths(),
		CreatedAt:                now,
	}

	if err := h.jobRepo.Create(r.Context(), job); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			BadRequestState(w, ErrStateJobAlreadyExists)
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	sources := make([]domain.Source, len(collection.Files))
	for i, file := range collection.Files {
		sources[i] = domain.Source{
			ID:        uuid.New(),
			Type:      domain.SourceType(file.Type),
			Path:      file.Path,
			Content:   file.Content,
			CreatedAt: now,
		}
	}
	if err := h.sourceRepo.CreateAll(r.Context(), sources); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	if err := h.publisher.PublishJobReady(r.Context()); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("job accepted",
		"label", job.Label,
		"sources", len(sources),
		"maximum_duration_seconds", job.MaximumDurationInSeconds,
	)

	Empty(w, http.StatusOK)
}

// manifestErrorState сопоставляет ошибку валидации коллекции коду error_state.
func manifestErrorState(err error) ErrorState {
	switch {
	case errors.Is(err, manifest.ErrEmptyCollection):
		return ErrStateSourceEmpty
	case errors.Is(err, manifest.ErrEmptyPath):
		return ErrStateSourceEmptyPath
	case errors.Is(err, manifest.ErrInvalidType):
		return ErrStateSourceInvalidType
	case errors.Is(err, manifest.ErrDuplicatePath):
		return ErrStateSourceDuplicatePath
	case errors.Is(err, manifest.ErrNoTests):
		return ErrStateSourceNoTests
	default:
		return ErrStateSourceUnparseable
	}
}

// GetJob обрабатывает GET /job.
// Если job не существует — 400 с {} (контракт внешнего потребителя).
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	job, err := h.jobRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			Empty(w, http.StatusBadRequest)
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	sources, err := h.sourceRepo.List(ctx)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}
	paths := make([]string, len(sources))
	for i := range sources {
		paths[i] = sources[i].Path
	}

	snapshot, err := h.aggregator.Snapshot(ctx)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	tests, err := h.testRepo.List(ctx)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}

	// Конфигурации подгружаются один раз и раздаются tests по ID
	configs, err := h.configRepo.List(ctx)
	if err != nil {
		InternalError(w, h.logger, err)
		return
	}
	configByID := make(map[uuid.UUID]domain.TestConfiguration, len(configs))
	for _, cfg := range configs {
		configByID[cfg.ID] = cfg
	}

	testResponses := make([]TestResponse, len(tests))
	for i := range tests {
		t := &tests[i]
		cfg := configByID[t.ConfigurationID]
		testResponses[i] = TestResponse{
			Configuration: TestConfigurationResponse{Browser: cfg.Browser, URL: cfg.URL},
			Source:        t.Source,
			Target:        t.Target,
			StepCount:     t.StepCount,
			State:         t.State,
			Position:      t.Position,
		}
	}

	OK(w, JobResponse{
		Label:                    job.Label,
		EventDeliveryURL:         job.EventDeliveryURL,
		MaximumDurationInSeconds: job.MaximumDurationInSeconds,
		StartDateTime:            job.StartedAt,
		CreatedAt:                job.CreatedAt,
		Sources:                  paths,
		CompilationState:         snapshot.Compilation,
		ExecutionState:           snapshot.Execution,
		EventDeliveryState:       snapshot.EventDelivery,
		Tests:                    testResponses,
	})
}

// DeleteJob обрабатывает DELETE /job: полный сброс состояния worker'а.
// Инструмент для тестовых окружений, не часть основного конвейера.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := repo.Reset(r.Context(), h.pool); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.logger.Info("worker state reset")
	Empty(w, http.StatusOK)
}

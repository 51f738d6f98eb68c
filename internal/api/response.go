package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorState — машиночитаемый код ошибки валидации.
type ErrorState string

// Коды ошибок POST /job.
const (
	ErrStateJobAlreadyExists ErrorState = "job/already_exists"
	ErrStateLabelMissing     ErrorState = "label/missing"
	ErrStateURLMissing       ErrorState = "event_delivery_url/missing"
	ErrStateDurationMissing  ErrorState = "maximum_duration_in_seconds/missing"
	ErrStateSourceMissing    ErrorState = "source/missing"

	ErrStateSourceUnparseable   ErrorState = "source/unparseable"
	ErrStateSourceEmpty         ErrorState = "source/empty"
	ErrStateSourceEmptyPath     ErrorState = "source/empty_path"
	ErrStateSourceInvalidType   ErrorState = "source/invalid_type"
	ErrStateSourceDuplicatePath ErrorState = "source/duplicate_path"
	ErrStateSourceNoTests       ErrorState = "source/no_tests"

	ErrStateRequestInvalid ErrorState = "request/invalid"
	ErrStateInternal       ErrorState = "internal/error"
)

// errorStateResponse — тело ответа с ошибкой валидации.
type errorStateResponse struct {
	ErrorState ErrorState `json:"error_state"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// OK отправляет 200 с данными.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Empty отправляет пустой JSON объект с указанным статусом.
func Empty(w http.ResponseWriter, status int) {
	JSON(w, status, struct{}{})
}

// BadRequestState отправляет 400 с кодом ошибки.
func BadRequestState(w http.ResponseWriter, state ErrorState) {
	JSON(w, http.StatusBadRequest, errorStateResponse{ErrorState: state})
}

// NotFound отправляет 404 с пустым телом-объектом.
func NotFound(w http.ResponseWriter) {
	Empty(w, http.StatusNotFound)
}

// InternalError отправляет 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("internal error", "error", err)
	}
	JSON(w, http.StatusInternalServerError, errorStateResponse{ErrorState: ErrStateInternal})
}

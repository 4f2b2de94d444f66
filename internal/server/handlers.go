package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/balbo/internal/studio"
	"github.com/maauso/balbo/internal/workflow"
)

// Studio is the part of the orchestrator the handlers use.
type Studio interface {
	Submit(ctx context.Context, in studio.Input) (uint64, error)
	Rerun(ctx context.Context) (uint64, error)
	Reset() error
	State() studio.State
}

var _ Studio = (*studio.Orchestrator)(nil)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	studio    Studio
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(s Studio, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		studio:    s,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Submit handles POST /generations requests.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	cycle, err := h.studio.Submit(r.Context(), studio.Input{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		RequestID:      RequestIDFromContext(r.Context()),
	})
	if err != nil {
		h.writeStudioError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		Cycle: cycle,
		Phase: string(studio.PhaseSubmitting),
	})
}

// Rerun handles POST /generations/rerun requests.
func (h *Handlers) Rerun(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.studio.Rerun(r.Context())
	if err != nil {
		h.writeStudioError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		Cycle: cycle,
		Phase: string(studio.PhaseSubmitting),
	})
}

// Current handles GET /generations/current requests.
func (h *Handlers) Current(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStateResponse(h.studio.State()))
}

// Reset handles DELETE /generations/current requests.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.studio.Reset(); err != nil {
		h.writeStudioError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeStudioError maps orchestrator errors to HTTP responses.
func (h *Handlers) writeStudioError(w http.ResponseWriter, err error) {
	var failure *workflow.Failure
	switch {
	case errors.As(err, &failure) && failure.Kind == workflow.KindValidation:
		writeError(w, http.StatusBadRequest, failure.Reason, "VALIDATION_ERROR")
	case errors.Is(err, studio.ErrNothingToRerun):
		writeError(w, http.StatusConflict, "nothing has been submitted yet", "NOTHING_TO_RERUN")
	case errors.Is(err, studio.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "a generation is in progress", "INVALID_TRANSITION")
	default:
		h.logger.Error("studio operation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

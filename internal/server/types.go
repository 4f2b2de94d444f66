// Package server provides the HTTP surface of the generation studio.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/balbo/internal/progress"
	"github.com/maauso/balbo/internal/studio"
)

// SubmitRequest is the HTTP request body for starting a generation.
type SubmitRequest struct {
	// Prompt describes the media to generate. Blank prompts are rejected
	// by the studio, not here.
	Prompt string `json:"prompt" validate:"max=4000"`
	// NegativePrompt lists what to avoid.
	NegativePrompt string `json:"negative_prompt" validate:"max=4000"`
}

// SubmitResponse is the HTTP response after a generation cycle started.
type SubmitResponse struct {
	// Cycle identifies the started cycle.
	Cycle uint64 `json:"cycle"`
	// Phase is the phase right after submission.
	Phase string `json:"phase"`
}

// StageResponse is one progress stage.
type StageResponse struct {
	Label    string `json:"label"`
	Active   bool   `json:"active"`
	Complete bool   `json:"complete"`
}

// ProgressResponse is the progress timeline view.
type ProgressResponse struct {
	Phase   string          `json:"phase"`
	Current int             `json:"current"`
	Stages  []StageResponse `json:"stages"`
}

// FailureResponse describes why the last cycle failed.
type FailureResponse struct {
	Kind       string `json:"kind"`
	Reason     string `json:"reason"`
	StatusCode int    `json:"status_code,omitempty"`
}

// NoticeResponse is the last user-facing notification.
type NoticeResponse struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Destructive bool      `json:"destructive"`
	At          time.Time `json:"at"`
}

// StateResponse is the HTTP response for the current display state.
type StateResponse struct {
	Cycle          uint64            `json:"cycle"`
	Phase          string            `json:"phase"`
	RequestID      string            `json:"request_id,omitempty"`
	Prompt         string            `json:"prompt,omitempty"`
	NegativePrompt string            `json:"negative_prompt,omitempty"`
	Progress       *ProgressResponse `json:"progress,omitempty"`
	MediaURL       string            `json:"media_url,omitempty"`
	MediaKind      string            `json:"media_kind,omitempty"`
	Placeholder    bool              `json:"placeholder,omitempty"`
	Caption        string            `json:"caption,omitempty"`
	Message        string            `json:"message,omitempty"`
	Error          *FailureResponse  `json:"error,omitempty"`
	Notice         *NoticeResponse   `json:"notice,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}

// newStateResponse maps the studio state onto its wire form.
func newStateResponse(s studio.State) StateResponse {
	resp := StateResponse{
		Cycle:          s.Cycle,
		Phase:          string(s.Phase),
		RequestID:      s.RequestID,
		Prompt:         s.Prompt,
		NegativePrompt: s.NegativePrompt,
		Message:        s.Message,
		UpdatedAt:      s.UpdatedAt,
	}

	if s.Phase == studio.PhaseSubmitting {
		resp.Progress = newProgressResponse(s.Progress)
	}

	if s.Phase == studio.PhaseResultReady {
		resp.MediaURL = s.MediaURL
		resp.MediaKind = s.MediaKind.String()
		resp.Placeholder = s.Placeholder
		resp.Caption = s.Caption()
	}

	if s.Failure != nil {
		resp.Error = &FailureResponse{
			Kind:       string(s.Failure.Kind),
			Reason:     s.Failure.Reason,
			StatusCode: s.Failure.StatusCode,
		}
	}

	if s.Notice != nil {
		resp.Notice = &NoticeResponse{
			Title:       s.Notice.Title,
			Description: s.Notice.Description,
			Destructive: s.Notice.Destructive,
			At:          s.Notice.At,
		}
	}

	return resp
}

func newProgressResponse(p progress.Snapshot) *ProgressResponse {
	stages := make([]StageResponse, 0, len(p.Stages))
	for _, st := range p.Stages {
		stages = append(stages, StageResponse{Label: st.Label, Active: st.Active, Complete: st.Complete})
	}
	return &ProgressResponse{
		Phase:   string(p.Phase),
		Current: p.Current,
		Stages:  stages,
	}
}

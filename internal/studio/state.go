// Package studio coordinates generation cycles: it validates a submission,
// dispatches the workflow request, runs the progress timeline next to it and
// merges the outcome into the display state.
// Phase transitions follow a fixed table, and every outcome is tagged with
// the cycle that produced it so late results of superseded cycles are dropped.
package studio

import (
	"errors"
	"time"

	"github.com/maauso/balbo/internal/media"
	"github.com/maauso/balbo/internal/progress"
	"github.com/maauso/balbo/internal/workflow"
)

// Phase is the display phase of the studio.
type Phase string

const (
	// PhaseIdle indicates nothing is in flight and no result is shown.
	PhaseIdle Phase = "IDLE"
	// PhaseSubmitting indicates a request is in flight and the timeline runs.
	PhaseSubmitting Phase = "SUBMITTING"
	// PhaseResultReady indicates the last cycle produced a media URL.
	PhaseResultReady Phase = "RESULT_READY"
	// PhaseFailed indicates the last cycle failed.
	PhaseFailed Phase = "FAILED"
)

// Errors returned by the orchestrator.
var (
	// ErrInvalidTransition is returned when a phase transition is not allowed.
	ErrInvalidTransition = errors.New("studio: invalid state transition")
	// ErrNothingToRerun is returned by Rerun before any accepted submission.
	ErrNothingToRerun = errors.New("studio: nothing to run again")
	// ErrSuperseded is returned by Wait when a newer cycle replaced the awaited one.
	ErrSuperseded = errors.New("studio: cycle superseded by a newer submission")
)

// validTransitions defines which phase transitions are allowed.
// A new submission is accepted from every phase.
var validTransitions = map[Phase][]Phase{
	PhaseIdle:        {PhaseSubmitting},
	PhaseSubmitting:  {PhaseSubmitting, PhaseResultReady, PhaseFailed},
	PhaseResultReady: {PhaseSubmitting, PhaseIdle},
	PhaseFailed:      {PhaseSubmitting, PhaseIdle},
}

// canTransition checks if a transition from one phase to another is valid.
func canTransition(from, to Phase) bool {
	for _, p := range validTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for phases that end a cycle.
func (p Phase) IsTerminal() bool {
	return p == PhaseResultReady || p == PhaseFailed
}

// Notice is a user-facing notification, the equivalent of a toast.
type Notice struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Destructive bool      `json:"destructive"`
	At          time.Time `json:"at"`
}

// Input is what the user submits.
type Input struct {
	Prompt         string
	NegativePrompt string
	// RequestID becomes the generation's request ID when it is a valid
	// generation ID; otherwise a fresh one is assigned.
	RequestID string
}

// State is the display state of the studio.
type State struct {
	// Cycle identifies the cycle this state belongs to; 0 before any submission.
	Cycle uint64
	// Phase is the current display phase.
	Phase Phase
	// RequestID is the ID sent with the workflow request.
	RequestID string
	// Prompt and NegativePrompt are the trimmed inputs of the cycle.
	Prompt         string
	NegativePrompt string
	// Progress is the timeline view; populated only while submitting.
	Progress progress.Snapshot
	// MediaURL and MediaKind are set when Phase is PhaseResultReady.
	MediaURL  string
	MediaKind media.Kind
	// Placeholder is true when MediaURL is the fallback placeholder.
	Placeholder bool
	// Message is the optional message returned by the workflow.
	Message string
	// Failure is set when Phase is PhaseFailed.
	Failure *workflow.Failure
	// Notice is the last notification emitted for this cycle.
	Notice *Notice
	// UpdatedAt is when the state last changed.
	UpdatedAt time.Time
}

// Caption returns the result caption, or "" when no result is shown.
func (s State) Caption() string {
	if s.Phase != PhaseResultReady {
		return ""
	}
	return s.MediaKind.Caption()
}

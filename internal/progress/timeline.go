// Package progress provides the simulated, fixed-duration stage sequence shown
// while a generation request is in flight. It is a presentational signal only:
// it never reflects the real backend state.
package progress

import (
	"context"
	"sync"
	"time"
)

// Stage is one named phase of the timeline.
type Stage struct {
	Label    string
	Duration time.Duration
}

// DefaultStages is the sequence shown for a generation cycle.
var DefaultStages = []Stage{
	{Label: "Initializing", Duration: 1000 * time.Millisecond},
	{Label: "Processing", Duration: 1500 * time.Millisecond},
	{Label: "Generating", Duration: 2000 * time.Millisecond},
	{Label: "Complete", Duration: 500 * time.Millisecond},
}

// Phase is the state of a Timeline.
type Phase string

const (
	// PhaseIdle means the timeline is not running.
	PhaseIdle Phase = "idle"
	// PhaseRunning means a stage is active and its timer is pending.
	PhaseRunning Phase = "running"
	// PhaseFinished means every stage elapsed.
	PhaseFinished Phase = "finished"
)

// StageView is the presentational state of a single stage.
type StageView struct {
	Label    string `json:"label"`
	Active   bool   `json:"active"`
	Complete bool   `json:"complete"`
}

// Snapshot is a point-in-time view of a Timeline.
type Snapshot struct {
	Phase   Phase       `json:"phase"`
	Current int         `json:"current"`
	Stages  []StageView `json:"stages"`
}

// Option configures a Timeline.
type Option func(*Timeline)

// WithOnStage registers a callback invoked each time a stage becomes active.
// Callbacks run on the timeline goroutine and must not call Start or Stop.
func WithOnStage(fn func(index int, stage Stage)) Option {
	return func(t *Timeline) {
		t.onStage = fn
	}
}

// WithOnComplete registers a callback invoked once when a run finishes.
// It is not invoked for runs that were stopped or restarted.
func WithOnComplete(fn func()) Option {
	return func(t *Timeline) {
		t.onComplete = fn
	}
}

// Timeline advances through a fixed list of stages, one timer at a time.
type Timeline struct {
	stages     []Stage
	onStage    func(int, Stage)
	onComplete func()

	// ctl serializes Start and Stop.
	ctl sync.Mutex

	mu      sync.Mutex
	phase   Phase
	current int
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates an idle Timeline over stages. The slice is copied.
func New(stages []Stage, opts ...Option) *Timeline {
	t := &Timeline{
		stages: append([]Stage(nil), stages...),
		phase:  PhaseIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start runs the timeline from the first stage. A run already in progress is
// stopped first, so its pending transitions never fire.
func (t *Timeline) Start() {
	t.ctl.Lock()
	defer t.ctl.Unlock()

	t.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	t.mu.Lock()
	t.cancel = cancel
	t.done = done
	t.phase = PhaseRunning
	t.current = 0
	t.mu.Unlock()

	go t.run(ctx, done)
}

// Stop cancels the pending transition and waits for the run to exit. Once Stop
// returns no callback of that run fires. Stop is idempotent.
func (t *Timeline) Stop() {
	t.ctl.Lock()
	defer t.ctl.Unlock()
	t.stop()
}

func (t *Timeline) stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	t.mu.Lock()
	t.phase = PhaseIdle
	t.current = 0
	t.mu.Unlock()
}

// Running reports whether a stage timer is pending.
func (t *Timeline) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase == PhaseRunning
}

// Snapshot returns the current presentational state.
func (t *Timeline) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	views := make([]StageView, len(t.stages))
	for i, s := range t.stages {
		views[i] = StageView{Label: s.Label}
		switch t.phase {
		case PhaseFinished:
			views[i].Complete = true
		case PhaseRunning:
			views[i].Active = i == t.current
			views[i].Complete = i < t.current
		}
	}

	return Snapshot{
		Phase:   t.phase,
		Current: t.current,
		Stages:  views,
	}
}

func (t *Timeline) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for i, stage := range t.stages {
		if ctx.Err() != nil {
			return
		}

		t.mu.Lock()
		t.current = i
		t.mu.Unlock()

		if t.onStage != nil {
			t.onStage(i, stage)
		}

		timer := time.NewTimer(stage.Duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	if ctx.Err() != nil {
		return
	}

	t.mu.Lock()
	t.phase = PhaseFinished
	t.mu.Unlock()

	if t.onComplete != nil {
		t.onComplete()
	}
}

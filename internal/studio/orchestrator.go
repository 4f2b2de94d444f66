package studio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maauso/balbo/internal/media"
	"github.com/maauso/balbo/internal/progress"
	"github.com/maauso/balbo/internal/workflow"
	"github.com/maauso/balbo/internal/workflow/id"
)

// DefaultPlaceholderURL is shown when the workflow succeeds without a media URL.
const DefaultPlaceholderURL = "https://images.unsplash.com/photo-1618005198919-d3d4b5a92ead?w=800&h=600&fit=crop"

// Sender sends one generation request. workflow.HTTPClient implements it.
type Sender interface {
	Send(ctx context.Context, req workflow.Request) workflow.Outcome
}

// Observer receives cycle events, typically for metrics.
type Observer interface {
	CycleStarted()
	OutcomeResolved(kind string, elapsed time.Duration)
	StaleOutcomeDiscarded()
	ValidationRejected()
}

// Notifier delivers notices to the user. Outcome notices are delivered while
// the cycle that produced them is still current, so Notify must not block and
// must not call back into the Orchestrator.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

// StageListener is called when a stage of the current cycle becomes active.
type StageListener func(cycle uint64, index int, stage progress.Stage)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStages overrides the progress stages.
func WithStages(stages []progress.Stage) Option {
	return func(o *Orchestrator) {
		o.stages = stages
	}
}

// WithPlaceholderURL overrides the fallback media URL. Empty values are ignored.
func WithPlaceholderURL(url string) Option {
	return func(o *Orchestrator) {
		if url != "" {
			o.placeholderURL = url
		}
	}
}

// WithObserver sets the cycle observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithNotifier sets where notices are delivered.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithStageListener registers a listener for stage activations.
func WithStageListener(fn StageListener) Option {
	return func(o *Orchestrator) {
		o.onStage = fn
	}
}

// WithClock sets the clock used for submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// Orchestrator owns the submit-to-display lifecycle.
type Orchestrator struct {
	sender         Sender
	logger         *slog.Logger
	stages         []progress.Stage
	placeholderURL string
	observer       Observer
	notifier       Notifier
	onStage        StageListener
	now            func() time.Time

	// submitMu serializes submissions so timelines start and stop in cycle order.
	submitMu sync.Mutex

	mu       sync.Mutex
	cycle    uint64
	state    State
	timeline *progress.Timeline
	last     *Input
	changed  chan struct{}
}

// NewOrchestrator creates an idle Orchestrator.
func NewOrchestrator(sender Sender, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		sender:         sender,
		logger:         logger,
		stages:         progress.DefaultStages,
		placeholderURL: DefaultPlaceholderURL,
		observer:       nopObserver{},
		now:            time.Now,
		state:          State{Phase: PhaseIdle},
		changed:        make(chan struct{}),
	}
	o.notifier = logNotifier{logger: logger}
	for _, opt := range opts {
		opt(o)
	}
	o.state.UpdatedAt = o.now()
	return o
}

// Submit validates in and starts a new cycle, superseding any previous one.
// A blank prompt returns a *workflow.Failure of KindValidation and leaves the
// state untouched; nothing is sent.
// The request runs on a context detached from ctx's cancellation, so the
// caller may return before the outcome arrives.
func (o *Orchestrator) Submit(ctx context.Context, in Input) (uint64, error) {
	req, err := workflow.NewRequest(in.Prompt, in.NegativePrompt, o.now())
	if err != nil {
		o.observer.ValidationRejected()
		o.logger.Warn("submission rejected", slog.String("error", err.Error()))
		o.notifier.Notify(Notice{
			Title:       "Prompt required",
			Description: err.Error(),
			Destructive: true,
			At:          o.now(),
		})
		return 0, err
	}
	if id.Valid(in.RequestID) {
		req.ID = in.RequestID
	}

	o.submitMu.Lock()
	defer o.submitMu.Unlock()

	o.mu.Lock()
	if !canTransition(o.state.Phase, PhaseSubmitting) {
		o.mu.Unlock()
		return 0, ErrInvalidTransition
	}
	o.cycle++
	cycle := o.cycle
	prev := o.timeline
	tl := progress.New(o.stages,
		progress.WithOnStage(func(i int, s progress.Stage) { o.stageActivated(cycle, i, s) }),
		progress.WithOnComplete(func() { o.animationFinished(cycle) }),
	)
	o.timeline = tl
	o.last = &Input{Prompt: req.Prompt, NegativePrompt: req.NegativePrompt}
	o.state = State{
		Cycle:          cycle,
		Phase:          PhaseSubmitting,
		RequestID:      req.ID,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		UpdatedAt:      o.now(),
	}
	o.broadcastLocked()
	o.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}

	o.logger.Info("generation cycle started",
		slog.Uint64("cycle", cycle),
		slog.String("request_id", req.ID),
		slog.Int("prompt_len", len(req.Prompt)),
		slog.Bool("negative_prompt", req.NegativePrompt != ""),
	)
	o.observer.CycleStarted()

	tl.Start()
	go o.dispatch(context.WithoutCancel(ctx), cycle, req, tl)

	return cycle, nil
}

// Rerun submits the last accepted input again.
func (o *Orchestrator) Rerun(ctx context.Context) (uint64, error) {
	o.mu.Lock()
	last := o.last
	o.mu.Unlock()

	if last == nil {
		return 0, ErrNothingToRerun
	}
	return o.Submit(ctx, *last)
}

// Reset dismisses a finished result and returns to idle.
// It fails with ErrInvalidTransition while a cycle is in flight.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.Phase == PhaseIdle {
		return nil
	}
	if !canTransition(o.state.Phase, PhaseIdle) {
		return ErrInvalidTransition
	}
	o.state = State{
		Cycle:     o.cycle,
		Phase:     PhaseIdle,
		UpdatedAt: o.now(),
	}
	o.broadcastLocked()
	return nil
}

// State returns a copy of the display state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.state
	if s.Phase == PhaseSubmitting && o.timeline != nil {
		s.Progress = o.timeline.Snapshot()
	}
	return s
}

// Wait blocks until cycle reaches a terminal phase and returns its state.
// It returns ErrSuperseded if a newer cycle started first.
func (o *Orchestrator) Wait(ctx context.Context, cycle uint64) (State, error) {
	for {
		o.mu.Lock()
		current := o.cycle
		s := o.state
		changed := o.changed
		o.mu.Unlock()

		if current != cycle {
			return s, ErrSuperseded
		}
		if s.Phase.IsTerminal() || s.Phase == PhaseIdle {
			return s, nil
		}

		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-changed:
		}
	}
}

// Close stops the running timeline. In-flight requests are left to finish;
// their outcomes are still applied if no newer cycle exists.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	tl := o.timeline
	o.mu.Unlock()

	if tl != nil {
		tl.Stop()
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, cycle uint64, req workflow.Request, tl *progress.Timeline) {
	start := time.Now()
	outcome := o.sender.Send(ctx, req)
	o.resolve(cycle, req, outcome, time.Since(start))
	// The animation is cut short once its cycle has an outcome.
	tl.Stop()
}

// resolve applies outcome if cycle is still current.
func (o *Orchestrator) resolve(cycle uint64, req workflow.Request, outcome workflow.Outcome, elapsed time.Duration) {
	o.mu.Lock()
	if cycle != o.cycle {
		current := o.cycle
		o.mu.Unlock()
		o.observer.StaleOutcomeDiscarded()
		o.logger.Debug("discarding stale outcome",
			slog.Uint64("cycle", cycle),
			slog.Uint64("current_cycle", current),
			slog.String("request_id", req.ID),
		)
		return
	}

	var (
		notice Notice
		kind   string
	)
	now := o.now()

	if s, ok := outcome.Success(); ok {
		url := s.MediaURL
		placeholder := url == ""
		if placeholder {
			url = o.placeholderURL
		}
		o.state.Phase = PhaseResultReady
		o.state.MediaURL = url
		o.state.MediaKind = media.Classify(url)
		o.state.Placeholder = placeholder
		o.state.Message = s.Message
		notice = Notice{Title: "Workflow completed", Description: s.Message, At: now}
		if notice.Description == "" {
			notice.Description = "Your workflow has finished successfully"
		}
		kind = "success"
	} else {
		f, _ := outcome.Failure()
		o.state.Phase = PhaseFailed
		o.state.Failure = f
		notice = Notice{Title: "Workflow failed", Description: f.Reason, Destructive: true, At: now}
		kind = string(f.Kind)
	}

	o.state.Progress = progress.Snapshot{}
	o.state.Notice = &notice
	o.state.UpdatedAt = now
	result := o.state
	o.broadcastLocked()
	o.notifier.Notify(notice)
	o.mu.Unlock()

	o.observer.OutcomeResolved(kind, elapsed)

	if result.Phase == PhaseResultReady {
		o.logger.Info("generation cycle completed",
			slog.Uint64("cycle", cycle),
			slog.String("request_id", req.ID),
			slog.String("media_url", result.MediaURL),
			slog.String("media_kind", result.MediaKind.String()),
			slog.Bool("placeholder", result.Placeholder),
			slog.Duration("elapsed", elapsed),
		)
		return
	}
	o.logger.Warn("generation cycle failed",
		slog.Uint64("cycle", cycle),
		slog.String("request_id", req.ID),
		slog.String("kind", kind),
		slog.String("reason", result.Failure.Reason),
		slog.Duration("elapsed", elapsed),
	)
}

func (o *Orchestrator) stageActivated(cycle uint64, index int, stage progress.Stage) {
	o.mu.Lock()
	current := cycle == o.cycle && o.state.Phase == PhaseSubmitting
	o.mu.Unlock()

	if !current {
		return
	}
	o.logger.Debug("progress stage",
		slog.Uint64("cycle", cycle),
		slog.Int("index", index),
		slog.String("stage", stage.Label),
	)
	if o.onStage != nil {
		o.onStage(cycle, index, stage)
	}
}

// animationFinished has no effect on the outcome; the request may still be in flight.
func (o *Orchestrator) animationFinished(cycle uint64) {
	o.logger.Debug("progress animation finished", slog.Uint64("cycle", cycle))
}

// broadcastLocked wakes every Wait call. Caller must hold o.mu.
func (o *Orchestrator) broadcastLocked() {
	close(o.changed)
	o.changed = make(chan struct{})
}

type nopObserver struct{}

func (nopObserver) CycleStarted()                         {}
func (nopObserver) OutcomeResolved(string, time.Duration) {}
func (nopObserver) StaleOutcomeDiscarded()                {}
func (nopObserver) ValidationRejected()                   {}

// logNotifier is the default Notifier; it writes notices to the log.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(notice Notice) {
	level := slog.LevelInfo
	if notice.Destructive {
		level = slog.LevelWarn
	}
	n.logger.Log(context.Background(), level, "notice",
		slog.String("title", notice.Title),
		slog.String("description", notice.Description),
	)
}

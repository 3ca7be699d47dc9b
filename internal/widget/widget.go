package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/felixgeelhaar/pencil/internal/rules"
	"github.com/google/uuid"
)

// DefaultCooldown is how long error submissions stay suppressed
const DefaultCooldown = 1000 * time.Millisecond

// ResetPrompt is shown when the learner asks to restore the starting code
const ResetPrompt = "Reset the code back to its starting state?"

var (
	ErrNoSurface   = errors.New("widget requires an embedded surface")
	ErrNoSubmit    = errors.New("widget requires a submit function")
	ErrNoConfirmer = errors.New("widget has no reset confirmer")
	ErrReadOnly    = errors.New("exercise is read-only")
	ErrClosed      = errors.New("widget is closed")
)

// Mode is the top-level widget state
type Mode string

const (
	ModeEditable Mode = "editable"
	ModeReadOnly Mode = "read_only"
)

// State is a snapshot of the widget's submission state
type State struct {
	Active         bool
	HasSubmitted   bool
	ErrorInFlight  bool
	InitialContent string
}

// Mode returns the top-level mode for the state
func (s State) Mode() Mode {
	if s.Active {
		return ModeEditable
	}
	return ModeReadOnly
}

// Config wires a widget to its surface and host
type Config struct {
	Surface   Surface
	Submit    SubmitFunc
	Registrar Registrar
	Positions PositionSource
	Confirmer Confirmer

	// InitialCode is the per-exercise starting code
	InitialCode string
	// PriorAnswer, when it carries code, opens the widget read-only
	PriorAnswer *domain.PriorAnswer

	Evaluator domain.RuleEvaluator
	Cooldown  time.Duration
	Scheduler Scheduler
	Observer  Observer
	Logger    *slog.Logger
}

// Widget is a code-editor exercise. It turns surface notifications into at
// most one answer per execution cycle and stops submitting once the host
// advances past its card.
type Widget struct {
	id        uuid.UUID
	surface   Surface
	submit    SubmitFunc
	evaluator domain.RuleEvaluator
	confirmer Confirmer
	scheduler Scheduler
	observer  Observer
	logger    *slog.Logger
	cooldown  time.Duration

	mu     sync.Mutex
	state  State
	cycle  uuid.UUID // identity of the pending error cooldown
	timer  Timer
	subs   []Subscription
	closed bool
}

// New creates a widget, starts loading its surface and registers it with
// the host.
func New(cfg Config) (*Widget, error) {
	if cfg.Surface == nil {
		return nil, ErrNoSurface
	}
	if cfg.Submit == nil {
		return nil, ErrNoSubmit
	}

	w := &Widget{
		id:        uuid.New(),
		surface:   cfg.Surface,
		submit:    cfg.Submit,
		evaluator: cfg.Evaluator,
		confirmer: cfg.Confirmer,
		scheduler: cfg.Scheduler,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
		cooldown:  cfg.Cooldown,
	}
	if w.evaluator == nil {
		w.evaluator = rules.NewEvaluator()
	}
	if w.scheduler == nil {
		w.scheduler = timeScheduler{}
	}
	if w.observer == nil {
		w.observer = nopObserver{}
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.cooldown <= 0 {
		w.cooldown = DefaultCooldown
	}
	w.logger = w.logger.With("widget_id", w.id.String())

	w.state.Active = cfg.PriorAnswer == nil || cfg.PriorAnswer.Code == ""
	if w.state.Active {
		w.state.InitialContent = cfg.InitialCode
	} else {
		w.state.InitialContent = cfg.PriorAnswer.Code
	}

	if cfg.Positions != nil {
		w.subs = append(w.subs, cfg.Positions.OnNewCardAvailable(w.handleNewCard))
		if pending, ok := cfg.Positions.(PendingSource); ok {
			w.subs = append(w.subs, pending.OnCardPending(w.handleCardPending))
		}
	}

	// Surfaces may emit load synchronously from BeginLoad, so handlers go
	// in first.
	w.subs = append(w.subs,
		w.surface.On(EventLoad, func(Event) { w.handleLoad() }),
		w.surface.On(EventStartExecute, func(Event) { w.handleStartExecute() }),
		w.surface.On(EventExecute, func(Event) { w.SubmitAnswer() }),
		w.surface.On(EventError, func(e Event) { w.handleError(e.Message) }),
	)

	if err := w.surface.BeginLoad(w.state.InitialContent); err != nil {
		w.Close()
		return nil, fmt.Errorf("load surface: %w", err)
	}

	if cfg.Registrar != nil {
		cfg.Registrar.RegisterInteraction(w.SubmitAnswer, w.IsValid)
	}

	w.logger.Debug("widget initialized", "mode", w.state.Mode())
	return w, nil
}

// ID returns the widget instance identifier
func (w *Widget) ID() uuid.UUID {
	return w.id
}

// State returns a snapshot of the current state
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Code returns the normalized editor content
func (w *Widget) Code() string {
	return NormalizeCode(w.surface.Code())
}

// IsValid reports whether the editor holds something worth submitting.
// It has no side effects and is safe to call at any time.
func (w *Widget) IsValid() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.validLocked()
}

func (w *Widget) validLocked() bool {
	return w.surface != nil && HasContent(w.surface.Code())
}

// SubmitAnswer captures the surface output and submits it, unless the
// widget is read-only, the content is blank, or this cycle already
// produced an answer.
func (w *Widget) SubmitAnswer() {
	w.mu.Lock()
	if w.closed || !w.state.Active {
		w.mu.Unlock()
		w.suppress(SuppressReadOnly)
		return
	}
	if !w.validLocked() {
		w.mu.Unlock()
		w.observer.SubmissionRejected()
		w.logger.Debug("submission rejected: empty code")
		return
	}
	if w.state.ErrorInFlight {
		w.mu.Unlock()
		w.suppress(SuppressCooldown)
		return
	}
	if w.state.HasSubmitted {
		w.mu.Unlock()
		w.suppress(SuppressDuplicate)
		return
	}
	code := NormalizeCode(w.surface.Code())
	// Claimed before the capture so a second execute cannot slip in
	// while the snapshot is being taken.
	w.state.HasSubmitted = true
	w.mu.Unlock()

	w.surface.Eval(SnapshotExpression, func(markup string) {
		w.mu.Lock()
		live := w.state.Active && !w.closed
		w.mu.Unlock()
		if !live {
			w.suppress(SuppressReadOnly)
			return
		}
		w.deliver(domain.Answer{
			Code:   code,
			Output: ExtractOutput(markup),
		})
	}, true)
}

// Reset asks for confirmation and restores the starting code
func (w *Widget) Reset(ctx context.Context) error {
	w.mu.Lock()
	closed, active, initial := w.closed, w.state.Active, w.state.InitialContent
	w.mu.Unlock()

	switch {
	case closed:
		return ErrClosed
	case !active:
		return ErrReadOnly
	case w.confirmer == nil:
		return ErrNoConfirmer
	}

	ok, err := w.confirmer.Confirm(ctx, ResetPrompt)
	if err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}
	if !ok {
		return nil
	}

	w.surface.SetCode(initial)
	w.logger.Debug("code reset to initial content")
	return nil
}

// Close releases host and surface subscriptions and cancels any pending
// cooldown. It is safe to call more than once.
func (w *Widget) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	subs := w.subs
	w.subs = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	for _, s := range subs {
		if s != nil {
			s.Unsubscribe()
		}
	}
}

func (w *Widget) handleLoad() {
	w.mu.Lock()
	active := w.state.Active
	w.mu.Unlock()

	w.surface.HideToggleButton()
	if active {
		w.surface.SetEditable()
		return
	}
	w.surface.HideMiddleButton()
	w.surface.SetReadOnly()
}

func (w *Widget) handleStartExecute() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.HasSubmitted = false
}

func (w *Widget) handleError(message string) {
	w.mu.Lock()
	if w.closed || !w.state.Active {
		w.mu.Unlock()
		w.suppress(SuppressReadOnly)
		return
	}
	if w.state.HasSubmitted {
		w.mu.Unlock()
		w.suppress(SuppressDuplicate)
		return
	}
	code := NormalizeCode(w.surface.Code())
	w.state.ErrorInFlight = true
	w.state.HasSubmitted = true
	cycle := uuid.New()
	w.cycle = cycle
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	w.deliver(domain.Answer{
		Code:  code,
		Error: message,
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.cycle != cycle {
		return
	}
	w.timer = w.scheduler.AfterFunc(w.cooldown, func() { w.endCooldown(cycle) })
}

func (w *Widget) endCooldown(cycle uuid.UUID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cycle != cycle {
		return
	}
	w.state.ErrorInFlight = false
	w.timer = nil
}

func (w *Widget) handleNewCard() {
	w.mu.Lock()
	if !w.state.Active {
		w.mu.Unlock()
		return
	}
	w.state.Active = false
	w.mu.Unlock()

	w.surface.HideMiddleButton()
	w.surface.HideToggleButton()
	w.surface.SetReadOnly()
	w.logger.Debug("card finalized")
}

func (w *Widget) handleCardPending() {
	w.mu.Lock()
	active := w.state.Active
	w.mu.Unlock()
	if active {
		w.surface.HideToggleButton()
	}
}

func (w *Widget) deliver(answer domain.Answer) {
	w.observer.AnswerSubmitted(answer.Kind())
	w.logger.Debug("submitting answer", "kind", answer.Kind())
	w.submit(answer, w.evaluator)
}

func (w *Widget) suppress(reason SuppressReason) {
	w.observer.SubmissionSuppressed(reason)
	w.logger.Debug("submission suppressed", "reason", reason)
}

// Package player hosts code exercises: it opens one card per exercise,
// grades every answer a card submits and moves the learner on once an
// answer is correct.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/pencil/internal/domain"
	"github.com/felixgeelhaar/pencil/internal/embed"
	"github.com/felixgeelhaar/pencil/internal/rules"
	"github.com/felixgeelhaar/pencil/internal/runner"
	"github.com/felixgeelhaar/pencil/internal/widget"
	"github.com/google/uuid"
)

var (
	ErrNoExercises = errors.New("player needs at least one exercise")
	ErrNoRunner    = errors.New("player needs a runner")
	ErrFinished    = domain.ErrSessionFinished
)

// Config configures a Player
type Config struct {
	Exercises []*domain.Exercise
	Runner    runner.Runner
	// PriorAnswers maps exercise IDs to answers from an earlier session
	PriorAnswers map[string]domain.PriorAnswer

	Confirmer widget.Confirmer
	Timeout   time.Duration
	Cooldown  time.Duration
	Scheduler widget.Scheduler
	Metrics   *Metrics
	Logger    *slog.Logger
}

// Attempt is one graded answer
type Attempt struct {
	ID         uuid.UUID      `json:"id"`
	ExerciseID string         `json:"exercise_id"`
	Answer     domain.Answer  `json:"answer"`
	Outcome    domain.Outcome `json:"outcome"`
	GroupIndex int            `json:"group_index"`
	At         time.Time      `json:"at"`
}

// Card is one exercise on screen: its editor and the widget wrapping it
type Card struct {
	Exercise *domain.Exercise
	Editor   *embed.Editor
	Widget   *widget.Widget
}

// Status is a snapshot of where the learner is
type Status struct {
	ID         string          `json:"id"`
	ExerciseID string          `json:"exercise_id,omitempty"`
	Title      string          `json:"title,omitempty"`
	Prompt     string          `json:"prompt,omitempty"`
	Position   int             `json:"position"`
	Total      int             `json:"total"`
	Mode       widget.Mode     `json:"mode,omitempty"`
	Code       string          `json:"code,omitempty"`
	Output     []string        `json:"output,omitempty"`
	CanSubmit  bool            `json:"can_submit"`
	Attempts   int             `json:"attempts"`
	Completed  int             `json:"completed"`
	Finished   bool            `json:"finished"`
	Last       *domain.Outcome `json:"last_outcome,omitempty"`
}

// RunReport is what a run produced: the program result and, when the run
// led to a submission, the graded attempt.
type RunReport struct {
	Result  *runner.Result
	Attempt *Attempt
}

// Player plays an ordered list of exercises
type Player struct {
	id          uuid.UUID
	cfg         Config
	logger      *slog.Logger
	positions   *PositionService
	interaction *CurrentInteraction

	mu        sync.Mutex
	cards     []*Card
	index     int
	attempts  []Attempt
	completed int
	finished  bool
	closed    bool
}

// New creates a player and opens the first card
func New(cfg Config) (*Player, error) {
	if len(cfg.Exercises) == 0 {
		return nil, ErrNoExercises
	}
	if cfg.Runner == nil {
		return nil, ErrNoRunner
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := &Player{
		id:          uuid.New(),
		cfg:         cfg,
		positions:   NewPositionService(),
		interaction: &CurrentInteraction{},
	}
	p.logger = logger.With("player_id", p.id.String())

	if err := p.open(0); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// ID returns the player session identifier
func (p *Player) ID() uuid.UUID {
	return p.id
}

// open shows exercise i. Exercises with a prior answer open read-only and
// count as completed, so the player keeps going to the next one. Every
// card registers with the Submit button and the card that follows takes
// it over. The card left behind is closed once its successor is up.
func (p *Player) open(i int) error {
	p.mu.Lock()
	var prev *Card
	if n := len(p.cards); n > 0 {
		prev = p.cards[n-1]
	}
	p.mu.Unlock()
	closePrev := func(next *Card) {
		if prev != nil {
			prev.Widget.Close()
		}
		prev = next
	}

	for ; i < len(p.cfg.Exercises); i++ {
		ex := p.cfg.Exercises[i]
		prior, hasPrior := p.prior(ex.ID)

		lang := runner.LanguagePython
		var err error
		if ex.Language != "" {
			lang, err = runner.ParseLanguage(ex.Language)
		}
		if err != nil {
			return fmt.Errorf("exercise %s: %w", ex.ID, err)
		}

		editor := embed.New(embed.Config{
			Runner:   p.cfg.Runner,
			Language: lang,
			Timeout:  p.cfg.Timeout,
			Logger:   p.logger,
		})

		wcfg := widget.Config{
			Surface:     editor,
			Submit:      p.grader(ex),
			Positions:   p.positions,
			Confirmer:   p.cfg.Confirmer,
			InitialCode: ex.InitialCode,
			Cooldown:    p.cfg.Cooldown,
			Scheduler:   p.cfg.Scheduler,
			Registrar:   p.interaction,
			Logger:      p.logger.With("exercise_id", ex.ID),
		}
		if p.cfg.Metrics != nil {
			wcfg.Observer = p.cfg.Metrics
		}
		if hasPrior {
			wcfg.PriorAnswer = &prior
		}

		w, err := widget.New(wcfg)
		if err != nil {
			return fmt.Errorf("open exercise %s: %w", ex.ID, err)
		}

		card := &Card{Exercise: ex, Editor: editor, Widget: w}
		p.mu.Lock()
		p.cards = append(p.cards, card)
		p.index = i
		if !hasPrior {
			p.mu.Unlock()
			closePrev(card)
			p.logger.Info("card opened", "exercise_id", ex.ID, "position", i+1, "total", len(p.cfg.Exercises))
			return nil
		}
		p.completed++
		p.mu.Unlock()
		closePrev(card)
		p.logger.Info("card resumed from prior answer", "exercise_id", ex.ID)
	}

	p.mu.Lock()
	p.finished = true
	p.index = len(p.cfg.Exercises)
	p.mu.Unlock()
	closePrev(nil)
	p.interaction.Clear()
	p.logger.Info("all exercises complete")
	return nil
}

func (p *Player) prior(exerciseID string) (domain.PriorAnswer, bool) {
	prior, ok := p.cfg.PriorAnswers[exerciseID]
	return prior, ok && prior.Code != ""
}

// grader returns the submit callback for ex's card
func (p *Player) grader(ex *domain.Exercise) widget.SubmitFunc {
	return func(answer domain.Answer, evaluator domain.RuleEvaluator) {
		cls, err := rules.Classify(answer, ex, evaluator)
		if err != nil {
			p.logger.Error("grading failed", "exercise_id", ex.ID, "error", err)
			cls = rules.Classification{GroupIndex: rules.DefaultGroup, Outcome: ex.DefaultOutcome}
		}

		attempt := Attempt{
			ID:         uuid.New(),
			ExerciseID: ex.ID,
			Answer:     answer,
			Outcome:    cls.Outcome,
			GroupIndex: cls.GroupIndex,
			At:         time.Now(),
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		p.attempts = append(p.attempts, attempt)
		next := p.index + 1
		if cls.Outcome.Correct {
			p.completed++
		}
		p.mu.Unlock()

		p.cfg.Metrics.AnswerGraded(cls.Outcome.Correct, cls.IsDefault())
		p.logger.Info("answer graded",
			"exercise_id", ex.ID,
			"kind", answer.Kind(),
			"correct", cls.Outcome.Correct,
			"group", cls.GroupIndex)

		if !cls.Outcome.Correct {
			p.positions.NotifyCardPending()
			return
		}

		p.positions.NotifyNewCardAvailable()
		if err := p.open(next); err != nil {
			p.logger.Error("failed to open next card", "error", err)
		}
	}
}

// Current returns the card the learner is working on, or nil when finished
func (p *Player) Current() *Card {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentLocked()
}

func (p *Player) currentLocked() *Card {
	if p.finished || p.closed || len(p.cards) == 0 {
		return nil
	}
	return p.cards[len(p.cards)-1]
}

// Cards returns every card opened so far, oldest first
func (p *Player) Cards() []*Card {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Card(nil), p.cards...)
}

// Attempts returns the graded answers so far
func (p *Player) Attempts() []Attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Attempt(nil), p.attempts...)
}

// Finished reports whether every exercise is complete
func (p *Player) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finished
}

// Edit replaces the current card's code
func (p *Player) Edit(code string) error {
	card, err := p.current()
	if err != nil {
		return err
	}
	return card.Editor.Edit(code)
}

// Run runs the current card's code. A clean run or a program error is
// submitted by the card itself; the report carries the resulting attempt.
func (p *Player) Run(ctx context.Context) (*RunReport, error) {
	card, err := p.current()
	if err != nil {
		return nil, err
	}

	before := p.attemptCount()
	start := time.Now()
	result, err := card.Editor.Run(ctx)
	if errors.Is(err, embed.ErrRunDisabled) || errors.Is(err, embed.ErrBusy) || errors.Is(err, embed.ErrNotLoaded) {
		return nil, err
	}
	p.cfg.Metrics.RunFinished(card.Exercise.Language, time.Since(start))

	return &RunReport{Result: result, Attempt: p.attemptSince(before)}, err
}

// Submit presses the host Submit button. It returns the attempt the press
// produced, or nil when the card suppressed it as a duplicate.
func (p *Player) Submit() (*Attempt, error) {
	if _, err := p.current(); err != nil {
		return nil, err
	}
	before := p.attemptCount()
	if err := p.interaction.Submit(); err != nil {
		return nil, err
	}
	return p.attemptSince(before), nil
}

// CanSubmit reports whether the Submit button is enabled
func (p *Player) CanSubmit() bool {
	return p.interaction.IsSubmitEnabled()
}

// Reset restores the current card's starting code after confirmation
func (p *Player) Reset(ctx context.Context) error {
	card, err := p.current()
	if err != nil {
		return err
	}
	return card.Widget.Reset(ctx)
}

// Status returns a snapshot of the session
func (p *Player) Status() Status {
	p.mu.Lock()
	st := Status{
		ID:        p.id.String(),
		Position:  p.index + 1,
		Total:     len(p.cfg.Exercises),
		Attempts:  len(p.attempts),
		Completed: p.completed,
		Finished:  p.finished,
	}
	if st.Position > st.Total {
		st.Position = st.Total
	}
	if n := len(p.attempts); n > 0 {
		last := p.attempts[n-1].Outcome
		st.Last = &last
	}
	card := p.currentLocked()
	p.mu.Unlock()

	if card != nil {
		st.ExerciseID = card.Exercise.ID
		st.Title = card.Exercise.Title
		st.Prompt = card.Exercise.Prompt
		st.Mode = card.Widget.State().Mode()
		st.Code = card.Editor.Code()
		st.Output = card.Editor.Output()
		st.CanSubmit = p.interaction.IsSubmitEnabled()
	}
	return st
}

// Close closes every card. It is safe to call more than once.
func (p *Player) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	cards := p.cards
	p.mu.Unlock()

	for _, c := range cards {
		c.Widget.Close()
	}
	p.interaction.Clear()
}

func (p *Player) current() (*Card, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, widget.ErrClosed
	}
	if p.finished {
		return nil, ErrFinished
	}
	return p.currentLocked(), nil
}

func (p *Player) attemptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.attempts)
}

func (p *Player) attemptSince(n int) *Attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.attempts) <= n {
		return nil
	}
	a := p.attempts[len(p.attempts)-1]
	return &a
}

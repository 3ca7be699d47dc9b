package widget

import (
	"context"
	"time"

	"github.com/felixgeelhaar/pencil/internal/domain"
)

// SubmitFunc hands an answer to the host together with the evaluator that
// knows how to grade it.
type SubmitFunc func(answer domain.Answer, evaluator domain.RuleEvaluator)

// Registrar is the host's current-interaction contract. The widget
// registers once; the host decides when to call submit and isValid.
type Registrar interface {
	RegisterInteraction(submit func(), isValid func() bool)
}

// PositionSource notifies the widget that the player moved on to a new
// card, which finalizes the current one.
type PositionSource interface {
	OnNewCardAvailable(fn func()) Subscription
}

// PendingSource is implemented by position sources that also signal when
// an answer was handled but the learner stays on the current card.
type PendingSource interface {
	OnCardPending(fn func()) Subscription
}

// Confirmer asks the learner to confirm a destructive action. A dismissal
// is reported as (false, nil).
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConfirmFunc adapts a function to a Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) (bool, error)

// Confirm calls f
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) (bool, error) {
	return f(ctx, prompt)
}

// Timer is a scheduled callback that can be cancelled
type Timer interface {
	Stop() bool
}

// Scheduler runs deferred work. The zero configuration uses time.AfterFunc.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SuppressReason explains why a submission attempt produced no answer
type SuppressReason string

const (
	SuppressDuplicate SuppressReason = "duplicate"
	SuppressCooldown  SuppressReason = "cooldown"
	SuppressReadOnly  SuppressReason = "read_only"
)

// Observer receives submission pipeline events, mainly for metrics
type Observer interface {
	AnswerSubmitted(kind domain.AnswerKind)
	SubmissionSuppressed(reason SuppressReason)
	SubmissionRejected()
}

type nopObserver struct{}

func (nopObserver) AnswerSubmitted(domain.AnswerKind)   {}
func (nopObserver) SubmissionSuppressed(SuppressReason) {}
func (nopObserver) SubmissionRejected()                 {}

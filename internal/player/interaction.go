package player

import (
	"errors"
	"sync"

	"github.com/felixgeelhaar/pencil/internal/widget"
)

var (
	ErrSubmitDisabled = errors.New("submit is disabled: the answer is empty")
	ErrNoInteraction  = errors.New("no interaction registered")
)

// CurrentInteraction holds the submit and validity functions registered by
// the card the learner is on. It backs the host's Submit button.
type CurrentInteraction struct {
	mu      sync.Mutex
	submit  func()
	isValid func() bool
}

// RegisterInteraction replaces the current interaction
func (c *CurrentInteraction) RegisterInteraction(submit func(), isValid func() bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submit = submit
	c.isValid = isValid
}

// IsSubmitEnabled reports whether the Submit button would be enabled
func (c *CurrentInteraction) IsSubmitEnabled() bool {
	c.mu.Lock()
	isValid := c.isValid
	c.mu.Unlock()
	return isValid != nil && isValid()
}

// Submit presses the Submit button
func (c *CurrentInteraction) Submit() error {
	c.mu.Lock()
	submit, isValid := c.submit, c.isValid
	c.mu.Unlock()

	if submit == nil {
		return ErrNoInteraction
	}
	if isValid != nil && !isValid() {
		return ErrSubmitDisabled
	}
	submit()
	return nil
}

// Clear forgets the current interaction
func (c *CurrentInteraction) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submit = nil
	c.isValid = nil
}

var _ widget.Registrar = (*CurrentInteraction)(nil)

// Package embed provides a code editor surface that runs learner programs
// and renders their output as markup, the way a browser-embedded editor
// would.
package embed

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/pencil/internal/runner"
	"github.com/felixgeelhaar/pencil/internal/widget"
)

var (
	ErrRunDisabled   = errors.New("running code is disabled")
	ErrNotLoaded     = errors.New("editor is not loaded")
	ErrAlreadyLoaded = errors.New("editor is already loaded")
	ErrBusy          = errors.New("a run is already in progress")
)

// Config configures an Editor
type Config struct {
	Runner   runner.Runner
	Language runner.Language
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Chrome reports which editor controls are shown
type Chrome struct {
	Editable     bool
	MiddleButton bool // run
	ToggleButton bool // output panel toggle
}

type subscription struct {
	id      uint64
	handler widget.Handler
}

// Editor implements widget.Surface over a runner.Runner. Handlers are
// always invoked without the editor lock held.
type Editor struct {
	runner   runner.Runner
	language runner.Language
	timeout  time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	loaded   bool
	running  bool
	code     string
	chrome   Chrome
	output   []string
	handlers map[widget.EventKind][]subscription
	nextID   uint64
}

// New creates an unloaded editor
func New(cfg Config) *Editor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{
		runner:   cfg.Runner,
		language: cfg.Language,
		timeout:  cfg.Timeout,
		logger:   logger,
		chrome:   Chrome{MiddleButton: true, ToggleButton: true},
		handlers: make(map[widget.EventKind][]subscription),
	}
}

// BeginLoad fills the buffer and emits load. The editor starts read-only
// until its owner calls SetEditable.
func (e *Editor) BeginLoad(initialCode string) error {
	e.mu.Lock()
	if e.loaded {
		e.mu.Unlock()
		return ErrAlreadyLoaded
	}
	if e.runner == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: no runner configured", ErrNotLoaded)
	}
	e.loaded = true
	e.code = initialCode
	e.mu.Unlock()

	e.emit(widget.Event{Kind: widget.EventLoad})
	return nil
}

// Code returns the raw buffer
func (e *Editor) Code() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.code
}

// SetCode replaces the buffer. Owners use it for resets, so it ignores
// the editable flag.
func (e *Editor) SetCode(code string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.code = code
}

// Edit replaces the buffer on behalf of the learner
func (e *Editor) Edit(code string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.loaded {
		return ErrNotLoaded
	}
	if !e.chrome.Editable {
		return widget.ErrReadOnly
	}
	e.code = code
	return nil
}

func (e *Editor) SetEditable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chrome.Editable = true
}

func (e *Editor) SetReadOnly() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chrome.Editable = false
}

func (e *Editor) HideMiddleButton() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chrome.MiddleButton = false
}

func (e *Editor) HideToggleButton() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.chrome.ToggleButton = false
}

// Chrome returns the current control visibility
func (e *Editor) Chrome() Chrome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.chrome
}

// Output returns the lines printed by the last run
func (e *Editor) Output() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.output...)
}

// Eval answers the snapshot expression with the rendered markup. The
// snapshot is in memory, so the callback always runs before Eval returns.
func (e *Editor) Eval(expression string, callback func(result string), _ bool) {
	var result string
	if expression == widget.SnapshotExpression {
		result = e.Snapshot()
	}
	callback(result)
}

// Snapshot renders the buffer followed by one div per output line
func (e *Editor) Snapshot() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var b strings.Builder
	b.WriteString(`<pre class="code">`)
	b.WriteString(html.EscapeString(e.code))
	b.WriteString(`</pre>`)
	for _, line := range e.output {
		b.WriteString(`<div class="output">`)
		b.WriteString(html.EscapeString(line))
		b.WriteString(`</div>`)
	}
	return b.String()
}

// On registers handler for kind
func (e *Editor) On(kind widget.EventKind, handler widget.Handler) widget.Subscription {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.handlers[kind] = append(e.handlers[kind], subscription{id: id, handler: handler})
	e.mu.Unlock()

	return widget.SubscriptionFunc(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		subs := e.handlers[kind]
		for i, s := range subs {
			if s.id == id {
				e.handlers[kind] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	})
}

// Run executes the buffer. It emits startExecute, then execute on a clean
// exit or error with the failure message. A program failure is reported
// through the error event and the returned Result, not as an error. When
// the runner itself fails no program ran, so nothing follows startExecute
// and the error is returned.
func (e *Editor) Run(ctx context.Context) (*runner.Result, error) {
	e.mu.Lock()
	switch {
	case !e.loaded:
		e.mu.Unlock()
		return nil, ErrNotLoaded
	case !e.chrome.Editable || !e.chrome.MiddleButton:
		e.mu.Unlock()
		return nil, ErrRunDisabled
	case e.running:
		e.mu.Unlock()
		return nil, ErrBusy
	}
	e.running = true
	e.output = nil
	code := e.code
	e.mu.Unlock()

	e.emit(widget.Event{Kind: widget.EventStartExecute})

	result, err := e.runner.Run(ctx, runner.Request{
		Language: e.language,
		Code:     code,
		Timeout:  e.timeout,
	})

	e.mu.Lock()
	e.running = false
	if result != nil {
		e.output = outputLines(result.Stdout)
	}
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("runner failed", "language", e.language, "error", err)
		return nil, fmt.Errorf("run program: %w", err)
	}
	if result.Failed() {
		e.emit(widget.Event{Kind: widget.EventError, Message: result.ErrorMessage()})
		return result, nil
	}

	e.emit(widget.Event{Kind: widget.EventExecute})
	return result, nil
}

func (e *Editor) emit(ev widget.Event) {
	e.mu.Lock()
	subs := append([]subscription(nil), e.handlers[ev.Kind]...)
	e.mu.Unlock()

	for _, s := range subs {
		s.handler(ev)
	}
}

// outputLines splits stdout into rendered lines, dropping the final
// newline terminator.
func outputLines(stdout string) []string {
	if stdout == "" {
		return nil
	}
	stdout = strings.ReplaceAll(stdout, "\r\n", "\n")
	return strings.Split(strings.TrimSuffix(stdout, "\n"), "\n")
}

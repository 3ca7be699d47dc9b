package widget

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/pencil/internal/domain"
)

// fakeSurface is an in-memory surface that emits events on demand and
// answers snapshot evaluations synchronously.
type fakeSurface struct {
	mu       sync.Mutex
	code     string
	markup   string
	editable bool
	readOnly bool
	middle   bool
	toggle   bool
	loadErr  error
	evals    int
	deferred []func()
	async    bool
	handlers map[EventKind]map[int]Handler
	nextID   int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		middle:   true,
		toggle:   true,
		handlers: make(map[EventKind]map[int]Handler),
	}
}

func (s *fakeSurface) BeginLoad(initialCode string) error {
	if s.loadErr != nil {
		return s.loadErr
	}
	s.mu.Lock()
	s.code = initialCode
	s.mu.Unlock()
	s.emit(Event{Kind: EventLoad})
	return nil
}

func (s *fakeSurface) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

func (s *fakeSurface) SetCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
}

func (s *fakeSurface) SetEditable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editable, s.readOnly = true, false
}

func (s *fakeSurface) SetReadOnly() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editable, s.readOnly = false, true
}

func (s *fakeSurface) HideMiddleButton() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middle = false
}

func (s *fakeSurface) HideToggleButton() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toggle = false
}

func (s *fakeSurface) Eval(expression string, callback func(string), async bool) {
	s.mu.Lock()
	s.evals++
	markup := s.markup
	if s.async {
		s.deferred = append(s.deferred, func() { callback(markup) })
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	callback(markup)
}

func (s *fakeSurface) On(kind EventKind, h Handler) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	if s.handlers[kind] == nil {
		s.handlers[kind] = make(map[int]Handler)
	}
	s.handlers[kind][id] = h
	return SubscriptionFunc(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers[kind], id)
	})
}

func (s *fakeSurface) emit(e Event) {
	s.mu.Lock()
	var hs []Handler
	for _, h := range s.handlers[e.Kind] {
		hs = append(hs, h)
	}
	s.mu.Unlock()
	for _, h := range hs {
		h(e)
	}
}

func (s *fakeSurface) flush() {
	s.mu.Lock()
	pending := s.deferred
	s.deferred = nil
	s.mu.Unlock()
	for _, f := range pending {
		f()
	}
}

func (s *fakeSurface) handlerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, hs := range s.handlers {
		n += len(hs)
	}
	return n
}

// fakeScheduler records scheduled callbacks and fires them on demand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// fireAll runs every timer that has not been stopped
func (s *fakeScheduler) fireAll() {
	s.mu.Lock()
	timers := append([]*fakeTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		if !t.stopped && !t.fired {
			t.fired = true
			t.f()
		}
	}
}

// fireFirst runs the first scheduled timer even if it was stopped,
// mimicking a timer that already started executing.
func (s *fakeScheduler) fireFirst() {
	s.mu.Lock()
	t := s.timers[0]
	s.mu.Unlock()
	t.fired = true
	t.f()
}

type fakePositions struct {
	mu      sync.Mutex
	newCard map[int]func()
	pending map[int]func()
	nextID  int
}

func newFakePositions() *fakePositions {
	return &fakePositions{newCard: map[int]func(){}, pending: map[int]func(){}}
}

func (p *fakePositions) OnNewCardAvailable(fn func()) Subscription {
	return p.add(p.newCard, fn)
}

func (p *fakePositions) OnCardPending(fn func()) Subscription {
	return p.add(p.pending, fn)
}

func (p *fakePositions) add(m map[int]func(), fn func()) Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	m[id] = fn
	return SubscriptionFunc(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(m, id)
	})
}

func (p *fakePositions) advance() {
	p.mu.Lock()
	var fns []func()
	for _, fn := range p.newCard {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (p *fakePositions) stay() {
	p.mu.Lock()
	var fns []func()
	for _, fn := range p.pending {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (p *fakePositions) subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.newCard) + len(p.pending)
}

type fakeRegistrar struct {
	calls   int
	submit  func()
	isValid func() bool
}

func (r *fakeRegistrar) RegisterInteraction(submit func(), isValid func() bool) {
	r.calls++
	r.submit = submit
	r.isValid = isValid
}

// submissions records every answer handed to the host
type submissions struct {
	mu      sync.Mutex
	answers []domain.Answer
	graders []domain.RuleEvaluator
}

func (s *submissions) submit(a domain.Answer, e domain.RuleEvaluator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, a)
	s.graders = append(s.graders, e)
}

func (s *submissions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

func (s *submissions) last() domain.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers[len(s.answers)-1]
}

type countingObserver struct {
	submitted  map[domain.AnswerKind]int
	suppressed map[SuppressReason]int
	rejected   int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{
		submitted:  map[domain.AnswerKind]int{},
		suppressed: map[SuppressReason]int{},
	}
}

func (o *countingObserver) AnswerSubmitted(k domain.AnswerKind)   { o.submitted[k]++ }
func (o *countingObserver) SubmissionSuppressed(r SuppressReason) { o.suppressed[r]++ }
func (o *countingObserver) SubmissionRejected()                   { o.rejected++ }

type harness struct {
	surface   *fakeSurface
	scheduler *fakeScheduler
	positions *fakePositions
	registrar *fakeRegistrar
	subs      *submissions
	observer  *countingObserver
	confirm   bool
	confirmed int
}

func newHarness() *harness {
	return &harness{
		surface:   newFakeSurface(),
		scheduler: &fakeScheduler{},
		positions: newFakePositions(),
		registrar: &fakeRegistrar{},
		subs:      &submissions{},
		observer:  newCountingObserver(),
	}
}

func (h *harness) config(initialCode string, prior *domain.PriorAnswer) Config {
	return Config{
		Surface:     h.surface,
		Submit:      h.subs.submit,
		Registrar:   h.registrar,
		Positions:   h.positions,
		InitialCode: initialCode,
		PriorAnswer: prior,
		Scheduler:   h.scheduler,
		Observer:    h.observer,
		Confirmer: ConfirmFunc(func(context.Context, string) (bool, error) {
			h.confirmed++
			return h.confirm, nil
		}),
	}
}

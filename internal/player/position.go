package player

import (
	"sync"

	"github.com/felixgeelhaar/pencil/internal/widget"
)

type listener struct {
	id uint64
	fn func()
}

// PositionService tells widgets where the learner is. NewCardAvailable
// means the learner moved past the current card; CardPending means an
// answer was graded and the learner stays put.
type PositionService struct {
	mu      sync.Mutex
	nextID  uint64
	newCard []listener
	pending []listener
}

// NewPositionService creates a position service with no listeners
func NewPositionService() *PositionService {
	return &PositionService{}
}

// OnNewCardAvailable registers fn for new-card notifications
func (s *PositionService) OnNewCardAvailable(fn func()) widget.Subscription {
	return s.add(&s.newCard, fn)
}

// OnCardPending registers fn for card-pending notifications
func (s *PositionService) OnCardPending(fn func()) widget.Subscription {
	return s.add(&s.pending, fn)
}

// NotifyNewCardAvailable calls every new-card listener in registration order
func (s *PositionService) NotifyNewCardAvailable() {
	s.notify(&s.newCard)
}

// NotifyCardPending calls every card-pending listener in registration order
func (s *PositionService) NotifyCardPending() {
	s.notify(&s.pending)
}

// Subscribers returns the number of live registrations
func (s *PositionService) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.newCard) + len(s.pending)
}

func (s *PositionService) add(list *[]listener, fn func()) widget.Subscription {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	*list = append(*list, listener{id: id, fn: fn})
	s.mu.Unlock()

	return widget.SubscriptionFunc(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range *list {
			if l.id == id {
				*list = append((*list)[:i:i], (*list)[i+1:]...)
				return
			}
		}
	})
}

func (s *PositionService) notify(list *[]listener) {
	s.mu.Lock()
	fns := make([]func(), len(*list))
	for i, l := range *list {
		fns[i] = l.fn
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

var (
	_ widget.PositionSource = (*PositionService)(nil)
	_ widget.PendingSource  = (*PositionService)(nil)
)

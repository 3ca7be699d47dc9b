package widget

// EventKind names a notification emitted by an embedded surface
type EventKind string

const (
	EventLoad         EventKind = "load"
	EventStartExecute EventKind = "startExecute"
	EventExecute      EventKind = "execute"
	EventError        EventKind = "error"
)

// Event is a notification from the embedded surface. Message is only set
// for EventError.
type Event struct {
	Kind    EventKind
	Message string
}

// Handler receives surface events
type Handler func(Event)

// Subscription is the handle returned for every registered callback.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a plain function to a Subscription
type SubscriptionFunc func()

// Unsubscribe calls f
func (f SubscriptionFunc) Unsubscribe() {
	if f != nil {
		f()
	}
}

// SnapshotExpression asks the surface for its full rendered markup.
const SnapshotExpression = "document.body.innerHTML"

// Surface is the embedded code editing and execution widget the exercise
// wraps. Implementations must not hold internal locks while delivering
// events to handlers.
type Surface interface {
	// BeginLoad starts loading the surface with the given editor content.
	// EventLoad is emitted once the surface is usable.
	BeginLoad(initialCode string) error

	// Code returns the raw editor content
	Code() string
	SetCode(code string)

	SetEditable()
	SetReadOnly()
	HideMiddleButton()
	HideToggleButton()

	// Eval evaluates expression inside the surface and passes the result
	// to callback. When async is true the callback may run after Eval
	// returns, on another goroutine.
	Eval(expression string, callback func(result string), async bool)

	// On registers a handler for one kind of event
	On(kind EventKind, handler Handler) Subscription
}

package eventsink

import "context"

type Event interface {
	Subject() string
}

type EventHandler func(context.Context, []byte)

// Sink receives dispatcher events, fire-and-forget: implementations must
// never block the caller on a slow or broken backend, and a failed emit is
// logged, not returned.
type Sink interface {
	Emit(event Event)
	Close() error
}

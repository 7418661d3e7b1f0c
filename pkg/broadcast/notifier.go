package broadcast

import (
	"context"

	"github.com/dmitrymomot/statehistory/pkg/statehistory"
)

// Notifier publishes state events to a Broadcaster, using the event name as topic.
type Notifier struct {
	b Broadcaster[statehistory.Event]
}

var _ statehistory.Notifier = (*Notifier)(nil)

// NewNotifier panics if b is nil.
func NewNotifier(b Broadcaster[statehistory.Event]) *Notifier {
	if b == nil {
		panic("broadcast: broadcaster cannot be nil")
	}
	return &Notifier{b: b}
}

func (n *Notifier) Publish(ctx context.Context, event statehistory.Event) error {
	return n.b.Broadcast(ctx, Message[statehistory.Event]{Topic: event.Name, Data: event})
}

// Transitioned subscribes to committed transitions only.
func Transitioned(ctx context.Context, b Broadcaster[statehistory.Event]) Subscriber[statehistory.Event] {
	return b.Subscribe(ctx, statehistory.EventTransitioned)
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/statehistory/pkg/statehistory"
)

// DefaultChannelPrefix is used when no prefix is configured.
const DefaultChannelPrefix = "statehistory:events:"

// Notifier publishes state events as JSON on prefix+event name channels.
// Subscribers in other processes receive them through Subscribe.
type Notifier struct {
	client redis.UniversalClient
	prefix string
}

var _ statehistory.Notifier = (*Notifier)(nil)

// NewNotifier panics if client is nil. An empty prefix selects DefaultChannelPrefix.
func NewNotifier(client redis.UniversalClient, prefix string) *Notifier {
	if client == nil {
		panic("redis: client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &Notifier{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel for an event name.
func (n *Notifier) Channel(event string) string {
	return n.prefix + event
}

func (n *Notifier) Publish(ctx context.Context, event statehistory.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: encode state event: %w", err)
	}
	return n.client.Publish(ctx, n.Channel(event.Name), payload).Err()
}

// Subscription delivers decoded events until closed.
type Subscription struct {
	pubsub *redis.PubSub
	events chan statehistory.Event
	errs   chan error
	done   chan struct{}
	once   sync.Once
}

// Subscribe listens for the given event names, or both transition events when none are given.
// It waits for the subscription to be confirmed before returning.
func (n *Notifier) Subscribe(ctx context.Context, events ...string) (*Subscription, error) {
	if len(events) == 0 {
		events = []string{statehistory.EventTransitioning, statehistory.EventTransitioned}
	}
	channels := make([]string, len(events))
	for i, e := range events {
		channels[i] = n.Channel(e)
	}

	pubsub := n.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe to state events: %w", err)
	}

	s := &Subscription{
		pubsub: pubsub,
		events: make(chan statehistory.Event),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go s.run(n.prefix)
	return s, nil
}

func (s *Subscription) run(prefix string) {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		var event statehistory.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			select {
			case s.errs <- errors.Join(ErrMalformedEvent, err):
			default:
			}
			continue
		}
		if event.Name == "" {
			event.Name = strings.TrimPrefix(msg.Channel, prefix)
		}
		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}

// Events is closed after Close.
func (s *Subscription) Events() <-chan statehistory.Event {
	return s.events
}

// Errors reports payloads that could not be decoded. Errors arriving while one is pending are dropped.
func (s *Subscription) Errors() <-chan error {
	return s.errs
}

func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

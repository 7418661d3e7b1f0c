package statehistory_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/statehistory/pkg/statehistory"
	"github.com/dmitrymomot/statehistory/pkg/statemachine"
)

const (
	Draft     = statemachine.StringState("draft")
	Published = statemachine.StringState("published")
	Archived  = statemachine.StringState("archived")
	Deleted   = statemachine.StringState("deleted")

	Pending = statemachine.StringState("pending")
	Paid    = statemachine.StringState("paid")
)

var postMachine = statemachine.MachineFunc(func(m *statemachine.TransitionMap) {
	m.AllowFromNull(Draft).
		Allow(Draft, Published).
		Allow(Published, Archived).
		AllowAnyTo(Deleted)
})

var paymentMachine = statemachine.MustNew(
	statemachine.WithInitial(Pending),
	statemachine.WithTransition(Pending, Paid),
)

// post keeps an in-memory copy of its state fields.
type post struct {
	mu     sync.Mutex
	id     string
	values map[string]string
}

func newPost(id string) *post {
	return &post{id: id, values: make(map[string]string)}
}

func (p *post) ObjectType() string { return "post" }
func (p *post) ObjectID() string   { return p.id }

func (p *post) StateValue(field string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[field]
}

func (p *post) SetStateValue(field, token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values[field] = token
}

// MockGuard is a mock implementation of statehistory.Guard.
type MockGuard struct {
	mock.Mock
}

func (m *MockGuard) Allows(ctx context.Context, obj statehistory.Object, t statehistory.Transition) (bool, error) {
	args := m.Called(ctx, obj, t)
	return args.Bool(0), args.Error(1)
}

// MockEffect is a mock implementation of statehistory.Effect.
type MockEffect struct {
	mock.Mock
}

func (m *MockEffect) Execute(ctx context.Context, obj statehistory.Object, t statehistory.Transition) error {
	args := m.Called(ctx, obj, t)
	return args.Error(0)
}

// MockNotifier is a mock implementation of statehistory.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Publish(ctx context.Context, event statehistory.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// eventRecorder collects published events in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []statehistory.Event
}

func (r *eventRecorder) Publish(_ context.Context, e statehistory.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

func (r *eventRecorder) Events() []statehistory.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]statehistory.Event(nil), r.events...)
}

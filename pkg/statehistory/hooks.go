package statehistory

import (
	"context"
	"fmt"
)

// Guard vetoes a transition before anything is written.
// Returning false blocks with ErrTransitionBlocked; returning an error blocks with that error.
type Guard interface {
	Allows(ctx context.Context, obj Object, t Transition) (bool, error)
}

// Effect reacts to a committed transition. It cannot veto: by the time it runs
// the new state and its history record are already persisted.
type Effect interface {
	Execute(ctx context.Context, obj Object, t Transition) error
}

// GuardFunc adapts a function to the Guard interface.
type GuardFunc func(ctx context.Context, obj Object, t Transition) (bool, error)

func (f GuardFunc) Allows(ctx context.Context, obj Object, t Transition) (bool, error) {
	return f(ctx, obj, t)
}

// EffectFunc adapts a function to the Effect interface.
type EffectFunc func(ctx context.Context, obj Object, t Transition) error

func (f EffectFunc) Execute(ctx context.Context, obj Object, t Transition) error {
	return f(ctx, obj, t)
}

type namedGuard struct {
	name string
	GuardFunc
}

func (g namedGuard) Name() string { return g.name }

// NamedGuard gives a function guard an identity reported in ErrTransitionBlocked.
func NamedGuard(name string, fn GuardFunc) Guard {
	return namedGuard{name: name, GuardFunc: fn}
}

type namedEffect struct {
	name string
	EffectFunc
}

func (e namedEffect) Name() string { return e.name }

// NamedEffect gives a function effect an identity reported in ErrEffectFailed.
func NamedEffect(name string, fn EffectFunc) Effect {
	return namedEffect{name: name, EffectFunc: fn}
}

type named interface {
	Name() string
}

// hookName returns the hook's Name when it has one, its dynamic type otherwise.
func hookName(hook any) string {
	if n, ok := hook.(named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T", hook)
}

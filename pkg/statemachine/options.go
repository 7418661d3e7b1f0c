package statemachine

import (
	"fmt"
)

// Option configures a machine during construction.
type Option func(*TransitionMap) error

// TransitionDef defines a single edge. A nil From declares an initial state.
type TransitionDef struct {
	From State
	To   State
}

// New creates a machine whose transition map is built once from the given options.
func New(opts ...Option) (Machine, error) {
	m := NewTransitionMap()

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return &mapMachine{transitions: m}, nil
}

// MustNew creates a machine from the given options.
// Panics if any option fails to apply, following the fail-fast pattern for declarations.
func MustNew(opts ...Option) Machine {
	sm, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return sm
}

// WithTransition adds a single edge. A nil from declares an initial state.
func WithTransition(from, to State) Option {
	return func(m *TransitionMap) error {
		if IsNone(to) {
			return ErrInvalidTransition
		}
		m.Allow(from, to)
		return nil
	}
}

// WithTransitionsFrom adds an edge from one state to each of the targets.
func WithTransitionsFrom(from State, to ...State) Option {
	return func(m *TransitionMap) error {
		for i, target := range to {
			if IsNone(target) {
				return fmt.Errorf("failed to add transition[%d] from %s: %w", i, Token(from), ErrInvalidTransition)
			}
			m.Allow(from, target)
		}
		return nil
	}
}

// WithTransitions adds multiple edges at once.
func WithTransitions(transitions []TransitionDef) Option {
	return func(m *TransitionMap) error {
		for i, t := range transitions {
			if IsNone(t.To) {
				return fmt.Errorf("failed to add transition[%d] %s-><nil>: %w", i, Token(t.From), ErrInvalidTransition)
			}
			m.Allow(t.From, t.To)
		}
		return nil
	}
}

// WithInitial declares states reachable from None.
func WithInitial(to ...State) Option {
	return func(m *TransitionMap) error {
		for _, target := range to {
			if IsNone(target) {
				return ErrInvalidTransition
			}
			m.AllowFromNull(target)
		}
		return nil
	}
}

// WithAnyTo declares states reachable from every state.
func WithAnyTo(to ...State) Option {
	return func(m *TransitionMap) error {
		for _, target := range to {
			if IsNone(target) {
				return ErrInvalidTransition
			}
			m.AllowAnyTo(target)
		}
		return nil
	}
}

// WithTransitionMap copies every edge of an existing map.
func WithTransitionMap(src *TransitionMap) Option {
	return func(m *TransitionMap) error {
		if src == nil {
			return ErrNilTransitionMap
		}
		for _, s := range src.anyTo {
			m.AllowAnyTo(s)
		}
		for _, s := range src.initial {
			m.AllowFromNull(s)
		}
		for from, targets := range src.edges {
			for _, to := range targets {
				m.Allow(StringState(from), to)
			}
		}
		return nil
	}
}

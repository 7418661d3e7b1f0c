package statemachine

import (
	"fmt"
	"slices"
)

// Definition is a declarative, serializable form of a transition map.
//
//	initial: [draft]
//	transitions:
//	  draft: [published]
//	  published: [archived]
//	any: [deleted]
type Definition struct {
	Initial     []string            `yaml:"initial" json:"initial,omitempty"`
	Transitions map[string][]string `yaml:"transitions" json:"transitions,omitempty"`
	AnyTo       []string            `yaml:"any" json:"any,omitempty"`
}

// Validate rejects empty tokens anywhere in the definition.
func (d Definition) Validate() error {
	for i, to := range d.Initial {
		if to == "" {
			return fmt.Errorf("%w: initial[%d] is empty", ErrInvalidDefinition, i)
		}
	}
	for i, to := range d.AnyTo {
		if to == "" {
			return fmt.Errorf("%w: any[%d] is empty", ErrInvalidDefinition, i)
		}
	}
	for from, targets := range d.Transitions {
		if from == "" {
			return fmt.Errorf("%w: transition source is empty", ErrInvalidDefinition)
		}
		for i, to := range targets {
			if to == "" {
				return fmt.Errorf("%w: transitions[%s][%d] is empty", ErrInvalidDefinition, from, i)
			}
		}
	}
	return nil
}

// TransitionMap builds the map described by the definition.
func (d Definition) TransitionMap() (*TransitionMap, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	m := NewTransitionMap()
	for _, to := range d.Initial {
		m.AllowFromNull(StringState(to))
	}
	for _, to := range d.AnyTo {
		m.AllowAnyTo(StringState(to))
	}

	// Sorted sources keep AllowedTargets deterministic across runs.
	sources := make([]string, 0, len(d.Transitions))
	for from := range d.Transitions {
		sources = append(sources, from)
	}
	slices.Sort(sources)
	for _, from := range sources {
		for _, to := range d.Transitions[from] {
			m.Allow(StringState(from), StringState(to))
		}
	}
	return m, nil
}

// Machine builds a machine from the definition.
func (d Definition) Machine() (Machine, error) {
	m, err := d.TransitionMap()
	if err != nil {
		return nil, err
	}
	return New(WithTransitionMap(m))
}

// Codec returns an enum codec over every state the definition mentions.
func (d Definition) Codec() (*EnumCodec, error) {
	m, err := d.TransitionMap()
	if err != nil {
		return nil, err
	}
	tokens := m.States()
	states := make([]State, len(tokens))
	for i, t := range tokens {
		states[i] = StringState(t)
	}
	return NewEnumCodec(states...), nil
}

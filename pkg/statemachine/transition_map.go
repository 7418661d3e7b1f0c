package statemachine

import "slices"

// TransitionMap is the allowed-edge graph of a machine.
// It is built once and must not be mutated while it is being queried concurrently.
type TransitionMap struct {
	edges   map[string][]State
	initial []State // targets reachable from None
	anyTo   []State // targets reachable from every state
}

// NewTransitionMap creates an empty transition map.
func NewTransitionMap() *TransitionMap {
	return &TransitionMap{
		edges: make(map[string][]State),
	}
}

// Allow registers an edge from one state to another.
// A None source is the same as AllowFromNull.
func (m *TransitionMap) Allow(from, to State) *TransitionMap {
	if IsNone(to) {
		return m
	}
	if IsNone(from) {
		return m.AllowFromNull(to)
	}
	key := from.Name()
	m.edges[key] = appendUnique(m.edges[key], to)
	return m
}

// AllowFromNull registers a target reachable from None (object creation).
func (m *TransitionMap) AllowFromNull(to State) *TransitionMap {
	if IsNone(to) {
		return m
	}
	m.initial = appendUnique(m.initial, to)
	return m
}

// AllowAnyTo registers a target reachable from every state, including None.
func (m *TransitionMap) AllowAnyTo(to State) *TransitionMap {
	if IsNone(to) {
		return m
	}
	m.anyTo = appendUnique(m.anyTo, to)
	return m
}

// IsAllowed reports whether the edge from -> to is registered.
func (m *TransitionMap) IsAllowed(from, to State) bool {
	if IsNone(to) {
		return false
	}
	target := to.Name()

	if containsName(m.anyTo, target) {
		return true
	}
	if IsNone(from) {
		return containsName(m.initial, target)
	}
	return containsName(m.edges[from.Name()], target)
}

// AllowedTargets returns every state reachable from the given state.
// Wildcard targets come first, then None-sourced (only for None), then edge targets.
func (m *TransitionMap) AllowedTargets(from State) []State {
	out := make([]State, 0, len(m.anyTo))
	for _, s := range m.anyTo {
		out = appendUnique(out, s)
	}
	if IsNone(from) {
		for _, s := range m.initial {
			out = appendUnique(out, s)
		}
		return out
	}
	for _, s := range m.edges[from.Name()] {
		out = appendUnique(out, s)
	}
	return out
}

// Transitions returns a copy of the concrete edges keyed by source token.
func (m *TransitionMap) Transitions() map[string][]string {
	out := make(map[string][]string, len(m.edges))
	for from, targets := range m.edges {
		out[from] = names(targets)
	}
	return out
}

// InitialStates returns the tokens reachable from None.
func (m *TransitionMap) InitialStates() []string {
	return names(m.initial)
}

// AnyToStates returns the tokens reachable from every state.
func (m *TransitionMap) AnyToStates() []string {
	return names(m.anyTo)
}

// States returns every token mentioned by the map, sorted.
func (m *TransitionMap) States() []string {
	seen := make(map[string]struct{})
	add := func(ss []State) {
		for _, s := range ss {
			seen[s.Name()] = struct{}{}
		}
	}
	for from, targets := range m.edges {
		seen[from] = struct{}{}
		add(targets)
	}
	add(m.initial)
	add(m.anyTo)

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func appendUnique(list []State, s State) []State {
	if containsName(list, s.Name()) {
		return list
	}
	return append(list, s)
}

func containsName(list []State, name string) bool {
	for _, s := range list {
		if s.Name() == name {
			return true
		}
	}
	return false
}

func names(list []State) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name()
	}
	return out
}

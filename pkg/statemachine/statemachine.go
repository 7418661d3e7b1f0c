package statemachine

// State represents a state token. The token returned by Name is what gets persisted.
type State interface {
	Name() string
}

// StringState provides a simple string-based state implementation for basic use cases.
type StringState string

func (s StringState) Name() string {
	return string(s)
}

// None is the absence of a prior state, i.e. an object that was never transitioned.
var None State

// IsNone reports whether s is the NONE token. An empty name is treated as NONE.
func IsNone(s State) bool {
	return s == nil || s.Name() == ""
}

// Of converts a persisted token into a State. The empty token maps to None.
func Of(token string) State {
	if token == "" {
		return None
	}
	return StringState(token)
}

// Token returns the persisted token of s, or an empty string for None.
func Token(s State) string {
	if IsNone(s) {
		return ""
	}
	return s.Name()
}

// Machine is implemented once per domain state set and answers transition queries.
type Machine interface {
	Transitions() *TransitionMap
	CanTransition(from, to State) bool
	AllowedTransitions(from State) []State
}

// MachineFunc declares a machine as a function that registers its edges.
// The map is rebuilt on every call, which keeps the declaration stateless.
type MachineFunc func(m *TransitionMap)

func (f MachineFunc) Transitions() *TransitionMap {
	m := NewTransitionMap()
	if f != nil {
		f(m)
	}
	return m
}

func (f MachineFunc) CanTransition(from, to State) bool {
	return f.Transitions().IsAllowed(from, to)
}

func (f MachineFunc) AllowedTransitions(from State) []State {
	return f.Transitions().AllowedTargets(from)
}

// mapMachine serves every query from a map built once at construction.
type mapMachine struct {
	transitions *TransitionMap
}

func (m *mapMachine) Transitions() *TransitionMap {
	return m.transitions
}

func (m *mapMachine) CanTransition(from, to State) bool {
	return m.transitions.IsAllowed(from, to)
}

func (m *mapMachine) AllowedTransitions(from State) []State {
	return m.transitions.AllowedTargets(from)
}

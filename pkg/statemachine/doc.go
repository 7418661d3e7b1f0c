// Package statemachine declares which state transitions are allowed for a
// persisted state field.
//
// The package revolves around the State interface, the TransitionMap edge
// graph and the Machine capability. One Machine is declared per domain state
// set; it only answers "is this edge allowed" and "where can I go from here".
// Persisting the transition is the job of the statehistory package.
//
// # Transition map
//
// A TransitionMap holds three kinds of edges:
//  1. Concrete edges from one state to another (Allow)
//  2. Edges from None, the absence of any prior state (AllowFromNull)
//  3. Wildcard edges from every state, None included (AllowAnyTo)
//
// Tokens are opaque strings. Checking that a token is a real state of the
// domain is left to the caller's own enumeration, or to a Codec.
//
// # Usage
//
//	const (
//	    Draft     = statemachine.StringState("draft")
//	    Published = statemachine.StringState("published")
//	    Archived  = statemachine.StringState("archived")
//	)
//
//	machine := statemachine.MustNew(
//	    statemachine.WithInitial(Draft),
//	    statemachine.WithTransition(Draft, Published),
//	    statemachine.WithTransition(Published, Archived),
//	)
//
//	machine.CanTransition(statemachine.None, Draft) // true
//	machine.CanTransition(Draft, Archived)          // false
//
// A machine can also be declared as a function:
//
//	var PostMachine = statemachine.MachineFunc(func(m *statemachine.TransitionMap) {
//	    m.AllowFromNull(Draft).Allow(Draft, Published).AllowAnyTo(Archived)
//	})
//
// or loaded from a Definition, typically decoded from YAML.
//
// # Codecs
//
// A Codec turns the persisted token back into a typed State. NewEnumCodec
// accepts a closed set of states and rejects everything else with
// ErrCastFailed.
package statemachine

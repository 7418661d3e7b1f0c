// Package statehistory runs validated state transitions on persisted objects
// and keeps an append-only history of every change.
//
// A Manager binds one statemachine.Machine to a Storage backend. Transition
// resolves the current state, short-circuits when it already equals the
// target, validates the edge, evaluates guards in order, then writes the
// denormalized current column (when present) and appends exactly one Record
// inside a single storage transaction. Effects run after commit; they cannot
// veto and their failure does not undo the transition.
//
// # Current state
//
// The current state is read from the current_<field> column when the feature
// is enabled, the column exists and it is non-null. Otherwise the newest
// history record wins. The column is only a query optimization; the history
// record is always written.
//
// # Facade
//
// States wraps a Registry of declared fields and exposes the per-object API:
//
//	registry := statehistory.NewRegistry()
//	registry.MustRegister("post", map[string]statehistory.FieldConfig{
//	    "status": {Machine: PostMachine, Codec: PostStatusCodec},
//	})
//
//	states := statehistory.New(store, registry, statehistory.WithLogger(log))
//	err := states.TransitionTo(ctx, post, "status", Published,
//	    statehistory.WithMeta("actor", userID),
//	)
//
// Declarations can also be loaded from YAML with LoadDeclarations.
//
// # Errors
//
// ErrInvalidTransition, ErrTransitionBlocked, ErrConfiguration,
// ErrNoStateMachine, ErrStaleState and ErrEffectFailed carry the field, the
// states involved and the owning object type. Storage errors are returned
// unchanged after the in-memory state has been restored.
package statehistory

package statehistory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/statehistory/pkg/memstore"
	"github.com/dmitrymomot/statehistory/pkg/statehistory"
	"github.com/dmitrymomot/statehistory/pkg/statemachine"
)

type postStatus string

func (s postStatus) Name() string { return string(s) }

var postStatusCodec = statemachine.CodecFunc(func(token string) (statemachine.State, error) {
	switch token {
	case "draft", "published", "archived", "deleted":
		return postStatus(token), nil
	}
	return nil, statemachine.NewErrCastFailed(token, "postStatus", statemachine.ErrUnknownState)
})

func newStates(t *testing.T, store *memstore.Store, opts ...statehistory.Option) *statehistory.States {
	t.Helper()
	registry := statehistory.NewRegistry()
	require.NoError(t, registry.Register("post", map[string]statehistory.FieldConfig{
		"status":         {Machine: postMachine, Codec: postStatusCodec},
		"payment_status": {Machine: paymentMachine},
	}))
	return statehistory.New(store, registry, opts...)
}

func TestNew(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { statehistory.New(nil, statehistory.NewRegistry()) })
	assert.Panics(t, func() { statehistory.New(memstore.New(), nil) })
}

func TestStates_TransitionTo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("undeclared field", func(t *testing.T) {
		t.Parallel()
		states := newStates(t, newStore(t, "status"))

		err := states.TransitionTo(ctx, newPost("1"), "visibility", Draft)
		var missing *statehistory.ErrNoStateMachine
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "visibility", missing.Field)
		assert.Equal(t, "post", missing.ObjectType)
		assert.True(t, statehistory.IsNoStateMachineError(err))
	})

	t.Run("facade guards run before field guards", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, "status", "current_status")
		var order []string
		track := func(name string) statehistory.Guard {
			return statehistory.NamedGuard(name, func(context.Context, statehistory.Object, statehistory.Transition) (bool, error) {
				order = append(order, name)
				return true, nil
			})
		}

		registry := statehistory.NewRegistry()
		registry.MustRegister("post", map[string]statehistory.FieldConfig{
			"status": {Machine: postMachine, Guards: []statehistory.Guard{track("field")}},
		})
		states := statehistory.New(store, registry, statehistory.WithGuards(track("global")))

		require.NoError(t, states.TransitionTo(ctx, newPost("1"), "status", Draft))
		assert.Equal(t, []string{"global", "field"}, order)
	})

	t.Run("transitions from a state held only by the base field", func(t *testing.T) {
		t.Parallel()
		store := memstore.New().CreateTable("post", "status")
		require.NoError(t, store.Insert("post", "1", map[string]string{"status": "draft"}))
		states := newStates(t, store)
		p := newPost("1")

		got, err := states.CurrentState(ctx, p, "status")
		require.NoError(t, err)
		assert.Equal(t, "draft", got)

		ok, err := states.CanTransitionTo(ctx, p, "status", Published)
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, states.TransitionTo(ctx, p, "status", Draft))
		assert.Empty(t, records(t, store, "status"))

		require.NoError(t, states.TransitionTo(ctx, p, "status", Published))
		history := records(t, store, "status")
		require.Len(t, history, 1)
		assert.Equal(t, "draft", history[0].From)
		assert.Equal(t, "published", history[0].To)
		assert.Equal(t, "published", column(t, store, "status"))
	})

	t.Run("draft to archived is rejected", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, "status", "current_status")
		states := newStates(t, store)
		p := newPost("1")

		require.NoError(t, states.TransitionTo(ctx, p, "status", Draft))
		err := states.TransitionTo(ctx, p, "status", Archived)
		assert.True(t, statehistory.IsInvalidTransitionError(err))

		ok, err := states.IsInState(ctx, p, "status", Draft)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestStates_Queries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := statehistory.Ref{Type: "post", ID: "1"}

	t.Run("current state prefers raw field over history", func(t *testing.T) {
		t.Parallel()
		store := memstore.New().CreateTable("post", "status")
		require.NoError(t, store.Insert("post", "1", map[string]string{"status": "published"}))
		require.NoError(t, store.AppendRecord(ctx, statehistory.Record{
			ObjectType: "post", ObjectID: "1", Field: "status", To: "draft", CreatedAt: time.Now(),
		}))
		states := newStates(t, store)

		got, err := states.CurrentState(ctx, p, "status")
		require.NoError(t, err)
		assert.Equal(t, "published", got)
	})

	t.Run("current state falls through to history", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, "status", "current_status")
		require.NoError(t, store.AppendRecord(ctx, statehistory.Record{
			ObjectType: "post", ObjectID: "1", Field: "status", To: "draft", CreatedAt: time.Now(),
		}))
		states := newStates(t, store)

		got, err := states.CurrentState(ctx, p, "status")
		require.NoError(t, err)
		assert.Equal(t, "draft", got)
	})

	t.Run("casted state", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, "status", "current_status", "payment_status")
		states := newStates(t, store)

		got, err := states.CurrentStateCasted(ctx, p, "status")
		require.NoError(t, err)
		assert.True(t, statemachine.IsNone(got))

		require.NoError(t, states.TransitionTo(ctx, p, "status", Draft))
		got, err = states.CurrentStateCasted(ctx, p, "status")
		require.NoError(t, err)
		assert.Equal(t, postStatus("draft"), got)

		require.NoError(t, states.TransitionTo(ctx, p, "payment_status", Pending))
		got, err = states.CurrentStateCasted(ctx, p, "payment_status")
		require.NoError(t, err)
		assert.Equal(t, statemachine.StringState("pending"), got)
	})

	t.Run("cast failure falls back to the raw token", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, "status", "current_status")
		require.NoError(t, store.SetColumn(ctx, p, "current_status", "legacy"))
		log, buf := bufferLogger()
		states := newStates(t, store, statehistory.WithLogger(log))

		got, err := states.CurrentStateCasted(ctx, p, "status")
		require.NoError(t, err)
		assert.Equal(t, statemachine.StringState("legacy"), got)
		assert.Contains(t, buf.String(), "failed to cast state")
	})

	t.Run("allowed transitions from the current state", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, "status", "current_status")
		states := newStates(t, store)

		allowed, err := states.AllowedTransitions(ctx, p, "status")
		require.NoError(t, err)
		assert.Equal(t, []statemachine.State{Deleted, Draft}, allowed)

		ok, err := states.CanTransitionTo(ctx, p, "status", Published)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, states.TransitionTo(ctx, p, "status", Draft))

		allowed, err = states.AllowedTransitions(ctx, p, "status")
		require.NoError(t, err)
		assert.Equal(t, []statemachine.State{Deleted, Published}, allowed)

		ok, err = states.CanTransitionTo(ctx, p, "status", Published)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("history and latest state", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, "status", "current_status")
		states := newStates(t, store)

		_, err := states.LatestState(ctx, p, "status")
		assert.ErrorIs(t, err, statehistory.ErrNoHistory)

		require.NoError(t, states.TransitionTo(ctx, p, "status", Draft))
		require.NoError(t, states.TransitionTo(ctx, p, "status", Published))
		require.NoError(t, states.TransitionTo(ctx, p, "status", Deleted))

		history, err := states.History(ctx, p, "status", 0)
		require.NoError(t, err)
		require.Len(t, history, 3)
		assert.Equal(t, "deleted", history[0].To)
		assert.Equal(t, "draft", history[2].To)

		history, err = states.History(ctx, p, "status", 1)
		require.NoError(t, err)
		require.Len(t, history, 1)

		latest, err := states.LatestState(ctx, p, "status")
		require.NoError(t, err)
		assert.Equal(t, "published", latest.From)
		assert.Equal(t, "deleted", latest.To)
	})

	t.Run("query column and where state", func(t *testing.T) {
		t.Parallel()
		store := memstore.New().CreateTable("post", "status", "current_status", "payment_status")
		for _, id := range []string{"1", "2", "3"} {
			require.NoError(t, store.Insert("post", id, nil))
		}
		states := newStates(t, store)

		column, err := states.QueryColumn(ctx, "post", "status")
		require.NoError(t, err)
		assert.Equal(t, "current_status", column)

		column, err = states.QueryColumn(ctx, "post", "payment_status")
		require.NoError(t, err)
		assert.Equal(t, "payment_status", column)

		require.NoError(t, states.TransitionTo(ctx, statehistory.Ref{Type: "post", ID: "1"}, "status", Draft))
		require.NoError(t, states.TransitionTo(ctx, statehistory.Ref{Type: "post", ID: "3"}, "status", Draft))
		require.NoError(t, states.TransitionTo(ctx, statehistory.Ref{Type: "post", ID: "2"}, "payment_status", Pending))

		ids, err := states.WhereState(ctx, "post", "status", Draft)
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "3"}, ids)

		ids, err = states.WhereState(ctx, "post", "payment_status", Pending)
		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, ids)

		ids, err = states.WhereState(ctx, "post", "status", statemachine.None)
		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, ids)

		_, err = states.QueryColumn(ctx, "", "status")
		assert.ErrorIs(t, err, statehistory.ErrInvalidIdentity)
	})

	t.Run("is in state without current column reads the base field", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, "payment_status")
		states := newStates(t, store)

		ok, err := states.IsInState(ctx, p, "payment_status", Pending)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, states.TransitionTo(ctx, p, "payment_status", Pending))
		ok, err = states.IsInState(ctx, p, "payment_status", Pending)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("storage errors surface", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, "status", "current_status")
		states := newStates(t, store)
		boom := errors.New("boom")
		store.FailAppend(boom)

		err := states.TransitionTo(ctx, p, "status", Draft)
		assert.ErrorIs(t, err, boom)
	})
}

func TestStates_Exists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newStore(t, "status", "current_status")
	store.CreateTable("event")
	states := newStates(t, store)

	ok, err := states.Exists(ctx, statehistory.Ref{Type: "post", ID: "1"}, "status")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = states.Exists(ctx, statehistory.Ref{Type: "post", ID: "404"}, "status")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = states.Exists(ctx, statehistory.Ref{Type: "event", ID: "404"}, "status")
	require.NoError(t, err)
	assert.True(t, ok, "history-only types have no rows to miss")

	_, err = states.Exists(ctx, statehistory.Ref{Type: "post"}, "status")
	assert.ErrorIs(t, err, statehistory.ErrInvalidIdentity)
}

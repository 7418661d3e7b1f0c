package statehistory

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/dmitrymomot/statehistory/pkg/logger"
	"github.com/dmitrymomot/statehistory/pkg/statemachine"
)

// States is the per-object entry point: it looks up the field's machine in the
// registry and runs transitions and state queries against storage.
type States struct {
	storage  Storage
	registry *Registry
	opts     []Option
	config   Config
	logger   *slog.Logger
}

// New creates the facade. Options are passed to every Manager it builds;
// guards and effects given here run before the field's own.
// Panics if storage or registry is nil.
func New(storage Storage, registry *Registry, opts ...Option) *States {
	if storage == nil {
		panic("statehistory: storage cannot be nil")
	}
	if registry == nil {
		panic("statehistory: registry cannot be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &States{
		storage:  storage,
		registry: registry,
		opts:     opts,
		config:   o.config,
		logger:   o.logger,
	}
}

// Registry returns the registry backing the facade.
func (s *States) Registry() *Registry {
	return s.registry
}

// Config returns the resolution policy in use.
func (s *States) Config() Config {
	return s.config
}

// Manager builds the manager of a declared field.
func (s *States) Manager(objectType, field string) (*Manager, error) {
	fc, err := s.registry.Field(objectType, field)
	if err != nil {
		return nil, err
	}
	opts := append(slices.Clone(s.opts), WithGuards(fc.Guards...), WithEffects(fc.Effects...))
	return NewManager(fc.Machine, s.storage, opts...), nil
}

// TransitionTo moves obj's field to the target state.
func (s *States) TransitionTo(ctx context.Context, obj Object, field string, to statemachine.State, opts ...TransitionOption) error {
	if err := validateTarget(obj, field); err != nil {
		return err
	}
	m, err := s.Manager(obj.ObjectType(), field)
	if err != nil {
		return err
	}
	return m.Transition(ctx, obj, field, to, opts...)
}

// CurrentState returns the raw token: the current column when enabled, present
// and non-null, then the base field, then the latest history record.
// Empty means the object never transitioned.
func (s *States) CurrentState(ctx context.Context, obj Object, field string) (string, error) {
	if err := validateTarget(obj, field); err != nil {
		return "", err
	}
	return resolveState(ctx, s.storage, obj, field, resolver{config: s.config})
}

// CurrentStateCasted returns the current state cast by the field's codec.
// A missing declaration, a missing codec or a failing cast fall back to the raw token.
func (s *States) CurrentStateCasted(ctx context.Context, obj Object, field string) (statemachine.State, error) {
	raw, err := s.CurrentState(ctx, obj, field)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return statemachine.None, nil
	}

	fc, err := s.registry.Field(obj.ObjectType(), field)
	if err != nil || fc.Codec == nil {
		return statemachine.StringState(raw), nil
	}

	state, err := fc.Codec.Cast(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to cast state, using raw value",
			logger.ObjectType(obj.ObjectType()),
			logger.ObjectID(obj.ObjectID()),
			logger.Field(field),
			logger.Error(err),
		)
		return statemachine.StringState(raw), nil
	}
	return state, nil
}

// IsInState compares the persisted query column with state.
func (s *States) IsInState(ctx context.Context, obj Object, field string, state statemachine.State) (bool, error) {
	if err := validateTarget(obj, field); err != nil {
		return false, err
	}
	column, err := queryColumn(ctx, s.storage, s.config, obj.ObjectType(), field)
	if err != nil {
		return false, err
	}
	value, _, err := readColumn(ctx, s.storage, obj, column)
	if err != nil {
		return false, err
	}
	return value == statemachine.Token(state), nil
}

// CanTransitionTo reports whether the field's machine allows moving from the current state to to.
func (s *States) CanTransitionTo(ctx context.Context, obj Object, field string, to statemachine.State) (bool, error) {
	m, from, err := s.managerAt(ctx, obj, field)
	if err != nil {
		return false, err
	}
	return m.CanTransition(statemachine.Of(from), to), nil
}

// AllowedTransitions lists the targets reachable from the current state.
func (s *States) AllowedTransitions(ctx context.Context, obj Object, field string) ([]statemachine.State, error) {
	m, from, err := s.managerAt(ctx, obj, field)
	if err != nil {
		return nil, err
	}
	return m.AllowedTransitions(statemachine.Of(from)), nil
}

func (s *States) managerAt(ctx context.Context, obj Object, field string) (*Manager, string, error) {
	if err := validateTarget(obj, field); err != nil {
		return nil, "", err
	}
	m, err := s.Manager(obj.ObjectType(), field)
	if err != nil {
		return nil, "", err
	}
	from, err := s.CurrentState(ctx, obj, field)
	if err != nil {
		return nil, "", err
	}
	return m, from, nil
}

// Exists reports whether obj has a persisted row. It probes the field's state
// columns; a type that declares neither keeps its state in history only and
// every identity exists.
func (s *States) Exists(ctx context.Context, obj Object, field string) (bool, error) {
	if err := validateTarget(obj, field); err != nil {
		return false, err
	}
	columns := []string{field}
	if s.config.UseCurrentColumns {
		columns = append(columns, s.config.CurrentColumn(field))
	}
	for _, column := range columns {
		ok, err := s.storage.HasColumn(ctx, obj.ObjectType(), column)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		_, err = s.storage.GetColumn(ctx, obj, column)
		if errors.Is(err, ErrObjectNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}
	return true, nil
}

// History returns the field's records, newest first. Limit zero returns all.
func (s *States) History(ctx context.Context, obj Object, field string, limit int) ([]Record, error) {
	if err := validateTarget(obj, field); err != nil {
		return nil, err
	}
	return s.storage.Records(ctx, Criteria{
		ObjectType: obj.ObjectType(),
		ObjectID:   obj.ObjectID(),
		Field:      field,
		Limit:      limit,
	})
}

// LatestState returns the newest record of the field or ErrNoHistory.
func (s *States) LatestState(ctx context.Context, obj Object, field string) (Record, error) {
	if err := validateTarget(obj, field); err != nil {
		return Record{}, err
	}
	return s.storage.LatestRecord(ctx, obj.ObjectType(), obj.ObjectID(), field)
}

// QueryColumn returns the column to filter by: the current column when enabled
// and present, the base field otherwise.
func (s *States) QueryColumn(ctx context.Context, objectType, field string) (string, error) {
	if objectType == "" {
		return "", ErrInvalidIdentity
	}
	if field == "" {
		return "", ErrEmptyField
	}
	return queryColumn(ctx, s.storage, s.config, objectType, field)
}

// WhereState returns the ids of objects whose field is in state.
func (s *States) WhereState(ctx context.Context, objectType, field string, state statemachine.State) ([]string, error) {
	column, err := s.QueryColumn(ctx, objectType, field)
	if err != nil {
		return nil, err
	}
	return s.storage.FindIDs(ctx, objectType, column, statemachine.Token(state))
}

package statehistory

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/statehistory/pkg/logger"
	"github.com/dmitrymomot/statehistory/pkg/statemachine"
)

// Manager orchestrates transitions of one state field bound to one machine.
// It is safe for concurrent use; transitions on the same object are serialized
// only by the storage transaction.
type Manager struct {
	machine  statemachine.Machine
	storage  Storage
	config   Config
	notifier Notifier
	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time

	mu      sync.RWMutex
	guards  []Guard
	effects []Effect
}

// NewManager binds a machine to a storage backend.
// Panics if machine or storage is nil.
func NewManager(machine statemachine.Machine, storage Storage, opts ...Option) *Manager {
	if machine == nil {
		panic("statehistory: state machine cannot be nil")
	}
	if storage == nil {
		panic("statehistory: storage cannot be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager{
		machine:  machine,
		storage:  storage,
		config:   o.config,
		notifier: o.notifier,
		logger:   o.logger,
		metrics:  o.metrics,
		now:      o.now,
		guards:   o.guards,
		effects:  o.effects,
	}
}

// AddGuard appends a guard evaluated after every previously added one.
func (m *Manager) AddGuard(g Guard) *Manager {
	if g == nil {
		return m
	}
	m.mu.Lock()
	m.guards = append(m.guards, g)
	m.mu.Unlock()
	return m
}

// AddEffect appends an effect executed after every previously added one.
func (m *Manager) AddEffect(e Effect) *Manager {
	if e == nil {
		return m
	}
	m.mu.Lock()
	m.effects = append(m.effects, e)
	m.mu.Unlock()
	return m
}

// Machine returns the bound state machine.
func (m *Manager) Machine() statemachine.Machine {
	return m.machine
}

// CanTransition reports whether the machine declares the edge. No storage access.
func (m *Manager) CanTransition(from, to statemachine.State) bool {
	return m.machine.CanTransition(from, to)
}

// AllowedTransitions lists targets reachable from from. No storage access.
func (m *Manager) AllowedTransitions(from statemachine.State) []statemachine.State {
	return m.machine.AllowedTransitions(from)
}

// CurrentState resolves the field's state: the current column when enabled,
// present and non-null, then the base field, then the latest history record.
// Empty means none.
func (m *Manager) CurrentState(ctx context.Context, obj Object, field string) (string, error) {
	if err := validateTarget(obj, field); err != nil {
		return "", err
	}
	return resolveState(ctx, m.storage, obj, field, m.resolver(true))
}

// Transition moves the field to the target state.
// Re-asserting the current state is a no-op returning nil.
func (m *Manager) Transition(ctx context.Context, obj Object, field string, to statemachine.State, opts ...TransitionOption) error {
	if err := validateTarget(obj, field); err != nil {
		return err
	}
	if statemachine.IsNone(to) {
		return ErrEmptyTarget
	}

	started := time.Now()
	objectType := obj.ObjectType()

	from, err := resolveState(ctx, m.storage, obj, field, m.resolver(true))
	if err != nil {
		return err
	}

	t := Transition{
		Field: field,
		From:  from,
		To:    to.Name(),
	}
	for _, opt := range opts {
		opt(&t)
	}

	if t.From == t.To {
		m.metrics.observe(objectType, field, OutcomeNoop, started)
		return nil
	}

	if !m.machine.CanTransition(statemachine.Of(t.From), to) {
		m.metrics.observe(objectType, field, OutcomeInvalid, started)
		return NewErrInvalidTransition(t.From, t.To, field, objectType)
	}

	m.mu.RLock()
	guards := slices.Clone(m.guards)
	effects := slices.Clone(m.effects)
	m.mu.RUnlock()

	for _, g := range guards {
		ok, err := g.Allows(ctx, obj, t)
		if err != nil {
			m.metrics.observe(objectType, field, OutcomeBlocked, started)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			blocked := NewErrTransitionBlocked(t.From, t.To, field, objectType, hookName(g))
			blocked.Err = err
			return blocked
		}
		if !ok {
			m.metrics.observe(objectType, field, OutcomeBlocked, started)
			return NewErrTransitionBlocked(t.From, t.To, field, objectType, hookName(g))
		}
	}

	m.publish(ctx, newEvent(EventTransitioning, obj, t, m.now()))

	if err := m.commit(ctx, obj, t); err != nil {
		m.metrics.observe(objectType, field, OutcomeFailed, started)
		m.compensate(ctx, obj, t, err)
		return err
	}

	if s, ok := obj.(Stateful); ok {
		s.SetStateValue(field, t.To)
	}
	m.metrics.observe(objectType, field, OutcomeCommitted, started)

	m.publish(ctx, newEvent(EventTransitioned, obj, t, m.now()))

	for _, e := range effects {
		if err := e.Execute(ctx, obj, t); err != nil {
			m.metrics.effectFailed(objectType, field)
			return &ErrEffectFailed{
				Effect: hookName(e),
				Field:  field,
				From:   t.From,
				To:     t.To,
				Err:    err,
			}
		}
	}

	return nil
}

// commit runs the transactional phase: stale check, column writes, history append.
func (m *Manager) commit(ctx context.Context, obj Object, t Transition) error {
	return m.storage.WithinTx(ctx, func(ctx context.Context, tx Storage) error {
		actual, err := resolveState(ctx, tx, obj, t.Field, m.resolver(false))
		if err != nil {
			return err
		}
		if actual != t.From {
			return &ErrStaleState{
				Field:      t.Field,
				ObjectType: obj.ObjectType(),
				ObjectID:   obj.ObjectID(),
				Expected:   t.From,
				Actual:     actual,
			}
		}

		if m.config.UseCurrentColumns {
			if err := setIfPresent(ctx, tx, obj, m.config.CurrentColumn(t.Field), t.To); err != nil {
				return err
			}
		}
		if err := setIfPresent(ctx, tx, obj, t.Field, t.To); err != nil {
			return err
		}

		return tx.AppendRecord(ctx, Record{
			ID:         uuid.New().String(),
			ObjectType: obj.ObjectType(),
			ObjectID:   obj.ObjectID(),
			Field:      t.Field,
			From:       t.From,
			To:         t.To,
			Meta:       t.Meta,
			CreatedAt:  m.now(),
		})
	})
}

// compensate restores the object to from after a failed transactional phase.
func (m *Manager) compensate(ctx context.Context, obj Object, t Transition, cause error) {
	if s, ok := obj.(Stateful); ok {
		s.SetStateValue(t.Field, t.From)
	}

	// Someone else moved the state; writing from back would clobber their commit.
	if IsStaleStateError(cause) {
		return
	}

	ctx = context.WithoutCancel(ctx)
	if err := setIfPresent(ctx, m.storage, obj, t.Field, t.From); err != nil {
		m.logger.ErrorContext(ctx, "failed to restore state after aborted transition",
			logger.Transition(obj.ObjectType(), obj.ObjectID(), t.Field, t.From, t.To),
			logger.Error(err),
		)
	}
}

func (m *Manager) publish(ctx context.Context, event Event) {
	if err := m.notifier.Publish(ctx, event); err != nil {
		m.logger.WarnContext(ctx, "failed to publish state event",
			logger.Event(event.Name),
			logger.Transition(event.ObjectType, event.ObjectID, event.Field, event.From, event.To),
			logger.Error(err),
		)
	}
}

func (m *Manager) resolver(warn bool) resolver {
	r := resolver{config: m.config}
	if warn && m.config.LogFallbackWarnings {
		r.logger = m.logger
	}
	return r
}

func validateTarget(obj Object, field string) error {
	if obj == nil || obj.ObjectType() == "" || obj.ObjectID() == "" {
		return ErrInvalidIdentity
	}
	if field == "" {
		return ErrEmptyField
	}
	return nil
}

// setIfPresent writes the column only when the object's table declares it.
func setIfPresent(ctx context.Context, rows Rows, obj Object, column, value string) error {
	ok, err := rows.HasColumn(ctx, obj.ObjectType(), column)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return rows.SetColumn(ctx, obj, column, value)
}

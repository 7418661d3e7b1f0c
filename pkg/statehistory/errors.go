package statehistory

import (
	"errors"
	"fmt"
)

var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrNoHistory       = errors.New("no state history recorded")
	ErrEmptyTarget     = errors.New("target state cannot be empty")
	ErrEmptyField      = errors.New("state field name cannot be empty")
	ErrInvalidIdentity = errors.New("object type and id are required")
)

func describeFrom(from string) string {
	if from == "" {
		return "none"
	}
	return from
}

func describeOwner(objectType string) string {
	if objectType == "" {
		return ""
	}
	return " on " + objectType
}

// ErrInvalidTransition indicates the requested edge is not declared by the field's machine.
type ErrInvalidTransition struct {
	From       string
	To         string
	Field      string
	ObjectType string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid state transition from '%s' to '%s' for field '%s'%s: not allowed by the state machine",
		describeFrom(e.From), e.To, e.Field, describeOwner(e.ObjectType))
}

func NewErrInvalidTransition(from, to, field, objectType string) *ErrInvalidTransition {
	return &ErrInvalidTransition{
		From:       from,
		To:         to,
		Field:      field,
		ObjectType: objectType,
	}
}

// ErrTransitionBlocked indicates a guard vetoed the transition. A guard that
// returns an error instead of false supplies the reason: it is kept in Err,
// reported as the message and reachable through errors.Is and errors.As.
type ErrTransitionBlocked struct {
	From       string
	To         string
	Field      string
	ObjectType string
	Guard      string
	Err        error
}

func (e *ErrTransitionBlocked) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("state transition from '%s' to '%s' for field '%s'%s was blocked by guard %s",
		describeFrom(e.From), e.To, e.Field, describeOwner(e.ObjectType), e.Guard)
}

func (e *ErrTransitionBlocked) Unwrap() error {
	return e.Err
}

func NewErrTransitionBlocked(from, to, field, objectType, guard string) *ErrTransitionBlocked {
	return &ErrTransitionBlocked{
		From:       from,
		To:         to,
		Field:      field,
		ObjectType: objectType,
		Guard:      guard,
	}
}

// ErrConfiguration indicates a malformed state machine declaration for a field.
type ErrConfiguration struct {
	Field      string
	ObjectType string
	Value      string // runtime shape of the offending value
	Reason     string
}

func (e *ErrConfiguration) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid state machine configuration for field '%s'%s: %s",
			e.Field, describeOwner(e.ObjectType), e.Reason)
	}
	return fmt.Sprintf("invalid state machine configuration for field '%s'%s: expected string or mapping with 'machine' key, got %s",
		e.Field, describeOwner(e.ObjectType), e.Value)
}

func NewErrConfiguration(field, objectType string, value any) *ErrConfiguration {
	return &ErrConfiguration{
		Field:      field,
		ObjectType: objectType,
		Value:      fmt.Sprintf("%T", value),
	}
}

func newConfigurationReason(field, objectType, format string, args ...any) *ErrConfiguration {
	return &ErrConfiguration{
		Field:      field,
		ObjectType: objectType,
		Reason:     fmt.Sprintf(format, args...),
	}
}

// ErrNoStateMachine indicates no machine is registered for the field.
type ErrNoStateMachine struct {
	Field      string
	ObjectType string
}

func (e *ErrNoStateMachine) Error() string {
	return fmt.Sprintf("no state machine configured for field '%s'%s", e.Field, describeOwner(e.ObjectType))
}

func NewErrNoStateMachine(field, objectType string) *ErrNoStateMachine {
	return &ErrNoStateMachine{
		Field:      field,
		ObjectType: objectType,
	}
}

// ErrStaleState indicates the persisted state moved between resolution and commit.
type ErrStaleState struct {
	Field      string
	ObjectType string
	ObjectID   string
	Expected   string
	Actual     string
}

func (e *ErrStaleState) Error() string {
	return fmt.Sprintf("state of field '%s'%s (id %s) changed concurrently: expected '%s', found '%s'",
		e.Field, describeOwner(e.ObjectType), e.ObjectID, describeFrom(e.Expected), describeFrom(e.Actual))
}

// ErrEffectFailed wraps an effect error. The transition itself stays committed.
type ErrEffectFailed struct {
	Effect string
	Field  string
	From   string
	To     string
	Err    error
}

func (e *ErrEffectFailed) Error() string {
	return fmt.Sprintf("effect %s failed after transition from '%s' to '%s' for field '%s': %v",
		e.Effect, describeFrom(e.From), e.To, e.Field, e.Err)
}

func (e *ErrEffectFailed) Unwrap() error {
	return e.Err
}

func IsInvalidTransitionError(err error) bool {
	var e *ErrInvalidTransition
	return errors.As(err, &e)
}

func IsTransitionBlockedError(err error) bool {
	var e *ErrTransitionBlocked
	return errors.As(err, &e)
}

func IsConfigurationError(err error) bool {
	var e *ErrConfiguration
	return errors.As(err, &e)
}

func IsNoStateMachineError(err error) bool {
	var e *ErrNoStateMachine
	return errors.As(err, &e)
}

func IsStaleStateError(err error) bool {
	var e *ErrStaleState
	return errors.As(err, &e)
}

func IsEffectError(err error) bool {
	var e *ErrEffectFailed
	return errors.As(err, &e)
}

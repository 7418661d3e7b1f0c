package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: target state cannot be nil")
	ErrNilTransitionMap  = errors.New("transition map cannot be nil")
	ErrUnknownState      = errors.New("unknown state")
	ErrInvalidDefinition = errors.New("invalid state machine definition")
)

// ErrCastFailed indicates a persisted token could not be converted by a codec.
type ErrCastFailed struct {
	Token string
	Codec string
	Err   error
}

func (e *ErrCastFailed) Error() string {
	return fmt.Sprintf("cannot cast state '%s' with codec %s: %v", e.Token, e.Codec, e.Err)
}

func (e *ErrCastFailed) Unwrap() error {
	return e.Err
}

func NewErrCastFailed(token, codec string, err error) *ErrCastFailed {
	return &ErrCastFailed{
		Token: token,
		Codec: codec,
		Err:   err,
	}
}

func IsCastFailedError(err error) bool {
	var e *ErrCastFailed
	return errors.As(err, &e)
}

package statemachine

import (
	"fmt"
	"strings"
)

// Codec converts a persisted token into a richer State value.
type Codec interface {
	Cast(token string) (State, error)
}

// CodecFunc adapts a function to the Codec interface.
type CodecFunc func(token string) (State, error)

func (f CodecFunc) Cast(token string) (State, error) {
	return f(token)
}

// EnumCodec casts tokens to one of a closed set of states.
type EnumCodec struct {
	name   string
	values map[string]State
}

// NewEnumCodec builds a codec accepting exactly the given states.
func NewEnumCodec(states ...State) *EnumCodec {
	c := &EnumCodec{values: make(map[string]State, len(states))}
	tokens := make([]string, 0, len(states))
	for _, s := range states {
		if IsNone(s) {
			continue
		}
		if _, ok := c.values[s.Name()]; !ok {
			tokens = append(tokens, s.Name())
		}
		c.values[s.Name()] = s
	}
	if len(states) > 0 && states[0] != nil {
		c.name = fmt.Sprintf("enum[%T](%s)", states[0], strings.Join(tokens, ","))
	} else {
		c.name = fmt.Sprintf("enum(%s)", strings.Join(tokens, ","))
	}
	return c
}

// Cast returns the registered state for token.
func (c *EnumCodec) Cast(token string) (State, error) {
	if s, ok := c.values[token]; ok {
		return s, nil
	}
	return nil, NewErrCastFailed(token, c.name, ErrUnknownState)
}

// String returns a descriptive codec name.
func (c *EnumCodec) String() string {
	return c.name
}

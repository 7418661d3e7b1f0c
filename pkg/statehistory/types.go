package statehistory

import (
	"maps"
	"time"
)

// Object identifies a persisted row that carries one or more state fields.
// ObjectType doubles as the polymorphic discriminator stored in history records.
type Object interface {
	ObjectType() string
	ObjectID() string
}

// Stateful is implemented by objects keeping an in-memory copy of their state fields.
// The manager sets the copy on success and restores it on failure.
type Stateful interface {
	Object
	StateValue(field string) string
	SetStateValue(field, token string)
}

// Record is one immutable history entry. From is empty when the object had no prior state.
type Record struct {
	ID         string         `json:"id"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id"`
	Field      string         `json:"field"`
	From       string         `json:"from,omitempty"`
	To         string         `json:"to"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// IsInitial reports whether the record describes the first transition of the field.
func (r Record) IsInitial() bool {
	return r.From == ""
}

// Criteria selects history records. Results are ordered newest first.
type Criteria struct {
	ObjectType string
	ObjectID   string
	Field      string // empty matches every field
	Limit      int    // zero means no limit
}

// Matches reports whether r satisfies the criteria.
func (c Criteria) Matches(r Record) bool {
	if c.ObjectType != "" && r.ObjectType != c.ObjectType {
		return false
	}
	if c.ObjectID != "" && r.ObjectID != c.ObjectID {
		return false
	}
	if c.Field != "" && r.Field != c.Field {
		return false
	}
	return true
}

// Transition is the proposed change handed to guards and effects.
type Transition struct {
	Field   string
	From    string // empty for a creation transition
	To      string
	Meta    map[string]any
	Context map[string]any
}

// Event names published around a transition.
const (
	EventTransitioning = "state.transitioning"
	EventTransitioned  = "state.transitioned"
)

// Event is the payload published to a Notifier.
type Event struct {
	Name       string         `json:"name"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id"`
	Field      string         `json:"field"`
	From       string         `json:"from,omitempty"`
	To         string         `json:"to"`
	Meta       map[string]any `json:"meta,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`

	// Object is the in-process subject. It is not serialized by transports.
	Object Object `json:"-"`
}

func newEvent(name string, obj Object, t Transition, at time.Time) Event {
	return Event{
		Name:       name,
		ObjectType: obj.ObjectType(),
		ObjectID:   obj.ObjectID(),
		Field:      t.Field,
		From:       t.From,
		To:         t.To,
		Meta:       maps.Clone(t.Meta),
		Context:    maps.Clone(t.Context),
		OccurredAt: at,
		Object:     obj,
	}
}

// Ref is a minimal Object implementation for callers that only know the identity.
type Ref struct {
	Type string
	ID   string
}

func (r Ref) ObjectType() string { return r.Type }
func (r Ref) ObjectID() string   { return r.ID }

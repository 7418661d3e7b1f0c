package statehistory

import (
	"maps"
	"slices"
	"sync"

	"github.com/dmitrymomot/statehistory/pkg/statemachine"
)

// FieldConfig binds a state field to its machine and hooks.
type FieldConfig struct {
	Machine statemachine.Machine
	Codec   statemachine.Codec // optional; casts raw tokens to typed states
	Guards  []Guard
	Effects []Effect
}

// Registry maps object types to their declared state fields.
// Registration validates eagerly so misconfiguration fails at startup.
type Registry struct {
	mu      sync.RWMutex
	objects map[string]map[string]FieldConfig
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{objects: make(map[string]map[string]FieldConfig)}
}

// Register declares the state fields of an object type.
// Fields already registered for the type are replaced.
func (r *Registry) Register(objectType string, fields map[string]FieldConfig) error {
	if objectType == "" {
		return ErrInvalidIdentity
	}
	for field, fc := range fields {
		if err := validateField(objectType, field, fc); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	declared, ok := r.objects[objectType]
	if !ok {
		declared = make(map[string]FieldConfig, len(fields))
		r.objects[objectType] = declared
	}
	for field, fc := range fields {
		fc.Guards = slices.Clone(fc.Guards)
		fc.Effects = slices.Clone(fc.Effects)
		declared[field] = fc
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(objectType string, fields map[string]FieldConfig) {
	if err := r.Register(objectType, fields); err != nil {
		panic(err)
	}
}

// Field returns the configuration of a declared field or ErrNoStateMachine.
func (r *Registry) Field(objectType, field string) (FieldConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fc, ok := r.objects[objectType][field]
	if !ok {
		return FieldConfig{}, NewErrNoStateMachine(field, objectType)
	}
	return fc, nil
}

// Fields lists the declared fields of an object type, sorted.
func (r *Registry) Fields(objectType string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.objects[objectType]))
}

// ObjectTypes lists every registered object type, sorted.
func (r *Registry) ObjectTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.objects))
}

func validateField(objectType, field string, fc FieldConfig) error {
	if field == "" {
		return newConfigurationReason(field, objectType, "field name cannot be empty")
	}
	if fc.Machine == nil {
		return newConfigurationReason(field, objectType, "state machine cannot be nil")
	}
	if fc.Codec == nil {
		return nil
	}
	for _, token := range fc.Machine.Transitions().States() {
		if _, err := fc.Codec.Cast(token); err != nil {
			return newConfigurationReason(field, objectType, "codec cannot cast state '%s': %v", token, err)
		}
	}
	return nil
}

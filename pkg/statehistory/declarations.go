package statehistory

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/statehistory/pkg/statemachine"
)

// CastDeclarer is implemented by hosts that declare a value codec per field.
// The declared cast is used when a field names its machine without a cast.
type CastDeclarer interface {
	DeclaredCast(field string) (string, bool)
}

// MachineConfig is the parsed form of a field's state machine declaration.
type MachineConfig struct {
	Machine  string
	CastFrom string
	CastTo   string
}

// HasCasts reports whether a codec is declared in either direction.
func (c MachineConfig) HasCasts() bool {
	return c.CastFrom != "" || c.CastTo != ""
}

// CastType returns the codec name for "from" or "to", empty for anything else.
func (c MachineConfig) CastType(direction string) string {
	switch direction {
	case "from":
		return c.CastFrom
	case "to":
		return c.CastTo
	default:
		return ""
	}
}

// ParseMachineConfig reads decl[field] in one of two forms:
//
//	status: post_status                          # machine name, cast taken from host
//	status: {machine: post_status, cast: status} # explicit cast
//
// Anything else yields ErrConfiguration. host may be nil.
func ParseMachineConfig(decl map[string]any, field string, host CastDeclarer) (MachineConfig, error) {
	objectType := hostType(host)
	value := decl[field]

	switch v := value.(type) {
	case string:
		if v == "" {
			return MachineConfig{}, NewErrConfiguration(field, objectType, v)
		}
		var cast string
		if host != nil {
			cast, _ = host.DeclaredCast(field)
		}
		return MachineConfig{Machine: v, CastFrom: cast, CastTo: cast}, nil

	case map[string]any:
		machine, ok := v["machine"].(string)
		if !ok || machine == "" {
			return MachineConfig{}, NewErrConfiguration(field, objectType, value)
		}
		cast := ""
		if raw, ok := v["cast"]; ok && raw != nil {
			if cast, ok = raw.(string); !ok {
				return MachineConfig{}, newConfigurationReason(field, objectType, "cast must be a string, got %T", raw)
			}
		}
		return MachineConfig{Machine: machine, CastFrom: cast, CastTo: cast}, nil

	default:
		return MachineConfig{}, NewErrConfiguration(field, objectType, value)
	}
}

func hostType(host CastDeclarer) string {
	if o, ok := host.(interface{ ObjectType() string }); ok {
		return o.ObjectType()
	}
	return ""
}

// Catalog names machines and codecs so declarations can reference them.
type Catalog struct {
	mu       sync.RWMutex
	machines map[string]statemachine.Machine
	codecs   map[string]statemachine.Codec
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		machines: make(map[string]statemachine.Machine),
		codecs:   make(map[string]statemachine.Codec),
	}
}

// AddMachine names a machine.
func (c *Catalog) AddMachine(name string, m statemachine.Machine) *Catalog {
	c.mu.Lock()
	c.machines[name] = m
	c.mu.Unlock()
	return c
}

// AddCodec names a codec.
func (c *Catalog) AddCodec(name string, codec statemachine.Codec) *Catalog {
	c.mu.Lock()
	c.codecs[name] = codec
	c.mu.Unlock()
	return c
}

// Machines lists the machine names, sorted.
func (c *Catalog) Machines() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.machines))
}

// Machine returns a named machine.
func (c *Catalog) Machine(name string) (statemachine.Machine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.machines[name]
	return m, ok
}

// Resolve turns a parsed declaration into a field configuration.
// The "string" cast means no codec.
func (c *Catalog) Resolve(objectType, field string, cfg MachineConfig) (FieldConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.machines[cfg.Machine]
	if !ok {
		return FieldConfig{}, newConfigurationReason(field, objectType, "unknown state machine '%s'", cfg.Machine)
	}

	fc := FieldConfig{Machine: m}
	if cast := cfg.CastType("to"); cast != "" && cast != "string" {
		codec, ok := c.codecs[cast]
		if !ok {
			return FieldConfig{}, newConfigurationReason(field, objectType, "unknown cast '%s'", cast)
		}
		fc.Codec = codec
	}
	return fc, nil
}

// Declarations is the YAML document describing machines and the objects using them.
//
//	machines:
//	  post_status:
//	    initial: [draft]
//	    transitions:
//	      draft: [published]
//	objects:
//	  post:
//	    casts:
//	      status: post_status
//	    fields:
//	      status: post_status
type Declarations struct {
	Machines map[string]statemachine.Definition `yaml:"machines"`
	Objects  map[string]ObjectDeclaration       `yaml:"objects"`
}

// ObjectDeclaration lists the state fields of one object type.
type ObjectDeclaration struct {
	Casts  map[string]string `yaml:"casts"`
	Fields map[string]any    `yaml:"fields"`
}

type declaredHost struct {
	objectType string
	casts      map[string]string
}

func (h declaredHost) ObjectType() string { return h.objectType }

func (h declaredHost) DeclaredCast(field string) (string, bool) {
	cast, ok := h.casts[field]
	return cast, ok
}

// LoadDeclarations decodes declarations from YAML. Unknown keys are rejected.
func LoadDeclarations(r io.Reader) (*Declarations, error) {
	var d Declarations
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode state declarations: %w", err)
	}
	return &d, nil
}

// Catalog builds a catalog holding every declared machine, each with an enum
// codec of the same name.
func (d *Declarations) Catalog() (*Catalog, error) {
	c := NewCatalog()
	for _, name := range slices.Sorted(maps.Keys(d.Machines)) {
		def := d.Machines[name]
		m, err := def.Machine()
		if err != nil {
			return nil, fmt.Errorf("machine %s: %w", name, err)
		}
		codec, err := def.Codec()
		if err != nil {
			return nil, fmt.Errorf("machine %s: %w", name, err)
		}
		c.AddMachine(name, m).AddCodec(name, codec)
	}
	return c, nil
}

// Register resolves every declared field against the catalog and registers it.
// A nil catalog is built from the declared machines.
func (d *Declarations) Register(reg *Registry, catalog *Catalog) error {
	if catalog == nil {
		var err error
		if catalog, err = d.Catalog(); err != nil {
			return err
		}
	}

	for _, objectType := range slices.Sorted(maps.Keys(d.Objects)) {
		obj := d.Objects[objectType]
		host := declaredHost{objectType: objectType, casts: obj.Casts}

		fields := make(map[string]FieldConfig, len(obj.Fields))
		for _, field := range slices.Sorted(maps.Keys(obj.Fields)) {
			cfg, err := ParseMachineConfig(obj.Fields, field, host)
			if err != nil {
				return err
			}
			fc, err := catalog.Resolve(objectType, field, cfg)
			if err != nil {
				return err
			}
			fields[field] = fc
		}

		if err := reg.Register(objectType, fields); err != nil {
			return err
		}
	}
	return nil
}

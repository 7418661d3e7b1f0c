package statehistory_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/statehistory/pkg/statehistory"
	"github.com/dmitrymomot/statehistory/pkg/statemachine"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("register and lookup", func(t *testing.T) {
		t.Parallel()
		r := statehistory.NewRegistry()
		require.NoError(t, r.Register("post", map[string]statehistory.FieldConfig{
			"status":         {Machine: postMachine},
			"payment_status": {Machine: paymentMachine},
		}))
		require.NoError(t, r.Register("invoice", map[string]statehistory.FieldConfig{
			"status": {Machine: paymentMachine},
		}))

		fc, err := r.Field("post", "status")
		require.NoError(t, err)
		assert.NotNil(t, fc.Machine)

		assert.Equal(t, []string{"payment_status", "status"}, r.Fields("post"))
		assert.Equal(t, []string{"invoice", "post"}, r.ObjectTypes())
		assert.Empty(t, r.Fields("comment"))

		_, err = r.Field("invoice", "payment_status")
		assert.True(t, statehistory.IsNoStateMachineError(err))
	})

	t.Run("eager validation", func(t *testing.T) {
		t.Parallel()
		r := statehistory.NewRegistry()

		err := r.Register("post", map[string]statehistory.FieldConfig{"status": {}})
		assert.True(t, statehistory.IsConfigurationError(err))
		assert.Contains(t, err.Error(), "state machine cannot be nil")

		err = r.Register("post", map[string]statehistory.FieldConfig{"": {Machine: postMachine}})
		assert.True(t, statehistory.IsConfigurationError(err))

		err = r.Register("", map[string]statehistory.FieldConfig{"status": {Machine: postMachine}})
		assert.ErrorIs(t, err, statehistory.ErrInvalidIdentity)

		narrow := statemachine.NewEnumCodec(Draft, Published)
		err = r.Register("post", map[string]statehistory.FieldConfig{"status": {Machine: postMachine, Codec: narrow}})
		var cfgErr *statehistory.ErrConfiguration
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "status", cfgErr.Field)
		assert.Equal(t, "post", cfgErr.ObjectType)
		assert.Contains(t, err.Error(), "archived")

		assert.Empty(t, r.ObjectTypes())
	})

	t.Run("must register panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() {
			statehistory.NewRegistry().MustRegister("post", map[string]statehistory.FieldConfig{"status": {}})
		})
	})
}

type castHost struct {
	casts map[string]string
}

func (h castHost) ObjectType() string { return "post" }

func (h castHost) DeclaredCast(field string) (string, bool) {
	c, ok := h.casts[field]
	return c, ok
}

func TestParseMachineConfig(t *testing.T) {
	t.Parallel()

	decl := map[string]any{
		"status":  "post_status",
		"payment": map[string]any{"machine": "payment", "cast": "payment_status"},
		"bare":    map[string]any{"machine": "payment"},
		"missing": map[string]any{"cast": "payment_status"},
		"number":  42,
		"list":    []any{"a", "b"},
		"badcast": map[string]any{"machine": "payment", "cast": 7},
	}
	host := castHost{casts: map[string]string{"status": "post_status_enum"}}

	t.Run("bare string takes cast from host", func(t *testing.T) {
		t.Parallel()
		cfg, err := statehistory.ParseMachineConfig(decl, "status", host)
		require.NoError(t, err)
		assert.Equal(t, "post_status", cfg.Machine)
		assert.Equal(t, "post_status_enum", cfg.CastType("from"))
		assert.Equal(t, "post_status_enum", cfg.CastType("to"))
		assert.Empty(t, cfg.CastType("sideways"))
		assert.True(t, cfg.HasCasts())
	})

	t.Run("bare string without host", func(t *testing.T) {
		t.Parallel()
		cfg, err := statehistory.ParseMachineConfig(decl, "status", nil)
		require.NoError(t, err)
		assert.False(t, cfg.HasCasts())
	})

	t.Run("structured form", func(t *testing.T) {
		t.Parallel()
		cfg, err := statehistory.ParseMachineConfig(decl, "payment", host)
		require.NoError(t, err)
		assert.Equal(t, statehistory.MachineConfig{Machine: "payment", CastFrom: "payment_status", CastTo: "payment_status"}, cfg)

		cfg, err = statehistory.ParseMachineConfig(decl, "bare", host)
		require.NoError(t, err)
		assert.False(t, cfg.HasCasts())
	})

	t.Run("malformed declarations", func(t *testing.T) {
		t.Parallel()
		for field, shape := range map[string]string{
			"missing": "map[string]interface {}",
			"number":  "int",
			"list":    "[]interface {}",
			"absent":  "<nil>",
		} {
			_, err := statehistory.ParseMachineConfig(decl, field, host)
			var cfgErr *statehistory.ErrConfiguration
			require.ErrorAs(t, err, &cfgErr, field)
			assert.Equal(t, field, cfgErr.Field)
			assert.Equal(t, "post", cfgErr.ObjectType)
			assert.Equal(t, shape, cfgErr.Value, field)
			assert.True(t, strings.HasPrefix(err.Error(), "invalid state machine configuration for field '"+field+"' on post"))
		}

		_, err := statehistory.ParseMachineConfig(decl, "badcast", nil)
		assert.True(t, statehistory.IsConfigurationError(err))
	})
}

const declarationsYAML = `
machines:
  post_status:
    initial: [draft]
    transitions:
      draft: [published]
      published: [archived]
    any: [deleted]
  payment:
    initial: [pending]
    transitions:
      pending: [paid]
objects:
  post:
    casts:
      status: post_status
    fields:
      status: post_status
      payment_status:
        machine: payment
        cast: string
  invoice:
    fields:
      payment_status:
        machine: payment
        cast: payment
`

func TestDeclarations(t *testing.T) {
	t.Parallel()

	t.Run("load and register", func(t *testing.T) {
		t.Parallel()
		decl, err := statehistory.LoadDeclarations(strings.NewReader(declarationsYAML))
		require.NoError(t, err)

		catalog, err := decl.Catalog()
		require.NoError(t, err)
		assert.Equal(t, []string{"payment", "post_status"}, catalog.Machines())

		r := statehistory.NewRegistry()
		require.NoError(t, decl.Register(r, nil))
		assert.Equal(t, []string{"invoice", "post"}, r.ObjectTypes())

		status, err := r.Field("post", "status")
		require.NoError(t, err)
		require.NotNil(t, status.Codec)
		assert.True(t, status.Machine.CanTransition(statemachine.None, Draft))
		assert.True(t, status.Machine.CanTransition(Published, Deleted))
		assert.False(t, status.Machine.CanTransition(Draft, Archived))

		s, err := status.Codec.Cast("published")
		require.NoError(t, err)
		assert.Equal(t, "published", s.Name())
		_, err = status.Codec.Cast("legacy")
		assert.True(t, statemachine.IsCastFailedError(err))

		payment, err := r.Field("post", "payment_status")
		require.NoError(t, err)
		assert.Nil(t, payment.Codec)

		invoice, err := r.Field("invoice", "payment_status")
		require.NoError(t, err)
		assert.NotNil(t, invoice.Codec)
	})

	t.Run("custom catalog", func(t *testing.T) {
		t.Parallel()
		decl, err := statehistory.LoadDeclarations(strings.NewReader(`
objects:
  post:
    fields:
      status: {machine: posts}
`))
		require.NoError(t, err)

		catalog := statehistory.NewCatalog().AddMachine("posts", postMachine)
		m, ok := catalog.Machine("posts")
		assert.True(t, ok)
		assert.NotNil(t, m)

		r := statehistory.NewRegistry()
		require.NoError(t, decl.Register(r, catalog))
		_, err = r.Field("post", "status")
		assert.NoError(t, err)
	})

	t.Run("unknown references", func(t *testing.T) {
		t.Parallel()
		for name, doc := range map[string]string{
			"machine": "objects:\n  post:\n    fields:\n      status: nope\n",
			"cast":    "machines:\n  m:\n    initial: [a]\nobjects:\n  post:\n    fields:\n      status: {machine: m, cast: nope}\n",
			"shape":   "objects:\n  post:\n    fields:\n      status: [a, b]\n",
		} {
			decl, err := statehistory.LoadDeclarations(strings.NewReader(doc))
			require.NoError(t, err, name)
			err = decl.Register(statehistory.NewRegistry(), nil)
			assert.True(t, statehistory.IsConfigurationError(err), name)
		}
	})

	t.Run("invalid documents", func(t *testing.T) {
		t.Parallel()
		_, err := statehistory.LoadDeclarations(strings.NewReader("objects: [1, 2"))
		assert.Error(t, err)

		_, err = statehistory.LoadDeclarations(strings.NewReader("unknown: true\n"))
		assert.Error(t, err)

		decl, err := statehistory.LoadDeclarations(strings.NewReader("machines:\n  m:\n    initial: ['']\n"))
		require.NoError(t, err)
		_, err = decl.Catalog()
		assert.ErrorIs(t, err, statemachine.ErrInvalidDefinition)
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()
		decl, err := statehistory.LoadDeclarations(strings.NewReader(""))
		require.NoError(t, err)
		require.NoError(t, decl.Register(statehistory.NewRegistry(), nil))
	})
}

package statehistory

import (
	"log/slog"
	"maps"
	"time"
)

// Option configures a Manager or a States facade.
type Option func(*options)

type options struct {
	config   Config
	notifier Notifier
	logger   *slog.Logger
	metrics  *Metrics
	guards   []Guard
	effects  []Effect
	now      func() time.Time
}

func defaultOptions() options {
	return options{
		config:   DefaultConfig(),
		notifier: noopNotifier{},
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithConfig sets the resolution policy configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithNotifier sets the transport for transitioning/transitioned events.
// Nil is ignored.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLogger sets the structured logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithGuards appends guards, evaluated in order.
func WithGuards(guards ...Guard) Option {
	return func(o *options) {
		for _, g := range guards {
			if g != nil {
				o.guards = append(o.guards, g)
			}
		}
	}
}

// WithEffects appends effects, executed in order after commit.
func WithEffects(effects ...Effect) Option {
	return func(o *options) {
		for _, e := range effects {
			if e != nil {
				o.effects = append(o.effects, e)
			}
		}
	}
}

// WithClock overrides the time source used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// TransitionOption annotates a single transition.
type TransitionOption func(*Transition)

// WithMeta adds a metadata entry persisted on the history record.
func WithMeta(key string, value any) TransitionOption {
	return func(t *Transition) {
		if t.Meta == nil {
			t.Meta = make(map[string]any)
		}
		t.Meta[key] = value
	}
}

// WithMetadata merges metadata persisted on the history record.
func WithMetadata(meta map[string]any) TransitionOption {
	return func(t *Transition) {
		if len(meta) == 0 {
			return
		}
		if t.Meta == nil {
			t.Meta = make(map[string]any, len(meta))
		}
		maps.Copy(t.Meta, meta)
	}
}

// WithContextValue adds a context entry visible to guards, effects and events but not persisted.
func WithContextValue(key string, value any) TransitionOption {
	return func(t *Transition) {
		if t.Context == nil {
			t.Context = make(map[string]any)
		}
		t.Context[key] = value
	}
}

// WithContextData merges context entries visible to guards, effects and events.
func WithContextData(data map[string]any) TransitionOption {
	return func(t *Transition) {
		if len(data) == 0 {
			return
		}
		if t.Context == nil {
			t.Context = make(map[string]any, len(data))
		}
		maps.Copy(t.Context, data)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/statehistory/pkg/broadcast"
	"github.com/dmitrymomot/statehistory/pkg/config"
	"github.com/dmitrymomot/statehistory/pkg/httpserver"
	"github.com/dmitrymomot/statehistory/pkg/logger"
	"github.com/dmitrymomot/statehistory/pkg/mongo"
	"github.com/dmitrymomot/statehistory/pkg/pg"
	"github.com/dmitrymomot/statehistory/pkg/redis"
	"github.com/dmitrymomot/statehistory/pkg/sqlite"
	"github.com/dmitrymomot/statehistory/pkg/statehistory"
)

// Supported STATE_STORE and STATE_EVENTS values.
const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
	driverMongo    = "mongo"

	eventsNone   = "none"
	eventsMemory = "memory"
	eventsRedis  = "redis"
)

var (
	ErrUnknownDriver = errors.New("unknown state store driver")
	ErrUnknownEvents = errors.New("unknown events transport")
)

type appConfig struct {
	Driver       string            `env:"STATE_STORE" envDefault:"sqlite"`
	Declarations string            `env:"STATE_DECLARATIONS" envDefault:"states.yaml"`
	Events       string            `env:"STATE_EVENTS" envDefault:"none"`
	Tables       map[string]string `env:"STATE_TABLES"` // object type to table or collection, e.g. post:posts,user:users

	Log     logger.Config
	History statehistory.Config
	HTTP    httpserver.Config
}

func loadConfig(flags *rootFlags) (appConfig, error) {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return appConfig{}, err
	}
	if flags.declarations != "" {
		cfg.Declarations = flags.declarations
	}
	return cfg, nil
}

func newLogger(cfg appConfig, w io.Writer) *slog.Logger {
	return logger.New(
		logger.WithConfig(cfg.Log),
		logger.WithOutput(w),
		logger.WithContextValue("request_id", middleware.RequestIDKey),
	)
}

func loadDeclarations(path string) (*statehistory.Declarations, *statehistory.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open declarations: %w", err)
	}
	defer f.Close()

	decl, err := statehistory.LoadDeclarations(f)
	if err != nil {
		return nil, nil, err
	}
	reg := statehistory.NewRegistry()
	if err := decl.Register(reg, nil); err != nil {
		return nil, nil, err
	}
	return decl, reg, nil
}

// app holds the storage backend selected by STATE_STORE and everything opened for it.
type app struct {
	cfg     appConfig
	log     *slog.Logger
	storage statehistory.Storage
	migrate func(context.Context) error
	checks  []func(context.Context) error
	closers []func()
}

func openApp(ctx context.Context, cmd *cobra.Command, flags *rootFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: newLogger(cfg, cmd.ErrOrStderr())}

	if err := a.openStorage(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStorage(ctx context.Context) error {
	switch a.cfg.Driver {
	case driverSQLite:
		var scfg sqlite.Config
		if err := config.Load(&scfg); err != nil {
			return err
		}
		db, err := sqlite.Open(ctx, scfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.storage = sqlite.NewStore(db,
			sqlite.WithHistoryTable(a.cfg.History.HistoryTable),
			sqlite.WithTables(a.cfg.Tables),
		)
		a.migrate = func(ctx context.Context) error { return sqlite.Migrate(ctx, db, scfg, a.log) }
		a.checks = append(a.checks, sqlite.Healthcheck(db, a.cfg.History.HistoryTable))

	case driverPostgres:
		var pcfg pg.Config
		if err := config.Load(&pcfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, pcfg)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pool.Close)
		a.storage = pg.NewStore(pool,
			pg.WithHistoryTable(a.cfg.History.HistoryTable),
			pg.WithTables(a.cfg.Tables),
		)
		a.migrate = func(ctx context.Context) error { return pg.Migrate(ctx, pool, pcfg, a.log) }
		a.checks = append(a.checks, pg.Healthcheck(pool, a.cfg.History.HistoryTable))

	case driverMongo:
		var mcfg mongo.Config
		if err := config.Load(&mcfg); err != nil {
			return err
		}
		db, err := mongo.NewWithDatabase(ctx, mcfg, mcfg.Database)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = db.Client().Disconnect(context.Background()) })
		store := mongo.NewStore(db,
			mongo.WithHistoryCollection(mcfg.HistoryCollection),
			mongo.WithCollections(a.cfg.Tables),
		)
		a.storage = store
		a.migrate = store.EnsureIndexes
		a.checks = append(a.checks, mongo.Healthcheck(db.Client()))

	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, a.cfg.Driver)
	}
	return nil
}

// notifier builds the transport selected by STATE_EVENTS, or nil for none.
func (a *app) notifier(ctx context.Context) (statehistory.Notifier, error) {
	switch a.cfg.Events {
	case "", eventsNone:
		return nil, nil

	case eventsMemory:
		b := broadcast.NewMemoryBroadcaster[statehistory.Event](64)
		a.closers = append(a.closers, func() { _ = b.Close() })
		sub := broadcast.Transitioned(ctx, b)
		go func() {
			for msg := range sub.Receive(ctx) {
				e := msg.Data
				a.log.InfoContext(ctx, "state transitioned",
					logger.ObjectType(e.ObjectType),
					logger.ObjectID(e.ObjectID),
					logger.Field(e.Field),
					logger.FromState(e.From),
					logger.ToState(e.To),
				)
			}
		}()
		return broadcast.NewNotifier(b), nil

	case eventsRedis:
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.checks = append(a.checks, redis.Healthcheck(client))
		return redis.NewNotifier(client, rcfg.ChannelPrefix), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvents, a.cfg.Events)
	}
}

// states loads the declarations and builds the facade over the opened storage.
func (a *app) states(opts ...statehistory.Option) (*statehistory.States, error) {
	_, reg, err := loadDeclarations(a.cfg.Declarations)
	if err != nil {
		return nil, err
	}
	opts = append([]statehistory.Option{
		statehistory.WithConfig(a.cfg.History),
		statehistory.WithLogger(a.log),
	}, opts...)
	return statehistory.New(a.storage, reg, opts...), nil
}

// metrics registers the runtime and transition collectors on a fresh registry.
func (a *app) metrics() (*prometheus.Registry, *statehistory.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, statehistory.NewMetrics(reg)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

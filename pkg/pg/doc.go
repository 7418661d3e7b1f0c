// Package pg stores state history in PostgreSQL using the pgx/v5 driver.
//
// Connect opens a *pgxpool.Pool with retries, Migrate applies the embedded
// goose migrations that create the model_states history table, and
// Healthcheck returns a probe that pings the pool and checks that the given
// tables exist. Store implements statehistory.Storage on top of the pool: object types map to tables, the current_<field> columns
// are regular nullable text columns and every transition runs inside a single
// pgx transaction.
//
// # Usage
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
//	store := pg.NewStore(pool, pg.WithTables(map[string]string{"post": "posts"}))
//	states := statehistory.New(store, registry)
//
// Object rows are addressed by their id column compared as text, so integer
// and UUID keys both work. Tables holding state fields are owned by the
// application; only the history table is migrated here.
//
// # Error Handling
//
// IsNotFoundError, IsUndefinedColumnError, IsUndefinedTableError,
// IsDuplicateKeyError and IsSerializationError classify errors returned by
// pgx. Store maps missing rows and columns to statehistory.ErrObjectNotFound
// and statehistory.ErrColumnNotFound.
package pg

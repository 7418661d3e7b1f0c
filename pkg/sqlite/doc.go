// Package sqlite stores state history in a single SQLite file using the pure Go
// modernc.org/sqlite driver.
//
// Open applies WAL journaling, a busy timeout and immediate transaction locking
// to every pooled connection. Migrate creates the model_states table through
// embedded goose migrations. Store implements statehistory.Storage, with
// history timestamps kept as unix nanoseconds so records created within the
// same second still sort newest first.
//
//	db, err := sqlite.Open(ctx, sqlite.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	if err := sqlite.Migrate(ctx, db, cfg, log); err != nil {
//	    return err
//	}
//	states := statehistory.New(sqlite.NewStore(db), registry)
package sqlite

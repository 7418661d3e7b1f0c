package sqlite

import "time"

// Config defines SQLite connection parameters.
type Config struct {
	Path         string        `env:"SQLITE_PATH" envDefault:"statehistory.db"`                       // Path is the database file.
	BusyTimeout  time.Duration `env:"SQLITE_BUSY_TIMEOUT" envDefault:"5s"`                            // BusyTimeout is how long a writer waits for the lock.
	MaxOpenConns int           `env:"SQLITE_MAX_OPEN_CONNS" envDefault:"4"`                           // MaxOpenConns bounds the database/sql pool.
	Migrations   string        `env:"SQLITE_MIGRATIONS_TABLE" envDefault:"state_history_migrations"` // Migrations stores the applied goose version.
}

// DefaultConfig returns the configuration used by tests and the CLI.
func DefaultConfig() Config {
	return Config{
		Path:         "statehistory.db",
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
		Migrations:   "state_history_migrations",
	}
}

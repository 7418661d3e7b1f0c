package sqlite

import (
	"errors"
	"strings"
)

var (
	ErrEmptyPath               = errors.New("empty sqlite database path, use SQLITE_PATH env var")
	ErrFailedToOpenDB          = errors.New("failed to open sqlite database")
	ErrHealthcheckFailed       = errors.New("healthcheck failed, database is not available")
	ErrFailedToApplyMigrations = errors.New("failed to apply migrations")
)

// IsNoSuchColumnError reports whether SQLite rejected a statement for an unknown column.
func IsNoSuchColumnError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such column")
}

// IsNoSuchTableError reports whether SQLite rejected a statement for an unknown table.
func IsNoSuchTableError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}

// IsConstraintError reports a UNIQUE or NOT NULL constraint violation.
func IsConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}

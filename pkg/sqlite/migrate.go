package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/dmitrymomot/statehistory/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

var migrateMu sync.Mutex

// Migrate creates the model_states history table.
func Migrate(ctx context.Context, db *sql.DB, cfg Config, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetLogger(gooseLogger{log: log.With(logger.Component("migrations"))})
	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	if cfg.Migrations != "" {
		goose.SetTableName(cfg.Migrations)
	}

	if err := goose.SetDialect("sqlite3"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
	return nil
}

type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Debug(fmt.Sprintf(format, v...))
}

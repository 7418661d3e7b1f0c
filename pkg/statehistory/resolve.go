package statehistory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/statehistory/pkg/logger"
)

// resolver applies the current-state read policy. A nil logger disables fallback warnings.
type resolver struct {
	config Config
	logger *slog.Logger
}

// resolveState returns the field's current token, or "" when the object never transitioned.
// Order: current column when enabled, the base field, then the latest history record.
func resolveState(ctx context.Context, s Storage, obj Object, field string, r resolver) (string, error) {
	if r.config.UseCurrentColumns {
		column := r.config.CurrentColumn(field)
		value, found, err := readColumn(ctx, s, obj, column)
		if err != nil {
			return "", err
		}
		if value != "" {
			return value, nil
		}
		if !found && r.logger != nil {
			r.logger.WarnContext(ctx, "current state column missing, falling back to state history",
				logger.ObjectType(obj.ObjectType()),
				logger.ObjectID(obj.ObjectID()),
				logger.Field(field),
				logger.Column(column),
			)
		}
	}

	value, _, err := readColumn(ctx, s, obj, field)
	if err != nil {
		return "", err
	}
	if value != "" {
		return value, nil
	}

	rec, err := s.LatestRecord(ctx, obj.ObjectType(), obj.ObjectID(), field)
	if errors.Is(err, ErrNoHistory) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return rec.To, nil
}

// readColumn reads column when the object type declares it.
// A row that is not persisted yet reads as null.
func readColumn(ctx context.Context, rows Rows, obj Object, column string) (string, bool, error) {
	ok, err := rows.HasColumn(ctx, obj.ObjectType(), column)
	if err != nil || !ok {
		return "", false, err
	}
	value, err := rows.GetColumn(ctx, obj, column)
	if errors.Is(err, ErrObjectNotFound) {
		return "", true, nil
	}
	if err != nil {
		return "", true, err
	}
	return value, true, nil
}

// queryColumn returns the column used to filter objects by state:
// the current column when enabled and present, the base field otherwise.
func queryColumn(ctx context.Context, rows Rows, cfg Config, objectType, field string) (string, error) {
	if !cfg.UseCurrentColumns {
		return field, nil
	}
	column := cfg.CurrentColumn(field)
	ok, err := rows.HasColumn(ctx, objectType, column)
	if err != nil {
		return "", err
	}
	if ok {
		return column, nil
	}
	return field, nil
}

package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/statehistory/pkg/statehistory"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements statehistory.Storage on PostgreSQL.
// Object types map to tables of the same name unless overridden with WithTables;
// rows are addressed by their id column compared as text.
type Store struct {
	pool         *pgxpool.Pool
	db           querier
	historyTable string
	idColumn     string
	tables       map[string]string
	txOptions    pgx.TxOptions
}

var _ statehistory.Storage = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithHistoryTable overrides the history table name (default model_states).
func WithHistoryTable(name string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.historyTable = name
		}
	}
}

// WithIDColumn overrides the primary key column of object tables (default id).
func WithIDColumn(name string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.idColumn = name
		}
	}
}

// WithTables maps object types to table names.
func WithTables(tables map[string]string) StoreOption {
	return func(s *Store) {
		for objectType, table := range tables {
			s.tables[objectType] = table
		}
	}
}

// WithTxOptions sets the options used to begin transition transactions.
func WithTxOptions(opts pgx.TxOptions) StoreOption {
	return func(s *Store) {
		s.txOptions = opts
	}
}

// NewStore creates a Store on the pool. Panics if pool is nil.
func NewStore(pool *pgxpool.Pool, opts ...StoreOption) *Store {
	if pool == nil {
		panic("pg: connection pool cannot be nil")
	}
	s := &Store{
		pool:         pool,
		db:           pool,
		historyTable: "model_states",
		idColumn:     "id",
		tables:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) table(objectType string) string {
	if t, ok := s.tables[objectType]; ok {
		return t
	}
	return objectType
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func (s *Store) HasColumn(ctx context.Context, objectType, column string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
		)`, s.table(objectType), column).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pg: inspect column %s.%s: %w", objectType, column, err)
	}
	return exists, nil
}

func (s *Store) GetColumn(ctx context.Context, obj statehistory.Object, column string) (string, error) {
	query := fmt.Sprintf(`SELECT %s::text FROM %s WHERE %s::text = $1`,
		ident(column), ident(s.table(obj.ObjectType())), ident(s.idColumn))

	var value *string
	err := s.db.QueryRow(ctx, query, obj.ObjectID()).Scan(&value)
	switch {
	case IsNotFoundError(err):
		return "", statehistory.ErrObjectNotFound
	case IsUndefinedColumnError(err):
		return "", errors.Join(statehistory.ErrColumnNotFound, err)
	case err != nil:
		return "", err
	case value == nil:
		return "", nil
	}
	return *value, nil
}

func (s *Store) SetColumn(ctx context.Context, obj statehistory.Object, column, value string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s::text = $2`,
		ident(s.table(obj.ObjectType())), ident(column), ident(s.idColumn))

	tag, err := s.db.Exec(ctx, query, nullable(value), obj.ObjectID())
	if IsUndefinedColumnError(err) {
		return errors.Join(statehistory.ErrColumnNotFound, err)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return statehistory.ErrObjectNotFound
	}
	return nil
}

func (s *Store) FindIDs(ctx context.Context, objectType, column, value string) ([]string, error) {
	cond := fmt.Sprintf(`%s::text = $1`, ident(column))
	args := []any{value}
	if value == "" {
		cond = fmt.Sprintf(`%s IS NULL`, ident(column))
		args = nil
	}
	query := fmt.Sprintf(`SELECT %s::text FROM %s WHERE %s ORDER BY 1`,
		ident(s.idColumn), ident(s.table(objectType)), cond)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		if IsUndefinedColumnError(err) {
			return nil, errors.Join(statehistory.ErrColumnNotFound, err)
		}
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *Store) AppendRecord(ctx context.Context, rec statehistory.Record) error {
	var meta []byte
	if len(rec.Meta) > 0 {
		var err error
		if meta, err = json.Marshal(rec.Meta); err != nil {
			return fmt.Errorf("pg: encode meta: %w", err)
		}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, model_type, model_id, field, from_state, to_state, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, ident(s.historyTable))

	_, err := s.db.Exec(ctx, query,
		rec.ID, rec.ObjectType, rec.ObjectID, rec.Field,
		nullable(rec.From), rec.To, meta, rec.CreatedAt,
	)
	return err
}

func (s *Store) LatestRecord(ctx context.Context, objectType, objectID, field string) (statehistory.Record, error) {
	recs, err := s.Records(ctx, statehistory.Criteria{
		ObjectType: objectType,
		ObjectID:   objectID,
		Field:      field,
		Limit:      1,
	})
	if err != nil {
		return statehistory.Record{}, err
	}
	if len(recs) == 0 {
		return statehistory.Record{}, statehistory.ErrNoHistory
	}
	return recs[0], nil
}

func (s *Store) Records(ctx context.Context, criteria statehistory.Criteria) ([]statehistory.Record, error) {
	var (
		where []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("model_type", criteria.ObjectType)
	add("model_id", criteria.ObjectID)
	add("field", criteria.Field)

	var b strings.Builder
	fmt.Fprintf(&b, `SELECT id::text, model_type, model_id, field, from_state, to_state, meta, created_at FROM %s`,
		ident(s.historyTable))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, seq DESC")
	if criteria.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", criteria.Limit)
	}

	rows, err := s.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanRecord)
}

func scanRecord(row pgx.CollectableRow) (statehistory.Record, error) {
	var (
		rec  statehistory.Record
		from *string
		meta []byte
	)
	if err := row.Scan(&rec.ID, &rec.ObjectType, &rec.ObjectID, &rec.Field, &from, &rec.To, &meta, &rec.CreatedAt); err != nil {
		return rec, err
	}
	if from != nil {
		rec.From = *from
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rec.Meta); err != nil {
			return rec, fmt.Errorf("pg: decode meta: %w", err)
		}
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// WithinTx runs fn in a transaction. Inside a transaction it joins the current one.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx statehistory.Storage) error) error {
	if _, ok := s.db.(pgx.Tx); ok {
		return fn(ctx, s)
	}

	return pgx.BeginTxFunc(ctx, s.pool, s.txOptions, func(tx pgx.Tx) error {
		bound := *s
		bound.db = tx
		return fn(ctx, &bound)
	})
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

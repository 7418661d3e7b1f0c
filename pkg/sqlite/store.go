package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrymomot/statehistory/pkg/statehistory"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements statehistory.Storage on a SQLite database.
// created_at is stored as unix nanoseconds.
type Store struct {
	db           *sql.DB
	q            querier
	inTx         bool
	historyTable string
	idColumn     string
	tables       map[string]string
}

var _ statehistory.Storage = (*Store)(nil)

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

// NewStore creates a Store. Panics if db is nil.
func NewStore(db *sql.DB, opts ...StoreOption) *Store {
	if db == nil {
		panic("sqlite: database cannot be nil")
	}
	s := &Store{
		db:           db,
		q:            db,
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

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnError(err error) error {
	if IsNoSuchColumnError(err) {
		return errors.Join(statehistory.ErrColumnNotFound, err)
	}
	return err
}

func (s *Store) HasColumn(ctx context.Context, objectType, column string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		s.table(objectType), column,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: inspect column %s.%s: %w", objectType, column, err)
	}
	return n > 0, nil
}

func (s *Store) GetColumn(ctx context.Context, obj statehistory.Object, column string) (string, error) {
	query := fmt.Sprintf(`SELECT CAST(%s AS TEXT) FROM %s WHERE CAST(%s AS TEXT) = ?`,
		quote(column), quote(s.table(obj.ObjectType())), quote(s.idColumn))

	var value sql.NullString
	err := s.q.QueryRowContext(ctx, query, obj.ObjectID()).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", statehistory.ErrObjectNotFound
	case err != nil:
		return "", columnError(err)
	}
	return value.String, nil
}

func (s *Store) SetColumn(ctx context.Context, obj statehistory.Object, column, value string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE CAST(%s AS TEXT) = ?`,
		quote(s.table(obj.ObjectType())), quote(column), quote(s.idColumn))

	res, err := s.q.ExecContext(ctx, query, nullable(value), obj.ObjectID())
	if err != nil {
		return columnError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return statehistory.ErrObjectNotFound
	}
	return nil
}

func (s *Store) FindIDs(ctx context.Context, objectType, column, value string) ([]string, error) {
	cond := fmt.Sprintf(`CAST(%s AS TEXT) = ?`, quote(column))
	args := []any{value}
	if value == "" {
		cond = fmt.Sprintf(`%s IS NULL`, quote(column))
		args = nil
	}
	query := fmt.Sprintf(`SELECT CAST(%s AS TEXT) FROM %s WHERE %s ORDER BY 1`,
		quote(s.idColumn), quote(s.table(objectType)), cond)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, columnError(err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) AppendRecord(ctx context.Context, rec statehistory.Record) error {
	var meta sql.NullString
	if len(rec.Meta) > 0 {
		b, err := json.Marshal(rec.Meta)
		if err != nil {
			return fmt.Errorf("sqlite: encode meta: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, model_type, model_id, field, from_state, to_state, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, quote(s.historyTable))

	_, err := s.q.ExecContext(ctx, query,
		rec.ID, rec.ObjectType, rec.ObjectID, rec.Field,
		nullable(rec.From), rec.To, meta, rec.CreatedAt.UnixNano(),
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
		if value != "" {
			where = append(where, column+" = ?")
			args = append(args, value)
		}
	}
	add("model_type", criteria.ObjectType)
	add("model_id", criteria.ObjectID)
	add("field", criteria.Field)

	var b strings.Builder
	fmt.Fprintf(&b, `SELECT id, model_type, model_id, field, from_state, to_state, meta, created_at FROM %s`,
		quote(s.historyTable))
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC, seq DESC")
	if criteria.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", criteria.Limit)
	}

	rows, err := s.q.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []statehistory.Record{}
	for rows.Next() {
		var (
			rec     statehistory.Record
			from    sql.NullString
			meta    sql.NullString
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.ObjectType, &rec.ObjectID, &rec.Field, &from, &rec.To, &meta, &created); err != nil {
			return nil, err
		}
		rec.From = from.String
		rec.CreatedAt = time.Unix(0, created).UTC()
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &rec.Meta); err != nil {
				return nil, fmt.Errorf("sqlite: decode meta: %w", err)
			}
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// WithinTx runs fn in a transaction. Inside a transaction it joins the current one.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx statehistory.Storage) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}
	bound := *s
	bound.q = tx
	bound.inTx = true

	if err := fn(ctx, &bound); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

package memstore

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/dmitrymomot/statehistory/pkg/statehistory"
)

var ErrTableNotFound = errors.New("table not found")

// Store is an in-memory statehistory.Storage.
// Transactions run on a copy of the data that replaces the original on success,
// so a failing transaction leaves nothing behind.
type Store struct {
	// txMu serializes writers: transactions and direct writes.
	txMu sync.Mutex

	mu   sync.RWMutex
	data *data

	failMu     sync.RWMutex
	failAppend error
}

var _ statehistory.Storage = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: newData()}
}

// CreateTable declares a table for an object type. Existing columns are kept.
func (s *Store) CreateTable(objectType string, columns ...string) *Store {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data.tables[objectType]
	if !ok {
		t = &table{columns: make(map[string]struct{}), rows: make(map[string]map[string]string)}
		s.data.tables[objectType] = t
	}
	for _, c := range columns {
		t.columns[c] = struct{}{}
	}
	return s
}

// Insert adds or replaces a row. Values for undeclared columns are rejected.
func (s *Store) Insert(objectType, id string, values map[string]string) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.data.tables[objectType]
	if !ok {
		return ErrTableNotFound
	}
	for column := range values {
		if _, ok := t.columns[column]; !ok {
			return statehistory.ErrColumnNotFound
		}
	}
	row := make(map[string]string, len(values))
	for column, value := range values {
		if value != "" {
			row[column] = value
		}
	}
	t.rows[id] = row
	return nil
}

// Row returns a copy of a stored row; null columns are absent.
func (s *Store) Row(objectType, id string) (map[string]string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data.tables[objectType]
	if !ok {
		return nil, false
	}
	row, ok := t.rows[id]
	return maps.Clone(row), ok
}

// FailAppend makes every AppendRecord return err until called again with nil.
func (s *Store) FailAppend(err error) {
	s.failMu.Lock()
	s.failAppend = err
	s.failMu.Unlock()
}

func (s *Store) appendFailure() error {
	s.failMu.RLock()
	defer s.failMu.RUnlock()
	return s.failAppend
}

func (s *Store) HasColumn(_ context.Context, objectType, column string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.hasColumn(objectType, column), nil
}

func (s *Store) GetColumn(_ context.Context, obj statehistory.Object, column string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.getColumn(obj, column)
}

func (s *Store) SetColumn(_ context.Context, obj statehistory.Object, column, value string) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.setColumn(obj, column, value)
}

func (s *Store) FindIDs(_ context.Context, objectType, column, value string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.findIDs(objectType, column, value)
}

func (s *Store) AppendRecord(_ context.Context, rec statehistory.Record) error {
	if err := s.appendFailure(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.appendRecord(rec)
	return nil
}

func (s *Store) LatestRecord(_ context.Context, objectType, objectID, field string) (statehistory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.latestRecord(objectType, objectID, field)
}

func (s *Store) Records(_ context.Context, criteria statehistory.Criteria) ([]statehistory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.records(criteria), nil
}

// WithinTx runs fn against a snapshot and publishes it only when fn succeeds.
// fn must use tx exclusively; calling back into s for writes deadlocks.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx statehistory.Storage) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	tx := &txStore{store: s, data: snapshot}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored history records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.history)
}

// txStore is the transaction handle. It owns its snapshot, so no locking is needed.
type txStore struct {
	store *Store
	data  *data
}

func (t *txStore) HasColumn(_ context.Context, objectType, column string) (bool, error) {
	return t.data.hasColumn(objectType, column), nil
}

func (t *txStore) GetColumn(_ context.Context, obj statehistory.Object, column string) (string, error) {
	return t.data.getColumn(obj, column)
}

func (t *txStore) SetColumn(_ context.Context, obj statehistory.Object, column, value string) error {
	return t.data.setColumn(obj, column, value)
}

func (t *txStore) FindIDs(_ context.Context, objectType, column, value string) ([]string, error) {
	return t.data.findIDs(objectType, column, value)
}

func (t *txStore) AppendRecord(_ context.Context, rec statehistory.Record) error {
	if err := t.store.appendFailure(); err != nil {
		return err
	}
	t.data.appendRecord(rec)
	return nil
}

func (t *txStore) LatestRecord(_ context.Context, objectType, objectID, field string) (statehistory.Record, error) {
	return t.data.latestRecord(objectType, objectID, field)
}

func (t *txStore) Records(_ context.Context, criteria statehistory.Criteria) ([]statehistory.Record, error) {
	return t.data.records(criteria), nil
}

// WithinTx joins the running transaction.
func (t *txStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx statehistory.Storage) error) error {
	return fn(ctx, t)
}

type table struct {
	columns map[string]struct{}
	rows    map[string]map[string]string
}

type entry struct {
	seq    int64
	record statehistory.Record
}

type data struct {
	tables  map[string]*table
	history []entry
	seq     int64
}

func newData() *data {
	return &data{tables: make(map[string]*table)}
}

func (d *data) clone() *data {
	c := &data{
		tables:  make(map[string]*table, len(d.tables)),
		history: slices.Clone(d.history),
		seq:     d.seq,
	}
	for name, t := range d.tables {
		rows := make(map[string]map[string]string, len(t.rows))
		for id, row := range t.rows {
			rows[id] = maps.Clone(row)
		}
		c.tables[name] = &table{columns: maps.Clone(t.columns), rows: rows}
	}
	return c
}

func (d *data) hasColumn(objectType, column string) bool {
	t, ok := d.tables[objectType]
	if !ok {
		return false
	}
	_, ok = t.columns[column]
	return ok
}

func (d *data) row(obj statehistory.Object, column string) (map[string]string, error) {
	t, ok := d.tables[obj.ObjectType()]
	if !ok {
		return nil, statehistory.ErrObjectNotFound
	}
	row, ok := t.rows[obj.ObjectID()]
	if !ok {
		return nil, statehistory.ErrObjectNotFound
	}
	if _, ok := t.columns[column]; !ok {
		return nil, statehistory.ErrColumnNotFound
	}
	return row, nil
}

func (d *data) getColumn(obj statehistory.Object, column string) (string, error) {
	row, err := d.row(obj, column)
	if err != nil {
		return "", err
	}
	return row[column], nil
}

func (d *data) setColumn(obj statehistory.Object, column, value string) error {
	row, err := d.row(obj, column)
	if err != nil {
		return err
	}
	if value == "" {
		delete(row, column)
	} else {
		row[column] = value
	}
	return nil
}

func (d *data) findIDs(objectType, column, value string) ([]string, error) {
	t, ok := d.tables[objectType]
	if !ok {
		return nil, nil
	}
	if _, ok := t.columns[column]; !ok {
		return nil, statehistory.ErrColumnNotFound
	}
	var ids []string
	for id, row := range t.rows {
		if row[column] == value {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (d *data) appendRecord(rec statehistory.Record) {
	d.seq++
	rec.Meta = maps.Clone(rec.Meta)
	d.history = append(d.history, entry{seq: d.seq, record: rec})
}

// newestFirst orders by creation time, then insertion order.
func newestFirst(a, b entry) int {
	if c := b.record.CreatedAt.Compare(a.record.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.seq > b.seq:
		return -1
	case a.seq < b.seq:
		return 1
	default:
		return 0
	}
}

func (d *data) latestRecord(objectType, objectID, field string) (statehistory.Record, error) {
	recs := d.records(statehistory.Criteria{ObjectType: objectType, ObjectID: objectID, Field: field, Limit: 1})
	if len(recs) == 0 {
		return statehistory.Record{}, statehistory.ErrNoHistory
	}
	return recs[0], nil
}

func (d *data) records(criteria statehistory.Criteria) []statehistory.Record {
	var matched []entry
	for _, e := range d.history {
		if criteria.Matches(e.record) {
			matched = append(matched, e)
		}
	}
	slices.SortFunc(matched, newestFirst)
	if criteria.Limit > 0 && len(matched) > criteria.Limit {
		matched = matched[:criteria.Limit]
	}

	out := make([]statehistory.Record, len(matched))
	for i, e := range matched {
		out[i] = e.record
		out[i].Meta = maps.Clone(e.record.Meta)
	}
	return out
}

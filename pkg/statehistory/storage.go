package statehistory

import "context"

// Rows is the row-level view of storage needed by the engine.
type Rows interface {
	// HasColumn reports whether the object type's table/collection has the column.
	HasColumn(ctx context.Context, objectType, column string) (bool, error)
	// GetColumn returns the persisted value of the column; empty means null.
	// A missing row yields ErrObjectNotFound.
	GetColumn(ctx context.Context, obj Object, column string) (string, error)
	// SetColumn persists the column value; empty stores null.
	SetColumn(ctx context.Context, obj Object, column, value string) error
	// FindIDs returns the ids of objects whose column equals value; empty matches null.
	FindIDs(ctx context.Context, objectType, column, value string) ([]string, error)
}

// History is the append-only log of transitions.
type History interface {
	AppendRecord(ctx context.Context, rec Record) error
	// LatestRecord returns the newest record for the field or ErrNoHistory.
	LatestRecord(ctx context.Context, objectType, objectID, field string) (Record, error)
	Records(ctx context.Context, criteria Criteria) ([]Record, error)
}

// Storage combines rows and history with atomic transactions.
type Storage interface {
	Rows
	History

	// WithinTx runs fn atomically. The tx handle must be used for every call made by fn;
	// an error returned by fn rolls back every write made through it.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Storage) error) error
}

// Notifier publishes transition events. Delivery is fire-and-forget.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event Event) error

func (f NotifierFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, Event) error { return nil }

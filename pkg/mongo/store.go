package mongo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/statehistory/pkg/statehistory"
)

// Store implements statehistory.Storage on MongoDB.
// Object types map to collections and object ids to _id. Transactions use
// sessions, so the deployment must be a replica set or sharded cluster.
type Store struct {
	db          *mongo.Database
	history     *mongo.Collection
	collections map[string]string
	schema      map[string][]string
	objectIDs   bool

	seqMu   sync.Mutex
	lastSeq int64
}

var _ statehistory.Storage = (*Store)(nil)

type StoreOption func(*Store)

// WithHistoryCollection overrides the history collection (default model_states).
func WithHistoryCollection(name string) StoreOption {
	return func(s *Store) {
		if name != "" {
			s.history = s.db.Collection(name)
		}
	}
}

// WithCollections maps object types to collection names.
func WithCollections(collections map[string]string) StoreOption {
	return func(s *Store) {
		for objectType, name := range collections {
			s.collections[objectType] = name
		}
	}
}

// WithSchema declares the fields an object type carries. HasColumn answers from
// the declaration instead of probing documents.
func WithSchema(objectType string, fields ...string) StoreOption {
	return func(s *Store) {
		s.schema[objectType] = append(s.schema[objectType], fields...)
	}
}

// WithObjectIDs stores object ids as ObjectID when they are valid hex strings.
func WithObjectIDs() StoreOption {
	return func(s *Store) {
		s.objectIDs = true
	}
}

// NewStore creates a Store on the database. Panics if db is nil.
func NewStore(db *mongo.Database, opts ...StoreOption) *Store {
	if db == nil {
		panic("mongo: database cannot be nil")
	}
	s := &Store{
		db:          db,
		history:     db.Collection("model_states"),
		collections: make(map[string]string),
		schema:      make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the history lookup indexes. It is safe to call repeatedly.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.history.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "model_type", Value: 1},
			{Key: "model_id", Value: 1},
			{Key: "field", Value: 1},
			{Key: "created_at", Value: -1},
			{Key: "seq", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "model_type", Value: 1},
			{Key: "field", Value: 1},
			{Key: "to_state", Value: 1},
		}},
	})
	if err != nil {
		return fmt.Errorf("mongo: create history indexes: %w", err)
	}
	return nil
}

func (s *Store) collection(objectType string) *mongo.Collection {
	if name, ok := s.collections[objectType]; ok {
		return s.db.Collection(name)
	}
	return s.db.Collection(objectType)
}

func (s *Store) docID(id string) any {
	if s.objectIDs {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			return oid
		}
	}
	return id
}

func (s *Store) HasColumn(ctx context.Context, objectType, column string) (bool, error) {
	if fields, ok := s.schema[objectType]; ok {
		return slices.Contains(fields, column), nil
	}
	n, err := s.collection(objectType).CountDocuments(ctx,
		bson.D{{Key: column, Value: bson.D{{Key: "$exists", Value: true}}}},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, fmt.Errorf("mongo: inspect field %s.%s: %w", objectType, column, err)
	}
	return n > 0, nil
}

func (s *Store) GetColumn(ctx context.Context, obj statehistory.Object, column string) (string, error) {
	var doc bson.M
	err := s.collection(obj.ObjectType()).FindOne(ctx,
		bson.D{{Key: "_id", Value: s.docID(obj.ObjectID())}},
		options.FindOne().SetProjection(bson.D{{Key: column, Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", statehistory.ErrObjectNotFound
	}
	if err != nil {
		return "", err
	}

	switch v := doc[column].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bson.D, bson.M, bson.A:
		return "", fmt.Errorf("%w: field %s holds %T", ErrUnsupportedValue, column, v)
	default:
		return fmt.Sprint(v), nil
	}
}

func (s *Store) SetColumn(ctx context.Context, obj statehistory.Object, column, value string) error {
	var v any
	if value != "" {
		v = value
	}
	res, err := s.collection(obj.ObjectType()).UpdateOne(ctx,
		bson.D{{Key: "_id", Value: s.docID(obj.ObjectID())}},
		bson.D{{Key: "$set", Value: bson.D{{Key: column, Value: v}}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return statehistory.ErrObjectNotFound
	}
	return nil
}

// FindIDs matches missing fields as well as explicit nulls when value is empty.
func (s *Store) FindIDs(ctx context.Context, objectType, column, value string) ([]string, error) {
	var filter bson.D
	if value == "" {
		filter = bson.D{{Key: column, Value: nil}}
	} else {
		filter = bson.D{{Key: column, Value: value}}
	}

	cur, err := s.collection(objectType).Find(ctx, filter,
		options.Find().
			SetProjection(bson.D{{Key: "_id", Value: 1}}).
			SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ids := []string{}
	for cur.Next(ctx) {
		var doc struct {
			ID any `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		switch id := doc.ID.(type) {
		case bson.ObjectID:
			ids = append(ids, id.Hex())
		default:
			ids = append(ids, fmt.Sprint(id))
		}
	}
	return ids, cur.Err()
}

type historyDoc struct {
	ID        string         `bson:"_id"`
	Seq       int64          `bson:"seq"`
	ModelType string         `bson:"model_type"`
	ModelID   string         `bson:"model_id"`
	Field     string         `bson:"field"`
	From      *string        `bson:"from_state"`
	To        string         `bson:"to_state"`
	Meta      map[string]any `bson:"meta,omitempty"`
	CreatedAt time.Time      `bson:"created_at"`
}

func (d historyDoc) record() statehistory.Record {
	rec := statehistory.Record{
		ID:         d.ID,
		ObjectType: d.ModelType,
		ObjectID:   d.ModelID,
		Field:      d.Field,
		To:         d.To,
		Meta:       d.Meta,
		CreatedAt:  d.CreatedAt.UTC(),
	}
	if d.From != nil {
		rec.From = *d.From
	}
	return rec
}

// nextSeq orders records sharing a millisecond timestamp.
func (s *Store) nextSeq() int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.lastSeq = max(time.Now().UnixNano(), s.lastSeq+1)
	return s.lastSeq
}

func (s *Store) AppendRecord(ctx context.Context, rec statehistory.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	doc := historyDoc{
		ID:        rec.ID,
		Seq:       s.nextSeq(),
		ModelType: rec.ObjectType,
		ModelID:   rec.ObjectID,
		Field:     rec.Field,
		To:        rec.To,
		Meta:      rec.Meta,
		CreatedAt: rec.CreatedAt,
	}
	if rec.From != "" {
		doc.From = &rec.From
	}
	_, err := s.history.InsertOne(ctx, doc)
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
	filter := bson.D{}
	for _, kv := range [][2]string{
		{"model_type", criteria.ObjectType},
		{"model_id", criteria.ObjectID},
		{"field", criteria.Field},
	} {
		if kv[1] != "" {
			filter = append(filter, bson.E{Key: kv[0], Value: kv[1]})
		}
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "seq", Value: -1},
	})
	if criteria.Limit > 0 {
		opts.SetLimit(int64(criteria.Limit))
	}

	cur, err := s.history.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	recs := []statehistory.Record{}
	for cur.Next(ctx) {
		var doc historyDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		recs = append(recs, doc.record())
	}
	return recs, cur.Err()
}

// WithinTx runs fn in a session transaction. A context already bound to a
// session joins its transaction. The driver may retry fn on transient errors.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx statehistory.Storage) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx, s)
	}

	sess, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx, s)
	})
	return err
}

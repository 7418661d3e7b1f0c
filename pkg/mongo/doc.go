// Package mongo stores state history in MongoDB using the official v2 driver.
//
// New connects with retries, Healthcheck returns a ping probe and Store
// implements statehistory.Storage. Object types map to collections, object ids
// to the _id field, and history records live in a single model_states
// collection indexed by EnsureIndexes.
//
// Transitions run inside session transactions, which MongoDB only supports on
// replica sets and sharded clusters. A single-node replica set is enough for
// development.
//
// # Usage
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "")
//	if err != nil {
//	    return err
//	}
//
//	store := mongo.NewStore(db,
//	    mongo.WithCollections(map[string]string{"post": "posts"}),
//	    mongo.WithSchema("post", "status", "current_status"),
//	)
//	if err := store.EnsureIndexes(ctx); err != nil {
//	    return err
//	}
//
// Documents are schemaless, so HasColumn probes for any document carrying the
// field unless the object type's fields are declared with WithSchema. Declare
// the current_<field> columns up front, otherwise they are never written until
// some document already carries them.
package mongo

// Package memstore provides an in-memory statehistory.Storage for tests and
// local development.
//
// Tables are declared per object type with their columns, which is what
// HasColumn reports. Rows are inserted explicitly:
//
//	store := memstore.New().CreateTable("post", "status", "current_status")
//	_ = store.Insert("post", "1", nil)
//
// Transactions work on a snapshot that replaces the live data only when the
// transaction function succeeds. FailAppend injects a history write failure.
package memstore

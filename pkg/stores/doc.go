// Package stores provides the record store: CRUD access to (id, value)
// records kept in an embedded engine.
//
// Two backends implement Store. SQLiteStore uses the pure-Go SQLite driver
// with schema migrations and supports a private in-memory database.
// BoltStore keeps records in a single bolt bucket on disk.
//
// A missing record is a normal result, never an error. Read reports it with
// found=false and Get returns a nil *Record; Update and Delete report that
// no row was affected. Engine failures surface as ErrStoreUnavailable and a
// repeated insert as ErrDuplicateID.
//
// WithSession scopes a store to a callback and always closes it.
package stores

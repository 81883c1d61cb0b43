package stores

import (
	"fmt"
)

// ErrorKind classifies a store failure.
type ErrorKind string

const (
	// KindUnavailable means the embedded engine could not be opened,
	// initialized, or could not execute a statement. The handle may also
	// already be closed.
	KindUnavailable ErrorKind = "unavailable"

	// KindDuplicateID means an insert targeted an id that already exists.
	KindDuplicateID ErrorKind = "duplicate_id"

	// KindInvalidConfig means the store configuration was rejected before
	// any engine was opened.
	KindInvalidConfig ErrorKind = "invalid_config"
)

// StoreError is a classified store failure. A missing record is never
// reported through StoreError.
type StoreError struct {
	// Kind is the failure classification matched by errors.Is.
	Kind ErrorKind

	// Op is the store operation that failed (insert, read, init, ...).
	Op string

	// ID is the record id involved, if any.
	ID *int64

	// Err is the underlying engine error.
	Err error
}

// Sentinel errors for use with errors.Is.
var (
	ErrStoreUnavailable = &StoreError{Kind: KindUnavailable}
	ErrDuplicateID      = &StoreError{Kind: KindDuplicateID}
	ErrInvalidConfig    = &StoreError{Kind: KindInvalidConfig}
)

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := fmt.Sprintf("store %s", e.Kind)
	if e.Op != "" {
		msg = fmt.Sprintf("%s (op=%s", msg, e.Op)
		if e.ID != nil {
			msg = fmt.Sprintf("%s, id=%d", msg, *e.ID)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying engine error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a StoreError of the same kind.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func unavailable(op string, err error) *StoreError {
	return &StoreError{Kind: KindUnavailable, Op: op, Err: err}
}

func unavailableID(op string, id int64, err error) *StoreError {
	return &StoreError{Kind: KindUnavailable, Op: op, ID: &id, Err: err}
}

func duplicateID(id int64, err error) *StoreError {
	return &StoreError{Kind: KindDuplicateID, Op: "insert", ID: &id, Err: err}
}

func invalidConfig(format string, args ...interface{}) *StoreError {
	return &StoreError{Kind: KindInvalidConfig, Op: "open", Err: fmt.Errorf(format, args...)}
}

// errClosed is wrapped into ErrStoreUnavailable for calls on a closed handle.
var errClosed = fmt.Errorf("store is closed")

package db

import (
	"errors"
)

// ErrStoreUnavailable marks an entity store read/write failure. Callers treat it
// as retryable; the HTTP layer maps it to 503.
var ErrStoreUnavailable = errors.New("entity store unavailable")

// WrapStoreErr tags a repository failure as a store-level outage so engine code
// can distinguish it from domain conditions such as not-found.
func WrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &storeError{op: op, err: err}
}

type storeError struct {
	op  string
	err error
}

func (e *storeError) Error() string {
	return e.op + ": " + e.err.Error()
}

func (e *storeError) Unwrap() error { return e.err }

func (e *storeError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

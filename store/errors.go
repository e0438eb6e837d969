package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a record was not found in the store.
	ErrNotFound = errors.New("store: not found")
	// ErrCorrupt indicates a persisted record could not be decoded.
	ErrCorrupt = errors.New("store: record corrupt")
)

// StorageError wraps errors from store operations with context about
// what was being accessed.
type StorageError struct {
	Op     string // "read", "write", "delete"
	Entity string // "meta", "index", "comment", "reply"
	Path   string
	Err    error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage %s %s %s: %v", e.Op, e.Entity, e.Path, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for persistence errors.
var (
	ErrSave             = errors.New("could not persist calculation")
	ErrList             = errors.New("could not read calculations")
	ErrUnknownDriver    = errors.New("unknown database driver")
	ErrMissingDSN       = errors.New("database dsn is required")
	ErrTokenUnavailable = errors.New("database access token unavailable")
)

// Operation names carried by PersistenceError.
const (
	OpSave = "save"
	OpList = "list"
)

// PersistenceError reports a failed Save or ListRecent. The original cause is
// kept for diagnostics and reachable through errors.Unwrap.
type PersistenceError struct {
	Op  string
	Err error
}

func newPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) kind() error {
	if e.Op == OpList {
		return ErrList
	}
	return ErrSave
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return e.kind().Error()
	}
	return fmt.Sprintf("%s: %v", e.kind(), e.Err)
}

// Unwrap returns the underlying cause.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of this error (ErrSave or ErrList).
func (e *PersistenceError) Is(target error) bool {
	return target == e.kind()
}

package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrPersistence  = errors.New("persistence failure")
	ErrUnavailable  = errors.New("storage unavailable")
	ErrBodyTooLarge = errors.New("request body too large")
	ErrTrailingData = errors.New("unexpected data after request body")
)

// KindError tags an underlying error with a sentinel kind and the operation
// that produced it. errors.Is matches both the kind and the cause.
type KindError struct {
	Op   string
	Kind error
	Err  error
}

// WrapKind returns a KindError wrapping err.
func WrapKind(op string, kind, err error) error {
	return &KindError{Op: op, Kind: kind, Err: err}
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause.
func (e *KindError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

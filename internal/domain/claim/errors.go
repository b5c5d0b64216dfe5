package claim

import "errors"

// Sentinel kinds for rejected requests. These allow errors.Is from callers.
var (
	ErrEmptyClaim    = errors.New("claim items are required")
	ErrNegativeValue = errors.New("negative values are not allowed")
	ErrOutOfRange    = errors.New("value has too many digits")
)

// ValidationError describes why a Request was rejected.
type ValidationError struct {
	Kind  error
	Field string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Kind.Error()
	}
	return e.Field + ": " + e.Kind.Error()
}

// Unwrap exposes the sentinel kind.
func (e *ValidationError) Unwrap() error {
	return e.Kind
}

// RejectReason returns a short label for a validation failure, used for
// metrics. Errors of other kinds report "invalid".
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyClaim):
		return "empty_claim"
	case errors.Is(err, ErrNegativeValue):
		return "negative_value"
	case errors.Is(err, ErrOutOfRange):
		return "out_of_range"
	default:
		return "invalid"
	}
}

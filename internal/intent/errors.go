package intent

import "strings"

// ErrorKind is the closed set of classification failure modes.
type ErrorKind int

const (
	ErrMalformed ErrorKind = iota
	ErrUnsafeContent
	ErrSchemaViolation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMalformed:
		return "malformed"
	case ErrUnsafeContent:
		return "unsafe_content"
	case ErrSchemaViolation:
		return "schema_violation"
	default:
		return "unknown"
	}
}

// ClassificationError is returned instead of an intent when classification
// cannot produce one. Violations carries every field-level problem found,
// not just the first, so callers can fix everything in one round trip.
type ClassificationError struct {
	Kind       ErrorKind
	Detail     string
	Violations []string
}

func (e *ClassificationError) Error() string {
	if len(e.Violations) > 0 {
		return e.Kind.String() + ": " + strings.Join(e.Violations, "; ")
	}
	return e.Kind.String() + ": " + e.Detail
}

// NewSchemaViolation wraps the joined list of schema violations.
func NewSchemaViolation(violations []string) *ClassificationError {
	return &ClassificationError{
		Kind:       ErrSchemaViolation,
		Detail:     "schema validation failed",
		Violations: violations,
	}
}

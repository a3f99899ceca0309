package stratum

import "errors"

// Error taxonomy of the core. All conditions are local and recoverable;
// callers test with errors.Is.
var (
	// ErrSchemaMismatch is returned when a value's runtime type does not
	// match the type recorded in the derived schema for that field.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrFieldNotFound is returned by explicit lookups for a field absent
	// from a vertex or schema. Packing never returns it: absent fields are
	// zero-filled instead, so sparse attribute sets stay packable.
	ErrFieldNotFound = errors.New("field not found")

	// ErrLockContended is returned when a non-blocking lock acquisition
	// fails because of concurrent exclusive access. Retryable.
	ErrLockContended = errors.New("lock contended")

	// ErrInvariantViolation is returned when an insertion would break the
	// parent-before-child ordering of the scene tree.
	ErrInvariantViolation = errors.New("invariant violation")
)

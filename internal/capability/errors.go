package capability

import (
	"context"
	"errors"
)

// Capability runtime error taxonomy. Management operations return these
// directly; invocation errors are captured into invocation results keyed by
// the ErrorKind classification below.
var (
	// ErrValidation is returned when arguments fail schema validation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a component or action is not registered.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName is returned when creating a component under a taken name.
	ErrDuplicateName = errors.New("duplicate component name")

	// ErrUnknownType is returned when creating from an unregistered type tag.
	ErrUnknownType = errors.New("unknown component type")

	// ErrIncompatibleCapability is returned when a transformation's structural
	// requirement is not met by the source component.
	ErrIncompatibleCapability = errors.New("incompatible capability")

	// ErrAuthentication marks permanent credential failures. Never retried.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRateLimitExceeded is returned when retries are exhausted against a
	// rate-limiting backend.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrTransientFailure is returned when retries are exhausted against a
	// transiently failing backend.
	ErrTransientFailure = errors.New("transient failure")

	// ErrTimeout is returned when an invocation exceeds its deadline.
	ErrTimeout = errors.New("invocation timed out")

	// ErrInternal is the fallback for unclassified failures.
	ErrInternal = errors.New("internal error")
)

// ErrorKind is the wire-level classification of an error.
type ErrorKind string

const (
	KindValidation             ErrorKind = "validation_error"
	KindNotFound               ErrorKind = "not_found_error"
	KindDuplicateName          ErrorKind = "duplicate_name_error"
	KindUnknownType            ErrorKind = "unknown_type_error"
	KindIncompatibleCapability ErrorKind = "incompatible_capability_error"
	KindAuthentication         ErrorKind = "authentication_error"
	KindRateLimitExceeded      ErrorKind = "rate_limit_exceeded"
	KindTransientFailure       ErrorKind = "transient_failure"
	KindTimeout                ErrorKind = "timeout_error"
	KindInternal               ErrorKind = "internal_error"
)

// Classify maps an error chain onto its ErrorKind.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicateName):
		return KindDuplicateName
	case errors.Is(err, ErrUnknownType):
		return KindUnknownType
	case errors.Is(err, ErrIncompatibleCapability):
		return KindIncompatibleCapability
	case errors.Is(err, ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, ErrRateLimitExceeded):
		return KindRateLimitExceeded
	case errors.Is(err, ErrTransientFailure):
		return KindTransientFailure
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}

// Permanent reports whether an error must never be retried.
func Permanent(err error) bool {
	switch Classify(err) {
	case KindValidation, KindNotFound, KindDuplicateName, KindUnknownType,
		KindIncompatibleCapability, KindAuthentication:
		return true
	}
	return errors.Is(err, context.Canceled)
}

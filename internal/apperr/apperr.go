// Package apperr defines the error taxonomy shared by the progress, assessment,
// statistics and course services. Errors are plain wrapped errors; the kind is
// recovered with errors.Is against the sentinels below or with KindOf.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks an absent enrollment, node, roadmap, course or session.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a duplicate enrollment or a resubmitted assessment.
	ErrConflict = errors.New("conflict")
	// ErrInvalidRequest marks input the domain rejects.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrExternalService marks a failure of the AI capability.
	ErrExternalService = errors.New("external service failure")
)

// Kind classifies an error for callers that map errors to responses.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindInvalidRequest
	KindExternalService
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidRequest:
		return "invalid_request"
	case KindExternalService:
		return "external_service"
	default:
		return "unknown"
	}
}

// KindOf reports the taxonomy kind attached to err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrExternalService):
		return KindExternalService
	default:
		return KindUnknown
	}
}

// NotFound returns an error of kind KindNotFound.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Conflict returns an error of kind KindConflict.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// Invalid returns an error of kind KindInvalidRequest.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidRequest)
}

// External wraps a failure of an external capability. The cause stays
// reachable through errors.Is and errors.As.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrExternalService) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrExternalService, err)
}

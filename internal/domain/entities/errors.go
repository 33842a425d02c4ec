package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match them with errors.Is so callers can
// branch on the category without caring about the details.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrExternalService   = errors.New("external service failure")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrDownstreamEffect  = errors.New("downstream effect failed")
	ErrLockHeld          = errors.New("lock held by another worker")
)

// ValidationError rejects malformed input before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a reference to a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ExternalKind separates the ways an external call can fail.
type ExternalKind string

// External failure kinds.
const (
	// ExternalTransport covers network errors, timeouts and non-2xx replies.
	ExternalTransport ExternalKind = "transport"
	// ExternalMalformed means the reply could not be parsed at all.
	ExternalMalformed ExternalKind = "malformed_response"
	// ExternalUnexpected means the reply parsed but carried values outside
	// the contract.
	ExternalUnexpected ExternalKind = "unexpected_content"
)

// ExternalServiceError wraps a failed call to the model or another service.
type ExternalServiceError struct {
	Service string
	Kind    ExternalKind
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Kind, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Is matches ErrExternalService.
func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }

// Retryable reports whether re-enqueueing could succeed.
func (e *ExternalServiceError) Retryable() bool {
	return e.Kind == ExternalTransport
}

// InvalidTransitionError reports a violated state machine precondition.
type InvalidTransitionError struct {
	ClaimID string
	From    ClaimStatus
	To      ClaimStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("claim %s: cannot move from %s to %s", e.ClaimID, e.From, e.To)
}

// Is matches ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// DownstreamEffectError wraps a failed fan-out side effect. It is logged and
// counted, never returned to the caller that triggered the effect.
type DownstreamEffectError struct {
	Effect string
	Err    error
}

func (e *DownstreamEffectError) Error() string {
	return fmt.Sprintf("downstream effect %s: %v", e.Effect, e.Err)
}

func (e *DownstreamEffectError) Unwrap() error { return e.Err }

// Is matches ErrDownstreamEffect.
func (e *DownstreamEffectError) Is(target error) bool { return target == ErrDownstreamEffect }

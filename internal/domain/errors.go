package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the orchestration pipeline can surface.
// Kinds are preserved end to end so the HTTP layer and callers can decide
// whether a retry makes sense without parsing error strings.
type ErrorKind string

const (
	// KindValidation covers malformed, missing or ambiguous user input.
	KindValidation ErrorKind = "validation_error"

	// KindCapabilityUnavailable is a transient external failure. Safe to
	// retry at the caller; the pipeline itself never retries.
	KindCapabilityUnavailable ErrorKind = "capability_unavailable"

	// KindCapabilityRejected is a permanent external failure, e.g. an
	// unsupported file type. Retrying the same input will not help.
	KindCapabilityRejected ErrorKind = "capability_rejected"

	// KindCapabilityTimeout means an external call exceeded its budget.
	KindCapabilityTimeout ErrorKind = "capability_timeout"

	// KindExtraction means the normalizer could not produce a schema-valid
	// record even after defaulting.
	KindExtraction ErrorKind = "extraction_error"

	// KindBackendRead means a read-only backend query failed. There are no
	// backend writes in this service, so this is never a write failure.
	KindBackendRead ErrorKind = "backend_read_error"
)

// Error carries an ErrorKind through the pipeline.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation errors produced by the mode resolver.
var (
	ErrNoInput        = NewValidationError("provide exactly one input: text, audio or file")
	ErrAmbiguousInput = NewValidationError("more than one input provided; send text, audio or file, not a combination")
)

func NewValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewCapabilityUnavailable(capability string, err error) *Error {
	return &Error{Kind: KindCapabilityUnavailable, Message: capability + " temporarily unavailable", Err: err}
}

func NewCapabilityRejected(capability, reason string) *Error {
	return &Error{Kind: KindCapabilityRejected, Message: capability + ": " + reason}
}

func NewCapabilityTimeout(capability string, err error) *Error {
	return &Error{Kind: KindCapabilityTimeout, Message: capability + " call exceeded its time budget", Err: err}
}

func NewExtractionError(msg string, err error) *Error {
	return &Error{Kind: KindExtraction, Message: msg, Err: err}
}

func NewBackendReadError(msg string, err error) *Error {
	return &Error{Kind: KindBackendRead, Message: msg, Err: err}
}

// KindOf returns the ErrorKind carried by err, or KindCapabilityUnavailable
// for errors that did not originate in this package.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindCapabilityUnavailable
}

// HTTPStatus maps an error kind to the status code the HTTP layer returns.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return 400
	case KindCapabilityRejected:
		return 422
	case KindCapabilityUnavailable:
		return 503
	case KindCapabilityTimeout:
		return 504
	case KindExtraction, KindBackendRead:
		return 502
	default:
		return 500
	}
}

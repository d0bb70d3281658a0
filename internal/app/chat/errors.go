// internal/app/chat/errors.go
package chat

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure. The four caller-facing kinds are
// expected outcomes returned as structured failures; Upstream covers storage
// or media collaborator errors and is surfaced generically.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindUpstream   Kind = "upstream"
)

// Error is a classified chat failure with a short human-readable message.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// ValidationError reports malformed or missing input.
func ValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NotFoundError reports a missing group, user, or message.
func NotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// ForbiddenError reports a caller lacking the required role.
func ForbiddenError(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// ConflictError reports a state conflict such as a duplicate membership.
func ConflictError(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// UpstreamError wraps a collaborator failure. The wrapped error is logged
// but never sent to clients.
func UpstreamError(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, err: err}
}

// KindOf extracts the Kind from err, defaulting to KindUpstream for
// unclassified errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUpstream
}

// MessageOf extracts the client-safe message from err. Classified errors
// carry a message written for clients, upstream ones included; only
// unclassified errors get the generic fallback so driver internals never
// leak across the wire.
func MessageOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return "internal server error"
}

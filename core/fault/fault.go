// Package fault defines the error taxonomy shared by the service core and
// its outer layers.
//
// Every error carries a Kind. Kinds form a small hierarchy so callers can
// match a whole family with errors.Is:
//
//	ServiceConfiguration
//	    UnknownDependency
//	BadRequest (400)
//	    InvalidPayload
//	Conflict (409)
//	NotFound (404)
package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies an error family.
type Kind int

const (
	KindServiceConfiguration Kind = iota + 1
	KindUnknownDependency
	KindBadRequest
	KindInvalidPayload
	KindConflict
	KindNotFound
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindServiceConfiguration:
		return "ServiceConfigurationError"
	case KindUnknownDependency:
		return "UnknownDependency"
	case KindBadRequest:
		return "BadRequest"
	case KindInvalidPayload:
		return "InvalidPayload"
	case KindConflict:
		return "Conflict"
	case KindNotFound:
		return "NotFound"
	default:
		return "Error"
	}
}

// Parent returns the enclosing kind, or 0 for a root kind.
func (k Kind) Parent() Kind {
	switch k {
	case KindUnknownDependency:
		return KindServiceConfiguration
	case KindInvalidPayload:
		return KindBadRequest
	default:
		return 0
	}
}

// StatusCode returns the HTTP status associated with the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindBadRequest, KindInvalidPayload:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	// Name is the subject of the error, e.g. the unresolved dependency.
	Name  string
	Cause error

	sentinel bool
}

// Sentinels for errors.Is matching. A match succeeds when the error's kind
// or one of its ancestors equals the sentinel's kind.
var (
	ErrServiceConfiguration = sentinel(KindServiceConfiguration)
	ErrUnknownDependency    = sentinel(KindUnknownDependency)
	ErrBadRequest           = sentinel(KindBadRequest)
	ErrInvalidPayload       = sentinel(KindInvalidPayload)
	ErrConflict             = sentinel(KindConflict)
	ErrNotFound             = sentinel(KindNotFound)
)

func sentinel(k Kind) *Error {
	return &Error{Kind: k, Message: k.String(), sentinel: true}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a sentinel for e's kind or any ancestor.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || !t.sentinel {
		return false
	}
	for k := e.Kind; k != 0; k = k.Parent() {
		if k == t.Kind {
			return true
		}
	}
	return false
}

// StatusCode returns the HTTP status for the error's kind.
func (e *Error) StatusCode() int { return e.Kind.StatusCode() }

// StatusCoder is implemented by errors that map to an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// StatusCode returns the status of the first StatusCoder in err's chain,
// or 500 when there is none.
func StatusCode(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// ServiceConfiguration reports an invalid assembly of modules and events.
func ServiceConfiguration(format string, args ...any) *Error {
	return &Error{Kind: KindServiceConfiguration, Message: fmt.Sprintf(format, args...)}
}

// UnknownDependency reports that consumer depends on a name nothing provides.
func UnknownDependency(name, consumer string, cause error) *Error {
	msg := fmt.Sprintf("unknown dependency %q", name)
	if consumer != "" {
		msg = fmt.Sprintf("unknown dependency %q required by %q", name, consumer)
	}
	return &Error{Kind: KindUnknownDependency, Message: msg, Name: name, Cause: cause}
}

// BadRequest reports a malformed request.
func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Message: fmt.Sprintf(format, args...)}
}

// InvalidPayload reports an event payload rejected by its schema. detail
// carries the validator's aggregated error text.
func InvalidPayload(event string, cause error) *Error {
	return &Error{
		Kind:    KindInvalidPayload,
		Message: fmt.Sprintf("invalid payload for event %q", event),
		Name:    event,
		Cause:   cause,
	}
}

// Conflict reports a state conflict.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing named resource.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies cause under kind with a message.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

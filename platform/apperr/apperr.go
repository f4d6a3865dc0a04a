// Package apperr holds the typed errors returned by CRM services. Handlers
// never build status codes themselves; httpkit.HandleError maps the Kind.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindForbidden
	KindUnauthorized
	KindBadRequest
	// KindInternal errors are logged and answered with a generic message.
	KindInternal
)

var statusByKind = map[Kind]int{
	KindNotFound:     http.StatusNotFound,
	KindValidation:   http.StatusBadRequest,
	KindBadRequest:   http.StatusBadRequest,
	KindConflict:     http.StatusConflict,
	KindForbidden:    http.StatusForbidden,
	KindUnauthorized: http.StatusUnauthorized,
}

// Error is a service failure with a client-safe Message.
type Error struct {
	Kind    Kind
	Message string
	Op      string
	Err     error
	Details any
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus is the response code for the error's Kind. Unknown and internal
// kinds map to 500.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithOp records the repository or service operation that failed.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails attaches a JSON-serialisable payload returned next to the message.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

func New(kind Kind, message string) *Error { return &Error{Kind: kind, Message: message} }

// Wrap keeps err in the chain; only message reaches the client.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Validation(message string) *Error   { return New(KindValidation, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func BadRequest(message string) *Error   { return New(KindBadRequest, message) }

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

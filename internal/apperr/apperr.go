// Package apperr classifies request failures into the three kinds the HTTP
// layer knows how to render.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the category of a request failure.
type Kind int

const (
	// KindInternal is an unexpected fault while handling a request.
	KindInternal Kind = iota
	// KindClient is a malformed or unacceptable request.
	KindClient
	// KindNotFound means no route matched.
	KindNotFound
)

// Error is a classified request failure. Message is safe to show clients.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Client returns a 400 error.
func Client(message string, err error) *Error {
	return &Error{Kind: KindClient, Status: http.StatusBadRequest, Message: message, Err: err}
}

// ClientStatus returns a client error with a specific 4xx status.
func ClientStatus(status int, message string, err error) *Error {
	return &Error{Kind: KindClient, Status: status, Message: message, Err: err}
}

// NotFound returns a 404 error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// Internal returns a 500 error wrapping err.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "Internal Server Error", Err: err}
}

// As classifies any error. Errors that are not *Error become internal errors.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// PublicMessage is the text shown to clients. Internal errors only expose
// their cause when verbose is set.
func (e *Error) PublicMessage(verbose bool) string {
	if e.Kind == KindInternal && verbose && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

package classify

import (
	"errors"
	"fmt"
	"slices"
)

// ErrNoResponse marks a transport failure where the request never produced a
// response from the server. Transports wrap it around their own error.
var ErrNoResponse = errors.New("no response from server")

// ResponseError is a structured, non-successful response returned by a remote
// endpoint. Transports return it for any status outside 2xx.
type ResponseError struct {
	StatusCode int
	// Message is an explicit human-readable message supplied by the response.
	Message string
	// FieldErrors, when set, takes precedence over anything parsed from Body.
	FieldErrors map[string][]string
	Body        []byte
}

func (e *ResponseError) Error() string {
	if e == nil {
		return "<nil response>"
	}
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
	}
	if len(e.Body) > 0 {
		return fmt.Sprintf("http %d: %s", e.StatusCode, truncate(string(e.Body), 256))
	}
	return fmt.Sprintf("http %d", e.StatusCode)
}

// Error is a classified failure. Values are immutable once built.
type Error struct {
	kind            Kind
	internalMessage string
	userMessage     string
	fieldErrors     map[string][]string
	httpStatus      int
	cause           error
}

// New builds a classified error of the given kind with the kind's default
// user message.
func New(kind Kind, internalMessage string, cause error) *Error {
	if !kind.Valid() {
		kind = KindUnknown
	}
	return &Error{
		kind:            kind,
		internalMessage: internalMessage,
		userMessage:     kind.DefaultMessage(),
		cause:           cause,
	}
}

// WithUserMessage returns a copy carrying msg as its user message. An empty
// msg leaves the kind's default in place.
func (e *Error) WithUserMessage(msg string) *Error {
	c := *e.orUnknown()
	if msg != "" {
		c.userMessage = msg
	}
	return &c
}

// WithStatus returns a copy tagged with an HTTP status.
func (e *Error) WithStatus(status int) *Error {
	c := *e.orUnknown()
	c.httpStatus = status
	return &c
}

// WithFieldErrors returns a copy carrying field errors. Only VALIDATION
// errors keep them; for any other kind the receiver's copy is returned as is.
func (e *Error) WithFieldErrors(fields map[string][]string) *Error {
	c := *e.orUnknown()
	if c.kind != KindValidation || len(fields) == 0 {
		return &c
	}
	c.fieldErrors = cloneFields(fields)
	return &c
}

// The accessors treat a nil *Error as an UNKNOWN failure.

func (e *Error) Kind() Kind { return e.orUnknown().kind }

func (e *Error) InternalMessage() string { return e.orUnknown().internalMessage }

func (e *Error) UserMessage() string { return e.orUnknown().userMessage }

// FieldErrors returns a copy of the per-field messages, or nil.
func (e *Error) FieldErrors() map[string][]string {
	return cloneFields(e.orUnknown().fieldErrors)
}

// HTTPStatus returns the response status, or 0 when no response was received.
func (e *Error) HTTPStatus() int { return e.orUnknown().httpStatus }

func (e *Error) Retryable() bool { return e.Kind().Retryable() }

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.internalMessage == "" {
		return string(e.kind)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.internalMessage)
}

var nilError = Error{kind: KindUnknown, userMessage: KindUnknown.DefaultMessage()}

func (e *Error) orUnknown() *Error {
	if e == nil {
		return &nilError
	}
	return e
}

func cloneFields(fields map[string][]string) map[string][]string {
	if fields == nil {
		return nil
	}
	out := make(map[string][]string, len(fields))
	for k, v := range fields {
		out[k] = slices.Clone(v)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

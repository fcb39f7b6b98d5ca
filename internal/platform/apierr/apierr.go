// Package apierr carries an HTTP status and a stable machine code alongside
// the underlying error, so services decide the outcome and handlers only
// translate it into the response envelope.
package apierr

import "fmt"

// Error pairs the HTTP status and short snake_case code the intake API
// returns with the wrapped cause.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

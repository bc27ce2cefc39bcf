package apperr

import "fmt"

// Error is the application error carried between services and the HTTP
// layer. Message is user-facing; Cause is the wrapped upstream error.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Unauthenticated(msg string) error {
	return New(CodeUnauthenticated, msg)
}

func Forbidden(msg string) error {
	return New(CodePermissionDenied, msg)
}

// Upstream wraps a store or auth backend error, preserving its message
// verbatim for the response body.
func Upstream(cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: CodeUpstream, Message: cause.Error(), Cause: cause}
}

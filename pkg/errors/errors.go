package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Constructors
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) error {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func InvalidDuration(msg string) error {
	return New(CodeInvalidDuration, msg)
}

func UnauthorizedCaller(msg string) error {
	return New(CodeUnauthorizedCaller, msg)
}

func UnauthorizedSigner(msg string) error {
	return New(CodeUnauthorizedSigner, msg)
}

func BadSignature(msg string) error {
	return New(CodeBadSignature, msg)
}

func NonMonotonicUpdate(msg string) error {
	return New(CodeNonMonotonicUpdate, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func Internal(msg string, cause error) error {
	return &AppError{Code: CodeInternal, Message: msg, Cause: cause}
}

// CodeOf extracts the failure code from err, walking the wrap chain.
// Errors without an AppError in the chain report CodeUnknown.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

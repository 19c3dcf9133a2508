package courier

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind string

const (
	// KindConfiguration is a missing credential or endpoint setting.
	KindConfiguration Kind = "configuration"
	// KindValidation is a rule violation detected before any remote call.
	KindValidation Kind = "validation"
	// KindTransport is a failure of the remote call itself.
	KindTransport Kind = "transport"
)

// Stable validation codes, one per rule category.
const (
	CodeConfiguration       = 100
	CodeMissingData         = 101
	CodeRequiredFields      = 102
	CodeSenderNotSet        = 103
	CodeReferenceTooLong    = 104
	CodeInvalidPayerType    = 105
	CodeInvalidShippingType = 106
	CodeInvalidFileFormat   = 107
	CodeInvalidPageFormat   = 108
	CodeInvalidLabelType    = 109
	CodeFormatMismatch      = 110
	CodeLabelTypeMismatch   = 111
	CodeInvalidDate         = 112
	CodeInvalidTime         = 113
	CodeInvalidPackageID    = 114
	CodeNoSession           = 115
	CodeInvalidDocumentKind = 116
)

// Error is returned by workflow operations. Business failures reported by
// the carrier are not errors; they come back as results with Success=false.
type Error struct {
	Kind    Kind
	Code    int
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (%d): %s", e.Kind, e.Code, e.Message)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind. A target without a code
// matches any code of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == 0 || t.Code == e.Code
}

// WithOp records the operation that produced the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// NewValidationError creates a validation error with the given code.
func NewValidationError(code int, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Code: CodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewTransportError wraps a failed remote call.
func NewTransportError(op string, cause error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: "gateway call failed", Cause: cause}
}

// Sentinels for errors.Is checks by kind.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrTransport     = &Error{Kind: KindTransport}
)

// Code returns the numeric code carried by err, or 0.
func Code(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// Package ctferrors defines the error taxonomy shared by every component of
// ctfmanager, per the error handling design: a fixed set of kinds that the
// gRPC facade maps onto status codes, instead of each package inventing its
// own error type.
package ctferrors

import "fmt"

// Kind classifies an error for the purposes of RPC status mapping and logging.
type Kind string

const (
	BadArgument          Kind = "bad_argument"
	NotFound             Kind = "not_found"
	PermissionDenied     Kind = "permission_denied"
	FailedPrecondition   Kind = "failed_precondition"
	Internal             Kind = "internal"
	ScriptErrorKind      Kind = "script_error"
	PropertyNotSupported Kind = "property_not_supported"
)

// Error is a classified error. Wrap lower-level errors with %w via the
// constructors below so callers can still unwrap to the original cause.
type Error struct {
	kind    Kind
	msg     string
	cause   error
	Subject string // e.g. the unsupported property name, the missing filename
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

func newErr(kind Kind, subject string, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), Subject: subject}
}

func wrapErr(kind Kind, subject string, err error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: err, Subject: subject}
}

func BadArgumentf(format string, args ...any) error {
	return newErr(BadArgument, "", format, args...)
}

func NotFoundf(format string, args ...any) error {
	return newErr(NotFound, "", format, args...)
}

func PermissionDeniedf(format string, args ...any) error {
	return newErr(PermissionDenied, "", format, args...)
}

func FailedPreconditionf(format string, args ...any) error {
	return newErr(FailedPrecondition, "", format, args...)
}

func Internalf(err error, format string, args ...any) error {
	return wrapErr(Internal, "", err, format, args...)
}

func ScriptErrorf(format string, args ...any) error {
	return newErr(ScriptErrorKind, "", format, args...)
}

// NewPropertyNotSupported reports a compose field the translator refuses to
// process, carrying the offending field name for the rejection matrix tests.
func NewPropertyNotSupported(name string) error {
	return newErr(PropertyNotSupported, name, "compose property not supported: %s", name)
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, defaulting to Internal for opaque errors.
func KindOf(err error) Kind {
	var ctfErr *Error
	if asError(err, &ctfErr) {
		return ctfErr.kind
	}
	return Internal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Package apperr defines the client-facing error taxonomy shared by every
// service. Storage errors never cross the service boundary; services wrap
// them into one of these kinds.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInvalidState
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "internal"
	}
}

// Error is a classified error. Code is the stable machine-readable value
// clients branch on; Message is safe to show to users.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so that wrapped copies of a sentinel still compare
// equal with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func newErr(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// NotFound builds an ad-hoc not-found error.
func NotFound(code, msg string) *Error { return newErr(KindNotFound, code, msg) }

// Forbidden builds an ad-hoc forbidden error.
func Forbidden(code, msg string) *Error { return newErr(KindForbidden, code, msg) }

// Conflict builds an ad-hoc conflict error.
func Conflict(code, msg string) *Error { return newErr(KindConflict, code, msg) }

// InvalidInput builds an ad-hoc validation error.
func InvalidInput(msg string) *Error { return newErr(KindInvalidInput, "invalid_input", msg) }

// Internal wraps an unexpected failure. The cause is kept for logging only.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: "internal", Message: "internal error", Err: cause}
}

var (
	ErrInvalidQRCode      = newErr(KindNotFound, "invalid_qr_code", "qr code does not match any session")
	ErrSessionNotActive   = newErr(KindInvalidState, "session_not_active", "session is not open for check-in")
	ErrNotEnrolled        = newErr(KindForbidden, "not_enrolled", "student is not enrolled in this course")
	ErrAlreadyCheckedIn   = newErr(KindConflict, "already_checked_in", "attendance already recorded for this session")
	ErrStudentNotInCourse = newErr(KindInvalidInput, "student_not_in_course", "student is not enrolled in this course")

	ErrCourseNotFound     = newErr(KindNotFound, "course_not_found", "course not found")
	ErrSessionNotFound    = newErr(KindNotFound, "session_not_found", "session not found")
	ErrUserNotFound       = newErr(KindNotFound, "user_not_found", "user not found")
	ErrAttendanceNotFound = newErr(KindNotFound, "attendance_not_found", "attendance record not found")
	ErrEnrollmentNotFound = newErr(KindNotFound, "enrollment_not_found", "enrollment not found")

	ErrDuplicateEnrollment = newErr(KindConflict, "duplicate_enrollment", "student is already enrolled in this course")
	ErrDuplicateCourseCode = newErr(KindConflict, "duplicate_course_code", "course code already exists")
	ErrDuplicateEmail      = newErr(KindConflict, "duplicate_email", "email already registered")

	ErrForbidden = newErr(KindForbidden, "forbidden", "not allowed")
)

// KindOf reports the kind of err, or KindInternal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindInvalidState, KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the code and message that may be sent to a client.
// Unclassified errors collapse to a generic internal error.
func Public(err error) (code, message string) {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Code, e.Message
	}
	return "internal", "internal error"
}

package service

import (
	"errors"

	"github.com/sakashimaa/lesson-booking/internal/repository"
	"github.com/sakashimaa/lesson-booking/pkg/db"
)

var (
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidPhone  = errors.New("invalid phone")
	ErrInvalidItems  = errors.New("invalid items")
	ErrInvalidField  = errors.New("invalid field")
	ErrInvalidType   = errors.New("invalid type")
	ErrUnknownLesson = errors.New("unknown lesson")
)

// Store outcomes are re-exported so callers only need this package.
var (
	ErrInsufficientSpace   = repository.ErrInsufficientSpace
	ErrLessonNotFound      = repository.ErrLessonNotFound
	ErrOrderNotFound       = repository.ErrOrderNotFound
	ErrStoreUnavailable    = repository.ErrStoreUnavailable
	ErrStoreNotInitialized = db.ErrStoreNotInitialized
)

// Error is returned by every rejected service call. It matches its Kind
// and its cause with errors.Is.
type Error struct {
	Kind     error
	Message  string
	Field    string
	LessonID string
	Err      error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil && errors.Is(e.Err, e.Kind) {
		return e.Err.Error()
	}

	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
		if e.LessonID != "" {
			msg += " for lesson " + e.LessonID
		}
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newError(kind error, field, message string) *Error {
	return &Error{Kind: kind, Field: field, Message: message}
}

// storeError reports a failure of the store itself, keeping the cause.
func storeError(err error) *Error {
	return &Error{Kind: ErrStoreUnavailable, Err: err}
}

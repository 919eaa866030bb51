package apperr

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/go-errors/errors"
)

type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindExternalService
	KindPersistence
	KindCrypto
)

func (k Kind) String() string {
	return [...]string{"validation", "not_found", "external_service", "persistence", "crypto"}[k]
}

// Error carries a failure category. Server-fault kinds keep the stack of the wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Stack returns the captured stack trace of the cause, if any.
func (e *Error) Stack() string {
	var ge *goerrors.Error
	if errors.As(e.Err, &ge) {
		return ge.ErrorStack()
	}
	return ""
}

// HTTPStatus maps the failure category onto a response code.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func ExternalService(err error, format string, args ...interface{}) error {
	return wrapWithStack(KindExternalService, err, format, args...)
}

func Persistence(err error, format string, args ...interface{}) error {
	return wrapWithStack(KindPersistence, err, format, args...)
}

func Crypto(err error, format string, args ...interface{}) error {
	return wrapWithStack(KindCrypto, err, format, args...)
}

func wrapWithStack(kind Kind, err error, format string, args ...interface{}) error {
	var cause error
	if err != nil {
		cause = goerrors.Wrap(err, 2)
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf reports the category of err; uncategorized errors count as persistence faults.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindPersistence
}

func Is(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

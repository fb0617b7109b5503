// Package apperr defines the typed errors returned by the ledger and
// reconciliation core. Transport layers map Kind to a response status and
// decide how much of Message to expose.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Machine-readable codes carried by Error.Code.
const (
	CodeNotFound           = "not_found"
	CodeForbiddenRole      = "forbidden_role"
	CodeNotOwner           = "not_owner"
	CodeInactive           = "inactive_account"
	CodeBadCredentials     = "bad_credentials"
	CodeInvalidAmount      = "invalid_amount"
	CodeNoteRequired       = "note_required"
	CodeInvalidDate        = "invalid_date"
	CodeInvalidPaymentMode = "invalid_payment_mode"
	CodeInvalidStatus      = "invalid_status"
	CodeInvalidInput       = "invalid_input"
	CodeOvercollection     = "overcollection"
	CodeDuplicate          = "duplicate"
	CodeDayClosed          = "day_closed"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Field)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, and on Code when the target sets one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrUnauthorized  = &Error{Kind: KindUnauthorized}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrInvalidAmount = &Error{Kind: KindValidation, Code: CodeInvalidAmount}
	ErrNoteRequired  = &Error{Kind: KindValidation, Code: CodeNoteRequired}
)

func NotFound(entity string, id any) *Error {
	return &Error{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s %v not found", entity, id),
	}
}

func Unauthorized(code, message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: code, Message: message}
}

func Validation(code, field, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Field: field, Message: message}
}

func Conflict(code, message string, err error) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message, Err: err}
}

// KindOf reports the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

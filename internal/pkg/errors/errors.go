// Package errors provides the classified error kinds raised while deploying a chain.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a deployment failure.
type Kind string

const (
	KindValidation    Kind = "validation_error"
	KindAllowance     Kind = "allowance_error"
	KindTransaction   Kind = "transaction_error"
	KindReceiptDecode Kind = "receipt_decode_error"
	KindPersistence   Kind = "persistence_error"
)

// Error is a classified error with an optional offending field and cause.
type Error struct {
	Kind    Kind   `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. This lets callers
// match the sentinels below with errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithField returns a copy of the error naming the offending field.
func (e *Error) WithField(field string) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Field: field, Err: e.Err}
}

// Sentinels for errors.Is.
var (
	// ErrValidation is returned for malformed or missing input. Nothing was sent on-chain.
	ErrValidation = &Error{Kind: KindValidation, Message: "validation failed"}

	// ErrAllowance is returned when the custom fee token approval could not be confirmed.
	ErrAllowance = &Error{Kind: KindAllowance, Message: "custom fee token approval failed"}

	// ErrTransaction is returned when the chain creation transaction failed or reverted.
	ErrTransaction = &Error{Kind: KindTransaction, Message: "transaction failed"}

	// ErrReceiptDecode is returned when a confirmed receipt lacks the expected events.
	ErrReceiptDecode = &Error{Kind: KindReceiptDecode, Message: "could not decode deployment receipt"}

	// ErrPersistence is returned when derived artifacts could not be stored.
	ErrPersistence = &Error{Kind: KindPersistence, Message: "failed to persist artifacts"}
)

// NewValidationError creates a validation error for a specific field.
func NewValidationError(field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: message,
		Field:   field,
	}
}

// Wrap classifies err under kind with a message.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FieldOf returns the offending field of the first classified error in err's chain.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

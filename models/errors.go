package models

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// ErrValidation is raised before any network call and never retried.
	ErrValidation ErrorKind = "validation"
	// ErrTransport covers network failures and non-2xx responses; the
	// documented recovery is a full refetch.
	ErrTransport ErrorKind = "transport"
	// ErrLogical is a success:false payload inside an otherwise-200
	// response; reconciled like a transport error, message shown verbatim.
	ErrLogical ErrorKind = "logical"
	// ErrDesync means the backend accepted a change but a verification
	// read shows it was not applied.
	ErrDesync ErrorKind = "desync"
)

// SyncError is the outcome type for every failed mutation path in the
// reconcilers. Reconcilers never panic past their boundary; they return
// one of these.
type SyncError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

func NewValidationError(format string, args ...interface{}) *SyncError {
	return &SyncError{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NewTransportError(message string, cause error) *SyncError {
	return &SyncError{Kind: ErrTransport, Message: message, Cause: cause}
}

func NewLogicalError(message string) *SyncError {
	return &SyncError{Kind: ErrLogical, Message: message}
}

func NewDesyncError(format string, args ...interface{}) *SyncError {
	return &SyncError{Kind: ErrDesync, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies any error; non-SyncError values count as transport.
func KindOf(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrTransport
}

package errors

import "fmt"

var (
	// ErrProtocol covers undecodable wire data and unknown envelope types.
	// It is fatal to the offending connection only.
	ErrProtocol = fmt.Errorf("protocol violation")

	// ErrDuplicateConnection is returned when a connection id is already
	// registered in the target room.
	ErrDuplicateConnection = fmt.Errorf("connection already registered in room")

	ErrInvalidUsername = fmt.Errorf("username must be 2 to 20 characters after trim")
	ErrJoinTimeout     = fmt.Errorf("no join received before deadline")
	ErrAlreadyJoined   = fmt.Errorf("connection already joined a room")
	ErrSendTimeout     = fmt.Errorf("send timed out")
	ErrQueueFull       = fmt.Errorf("outbound queue full")
	ErrClosed          = fmt.Errorf("connection closed")
	ErrEmptyWords      = fmt.Errorf("no words have been found")
	ErrWorkerPanic     = fmt.Errorf("worker panic")
)

// ValidationError rejects one envelope without closing the connection.
// The offending sender gets an error envelope; nobody else sees anything.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) ValidationError {
	return ValidationError{Field: field, Reason: reason}
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a store failure. It is surfaced to the message
// author only; the broadcast it would have caused never happens.
type PersistenceError struct {
	Op  string
	Err error
}

func (e PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e PersistenceError) Unwrap() error {
	return e.Err
}

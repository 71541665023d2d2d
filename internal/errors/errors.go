package errors

import stderrors "errors"

var (
	// ErrNotFound is returned when a batch, item or outbox entry does not exist.
	ErrNotFound = stderrors.New("not found")
	// ErrAlreadyDecided is returned when a batch has already left PENDING_REVIEW.
	ErrAlreadyDecided = stderrors.New("batch already decided")
)

type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Field + ": " + e.Message
}

// ErrConfig reports a missing or invalid configuration value. It is fatal at startup.
type ErrConfig struct {
	Key     string
	Message string
}

func (e *ErrConfig) Error() string {
	return "config " + e.Key + ": " + e.Message
}

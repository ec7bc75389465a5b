package queue

import "errors"

var (
	// ErrHandlerRequired is returned when a task handler is not provided.
	ErrHandlerRequired = errors.New("task handler required")

	// ErrQueueClosed is returned when enqueueing to a stopped queue.
	ErrQueueClosed = errors.New("queue closed")

	// ErrQueueFull is returned when the pending buffer is at capacity.
	ErrQueueFull = errors.New("queue full")

	// ErrTaskNotFound is returned when a task ID is unknown to the queue.
	ErrTaskNotFound = errors.New("task not found")
)

// permanentError marks a task failure that retrying cannot fix, such as a
// document with no content or an embedding of the wrong dimension.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the queue fails the task immediately instead of
// retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

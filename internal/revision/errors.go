package revision

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both missing rows and rows the caller is not allowed
	// to see; callers cannot distinguish the two.
	ErrNotFound = errors.New("revision: not found")

	ErrInvalidState = errors.New("revision: operation not valid in current state")

	// ErrConflict means a concurrent writer won the race; the caller should
	// re-read and retry if still relevant.
	ErrConflict = errors.New("revision: concurrent update conflict")
)

// ValidationError reports which field failed and why, so the presentation
// layer can show a specific message.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("revision: invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError reports a status change not permitted from the
// revision's current status.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("revision: transition %s -> %s not allowed", e.From, e.To)
}

// StorageError wraps a blob-storage failure. It aborts the enclosing
// operation so no row ends up referencing bytes that were never persisted.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("revision: storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a host record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTransport covers network, HTTP and API failures of the generation call.
	ErrTransport = errors.New("generation transport failure")
	// ErrMissingCredential aborts a batch pass before any card is touched.
	ErrMissingCredential = errors.New("missing api key")
	// ErrPersistence marks a failed write to the host collection.
	ErrPersistence = errors.New("persistence failure")
	// ErrPrecondition marks malformed notes, e.g. an answer list shorter
	// than the practice set.
	ErrPrecondition = errors.New("precondition violation")
)

// PersistenceError records which note a failed host write belonged to.
type PersistenceError struct {
	NoteID int64
	Op     string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s note %d: %v", e.Op, e.NoteID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes every PersistenceError match ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

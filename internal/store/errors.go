package store

import (
	"errors"
	"fmt"
)

// ErrNotFound matches every *NotFoundError via errors.Is.
var ErrNotFound = errors.New("not found")

// ErrInvalidated is returned by mutations after Invalidate.
var ErrInvalidated = errors.New("store invalidated")

// NotFoundError reports a patch that targeted a missing record.
type NotFoundError struct {
	// Entity is "comment", "post" or "community".
	Entity string
	// ID is the comment id for comment patches, zero otherwise.
	ID int64
}

func (e *NotFoundError) Error() string {
	if e.Entity == "comment" {
		return fmt.Sprintf("comment %d not found", e.ID)
	}
	return fmt.Sprintf("%s not found", e.Entity)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFound returns true if err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

package paginator

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCollection is returned by Start when the source has no pages.
	// Callers show their own "nothing to show" message instead.
	ErrEmptyCollection = errors.New("paginator: nothing to paginate")

	// ErrPermission is returned by a Surface when the platform refuses the
	// operation for lack of permissions.
	ErrPermission = errors.New("paginator: missing permission")

	// ErrManagerClosed is returned by Start after Shutdown.
	ErrManagerClosed = errors.New("paginator: manager is shut down")
)

// OutOfRangeError reports a page index outside [0, Count).
type OutOfRangeError struct {
	Index int
	Count int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("paginator: page %d out of range [0, %d)", e.Index, e.Count)
}

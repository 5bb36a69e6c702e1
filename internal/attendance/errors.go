package attendance

import (
	"errors"
	"fmt"
)

var (
	ErrNotAssigned     = errors.New("teacher is not assigned to this slot")
	ErrWrongDate       = errors.New("token is for another date")
	ErrAlreadyMarked   = errors.New("attendance already marked for this session")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDuplicate is returned by repositories when the (slot, teacher, date) key already exists.
	ErrDuplicate = errors.New("duplicate attendance record")
)

// AlreadyMarkedError carries the record that won the race so callers can show it.
type AlreadyMarkedError struct {
	Record Record
}

func (e *AlreadyMarkedError) Error() string {
	return fmt.Sprintf("%s (%s at %s)", ErrAlreadyMarked, e.Record.Status, e.Record.MarkedAt.Format("15:04:05"))
}

func (e *AlreadyMarkedError) Is(target error) bool { return target == ErrAlreadyMarked }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

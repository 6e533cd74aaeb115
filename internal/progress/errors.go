package progress

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks caller mistakes; the HTTP layer maps it to 400.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound signals the singleton document has not been initialized yet.
	ErrNotFound = errors.New("progress document not found")

	// ErrInvalidCategory is returned for a category outside the tracked set.
	ErrInvalidCategory = fmt.Errorf("%w: unknown category", ErrInvalidArgument)
	// ErrInvalidValue is returned for a delta that is not a finite number.
	ErrInvalidValue = fmt.Errorf("%w: value must be a finite number", ErrInvalidArgument)
)

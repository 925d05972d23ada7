package engine

import (
	"errors"
	"fmt"
)

// ErrBadInput is the base class for caller-contract violations. Malformed or
// missing data inside a dataset never raises; it degrades to zero. Any error
// returned by the engine means the caller built the request wrong, not that
// there was no data.
var ErrBadInput = errors.New("bad input")

var (
	ErrInvalidWindow      = fmt.Errorf("%w: malformed reporting window", ErrBadInput)
	ErrInvalidGranularity = fmt.Errorf("%w: granularity must be daily, weekly or monthly", ErrBadInput)
	ErrInvalidPageSize    = fmt.Errorf("%w: page size must not be negative", ErrBadInput)
	ErrInvalidStatus      = fmt.Errorf("%w: unknown status filter", ErrBadInput)
	ErrInvalidSortKey     = fmt.Errorf("%w: unknown sort key", ErrBadInput)
)

// IsBadInput reports whether err is a caller-contract violation.
func IsBadInput(err error) bool {
	return errors.Is(err, ErrBadInput)
}

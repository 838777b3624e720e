package growth

import (
	"errors"
	"fmt"
	"time"
)

// ErrDivision is returned for a zero-length window or a zero baseline value.
var ErrDivision = errors.New("growth: division by zero")

// LookupError reports a window date with no exact observation. There is no
// interpolation.
type LookupError struct {
	Date time.Time
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("growth: no observation on %s", e.Date.Format(time.DateOnly))
}

// GapError reports consecutive observations that are not one calendar day
// apart, which would misalign a positional day-over-day rate.
type GapError struct {
	After time.Time
	Next  time.Time
}

func (e *GapError) Error() string {
	return fmt.Sprintf("growth: series is not daily: %s is followed by %s",
		e.After.Format(time.DateOnly), e.Next.Format(time.DateOnly))
}

package core

import (
	"fmt"
	"time"
)

// Range is an availability span [start, end] in index units of one zoom level.
// Endpoints are real numbers; start <= end.
type Range [2]float64

// Start returns the lower bound.
func (r Range) Start() float64 { return r[0] }

// End returns the upper bound.
func (r Range) End() float64 { return r[1] }

// Interval is a span of time.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

// IsValid reports whether Start is not after End.
func (i Interval) IsValid() bool { return !i.Start.After(i.End) }

func (i Interval) String() string {
	return fmt.Sprintf("%s .. %s", FormatFragment(i.Start), FormatFragment(i.End))
}

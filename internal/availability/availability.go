// Package availability answers data-availability queries against a layer's
// per-zoom ranges. Ranges are expressed in index units; an instant t maps to
// index x = (t - origin) / width, where width is the zoom level's
// milliseconds per index unit.
package availability

import (
	"math"
	"sort"
	"time"

	"github.com/ccviewer/navigator/pkg/core"
)

// Index is the set of ranges for one layer at one zoom level, with the
// profile metadata needed to convert between time and index units.
type Index struct {
	OriginMs float64
	Width    float64
	Ranges   []core.Range
}

// New builds an Index for zoom z of the given table. It returns an empty
// Index when the zoom is undefined in the profile or the table has no entry.
func New(profile *core.Profile, table core.AvailabilityTable, z int) Index {
	if profile == nil {
		return Index{}
	}
	width, ok := profile.ZoomWidth(z)
	if !ok {
		return Index{}
	}
	return Index{
		OriginMs: profile.OriginMs(),
		Width:    width,
		Ranges:   table[z],
	}
}

// Empty reports whether the index has no ranges or no usable width.
func (ix Index) Empty() bool {
	return len(ix.Ranges) == 0 || ix.Width == 0
}

// ToIndex converts t to index units.
func (ix Index) ToIndex(t time.Time) float64 {
	return (epochMs(t) - ix.OriginMs) / ix.Width
}

// ToTime converts an index position back to a UTC instant.
func (ix Index) ToTime(x float64) time.Time {
	ms := ix.OriginMs + x*ix.Width
	return time.Unix(0, int64(math.Round(ms*float64(time.Millisecond)))).UTC()
}

// IsAvailable reports whether any range touches [start, end]. Bounds are closed:
// a range that only meets the query at one endpoint counts.
func (ix Index) IsAvailable(start, end time.Time) bool {
	if ix.Empty() {
		return false
	}
	x1 := ix.ToIndex(start)
	x2 := ix.ToIndex(end)

	for _, r := range ix.Ranges {
		if r[0] >= x1 && r[0] <= x2 {
			return true
		}
		if r[1] >= x1 && r[1] <= x2 {
			return true
		}
		if r[0] <= x1 && r[1] >= x2 {
			return true
		}
	}
	return false
}

// Between returns the parts of [start, end] covered by each range, in range
// order. Each range is tested against four cases and contributes one pair per
// case that holds:
//
//	range contains query      -> [start, end]
//	query contains range      -> [rangeStart, rangeEnd]
//	range covers start        -> [start, rangeEnd]
//	range covers end          -> [rangeStart, end]
//
// The cases are not exclusive, so a range containing the query yields three
// pairs. Use Merge to collapse the result.
func (ix Index) Between(start, end time.Time) []core.Interval {
	if ix.Empty() {
		return nil
	}
	x1 := ix.ToIndex(start)
	x2 := ix.ToIndex(end)

	var intervals []core.Interval
	for _, r := range ix.Ranges {
		t1 := ix.ToTime(r[0])
		t2 := ix.ToTime(r[1])

		if r[0] <= x1 && r[1] >= x2 {
			intervals = append(intervals, core.Interval{Start: start, End: end})
		}
		if r[0] >= x1 && r[1] <= x2 {
			intervals = append(intervals, core.Interval{Start: t1, End: t2})
		}
		if r[0] <= x1 && r[1] >= x1 {
			intervals = append(intervals, core.Interval{Start: start, End: t2})
		}
		if r[0] <= x2 && r[1] >= x2 {
			intervals = append(intervals, core.Interval{Start: t1, End: end})
		}
	}
	return intervals
}

// Merge sorts intervals and unions those that overlap or touch. The input is
// not modified.
func Merge(intervals []core.Interval) []core.Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]core.Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []core.Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// YearWindow returns [Jan 1 of year, Jan 1 of year+1] in UTC.
func YearWindow(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// MonthWindow returns the UTC window covering one calendar month.
func MonthWindow(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// DayWindow returns the UTC window covering one calendar day.
func DayWindow(year int, month time.Month, day int) (time.Time, time.Time) {
	start := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func epochMs(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

package navigation

import (
	"time"

	"github.com/ccviewer/navigator/internal/availability"
	"github.com/ccviewer/navigator/pkg/core"
)

// index snapshots the active layer's ranges at the current zoom.
func (n *Navigator) index() availability.Index {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.layer == nil {
		return availability.Index{}
	}
	table, ok := n.layer.Availability.Value()
	if !ok {
		return availability.Index{}
	}
	return availability.New(n.profile, table, n.zoom)
}

// GetAvailability returns the active layer's ranges at the current zoom. It is
// empty when no layer is active, its availability is still unresolved, or the
// table has no entry for the zoom.
func (n *Navigator) GetAvailability() []core.Range {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.layer == nil {
		return []core.Range{}
	}
	table, ok := n.layer.Availability.Value()
	if !ok || len(table[n.zoom]) == 0 {
		return []core.Range{}
	}
	return table[n.zoom]
}

// IsAvailable reports whether the active layer has data touching [start, end]
// at the current zoom.
func (n *Navigator) IsAvailable(start, end time.Time) bool {
	return n.index().IsAvailable(start, end)
}

// AvailableBetween returns the covered parts of [start, end], one or more
// pairs per overlapping range. See availability.Index.Between.
func (n *Navigator) AvailableBetween(start, end time.Time) []core.Interval {
	return n.index().Between(start, end)
}

// IsAvailableYear reports whether any data exists in the given UTC year.
func (n *Navigator) IsAvailableYear(year int) bool {
	return n.IsAvailable(availability.YearWindow(year))
}

// IsAvailableMonth reports whether any data exists in the given UTC month.
func (n *Navigator) IsAvailableMonth(year int, month time.Month) bool {
	return n.IsAvailable(availability.MonthWindow(year, month))
}

// IsAvailableDay reports whether any data exists on the given UTC day.
func (n *Navigator) IsAvailableDay(year int, month time.Month, day int) bool {
	return n.IsAvailable(availability.DayWindow(year, month, day))
}

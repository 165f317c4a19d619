package core

import (
	"fmt"
	"strings"
	"time"
)

// FragmentLayout is the location fragment encoding of an instant, always UTC.
// Example: 2016-Jan-15,00:00:00
const FragmentLayout = "2006-Jan-02,15:04:05"

// FormatFragment encodes t in UTC.
func FormatFragment(t time.Time) string {
	return t.UTC().Format(FragmentLayout)
}

// ParseFragment decodes a location fragment as a UTC instant. A leading '#' is tolerated.
func ParseFragment(s string) (time.Time, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return time.Time{}, fmt.Errorf("fragment is empty")
	}
	t, err := time.ParseInLocation(FragmentLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing fragment %q: %w", s, err)
	}
	return t, nil
}

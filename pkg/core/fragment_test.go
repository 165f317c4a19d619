package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFragment(t *testing.T) {
	ts := time.Date(2016, time.January, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2016-Jan-15,00:00:00", FormatFragment(ts))
}

func TestFormatFragment_ConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2016, time.January, 15, 1, 30, 0, 0, loc)
	assert.Equal(t, "2016-Jan-14,23:30:00", FormatFragment(ts))
}

func TestParseFragment(t *testing.T) {
	got, err := ParseFragment("2016-Jan-15,12:34:56")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2016, time.January, 15, 12, 34, 56, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestParseFragment_LeadingHash(t *testing.T) {
	got, err := ParseFragment("#2010-Dec-31,23:59:59")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2010, time.December, 31, 23, 59, 59, 0, time.UTC), got)
}

func TestParseFragment_Invalid(t *testing.T) {
	for _, s := range []string{"", "#", "garbage", "2016-01-15,00:00:00", "2016-Jan-32,00:00:00", "2016-Jan-15"} {
		_, err := ParseFragment(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestFragment_RoundTrip(t *testing.T) {
	for _, s := range []string{
		"2016-Jan-15,00:00:00",
		"1999-Feb-28,13:07:01",
		"2024-Feb-29,23:59:59",
		"2006-Sep-01,08:00:30",
	} {
		ts, err := ParseFragment(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatFragment(ts))
	}
}

func TestInterval(t *testing.T) {
	start := time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)
	i := Interval{Start: start, End: start.Add(time.Hour)}
	assert.True(t, i.IsValid())
	assert.Equal(t, time.Hour, i.Duration())
	assert.Equal(t, "2016-Jan-01,00:00:00 .. 2016-Jan-01,01:00:00", i.String())

	assert.False(t, Interval{Start: i.End, End: i.Start}.IsValid())
}

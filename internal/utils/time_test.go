package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	day, err := ParseDate("2024-07-01")
	require.NoError(t, err)

	y, m, d := day.Date()
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.July, m)
	assert.Equal(t, 1, d)
	assert.Equal(t, Location(), day.Location())

	_, err = ParseDate("not-a-date")
	assert.Error(t, err)
}

func TestDayBounds(t *testing.T) {
	at := time.Date(2024, time.July, 1, 15, 42, 7, 0, Location())
	start, end := DayBounds(at)

	assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, Location()), start)
	assert.Equal(t, time.Date(2024, time.July, 2, 0, 0, 0, 0, Location()), end)
	assert.True(t, start.Before(at) && at.Before(end))
}

func TestFormatDisplay(t *testing.T) {
	at := time.Date(2024, time.July, 1, 9, 5, 3, 0, Location())
	assert.Equal(t, "2024-07-01 09:05:03", FormatDisplay(at))
}

func TestSameDay(t *testing.T) {
	morning := time.Date(2024, time.July, 1, 0, 0, 1, 0, Location())
	night := time.Date(2024, time.July, 1, 23, 59, 59, 0, Location())
	next := time.Date(2024, time.July, 2, 0, 0, 0, 0, Location())

	assert.True(t, SameDay(morning, night))
	assert.False(t, SameDay(night, next))
}

func TestNowUsesReferenceZone(t *testing.T) {
	assert.Equal(t, Location().String(), Now().Location().String())
}

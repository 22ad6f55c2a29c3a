package utils

import (
	"time"

	"github.com/araddon/dateparse"
)

// All timestamps in the system are civil datetimes in a single reference
// timezone. The deployment region does not observe DST, but a named zone is
// used instead of fixed offset arithmetic so a zone rule change cannot
// silently shift stored history.
const referenceZone = "America/Sao_Paulo"

const displayLayout = "2006-01-02 15:04:05"

var location = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation(referenceZone)
	if err != nil {
		// tzdata missing from the image; the region is permanently UTC-3.
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
}

// Location returns the reference timezone every timestamp is interpreted in.
func Location() *time.Location {
	return location
}

// Now returns the current time in the reference timezone.
func Now() time.Time {
	return time.Now().In(location)
}

// FormatDisplay renders a timestamp the way the dashboard shows it.
func FormatDisplay(t time.Time) string {
	return t.In(location).Format(displayLayout)
}

// ParseDate parses a calendar-date query parameter ("2024-07-01" and most
// other unambiguous formats) in the reference timezone.
func ParseDate(datestr string) (time.Time, error) {
	t, err := dateparse.ParseIn(datestr, location)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// DayBounds returns the half-open [start, end) range covering the calendar
// date of t in the reference timezone.
func DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.In(location)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, location)
	return start, start.AddDate(0, 0, 1)
}

// SameDay reports whether two timestamps fall on the same calendar date in
// the reference timezone.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(location).Date()
	by, bm, bd := b.In(location).Date()
	return ay == by && am == bm && ad == bd
}

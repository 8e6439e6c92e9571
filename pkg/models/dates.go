package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006",
}

// ParseDate parses the date formats providers publish and truncates the result to a UTC
// calendar day. An empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	// Wikidata prefixes dates with a sign ("+1960-03-02T00:00:00Z")
	s = strings.TrimPrefix(s, "+")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := Day(t)
			return &d, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", s)
}

// Day truncates t to midnight UTC of its calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date builds a UTC calendar day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DatePtr is Date returning a pointer, handy for optional fields
func DatePtr(year int, month time.Month, day int) *time.Time {
	d := Date(year, month, day)
	return &d
}

// DaysApart returns the absolute number of calendar days between a and b
func DaysApart(a, b time.Time) int {
	hours := Day(a).Sub(Day(b)).Hours()
	return int(math.Round(math.Abs(hours) / 24))
}

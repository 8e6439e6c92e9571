package mandates

import (
	"time"

	"github.com/Ramsey-B/iris/pkg/models"
)

// First renewal year of each senate series under the six-year terms
var seriesStart = map[int]int{
	1: 2011,
	2: 2014,
}

const renewalCycleYears = 6

// RenewalDate returns the senate election day of year: the last Sunday of September
func RenewalDate(year int) time.Time {
	d := models.Date(year, time.September, 30)
	for d.Weekday() != time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// NextRenewal returns the first renewal of series strictly after after. It returns
// false for an unknown series.
func NextRenewal(series int, after time.Time) (time.Time, bool) {
	first, ok := seriesStart[series]
	if !ok {
		return time.Time{}, false
	}
	after = models.Day(after)
	for year := first; ; year += renewalCycleYears {
		if d := RenewalDate(year); d.After(after) {
			return d, true
		}
	}
}

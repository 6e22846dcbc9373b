package report

import "time"

// LastFullMonth returns the previous calendar month in loc as a half-open
// range [start, end).
func LastFullMonth(now time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	end = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	start = end.AddDate(0, -1, 0)
	return start, end
}

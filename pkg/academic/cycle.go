// Package academic implements the fixed accrual calendar: a cycle starts on
// July 1, points can be earned until November 30, and the cycle closes on
// June 30 of the following calendar year.
package academic

import "time"

const (
	cycleStartMonth  = time.July
	windowCloseMonth = time.November
	windowCloseDay   = 30
)

// CycleYear returns the accrual-cycle year that now falls into
func CycleYear(now time.Time) int {
	if now.Month() < cycleStartMonth {
		return now.Year() - 1
	}
	return now.Year()
}

// CycleStart returns July 1 00:00:00 of the cycle year
func CycleStart(year int, loc *time.Location) time.Time {
	return time.Date(year, cycleStartMonth, 1, 0, 0, 0, 0, loc)
}

// CycleEnd returns June 30 23:59:59 of the calendar year after the cycle year
func CycleEnd(year int, loc *time.Location) time.Time {
	return time.Date(year+1, time.June, 30, 23, 59, 59, 0, loc)
}

// WindowClose returns November 30 23:59:59 of the given year, the point-earning cutoff
func WindowClose(year int, loc *time.Location) time.Time {
	return time.Date(year, windowCloseMonth, windowCloseDay, 23, 59, 59, 0, loc)
}

// InEarningWindow reports whether now is between July 1 and November 30 inclusive
func InEarningWindow(now time.Time) bool {
	year := CycleYear(now)
	return !now.Before(CycleStart(year, now.Location())) && !now.After(WindowClose(year, now.Location()))
}

// PointExpiry returns the expiry of a point earned at now. Points earned in
// the earning window all expire at November 30 of the cycle year; points
// approved after the window closed carry over to the next cutoff.
func PointExpiry(now time.Time) time.Time {
	year := CycleYear(now)
	if !InEarningWindow(now) {
		year++
	}
	return WindowClose(year, now.Location())
}

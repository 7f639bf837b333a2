package tasks

import "time"

// MondayIndex converts time.Weekday (Sunday=0) to the configuration
// convention where Monday=0 and Sunday=6.
func MondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// NextDaily returns the next occurrence of hour:minute strictly after now,
// in now's location. An occurrence exactly at now rolls to tomorrow.
func NextDaily(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextWeekly returns the next occurrence of hour:minute on the given weekday
// (Monday=0 convention) strictly after now. When today is the target weekday
// and the time of day is at or past hour:minute, the run rolls a full week.
func NextWeekly(now time.Time, weekday, hour, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	ahead := (weekday - MondayIndex(now.Weekday()) + 7) % 7
	if ahead == 0 && !target.After(now) {
		ahead = 7
	}
	return target.AddDate(0, 0, ahead)
}

// ReportWindow returns the 24-hour reporting window ending at today's
// configured boundary. The scheduled loop wakes just past the boundary and
// reports on the day that ended; an on-demand request earlier in the day
// gets the window ending at the upcoming boundary, i.e. everything resolved
// up to now. Deriving the window from the configured time instead of the
// wake instant keeps consecutive windows contiguous regardless of scheduling
// drift.
func ReportWindow(now time.Time, hour, minute int) (start, end time.Time) {
	end = time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	start = end.AddDate(0, 0, -1)
	return start, end
}

// bugRetry implements the bug-loop escalation: short, linearly growing
// sleeps for transient errors, then a long cool-off of twice the refresh
// interval once failures pile up.
func bugRetry(interval time.Duration, failures int) time.Duration {
	if failures >= 5 {
		return min(2*interval, time.Hour)
	}
	return min(time.Duration(failures)*time.Minute, 10*time.Minute)
}

// reportRetry is the gentler backoff shared by the report and leaderboard
// loops, capped at fifteen minutes.
func reportRetry(failures int) time.Duration {
	return min(time.Duration(failures)*time.Minute, 15*time.Minute)
}

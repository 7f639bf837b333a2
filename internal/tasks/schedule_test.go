package tasks

import (
	"testing"
	"time"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func TestMondayIndex(t *testing.T) {
	cases := map[time.Weekday]int{
		time.Monday:    0,
		time.Tuesday:   1,
		time.Wednesday: 2,
		time.Thursday:  3,
		time.Friday:    4,
		time.Saturday:  5,
		time.Sunday:    6,
	}
	for wd, want := range cases {
		if got := MondayIndex(wd); got != want {
			t.Errorf("MondayIndex(%v) = %d, want %d", wd, got, want)
		}
	}
}

func TestNextDaily(t *testing.T) {
	tests := []struct {
		name string
		now  string
		h, m int
		want string
	}{
		{"before boundary", "2026-03-02 10:00:00", 21, 37, "2026-03-02 21:37:00"},
		{"after boundary", "2026-03-02 22:00:00", 21, 37, "2026-03-03 21:37:00"},
		{"exactly at boundary rolls", "2026-03-02 21:37:00", 21, 37, "2026-03-03 21:37:00"},
		{"one second before", "2026-03-02 21:36:59", 21, 37, "2026-03-02 21:37:00"},
		{"month rollover", "2026-03-31 23:00:00", 9, 0, "2026-04-01 09:00:00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NextDaily(date(t, tc.now), tc.h, tc.m)
			if want := date(t, tc.want); !got.Equal(want) {
				t.Errorf("NextDaily = %v, want %v", got, want)
			}
		})
	}
}

func TestNextWeekly(t *testing.T) {
	// 2026-03-02 is a Monday.
	tests := []struct {
		name    string
		now     string
		weekday int
		h, m    int
		want    string
	}{
		{"later this week", "2026-03-02 10:00:00", 3, 21, 37, "2026-03-05 21:37:00"},
		{"earlier weekday wraps", "2026-03-05 10:00:00", 1, 21, 37, "2026-03-10 21:37:00"},
		{"same day before time", "2026-03-03 10:00:00", 1, 21, 37, "2026-03-03 21:37:00"},
		{"same day at time rolls a week", "2026-03-03 21:37:00", 1, 21, 37, "2026-03-10 21:37:00"},
		{"same day past time rolls a week", "2026-03-03 22:00:00", 1, 21, 37, "2026-03-10 21:37:00"},
		{"sunday target", "2026-03-02 10:00:00", 6, 12, 0, "2026-03-08 12:00:00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NextWeekly(date(t, tc.now), tc.weekday, tc.h, tc.m)
			if want := date(t, tc.want); !got.Equal(want) {
				t.Errorf("NextWeekly = %v, want %v", got, want)
			}
		})
	}
}

func TestReportWindow(t *testing.T) {
	tests := []struct {
		name               string
		now                string
		h, m               int
		wantStart, wantEnd string
	}{
		{"just past boundary", "2026-03-02 21:37:04", 21, 37, "2026-03-01 21:37:00", "2026-03-02 21:37:00"},
		{"on-demand before boundary", "2026-03-02 10:00:00", 21, 37, "2026-03-01 21:37:00", "2026-03-02 21:37:00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, end := ReportWindow(date(t, tc.now), tc.h, tc.m)
			if want := date(t, tc.wantStart); !start.Equal(want) {
				t.Errorf("start = %v, want %v", start, want)
			}
			if want := date(t, tc.wantEnd); !end.Equal(want) {
				t.Errorf("end = %v, want %v", end, want)
			}
			if end.Sub(start) != 24*time.Hour {
				t.Errorf("window length = %v, want 24h", end.Sub(start))
			}
		})
	}
}

func TestBugRetry(t *testing.T) {
	interval := 5 * time.Minute
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{4, 4 * time.Minute},
		{5, 10 * time.Minute}, // 2*interval
		{9, 10 * time.Minute},
	}
	for _, tc := range tests {
		if got := bugRetry(interval, tc.failures); got != tc.want {
			t.Errorf("bugRetry(%v, %d) = %v, want %v", interval, tc.failures, got, tc.want)
		}
	}
	// Linear ramp is capped at ten minutes even before escalation.
	if got := bugRetry(time.Hour, 4); got != 4*time.Minute {
		t.Errorf("bugRetry(1h, 4) = %v, want 4m", got)
	}
	// Escalated sleep is capped at one hour.
	if got := bugRetry(2*time.Hour, 5); got != time.Hour {
		t.Errorf("bugRetry(2h, 5) = %v, want 1h", got)
	}
}

func TestReportRetry(t *testing.T) {
	if got := reportRetry(1); got != time.Minute {
		t.Errorf("reportRetry(1) = %v", got)
	}
	if got := reportRetry(14); got != 14*time.Minute {
		t.Errorf("reportRetry(14) = %v", got)
	}
	if got := reportRetry(40); got != 15*time.Minute {
		t.Errorf("reportRetry(40) = %v, want cap 15m", got)
	}
}

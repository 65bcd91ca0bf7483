package calendar

import (
	"testing"
	"time"

	"skaila.com/gamification/internal/entity"
)

func rome(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestDateKeyUsesPlatformZone(t *testing.T) {
	cal := New(rome(t))
	// 23:30 UTC on Oct 16 is already Oct 17 in Rome (UTC+2 in summer time).
	ts := time.Date(2026, 10, 16, 23, 30, 0, 0, time.UTC)
	if got := cal.DateKey(ts); got != "2026-10-17" {
		t.Errorf("DateKey = %s, want 2026-10-17", got)
	}
	start := cal.StartOfDay(ts)
	if got := start.In(time.UTC); !got.Equal(time.Date(2026, 10, 16, 22, 0, 0, 0, time.UTC)) {
		t.Errorf("StartOfDay = %v, want 22:00 UTC", got)
	}
}

func TestNextDayAcrossDST(t *testing.T) {
	cal := New(rome(t))
	// Oct 25 2026 is the fall-back day in Rome: 25 hours long.
	ts := time.Date(2026, 10, 25, 12, 0, 0, 0, cal.Location())
	if d := cal.NextDay(ts).Sub(cal.StartOfDay(ts)); d != 25*time.Hour {
		t.Errorf("day length = %v, want 25h", d)
	}
}

func TestWeekStartAndKey(t *testing.T) {
	cal := New(time.UTC)
	tests := []struct {
		at        time.Time
		wantStart time.Time
		wantKey   string
	}{
		{time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), "2026-W42"},
		{time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), "2026-W42"},
		{time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC), time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), "2026-W42"},
		{time.Date(2027, 1, 1, 10, 0, 0, 0, time.UTC), time.Date(2026, 12, 28, 0, 0, 0, 0, time.UTC), "2026-W53"},
	}
	for _, tt := range tests {
		if got := cal.WeekStart(tt.at); !got.Equal(tt.wantStart) {
			t.Errorf("WeekStart(%v) = %v, want %v", tt.at, got, tt.wantStart)
		}
		if got := cal.WeekKey(tt.at); got != tt.wantKey {
			t.Errorf("WeekKey(%v) = %s, want %s", tt.at, got, tt.wantKey)
		}
	}
}

func TestPeriodKey(t *testing.T) {
	cal := New(time.UTC)
	at := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		window entity.Window
		want   string
	}{
		{entity.WindowDaily, "2026-08-03"},
		{entity.WindowWeekly, "2026-W32"},
		{entity.WindowMonthly, "2026-08"},
		{entity.WindowSeasonal, "2026-Q3"},
	}
	for _, tt := range tests {
		got, err := cal.PeriodKey(tt.window, at)
		if err != nil || got != tt.want {
			t.Errorf("PeriodKey(%s) = %q, %v; want %q", tt.window, got, err, tt.want)
		}
	}
	if _, err := cal.PeriodKey(entity.WindowLifetime, at); err == nil {
		t.Errorf("lifetime window should have no period key")
	}
}

func TestDaysBetween(t *testing.T) {
	cal := New(time.UTC)
	tests := []struct {
		from, to string
		want     int
	}{
		{"2026-10-16", "2026-10-17", 1},
		{"2026-10-17", "2026-10-17", 0},
		{"2026-10-10", "2026-10-17", 7},
		{"2026-03-28", "2026-03-30", 2},
		{"2026-12-31", "2027-01-01", 1},
	}
	for _, tt := range tests {
		got, err := cal.DaysBetween(tt.from, tt.to)
		if err != nil || got != tt.want {
			t.Errorf("DaysBetween(%s, %s) = %d, %v; want %d", tt.from, tt.to, got, err, tt.want)
		}
	}
	if _, err := cal.DaysBetween("yesterday", "2026-10-17"); err == nil {
		t.Errorf("expected error for malformed date")
	}
}

func TestPeriodStart(t *testing.T) {
	cal := New(time.UTC)
	ts := time.Date(2026, 11, 18, 15, 30, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		window entity.Window
		want   time.Time
	}{
		{entity.WindowDaily, time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC)},
		{entity.WindowWeekly, time.Date(2026, 11, 16, 0, 0, 0, 0, time.UTC)},
		{entity.WindowMonthly, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)},
		{entity.WindowSeasonal, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(string(tt.window), func(t *testing.T) {
			got, err := cal.PeriodStart(tt.window, ts)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("PeriodStart(%s) = %v, want %v", tt.window, got, tt.want)
			}
		})
	}

	if _, err := cal.PeriodStart(entity.WindowLifetime, ts); err == nil {
		t.Errorf("lifetime has no period start")
	}
}

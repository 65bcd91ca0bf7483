// Package calendar does day, ISO week, month and quarter arithmetic in the
// platform timezone. Every date boundary in the core goes through it.
package calendar

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
	"skaila.com/gamification/internal/entity"
)

const dateLayout = "2006-01-02"

type Calendar struct {
	loc *time.Location
	cfg *now.Config
}

func New(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{
		loc: loc,
		cfg: &now.Config{WeekStartDay: time.Monday, TimeLocation: loc},
	}
}

func (c Calendar) Location() *time.Location { return c.loc }

func (c Calendar) at(t time.Time) *now.Now {
	return c.cfg.With(t.In(c.loc))
}

// DateKey is the calendar date of t in the platform timezone.
func (c Calendar) DateKey(t time.Time) string {
	return t.In(c.loc).Format(dateLayout)
}

func (c Calendar) StartOfDay(t time.Time) time.Time {
	return c.at(t).BeginningOfDay()
}

// NextDay is the first instant of the following calendar day.
func (c Calendar) NextDay(t time.Time) time.Time {
	return c.StartOfDay(t).AddDate(0, 0, 1)
}

// WeekStart is Monday 00:00 of t's ISO week.
func (c Calendar) WeekStart(t time.Time) time.Time {
	return c.at(t).BeginningOfWeek()
}

func (c Calendar) NextWeek(t time.Time) time.Time {
	return c.WeekStart(t).AddDate(0, 0, 7)
}

func (c Calendar) WeekKey(t time.Time) string {
	year, week := t.In(c.loc).ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

func (c Calendar) MonthStart(t time.Time) time.Time {
	return c.at(t).BeginningOfMonth()
}

func (c Calendar) MonthKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01")
}

func (c Calendar) QuarterStart(t time.Time) time.Time {
	return c.at(t).BeginningOfQuarter()
}

func (c Calendar) QuarterKey(t time.Time) string {
	local := t.In(c.loc)
	return fmt.Sprintf("%04d-Q%d", local.Year(), (int(local.Month())-1)/3+1)
}

// PeriodKey names the period of window that contains t.
func (c Calendar) PeriodKey(w entity.Window, t time.Time) (string, error) {
	switch w {
	case entity.WindowDaily:
		return c.DateKey(t), nil
	case entity.WindowWeekly:
		return c.WeekKey(t), nil
	case entity.WindowMonthly:
		return c.MonthKey(t), nil
	case entity.WindowSeasonal:
		return c.QuarterKey(t), nil
	}
	return "", fmt.Errorf("window %q has no period", w)
}

// PeriodStart is the first instant of the period of window that contains t.
func (c Calendar) PeriodStart(w entity.Window, t time.Time) (time.Time, error) {
	switch w {
	case entity.WindowDaily:
		return c.StartOfDay(t), nil
	case entity.WindowWeekly:
		return c.WeekStart(t), nil
	case entity.WindowMonthly:
		return c.MonthStart(t), nil
	case entity.WindowSeasonal:
		return c.QuarterStart(t), nil
	}
	return time.Time{}, fmt.Errorf("window %q has no period", w)
}

// DaysBetween returns the number of calendar days from one date key to
// another. Dates are compared as civil dates so DST shifts don't matter.
func (c Calendar) DaysBetween(from, to string) (int, error) {
	a, err := time.Parse(dateLayout, from)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", from, err)
	}
	b, err := time.Parse(dateLayout, to)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", to, err)
	}
	return int(b.Sub(a).Hours() / 24), nil
}

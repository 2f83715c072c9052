// Package gameday maps wall-clock instants onto the logical "game day" used to
// bucket draw results. A game day does not start at midnight: it starts at a
// configured rollover hour in a single anchor zone, so a result posted at
// 03:00 still belongs to the previous calendar date.
//
// Everything here is pure. No function reads the system clock.
package gameday

import (
	"errors"
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Display layouts used by the frontend.
const (
	DateLayout = "02-01-2006"
	TimeLayout = "03:04 PM"
)

var ErrInvalidRollover = errors.New("rollover hour must be between 0 and 23")

// Day is a calendar date anchored to the clock's zone. The zero value is not
// a valid day; obtain one from Clock.DayOf or Clock.ParseDay.
type Day struct {
	Year  int
	Month time.Month
	Day   int

	loc *time.Location
}

// String renders the day as YYYY-MM-DD. This is also the storage key.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d was never set.
func (d Day) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Equal compares the calendar fields only.
func (d Day) Equal(o Day) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

// Next returns the following calendar day.
func (d Day) Next() Day { return d.addDays(1) }

// Prev returns the preceding calendar day.
func (d Day) Prev() Day { return d.addDays(-1) }

func (d Day) addDays(n int) Day {
	// time.Date normalises overflow (e.g. March 0 -> February 28/29).
	t := time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC)
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day(), loc: d.loc}
}

// at returns the instant at hour:00 local time on d.
func (d Day) at(hour int) time.Time {
	loc := d.loc
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, hour, 0, 0, 0, loc)
}

// Clock converts between instants and game days for one anchor zone and
// rollover hour.
type Clock struct {
	loc      *time.Location
	rollover int
}

// New loads zone (an IANA identifier such as "Asia/Kolkata") and returns a
// clock whose day advances at rolloverHour local time.
func New(zone string, rolloverHour int) (*Clock, error) {
	if rolloverHour < 0 || rolloverHour > 23 {
		return nil, ErrInvalidRollover
	}
	if zone == "" {
		return nil, errors.New("anchor zone is required")
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("loading zone %q: %w", zone, err)
	}
	return &Clock{loc: loc, rollover: rolloverHour}, nil
}

// MustNew is New for package-level setup and tests.
func MustNew(zone string, rolloverHour int) *Clock {
	c, err := New(zone, rolloverHour)
	if err != nil {
		panic(err)
	}
	return c
}

// Location returns the anchor zone.
func (c *Clock) Location() *time.Location { return c.loc }

// RolloverHour returns the local hour at which the game day advances.
func (c *Clock) RolloverHour() int { return c.rollover }

// DayOf returns the game day t belongs to. An instant whose local hour is
// strictly less than the rollover hour belongs to the previous calendar date;
// the rollover instant itself belongs to the new date.
func (c *Clock) DayOf(t time.Time) Day {
	local := t.In(c.loc)
	d := Day{Year: local.Year(), Month: local.Month(), Day: local.Day(), loc: c.loc}
	if local.Hour() < c.rollover {
		return d.Prev()
	}
	return d
}

// Today is DayOf(now).
func (c *Clock) Today(now time.Time) Day { return c.DayOf(now) }

// PublishWindow returns the strict publish window of d as UTC instants:
// [d at rollover, d+1 at rollover). These are exactly the instants DayOf maps
// to d, so it is the window used for duplicate detection.
func (c *Clock) PublishWindow(d Day) (start, end time.Time) {
	d = c.anchor(d)
	return d.at(c.rollover).UTC(), d.Next().at(c.rollover).UTC()
}

// CalendarWindow returns the plain midnight-to-midnight window of d in the
// anchor zone as UTC instants: [d 00:00, d+1 00:00). Used for history listings.
func (c *Clock) CalendarWindow(d Day) (start, end time.Time) {
	d = c.anchor(d)
	return d.at(0).UTC(), d.Next().at(0).UTC()
}

// ParseDay parses YYYY-MM-DD into a day anchored to the clock's zone.
func (c *Clock) ParseDay(s string) (Day, error) {
	t, err := time.ParseInLocation(dayLayout, s, c.loc)
	if err != nil {
		return Day{}, fmt.Errorf("parsing game day %q: %w", s, err)
	}
	return Day{Year: t.Year(), Month: t.Month(), Day: t.Day(), loc: c.loc}, nil
}

// Format renders t in the anchor zone using layout.
func (c *Clock) Format(t time.Time, layout string) string {
	return t.In(c.loc).Format(layout)
}

// FormatDate renders t as DD-MM-YYYY in the anchor zone.
func (c *Clock) FormatDate(t time.Time) string { return c.Format(t, DateLayout) }

// FormatTime renders t as hh:mm AM/PM in the anchor zone.
func (c *Clock) FormatTime(t time.Time) string { return c.Format(t, TimeLayout) }

func (c *Clock) anchor(d Day) Day {
	d.loc = c.loc
	return d
}

// Package calendar provides business day calendars and the date rolls used
// when generating payment schedules. A nil or empty Calendar treats weekends
// as the only non-business days; holidays are supplied per calendar.
//
// All dates are compared by calendar day; callers should pass midnight UTC
// values as produced by time.Date.
package calendar

import (
	"fmt"
	"time"
)

// Calendar is a holiday set on top of the weekend rule.
type Calendar struct {
	holidays map[string]struct{}
}

// New builds a calendar from holiday dates.
func New(holidays ...time.Time) *Calendar {
	c := &Calendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[h.Format("2006-01-02")] = struct{}{}
	}
	return c
}

// ParseHolidays builds a calendar from "2006-01-02" formatted dates.
func ParseHolidays(dates []string) (*Calendar, error) {
	holidays := make([]time.Time, len(dates))
	for i, s := range dates {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("ParseHolidays: %w", err)
		}
		holidays[i] = t
	}
	return New(holidays...), nil
}

func (c *Calendar) isHoliday(t time.Time) bool {
	if c == nil || c.holidays == nil {
		return false
	}
	_, ok := c.holidays[t.Format("2006-01-02")]
	return ok
}

// IsBusinessDay checks weekends and the holiday set.
func (c *Calendar) IsBusinessDay(t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !c.isHoliday(t)
}

// Adjust applies Modified Following: roll forward to a business day, but
// fall back when the roll would leave the month.
func (c *Calendar) Adjust(t time.Time) time.Time {
	origMonth := t.Month()
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !c.IsBusinessDay(t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// AdjustFollowing applies a simple Following convention (no month
// preservation).
func (c *Calendar) AdjustFollowing(t time.Time) time.Time {
	for !c.IsBusinessDay(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func (c *Calendar) AddBusinessDays(t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if c.IsBusinessDay(t) {
			n -= step
		}
	}
	return t
}

// LastBusinessDayOfMonth returns the last business day of the month
// containing t.
func (c *Calendar) LastBusinessDayOfMonth(t time.Time) time.Time {
	nextMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return c.AddBusinessDays(nextMonth, -1)
}

// IsEndOfMonth checks whether t is the last business day of its month.
func (c *Calendar) IsEndOfMonth(t time.Time) bool {
	return t.Equal(c.LastBusinessDayOfMonth(t))
}

// AddMonths shifts t by a number of months, clamping the day of month so
// that month-end dates stay at month end instead of spilling over (31 Aug
// minus six months is 28 Feb, not 3 Mar).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	m += time.Month(months)
	if max := daysInMonth(y, m); d > max {
		d = max
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CouponDates generates the unadjusted payment dates of a bullet bond:
// every 12/frequency months counting back from maturity, keeping the dates
// strictly after settlement, in ascending order. The last date is always
// the maturity itself.
func CouponDates(settlement, maturity time.Time, frequency int) ([]time.Time, error) {
	switch frequency {
	case 1, 2, 4, 12:
	default:
		return nil, fmt.Errorf("CouponDates: unsupported frequency %d (want 1, 2, 4, or 12)", frequency)
	}
	if !maturity.After(settlement) {
		return nil, fmt.Errorf("CouponDates: maturity %s is not after settlement %s",
			maturity.Format("2006-01-02"), settlement.Format("2006-01-02"))
	}

	months := 12 / frequency
	var reversed []time.Time
	for d, step := maturity, 0; d.After(settlement); step++ {
		reversed = append(reversed, d)
		d = AddMonths(maturity, -months*(step+1))
	}

	dates := make([]time.Time, len(reversed))
	for i, d := range reversed {
		dates[len(dates)-1-i] = d
	}
	return dates, nil
}

// daysInMonth relies on time.Date normalizing day 0 to the last day of the
// previous month. Works for month values outside 1..12 as well.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

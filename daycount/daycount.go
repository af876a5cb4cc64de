// Package daycount converts date pairs to year fractions under standard
// market day count conventions. The analytics core works on year fractions
// only; this package is the boundary where calendar dates enter.
package daycount

import (
	"fmt"
	"strings"
	"time"
)

// Convention identifies a day count convention.
type Convention string

const (
	ACT360     Convention = "ACT/360"
	ACT365F    Convention = "ACT/365F"
	Thirty360E Convention = "30E/360"
	ACTACT     Convention = "ACT/ACT"
)

// Parse maps a convention label to a Convention. Matching is case-insensitive
// and accepts the common "30/360" alias for the Eurobond basis.
func Parse(s string) (Convention, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACT/360":
		return ACT360, nil
	case "ACT/365F", "ACT/365":
		return ACT365F, nil
	case "30E/360", "30/360":
		return Thirty360E, nil
	case "ACT/ACT":
		return ACTACT, nil
	default:
		return "", fmt.Errorf("Parse: unknown day count convention %q", s)
	}
}

// YearFraction computes the year fraction between two dates under the given
// convention. Unknown conventions fall back to ACT/365F.
func YearFraction(start, end time.Time, conv Convention) float64 {
	switch conv {
	case ACT360:
		return days(start, end) / 360.0
	case Thirty360E:
		// 30E/360 ISDA (Eurobond basis): day-of-month capped at 30.
		d1 := start.Day()
		if d1 > 30 {
			d1 = 30
		}
		d2 := end.Day()
		if d2 > 30 {
			d2 = 30
		}
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0
	case ACTACT:
		return actActISDA(start, end)
	default:
		return days(start, end) / 365.0
	}
}

// Days returns the number of calendar days from start to end.
func Days(start, end time.Time) float64 {
	return days(start, end)
}

func days(start, end time.Time) float64 {
	return end.Sub(start).Hours() / 24
}

// actActISDA splits the period at calendar year boundaries and divides each
// piece by the actual length of its year (365 or 366).
func actActISDA(start, end time.Time) float64 {
	if end.Equal(start) {
		return 0
	}
	if end.Before(start) {
		return -actActISDA(end, start)
	}

	total := 0.0
	segStart := start
	for y := start.Year(); y <= end.Year(); y++ {
		yearEnd := time.Date(y+1, time.January, 1, 0, 0, 0, 0, start.Location())
		segEnd := end
		if yearEnd.Before(end) {
			segEnd = yearEnd
		}
		total += days(segStart, segEnd) / yearDays(y)
		if !yearEnd.Before(end) {
			break
		}
		segStart = yearEnd
	}
	return total
}

func yearDays(year int) float64 {
	if isLeap(year) {
		return 366.0
	}
	return 365.0
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

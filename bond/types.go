// Package bond builds fixed-coupon cashflow schedules and prices them off a
// discount curve or a flat yield, with the usual duration, convexity and
// DV01 risk measures on top.
package bond

import (
	"errors"
	"math"

	"github.com/julian-hilg/ficclib/errs"
)

// ErrNilCurve is returned when a pricing call receives no curve.
var ErrNilCurve = errors.New("bond: nil discount curve")

// periodRoundTol bounds how far maturity*frequency may sit from a whole
// number of coupon periods.
const periodRoundTol = 1e-9

// DiscountCurve is the discounting surface bond pricing needs. Both
// curve.Curve and nelsonsiegel.Curve satisfy it.
type DiscountCurve interface {
	DiscountFactor(t float64) (float64, error)
}

// Terms describes a plain fixed-coupon bullet bond.
type Terms struct {
	// Coupon is the annual coupon rate as a decimal (0.05 for 5%).
	Coupon float64
	// Face is the redemption amount, in the same units as prices.
	Face float64
	// Maturity is the time to redemption in years.
	Maturity float64
	// Frequency is coupon payments per year: 1, 2, 4 or 12.
	Frequency int
}

// Cashflow is one bond payment at a year-fraction time.
type Cashflow struct {
	Time   float64
	Amount float64
}

// Schedule is a bond's payment stream ordered by time: the coupons plus the
// final coupon-and-redemption flow.
type Schedule []Cashflow

// NewSchedule expands bond terms into the payment stream. A zero-coupon bond
// collapses to the single redemption flow; coupon bonds must mature on a
// whole number of coupon periods.
func NewSchedule(t Terms) (Schedule, error) {
	if !validFrequency(t.Frequency) {
		return nil, &errs.DomainError{Op: "bond.NewSchedule", Reason: "frequency must be 1, 2, 4 or 12", Value: float64(t.Frequency)}
	}
	if math.IsNaN(t.Maturity) || math.IsInf(t.Maturity, 0) || t.Maturity <= 0 {
		return nil, &errs.DomainError{Op: "bond.NewSchedule", Reason: "maturity must be positive and finite", Value: t.Maturity}
	}
	if math.IsNaN(t.Coupon) || math.IsInf(t.Coupon, 0) || t.Coupon < 0 {
		return nil, &errs.DomainError{Op: "bond.NewSchedule", Reason: "coupon rate must be non-negative and finite", Value: t.Coupon}
	}
	if math.IsNaN(t.Face) || math.IsInf(t.Face, 0) || t.Face <= 0 {
		return nil, &errs.DomainError{Op: "bond.NewSchedule", Reason: "face must be positive and finite", Value: t.Face}
	}

	if t.Coupon == 0 {
		return Schedule{{Time: t.Maturity, Amount: t.Face}}, nil
	}

	periods := t.Maturity * float64(t.Frequency)
	n := int(math.Round(periods))
	if n < 1 || math.Abs(periods-float64(n)) > periodRoundTol {
		return nil, &errs.DomainError{Op: "bond.NewSchedule", Reason: "maturity must cover a whole number of coupon periods", Value: t.Maturity}
	}

	coupon := t.Coupon * t.Face / float64(t.Frequency)
	s := make(Schedule, n)
	for i := 1; i < n; i++ {
		s[i-1] = Cashflow{Time: float64(i) / float64(t.Frequency), Amount: coupon}
	}
	// Pin the final flow to the stated maturity so pricing and duration hit
	// it exactly.
	s[n-1] = Cashflow{Time: t.Maturity, Amount: coupon + t.Face}
	return s, nil
}

func validFrequency(f int) bool {
	switch f {
	case 1, 2, 4, 12:
		return true
	}
	return false
}

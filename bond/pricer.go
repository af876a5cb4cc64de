package bond

import (
	"fmt"
	"math"

	"github.com/julian-hilg/ficclib/errs"
)

// Price discounts the schedule on the curve:
//
//	price = Σ CF_i · DF(t_i)
func Price(s Schedule, c DiscountCurve) (float64, error) {
	if c == nil {
		return 0, ErrNilCurve
	}
	if len(s) == 0 {
		return 0, &errs.DomainError{Op: "bond.Price", Reason: "empty schedule"}
	}

	var pv float64
	for _, cf := range s {
		df, err := c.DiscountFactor(cf.Time)
		if err != nil {
			return 0, fmt.Errorf("Price: %w", err)
		}
		pv += cf.Amount * df
	}
	return pv, nil
}

// PriceAtYield discounts the schedule at a single flat yield compounded
// frequency times per year:
//
//	price = Σ CF_i · (1 + y/f)^(−f·t_i)
//
// The yield must keep the compound base 1+y/f positive.
func PriceAtYield(s Schedule, yield float64, frequency int) (float64, error) {
	base, err := compoundBase("bond.PriceAtYield", s, yield, frequency)
	if err != nil {
		return 0, err
	}

	f := float64(frequency)
	var pv float64
	for _, cf := range s {
		pv += cf.Amount * math.Pow(base, -f*cf.Time)
	}
	return pv, nil
}

// WeightedMaturity is the present-value-weighted average payment time at a
// flat yield, the Macaulay duration of the schedule.
func WeightedMaturity(s Schedule, yield float64, frequency int) (float64, error) {
	base, err := compoundBase("bond.WeightedMaturity", s, yield, frequency)
	if err != nil {
		return 0, err
	}

	f := float64(frequency)
	var pv, weighted float64
	for _, cf := range s {
		v := cf.Amount * math.Pow(base, -f*cf.Time)
		pv += v
		weighted += v * cf.Time
	}
	if pv <= 0 {
		return 0, &errs.DomainError{Op: "bond.WeightedMaturity", Reason: "schedule has non-positive present value", Value: pv}
	}
	return weighted / pv, nil
}

// compoundBase validates the flat-yield inputs shared by the pricing
// functions and returns 1 + y/f.
func compoundBase(op string, s Schedule, yield float64, frequency int) (float64, error) {
	if len(s) == 0 {
		return 0, &errs.DomainError{Op: op, Reason: "empty schedule"}
	}
	if !validFrequency(frequency) {
		return 0, &errs.DomainError{Op: op, Reason: "frequency must be 1, 2, 4 or 12", Value: float64(frequency)}
	}
	if math.IsNaN(yield) || math.IsInf(yield, 0) {
		return 0, &errs.DomainError{Op: op, Reason: "yield must be finite", Value: yield}
	}
	base := 1 + yield/float64(frequency)
	if base <= 0 {
		return 0, &errs.DomainError{Op: op, Reason: "yield implies a non-positive compound base", Value: yield}
	}
	return base, nil
}

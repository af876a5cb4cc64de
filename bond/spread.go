package bond

import (
	"fmt"
	"math"

	"github.com/julian-hilg/ficclib/errs"
	"github.com/julian-hilg/ficclib/solver"
)

// Z-spread bracket. PV is strictly decreasing in the spread, so any
// solvable quote lies between these.
const (
	spreadFloor   = -1.0
	spreadCeiling = 10.0
)

// DefaultSpreadParams control the z-spread solve. The tolerance applies to
// the price residual in currency units.
var DefaultSpreadParams = solver.Params{
	Tolerance:     1e-10,
	MaxIterations: 100,
}

// ZSpreadResult is a solved z-spread.
type ZSpreadResult struct {
	// Spread is continuously compounded, in the same units as zero rates.
	Spread     float64
	Iterations int
}

// SolveZSpread finds the constant spread over the discount curve that
// reproduces an observed dirty price:
//
//	price = Σ CF_i · DF(t_i) · exp(−spread·t_i)
//
// A positive spread means the bond is cheap to the curve. The curve factors
// are evaluated once; Newton iterates on the spread with an analytic
// derivative and falls back to bisection on [-1, 10].
func SolveZSpread(s Schedule, c DiscountCurve, price float64) (ZSpreadResult, error) {
	if c == nil {
		return ZSpreadResult{}, ErrNilCurve
	}
	if len(s) == 0 {
		return ZSpreadResult{}, &errs.DomainError{Op: "bond.SolveZSpread", Reason: "empty schedule"}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return ZSpreadResult{}, &errs.DomainError{Op: "bond.SolveZSpread", Reason: "price must be positive and finite", Value: price}
	}

	pvs := make([]float64, len(s))
	for i, cf := range s {
		df, err := c.DiscountFactor(cf.Time)
		if err != nil {
			return ZSpreadResult{}, fmt.Errorf("SolveZSpread: %w", err)
		}
		pvs[i] = cf.Amount * df
	}

	fn := func(x float64) (float64, float64) {
		f := -price
		var fPrime float64
		for i, cf := range s {
			d := math.Exp(-x * cf.Time)
			f += pvs[i] * d
			fPrime -= cf.Time * pvs[i] * d
		}
		return f, fPrime
	}

	root, iterations, err := solver.NewtonBracketed(fn, 0, spreadFloor, spreadCeiling, DefaultSpreadParams)
	if err != nil {
		return ZSpreadResult{}, fmt.Errorf("SolveZSpread: %w", err)
	}
	return ZSpreadResult{Spread: root, Iterations: iterations}, nil
}

package bond

import (
	"fmt"
	"math"

	"github.com/julian-hilg/ficclib/errs"
	"github.com/julian-hilg/ficclib/solver"
)

// Yield iterates stay inside this bracket; bisection takes over when
// Newton-Raphson wanders out of it.
const (
	yieldFloor   = -0.99
	yieldCeiling = 10.0
)

// DefaultYieldParams are the yield-solve settings: converged when the price
// residual is within 1e-8, giving up after 100 Newton steps.
var DefaultYieldParams = solver.Params{
	Tolerance:     1e-8,
	MaxIterations: 100,
}

// YieldResult is the output of SolveYield.
type YieldResult struct {
	// Yield is the flat yield reproducing the target price, as a decimal.
	Yield float64
	// Iterations is the number of solver steps taken.
	Iterations int
}

// SolveYield finds the flat yield at which the schedule prices to the target,
// by Newton-Raphson with the analytic price derivative:
//
//	f(y)  = Σ CF_i · (1 + y/f)^(−f·t_i) − price
//	f'(y) = Σ −t_i · CF_i · (1 + y/f)^(−f·t_i − 1)
//
// The initial guess is the zero-coupon-equivalent yield of the final flow.
func SolveYield(s Schedule, price float64, frequency int) (YieldResult, error) {
	return SolveYieldFrom(s, price, frequency, initialGuess(s, price, frequency), DefaultYieldParams)
}

// SolveYieldFrom is SolveYield with an explicit starting point and solver
// settings. Zero fields in p assume solver.DefaultParams.
func SolveYieldFrom(s Schedule, price float64, frequency int, guess float64, p solver.Params) (YieldResult, error) {
	if len(s) == 0 {
		return YieldResult{}, &errs.DomainError{Op: "bond.SolveYield", Reason: "empty schedule"}
	}
	if !validFrequency(frequency) {
		return YieldResult{}, &errs.DomainError{Op: "bond.SolveYield", Reason: "frequency must be 1, 2, 4 or 12", Value: float64(frequency)}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return YieldResult{}, &errs.DomainError{Op: "bond.SolveYield", Reason: "target price must be positive and finite", Value: price}
	}

	f := float64(frequency)
	fn := func(y float64) (float64, float64) {
		base := 1 + y/f
		if base <= 0 {
			return math.NaN(), math.NaN()
		}
		var pv, deriv float64
		for _, cf := range s {
			pv += cf.Amount * math.Pow(base, -f*cf.Time)
			deriv -= cf.Time * cf.Amount * math.Pow(base, -f*cf.Time-1)
		}
		return pv - price, deriv
	}

	y, iterations, err := solver.NewtonBracketed(fn, guess, yieldFloor, yieldCeiling, p)
	if err != nil {
		return YieldResult{}, fmt.Errorf("SolveYield: %w", err)
	}
	return YieldResult{Yield: y, Iterations: iterations}, nil
}

// initialGuess treats the final flow as a zero-coupon bond against the
// target price. Biased low for coupon bonds, but well inside the bracket.
func initialGuess(s Schedule, price float64, frequency int) float64 {
	const fallback = 0.05
	if len(s) == 0 || price <= 0 {
		return fallback
	}
	last := s[len(s)-1]
	if last.Time <= 0 || last.Amount <= 0 {
		return fallback
	}
	f := float64(frequency)
	y := f * (math.Pow(last.Amount/price, 1/(f*last.Time)) - 1)
	if math.IsNaN(y) || y <= yieldFloor || y >= yieldCeiling {
		return fallback
	}
	return y
}

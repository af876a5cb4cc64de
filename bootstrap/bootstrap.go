// Package bootstrap strips a zero curve from market quotes one pillar at a
// time.
//
// Instruments arrive sorted by maturity and each contributes exactly one
// pillar. Deposits convert in closed form; swap and bond pillars are solved
// with Newton-Raphson on a trial curve carrying every earlier pillar plus
// the candidate, rebuilt under the requested interpolation on each
// evaluation. The finished curve therefore reprices its own inputs to within
// the solver tolerance.
package bootstrap

import (
	"errors"
	"fmt"
	"math"

	"github.com/julian-hilg/ficclib/bond"
	"github.com/julian-hilg/ficclib/curve"
	"github.com/julian-hilg/ficclib/errs"
	"github.com/julian-hilg/ficclib/instrument"
	"github.com/julian-hilg/ficclib/solver"
)

// DefaultParams are the bootstrap solver settings: a pillar is accepted when
// its pricing residual falls below 1e-10, with at most 50 Newton steps.
var DefaultParams = solver.Params{
	Tolerance:     1e-10,
	MaxIterations: 50,
}

// Build bootstraps a curve from the quotes with DefaultParams.
func Build(instruments []instrument.MarketInstrument, scheme curve.Scheme) (*curve.Curve, error) {
	return BuildWithParams(instruments, scheme, DefaultParams)
}

// BuildWithParams bootstraps a curve with explicit solver settings. The
// instruments must pass instrument.Validate; the first pillar that fails to
// solve aborts the whole build with an errs.BootstrapError.
func BuildWithParams(instruments []instrument.MarketInstrument, scheme curve.Scheme, p solver.Params) (*curve.Curve, error) {
	switch scheme {
	case curve.LinearZero, curve.LogLinearDF, curve.CubicZero:
	default:
		return nil, &errs.DomainError{Op: "bootstrap.Build", Reason: "unknown interpolation scheme", Value: float64(scheme)}
	}
	if err := instrument.Validate(instruments); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	points := make([]curve.Point, 0, len(instruments))
	for i, ins := range instruments {
		z, err := solvePillar(points, ins, scheme, p)
		if err != nil {
			be := &errs.BootstrapError{
				Index:    i,
				Kind:     ins.Kind.String(),
				Maturity: ins.Maturity,
				Err:      err,
			}
			var ce *errs.ConvergenceError
			if errors.As(err, &ce) {
				be.Iterations = ce.Iterations
				be.Residual = ce.Residual
			}
			return nil, be
		}
		points = append(points, curve.Point{T: ins.Maturity, Z: z})
	}

	c, err := curve.New(points, scheme)
	if err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}
	return c, nil
}

func solvePillar(points []curve.Point, ins instrument.MarketInstrument, scheme curve.Scheme, p solver.Params) (float64, error) {
	switch ins.Kind {
	case instrument.Deposit:
		return depositZero(ins)
	case instrument.Swap:
		return solveQuoted(points, ins, scheme, p, swapResidual(ins))
	case instrument.BondQuote:
		residual, err := bondResidual(ins)
		if err != nil {
			return 0, err
		}
		return solveQuoted(points, ins, scheme, p, residual)
	default:
		return 0, &errs.DomainError{Op: "bootstrap.Build", Reason: "unknown instrument kind", Value: float64(ins.Kind)}
	}
}

// depositZero converts a simple deposit rate to its continuous zero:
//
//	exp(z·τ) = 1 + r·τ  ⇒  z = ln(1 + r·τ)/τ
func depositZero(ins instrument.MarketInstrument) (float64, error) {
	growth := 1 + ins.Rate*ins.Maturity
	if growth <= 0 {
		return 0, &errs.DomainError{Op: "bootstrap.Build", Reason: "deposit rate implies non-positive growth", Value: ins.Rate}
	}
	return math.Log(growth) / ins.Maturity, nil
}

// swapResidual is the par condition of a unit-notional swap paying the
// quoted fixed rate:
//
//	rate · Σ α_j · DF(t_j) + DF(τ) − 1
func swapResidual(ins instrument.MarketInstrument) func(*curve.Curve) (float64, error) {
	f := float64(ins.Frequency)
	n := int(math.Round(ins.Maturity * f))
	return func(c *curve.Curve) (float64, error) {
		var annuity, dfEnd float64
		for j := 1; j <= n; j++ {
			t := float64(j) / f
			if j == n {
				t = ins.Maturity
			}
			df, err := c.DiscountFactor(t)
			if err != nil {
				return 0, err
			}
			annuity += df / f
			dfEnd = df
		}
		return ins.Rate*annuity + dfEnd - 1, nil
	}
}

// bondResidual prices the quoted bond's schedule on the trial curve and
// compares against the quoted dirty price.
func bondResidual(ins instrument.MarketInstrument) (func(*curve.Curve) (float64, error), error) {
	s, err := bond.NewSchedule(bond.Terms{
		Coupon:    ins.Coupon,
		Face:      ins.Face,
		Maturity:  ins.Maturity,
		Frequency: ins.Frequency,
	})
	if err != nil {
		return nil, err
	}
	return func(c *curve.Curve) (float64, error) {
		pv, err := bond.Price(s, c)
		if err != nil {
			return 0, err
		}
		return pv - ins.Rate, nil
	}, nil
}

// solveQuoted finds the pillar zero that clears the instrument's pricing
// residual on a trial curve extended with that pillar.
func solveQuoted(points []curve.Point, ins instrument.MarketInstrument, scheme curve.Scheme, p solver.Params, residual func(*curve.Curve) (float64, error)) (float64, error) {
	trialScheme := scheme
	if scheme == curve.CubicZero && len(points) == 0 {
		// A single-pillar curve is flat under every scheme.
		trialScheme = curve.LinearZero
	}
	trial := make([]curve.Point, len(points)+1)
	copy(trial, points)

	fn := func(z float64) float64 {
		trial[len(trial)-1] = curve.Point{T: ins.Maturity, Z: z}
		c, err := curve.New(trial, trialScheme)
		if err != nil {
			return math.NaN()
		}
		r, err := residual(c)
		if err != nil {
			return math.NaN()
		}
		return r
	}

	z, _, err := solver.NewtonFD(fn, pillarGuess(points, ins), p)
	return z, err
}

// pillarGuess seeds the pillar solve: the previous pillar's zero when one
// exists, otherwise a level implied by the instrument's own quote.
func pillarGuess(points []curve.Point, ins instrument.MarketInstrument) float64 {
	if len(points) > 0 {
		return points[len(points)-1].Z
	}
	switch ins.Kind {
	case instrument.Swap:
		return ins.Rate
	case instrument.BondQuote:
		if ins.Coupon > 0 {
			return ins.Coupon
		}
		// Exact for a zero-coupon quote.
		return math.Log(ins.Face/ins.Rate) / ins.Maturity
	}
	return 0.03
}

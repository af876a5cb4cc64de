package nelsonsiegel

import (
	"errors"
	"fmt"
	"math"

	"github.com/julian-hilg/ficclib/errs"
	"github.com/julian-hilg/ficclib/solver"
)

// Decay scales stay inside [tauMin, tauMax] during calibration; the
// optimizer clamps after every step.
const (
	tauMin = 0.01
	tauMax = 30.0
)

// DefaultFitParams are the calibration defaults, solver.DefaultFitParams
// with its 200-step budget.
var DefaultFitParams = solver.DefaultFitParams

// Observation is one observed zero rate feeding the calibration.
type Observation struct {
	T float64 // maturity in years
	Z float64 // continuously compounded zero rate, decimal
}

// FitResult is the output of Fit.
type FitResult struct {
	// Curve is the calibrated curve.
	Curve *Curve
	// Iterations is the number of optimizer steps spent.
	Iterations int
	// Residual is the final sum of squared rate errors.
	Residual float64
}

// Fit calibrates the family to the observations with DefaultFitParams.
func Fit(family Family, obs []Observation) (FitResult, error) {
	return FitWithParams(family, obs, DefaultFitParams)
}

// FitWithParams calibrates with explicit optimizer settings. The Lower and
// Upper bounds in p are replaced by the family's own parameter bounds. There
// must be at least as many observations as free parameters; a fit that
// exhausts its budget or stalls reports an errs.FitError.
func FitWithParams(family Family, obs []Observation, p solver.FitParams) (FitResult, error) {
	switch family {
	case NelsonSiegel, Svensson:
	default:
		return FitResult{}, &errs.DomainError{Op: "nelsonsiegel.Fit", Reason: "unknown curve family", Value: float64(family)}
	}
	for _, o := range obs {
		if math.IsNaN(o.T) || math.IsInf(o.T, 0) || o.T <= 0 {
			return FitResult{}, &errs.DomainError{Op: "nelsonsiegel.Fit", Reason: "observation maturity must be positive and finite", Value: o.T}
		}
		if math.IsNaN(o.Z) || math.IsInf(o.Z, 0) {
			return FitResult{}, &errs.DomainError{Op: "nelsonsiegel.Fit", Reason: "observation rate must be finite", Value: o.Z}
		}
	}
	if free := family.freeParameters(); len(obs) < free {
		return FitResult{}, &errs.FitError{
			Family: family.String(),
			Reason: fmt.Sprintf("need at least %d observations, got %d", free, len(obs)),
		}
	}

	p.Lower, p.Upper = bounds(family)

	fn := func(x []float64) []float64 {
		c := Curve{family: family, params: parametersFromVector(family, x)}
		r := make([]float64, len(obs))
		for i, o := range obs {
			r[i] = c.zeroAt(o.T) - o.Z
		}
		return r
	}

	x, iterations, rss, err := solver.LevenbergMarquardt(fn, initialVector(family, obs), p)
	if err != nil {
		fe := &errs.FitError{
			Family:     family.String(),
			Iterations: iterations,
			Residual:   rss,
			Reason:     "iteration budget exhausted",
		}
		if errors.Is(err, solver.ErrStalled) {
			fe.Reason = "stalled before reaching the gradient tolerance"
		}
		return FitResult{}, fe
	}

	c, err := New(family, parametersFromVector(family, x))
	if err != nil {
		return FitResult{}, fmt.Errorf("Fit: %w", err)
	}
	return FitResult{Curve: c, Iterations: iterations, Residual: rss}, nil
}

// initialVector seeds the fit: level from the longest observation, slope
// from shortest minus longest, humps flat, decay scales at 1.5y and 8y.
func initialVector(family Family, obs []Observation) []float64 {
	short, long := obs[0], obs[0]
	for _, o := range obs[1:] {
		if o.T < short.T {
			short = o
		}
		if o.T > long.T {
			long = o
		}
	}
	if family == Svensson {
		return []float64{long.Z, short.Z - long.Z, 0, 0, 1.5, 8}
	}
	return []float64{long.Z, short.Z - long.Z, 0, 1.5}
}

func bounds(family Family) (lower, upper []float64) {
	inf := math.Inf(1)
	if family == Svensson {
		return []float64{-inf, -inf, -inf, -inf, tauMin, tauMin},
			[]float64{inf, inf, inf, inf, tauMax, tauMax}
	}
	return []float64{-inf, -inf, -inf, tauMin},
		[]float64{inf, inf, inf, tauMax}
}

func parametersFromVector(family Family, x []float64) Parameters {
	if family == Svensson {
		return Parameters{Beta0: x[0], Beta1: x[1], Beta2: x[2], Beta3: x[3], Tau1: x[4], Tau2: x[5]}
	}
	return Parameters{Beta0: x[0], Beta1: x[1], Beta2: x[2], Tau1: x[3]}
}

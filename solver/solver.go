// Package solver provides the bounded root-finding and least-squares
// routines shared by the bootstrap, yield and curve-fitting packages.
//
// Every loop carries an explicit iteration cap and reports an
// errs.ConvergenceError instead of spinning; nothing in this package panics
// or retries on its own.
package solver

import (
	"errors"
	"math"

	"github.com/julian-hilg/ficclib/errs"
)

var (
	// ErrFlatDerivative signals Newton-Raphson hit a derivative below the
	// configured floor.
	ErrFlatDerivative = errors.New("derivative below floor")
	// ErrDiverged signals the residual left the representable range.
	ErrDiverged = errors.New("iteration diverged")
	// ErrLeftBracket signals a Newton iterate escaped the requested bracket.
	ErrLeftBracket = errors.New("iterate left the bracket")
	// ErrNotBracketed signals a bisection interval whose endpoint residuals
	// do not straddle a root.
	ErrNotBracketed = errors.New("root not bracketed")
	// ErrStalled signals a least-squares step that could not improve the
	// objective at any damping level.
	ErrStalled = errors.New("no improving step")
)

// Params holds the knobs of the one-dimensional solvers. Callers may fill
// only the fields they care about; zero fields assume DefaultParams.
type Params struct {
	// Tolerance is the absolute residual below which a root is accepted.
	Tolerance float64
	// MaxIterations caps Newton-Raphson steps.
	MaxIterations int
	// MaxBisection caps bisection halvings.
	MaxBisection int
	// DerivativeFloor aborts Newton when |f'| falls below it.
	DerivativeFloor float64
	// Damping limits a Newton step to Damping*max(1, |x|); 0 disables it.
	Damping float64
	// FDStep is the relative step for one-sided finite-difference derivatives.
	FDStep float64
}

// DefaultParams are the library-wide solver defaults. The bootstrap and
// yield packages override Tolerance and MaxIterations with their own
// documented values.
var DefaultParams = Params{
	Tolerance:       1e-12,
	MaxIterations:   100,
	MaxBisection:    200,
	DerivativeFloor: 1e-15,
	Damping:         0,
	FDStep:          1e-7,
}

func (p Params) normalized() Params {
	d := DefaultParams
	if p.Tolerance > 0 {
		d.Tolerance = p.Tolerance
	}
	if p.MaxIterations > 0 {
		d.MaxIterations = p.MaxIterations
	}
	if p.MaxBisection > 0 {
		d.MaxBisection = p.MaxBisection
	}
	if p.DerivativeFloor > 0 {
		d.DerivativeFloor = p.DerivativeFloor
	}
	if p.Damping > 0 {
		d.Damping = p.Damping
	}
	if p.FDStep > 0 {
		d.FDStep = p.FDStep
	}
	return d
}

// Newton finds x with |f(x)| <= Tolerance by Newton-Raphson, given f and its
// analytic derivative. It returns the solution and the iterations spent.
func Newton(fn func(x float64) (f, fPrime float64), guess float64, p Params) (float64, int, error) {
	return newton(fn, guess, math.Inf(-1), math.Inf(1), p.normalized(), "solver.Newton")
}

// NewtonFD is Newton with a one-sided finite-difference derivative
// f'(x) ~ (f(x+h) - f(x))/h, h = FDStep*max(1, |x|).
func NewtonFD(fn func(x float64) float64, guess float64, p Params) (float64, int, error) {
	p = p.normalized()
	wrapped := func(x float64) (float64, float64) {
		f := fn(x)
		h := p.FDStep * math.Max(1.0, math.Abs(x))
		return f, (fn(x+h) - f) / h
	}
	return newton(wrapped, guess, math.Inf(-1), math.Inf(1), p, "solver.NewtonFD")
}

// NewtonBracketed runs Newton-Raphson from guess and falls back to bisection
// on [lo, hi] when the iteration diverges, stalls on a flat derivative, or
// leaves the bracket.
func NewtonBracketed(fn func(x float64) (f, fPrime float64), guess, lo, hi float64, p Params) (float64, int, error) {
	p = p.normalized()

	x, n, err := newton(fn, guess, lo, hi, p, "solver.Newton")
	if err == nil {
		return x, n, nil
	}

	scalar := func(v float64) float64 {
		f, _ := fn(v)
		return f
	}
	x2, n2, err2 := Bisection(scalar, lo, hi, p)
	if err2 != nil {
		return x2, n + n2, err2
	}
	return x2, n + n2, nil
}

// Bisection finds a root of fn inside [lo, hi]. The endpoint residuals must
// differ in sign.
func Bisection(fn func(x float64) float64, lo, hi float64, p Params) (float64, int, error) {
	p = p.normalized()

	flo := fn(lo)
	fhi := fn(hi)
	if math.Abs(flo) <= p.Tolerance {
		return lo, 0, nil
	}
	if math.Abs(fhi) <= p.Tolerance {
		return hi, 0, nil
	}
	if math.IsNaN(flo) || math.IsNaN(fhi) || flo*fhi > 0 {
		return 0, 0, &errs.ConvergenceError{
			Op:       "solver.Bisection",
			Residual: math.Min(math.Abs(flo), math.Abs(fhi)),
			Err:      ErrNotBracketed,
		}
	}

	var mid, fmid float64
	for iter := 1; iter <= p.MaxBisection; iter++ {
		mid = 0.5 * (lo + hi)
		fmid = fn(mid)
		if math.Abs(fmid) <= p.Tolerance {
			return mid, iter, nil
		}
		if (fmid < 0) == (flo < 0) {
			lo, flo = mid, fmid
		} else {
			hi = mid
		}
	}
	return mid, p.MaxBisection, &errs.ConvergenceError{
		Op:         "solver.Bisection",
		Iterations: p.MaxBisection,
		Residual:   math.Abs(fmid),
	}
}

// newton is the shared Newton-Raphson loop. lo/hi bound the iterates; pass
// infinities for an unbounded search. p must already be normalized.
func newton(fn func(float64) (float64, float64), guess, lo, hi float64, p Params, op string) (float64, int, error) {
	x := guess
	if x < lo || x > hi || math.IsNaN(x) {
		return x, 0, &errs.ConvergenceError{Op: op, Residual: math.Inf(1), Err: ErrLeftBracket}
	}

	residual := math.Inf(1)
	for iter := 1; iter <= p.MaxIterations; iter++ {
		f, fPrime := fn(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return x, iter, &errs.ConvergenceError{Op: op, Iterations: iter, Residual: residual, Err: ErrDiverged}
		}
		residual = math.Abs(f)
		if residual <= p.Tolerance {
			return x, iter, nil
		}
		if math.IsNaN(fPrime) || math.Abs(fPrime) < p.DerivativeFloor {
			return x, iter, &errs.ConvergenceError{Op: op, Iterations: iter, Residual: residual, Err: ErrFlatDerivative}
		}

		step := f / fPrime
		if p.Damping > 0 {
			limit := p.Damping * math.Max(1.0, math.Abs(x))
			if math.Abs(step) > limit {
				step = math.Copysign(limit, step)
			}
		}
		x -= step

		if x < lo || x > hi || math.IsNaN(x) {
			return x, iter, &errs.ConvergenceError{Op: op, Iterations: iter, Residual: residual, Err: ErrLeftBracket}
		}
	}
	return x, p.MaxIterations, &errs.ConvergenceError{Op: op, Iterations: p.MaxIterations, Residual: residual}
}

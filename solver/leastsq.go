package solver

import (
	"math"

	"github.com/julian-hilg/ficclib/errs"
)

const (
	// maxLambdaAttempts bounds damping escalation within one outer step.
	maxLambdaAttempts = 20
	minLambda         = 1e-12
	pivotFloor        = 1e-300
	// stallGradientTol accepts a stalled iterate as converged: when no damped
	// step improves the residual and the gradient is already this small, the
	// fit has hit its numerical floor rather than failed.
	stallGradientTol = 1e-6
)

// FitParams holds the knobs of the Levenberg-Marquardt fitter. Zero fields
// assume DefaultFitParams; Lower/Upper clamp parameters after every step and
// may be nil for an unbounded fit.
type FitParams struct {
	// MaxIterations caps outer LM steps.
	MaxIterations int
	// GradientTol declares convergence when the largest component of the
	// objective gradient J'r falls below it.
	GradientTol float64
	// StepTol declares convergence when an accepted step moves no parameter
	// by more than StepTol relative to its magnitude.
	StepTol float64
	// LambdaInit seeds the damping factor; LambdaRaise/LambdaDrop rescale it
	// on rejected and accepted steps.
	LambdaInit  float64
	LambdaRaise float64
	LambdaDrop  float64
	// FDStep is the relative step for the numeric Jacobian.
	FDStep float64
	// Lower and Upper are per-parameter bounds.
	Lower, Upper []float64
}

// DefaultFitParams are the library-wide least-squares defaults.
var DefaultFitParams = FitParams{
	MaxIterations: 200,
	GradientTol:   1e-10,
	StepTol:       1e-12,
	LambdaInit:    1e-3,
	LambdaRaise:   10,
	LambdaDrop:    10,
	FDStep:        1e-7,
}

func (p FitParams) normalized() FitParams {
	d := DefaultFitParams
	if p.MaxIterations > 0 {
		d.MaxIterations = p.MaxIterations
	}
	if p.GradientTol > 0 {
		d.GradientTol = p.GradientTol
	}
	if p.StepTol > 0 {
		d.StepTol = p.StepTol
	}
	if p.LambdaInit > 0 {
		d.LambdaInit = p.LambdaInit
	}
	if p.LambdaRaise > 0 {
		d.LambdaRaise = p.LambdaRaise
	}
	if p.LambdaDrop > 0 {
		d.LambdaDrop = p.LambdaDrop
	}
	if p.FDStep > 0 {
		d.FDStep = p.FDStep
	}
	d.Lower = p.Lower
	d.Upper = p.Upper
	return d
}

// LevenbergMarquardt minimizes the sum of squared residuals returned by fn,
// starting from x0. It returns the fitted parameters, the outer iterations
// spent and the final residual sum of squares.
//
// The Jacobian is built by one-sided finite differences, the damped normal
// equations (J'J + lambda*diag(J'J)) d = -J'r are solved by Gaussian
// elimination with partial pivoting, and parameters are clamped to the
// configured bounds after every trial step.
func LevenbergMarquardt(fn func(x []float64) []float64, x0 []float64, p FitParams) ([]float64, int, float64, error) {
	p = p.normalized()

	n := len(x0)
	if n == 0 {
		return nil, 0, 0, &errs.DomainError{Op: "solver.LevenbergMarquardt", Reason: "empty parameter vector"}
	}

	x := append([]float64(nil), x0...)
	clampVec(x, p.Lower, p.Upper)

	r := fn(x)
	if len(r) < n {
		return nil, 0, 0, &errs.DomainError{
			Op:     "solver.LevenbergMarquardt",
			Reason: "fewer residuals than free parameters",
			Value:  float64(len(r)),
		}
	}
	rss := sumSquares(r)
	lambda := p.LambdaInit

	for iter := 1; iter <= p.MaxIterations; iter++ {
		jac := numericJacobian(fn, x, r, p.FDStep)

		jtj := make([][]float64, n)
		jtr := make([]float64, n)
		for i := 0; i < n; i++ {
			jtj[i] = make([]float64, n)
			for k := range r {
				jtr[i] += jac[k][i] * r[k]
			}
			for j := 0; j < n; j++ {
				for k := range r {
					jtj[i][j] += jac[k][i] * jac[k][j]
				}
			}
		}

		if maxAbs(jtr) <= p.GradientTol {
			return x, iter, rss, nil
		}

		accepted := false
		for attempt := 0; attempt < maxLambdaAttempts; attempt++ {
			a := make([][]float64, n)
			b := make([]float64, n)
			for i := 0; i < n; i++ {
				a[i] = append([]float64(nil), jtj[i]...)
				damp := lambda * jtj[i][i]
				if damp <= 0 {
					damp = lambda
				}
				a[i][i] += damp
				b[i] = -jtr[i]
			}

			delta, ok := solveLinear(a, b)
			if !ok {
				lambda *= p.LambdaRaise
				continue
			}

			trial := make([]float64, n)
			for i := range trial {
				trial[i] = x[i] + delta[i]
			}
			clampVec(trial, p.Lower, p.Upper)

			rTrial := fn(trial)
			rssTrial := sumSquares(rTrial)
			if math.IsNaN(rssTrial) || rssTrial >= rss {
				lambda *= p.LambdaRaise
				continue
			}

			stepSize := 0.0
			for i := range trial {
				rel := math.Abs(trial[i]-x[i]) / math.Max(1.0, math.Abs(x[i]))
				stepSize = math.Max(stepSize, rel)
			}

			x, r, rss = trial, rTrial, rssTrial
			lambda = math.Max(lambda/p.LambdaDrop, minLambda)
			accepted = true

			if stepSize <= p.StepTol {
				return x, iter, rss, nil
			}
			break
		}

		if !accepted {
			if maxAbs(jtr) <= stallGradientTol {
				return x, iter, rss, nil
			}
			return x, iter, rss, &errs.ConvergenceError{
				Op:         "solver.LevenbergMarquardt",
				Iterations: iter,
				Residual:   rss,
				Err:        ErrStalled,
			}
		}
	}

	return x, p.MaxIterations, rss, &errs.ConvergenceError{
		Op:         "solver.LevenbergMarquardt",
		Iterations: p.MaxIterations,
		Residual:   rss,
	}
}

// numericJacobian builds the residual Jacobian by one-sided differences,
// reusing the residuals r already evaluated at x.
func numericJacobian(fn func([]float64) []float64, x, r []float64, fdStep float64) [][]float64 {
	m := len(r)
	n := len(x)

	jac := make([][]float64, m)
	for k := range jac {
		jac[k] = make([]float64, n)
	}

	xh := append([]float64(nil), x...)
	for j := 0; j < n; j++ {
		h := fdStep * math.Max(1.0, math.Abs(x[j]))
		xh[j] = x[j] + h
		rh := fn(xh)
		for k := 0; k < m; k++ {
			jac[k][j] = (rh[k] - r[k]) / h
		}
		xh[j] = x[j]
	}
	return jac
}

// solveLinear solves a*x = b by Gaussian elimination with partial pivoting.
// a and b are clobbered. Returns false for a numerically singular system.
func solveLinear(a [][]float64, b []float64) ([]float64, bool) {
	n := len(b)

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < pivotFloor {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		inv := 1.0 / a[col][col]
		for row := col + 1; row < n; row++ {
			factor := a[row][col] * inv
			if factor == 0 {
				continue
			}
			for k := col; k < n; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, true
}

func clampVec(x, lower, upper []float64) {
	for i := range x {
		if lower != nil && i < len(lower) && x[i] < lower[i] {
			x[i] = lower[i]
		}
		if upper != nil && i < len(upper) && x[i] > upper[i] {
			x[i] = upper[i]
		}
	}
}

func sumSquares(r []float64) float64 {
	s := 0.0
	for _, v := range r {
		s += v * v
	}
	return s
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

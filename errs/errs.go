// Package errs defines the typed errors shared by the curve, bootstrap,
// fitting and pricing packages.
//
// Every failure carries the inputs that produced it, so batch callers can
// report a failed item without re-deriving context. Failures are reported to
// the immediate caller and never retried inside the library.
package errs

import "fmt"

// DomainError reports an input outside the mathematical domain of an
// operation, e.g. a negative time or a non-positive present value.
type DomainError struct {
	// Op is the operation that rejected the input, e.g. "curve.DiscountFactor".
	Op string
	// Reason is the violated constraint.
	Reason string
	// Value is the offending input value, when one exists.
	Value float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s (got %v)", e.Op, e.Reason, e.Value)
}

// OrderingError reports instrument or pillar maturities that are not
// strictly increasing. Duplicates are rejected, never averaged.
type OrderingError struct {
	Op    string
	Index int     // position of the offending entry
	Prev  float64 // maturity preceding it
	Curr  float64 // offending maturity
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("%s: maturities must be strictly increasing (index %d: %v after %v)",
		e.Op, e.Index, e.Curr, e.Prev)
}

// BootstrapError reports a pillar the bootstrapper could not solve. The whole
// curve construction is abandoned; no partial curve is exposed.
type BootstrapError struct {
	Index      int     // instrument position in the input set
	Kind       string  // instrument kind, e.g. "swap"
	Maturity   float64 // pillar maturity in years
	Iterations int     // solver iterations spent
	Residual   float64 // last price residual
	Err        error   // underlying solver failure
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("bootstrap: instrument %d (%s, maturity %v): %v (iterations=%d, residual=%g)",
		e.Index, e.Kind, e.Maturity, e.Err, e.Iterations, e.Residual)
}

func (e *BootstrapError) Unwrap() error { return e.Err }

// ConvergenceError reports an iterative solve that exhausted its budget or
// stalled before meeting tolerance.
type ConvergenceError struct {
	Op         string
	Iterations int
	Residual   float64
	Err        error // optional underlying cause
}

func (e *ConvergenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: no convergence after %d iterations (residual=%g): %v",
			e.Op, e.Iterations, e.Residual, e.Err)
	}
	return fmt.Sprintf("%s: no convergence after %d iterations (residual=%g)",
		e.Op, e.Iterations, e.Residual)
}

func (e *ConvergenceError) Unwrap() error { return e.Err }

// FitError reports a parametric curve fit that could not produce parameters.
type FitError struct {
	Family     string
	Iterations int
	Residual   float64
	Reason     string
}

func (e *FitError) Error() string {
	return fmt.Sprintf("fit %s: %s (iterations=%d, residual=%g)",
		e.Family, e.Reason, e.Iterations, e.Residual)
}

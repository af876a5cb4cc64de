// Package curve provides the pillar-based zero curve and its interpolation
// schemes.
//
// A Curve stores continuously compounded zero rates at year-fraction pillars
// and is immutable after construction, so one instance can be shared across
// concurrent pricing calls. Discount factors derive as exp(-z(t)*t), which
// keeps DF(0) = 1 exactly and every discount factor strictly positive even
// under negative rates.
package curve

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/julian-hilg/ficclib/errs"
)

// Scheme selects how zero rates between pillars are interpolated.
type Scheme int

const (
	// LinearZero interpolates zero rates linearly in time.
	LinearZero Scheme = iota
	// LogLinearDF interpolates the log of discount factors linearly in
	// time, equivalent to piecewise-constant forward rates.
	LogLinearDF
	// CubicZero runs a natural cubic spline through the zero rates.
	CubicZero
)

func (s Scheme) String() string {
	switch s {
	case LinearZero:
		return "linear-zero"
	case LogLinearDF:
		return "loglinear-df"
	case CubicZero:
		return "cubic-zero"
	default:
		return "unknown"
	}
}

// ParseScheme maps a scheme label to a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear-zero", "linear":
		return LinearZero, nil
	case "loglinear-df", "loglinear", "log-linear":
		return LogLinearDF, nil
	case "cubic-zero", "cubic", "spline":
		return CubicZero, nil
	default:
		return 0, fmt.Errorf("ParseScheme: unknown interpolation scheme %q", s)
	}
}

// Point is one curve pillar: a continuously compounded zero rate at a
// year-fraction maturity.
type Point struct {
	T float64 // maturity in years
	Z float64 // zero rate, decimal
}

// Curve is an immutable zero curve over sorted pillars.
type Curve struct {
	points []Point
	scheme Scheme
	spline []float64 // second derivatives at pillars, CubicZero only
}

// New validates the pillars and builds a curve. Pillar maturities must be
// finite, non-negative and strictly increasing; zero rates must be finite.
// CubicZero needs at least two pillars.
func New(points []Point, scheme Scheme) (*Curve, error) {
	switch scheme {
	case LinearZero, LogLinearDF, CubicZero:
	default:
		return nil, &errs.DomainError{Op: "curve.New", Reason: "unknown interpolation scheme", Value: float64(scheme)}
	}
	if len(points) == 0 {
		return nil, &errs.DomainError{Op: "curve.New", Reason: "at least one pillar required"}
	}
	if scheme == CubicZero && len(points) < 2 {
		return nil, &errs.DomainError{Op: "curve.New", Reason: "cubic spline needs at least two pillars", Value: float64(len(points))}
	}

	prev := math.Inf(-1)
	for i, pt := range points {
		if math.IsNaN(pt.T) || math.IsInf(pt.T, 0) || pt.T < 0 {
			return nil, &errs.DomainError{Op: "curve.New", Reason: "pillar maturity must be non-negative and finite", Value: pt.T}
		}
		if math.IsNaN(pt.Z) || math.IsInf(pt.Z, 0) {
			return nil, &errs.DomainError{Op: "curve.New", Reason: "pillar zero rate must be finite", Value: pt.Z}
		}
		if i > 0 && pt.T <= prev {
			return nil, &errs.OrderingError{Op: "curve.New", Index: i, Prev: prev, Curr: pt.T}
		}
		prev = pt.T
	}

	c := &Curve{
		points: append([]Point(nil), points...),
		scheme: scheme,
	}
	if scheme == CubicZero {
		c.spline = naturalSpline(c.points)
	}
	return c, nil
}

// ZeroRate returns the continuously compounded zero rate at t. Times below
// the first pillar take the first pillar's rate; times beyond the last
// pillar take the last pillar's rate (flat zero extrapolation, so discount
// factors keep decaying for positive rates).
func (c *Curve) ZeroRate(t float64) (float64, error) {
	if err := checkTime("curve.ZeroRate", t); err != nil {
		return 0, err
	}
	return c.zeroAt(t), nil
}

// DiscountFactor returns exp(-z(t)*t). DF(0) is exactly 1.
func (c *Curve) DiscountFactor(t float64) (float64, error) {
	if err := checkTime("curve.DiscountFactor", t); err != nil {
		return 0, err
	}
	return math.Exp(-c.zeroAt(t) * t), nil
}

// Points returns a copy of the curve pillars.
func (c *Curve) Points() []Point {
	return append([]Point(nil), c.points...)
}

// Scheme returns the interpolation scheme.
func (c *Curve) Scheme() Scheme {
	return c.scheme
}

// Shift returns a new curve with every pillar zero rate moved by dz, for
// parallel bump-and-reprice sensitivities. The receiver is untouched.
func (c *Curve) Shift(dz float64) *Curve {
	pts := make([]Point, len(c.points))
	for i, p := range c.points {
		pts[i] = Point{T: p.T, Z: p.Z + dz}
	}
	shifted := &Curve{points: pts, scheme: c.scheme}
	if c.scheme == CubicZero {
		shifted.spline = naturalSpline(pts)
	}
	return shifted
}

func checkTime(op string, t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return &errs.DomainError{Op: op, Reason: "time must be finite", Value: t}
	}
	if t < 0 {
		return &errs.DomainError{Op: op, Reason: "time must be non-negative", Value: t}
	}
	return nil
}

// zeroAt interpolates the zero rate. t must be finite and non-negative.
func (c *Curve) zeroAt(t float64) float64 {
	pts := c.points

	if t <= pts[0].T {
		return pts[0].Z
	}
	if t >= pts[len(pts)-1].T {
		return pts[len(pts)-1].Z
	}

	// pts[i-1].T < t < pts[i].T after the boundary checks above.
	i := sort.Search(len(pts), func(k int) bool { return pts[k].T >= t })
	p1, p2 := pts[i-1], pts[i]

	switch c.scheme {
	case LogLinearDF:
		// Linear in ln DF between pillars. t > p1.T >= 0, so t > 0.
		lnDF1 := -p1.Z * p1.T
		lnDF2 := -p2.Z * p2.T
		w := (t - p1.T) / (p2.T - p1.T)
		return -(lnDF1 + w*(lnDF2-lnDF1)) / t
	case CubicZero:
		return splineValue(pts, c.spline, i-1, t)
	default:
		w := (t - p1.T) / (p2.T - p1.T)
		return p1.Z + w*(p2.Z-p1.Z)
	}
}

// Package nelsonsiegel provides the Nelson-Siegel and Svensson parametric
// zero-curve families and a least-squares calibration against observed zero
// rates.
//
// The Nelson-Siegel zero rate at maturity t is
//
//	z(t) = β0 + β1·h(t/τ1) + β2·g(t/τ1)
//	h(x) = (1 − e^−x)/x
//	g(x) = h(x) − e^−x
//
// and Svensson adds a second hump term β3·g(t/τ2). β0 is the long-end
// level and β0+β1 the short-end limit.
package nelsonsiegel

import (
	"fmt"
	"math"
	"strings"

	"github.com/julian-hilg/ficclib/errs"
)

// Family selects the parametric curve family.
type Family int

const (
	// NelsonSiegel is the three-factor level/slope/hump family.
	NelsonSiegel Family = iota
	// Svensson extends Nelson-Siegel with a second hump and decay scale.
	Svensson
)

func (f Family) String() string {
	switch f {
	case NelsonSiegel:
		return "nelson-siegel"
	case Svensson:
		return "svensson"
	default:
		return "unknown"
	}
}

// ParseFamily maps a family label to a Family.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nelson-siegel", "nelsonsiegel", "ns":
		return NelsonSiegel, nil
	case "svensson", "nss":
		return Svensson, nil
	default:
		return 0, fmt.Errorf("ParseFamily: unknown curve family %q", s)
	}
}

// freeParameters is the number of coefficients the fit calibrates.
func (f Family) freeParameters() int {
	if f == Svensson {
		return 6
	}
	return 4
}

// Parameters are the family coefficients. Nelson-Siegel ignores Beta3 and
// Tau2.
type Parameters struct {
	Beta0 float64 // long-end level
	Beta1 float64 // short-end slope
	Beta2 float64 // medium-term hump
	Beta3 float64 // second hump, Svensson only
	Tau1  float64 // first decay scale, years
	Tau2  float64 // second decay scale, Svensson only
}

// Curve is an immutable parametric zero curve.
type Curve struct {
	family Family
	params Parameters
}

// New validates the coefficients and builds a curve. Decay scales must be
// positive; Nelson-Siegel zeroes the unused Beta3 and Tau2.
func New(family Family, params Parameters) (*Curve, error) {
	switch family {
	case NelsonSiegel:
		params.Beta3 = 0
		params.Tau2 = 0
	case Svensson:
	default:
		return nil, &errs.DomainError{Op: "nelsonsiegel.New", Reason: "unknown curve family", Value: float64(family)}
	}

	for _, b := range []float64{params.Beta0, params.Beta1, params.Beta2, params.Beta3} {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return nil, &errs.DomainError{Op: "nelsonsiegel.New", Reason: "coefficients must be finite", Value: b}
		}
	}
	if math.IsNaN(params.Tau1) || math.IsInf(params.Tau1, 0) || params.Tau1 <= 0 {
		return nil, &errs.DomainError{Op: "nelsonsiegel.New", Reason: "tau1 must be positive and finite", Value: params.Tau1}
	}
	if family == Svensson && (math.IsNaN(params.Tau2) || math.IsInf(params.Tau2, 0) || params.Tau2 <= 0) {
		return nil, &errs.DomainError{Op: "nelsonsiegel.New", Reason: "tau2 must be positive and finite", Value: params.Tau2}
	}

	return &Curve{family: family, params: params}, nil
}

// ZeroRate returns the continuously compounded zero rate at t. The t = 0
// value is the short-end limit β0 + β1.
func (c *Curve) ZeroRate(t float64) (float64, error) {
	if err := checkTime("nelsonsiegel.ZeroRate", t); err != nil {
		return 0, err
	}
	return c.zeroAt(t), nil
}

// DiscountFactor returns exp(-z(t)*t). DF(0) is exactly 1.
func (c *Curve) DiscountFactor(t float64) (float64, error) {
	if err := checkTime("nelsonsiegel.DiscountFactor", t); err != nil {
		return 0, err
	}
	return math.Exp(-c.zeroAt(t) * t), nil
}

// Params returns the curve coefficients.
func (c *Curve) Params() Parameters {
	return c.params
}

// Family returns the curve family.
func (c *Curve) Family() Family {
	return c.family
}

// Shift returns a curve with the level coefficient moved by dz, an exact
// parallel shift of every zero rate. The receiver is untouched.
func (c *Curve) Shift(dz float64) *Curve {
	p := c.params
	p.Beta0 += dz
	return &Curve{family: c.family, params: p}
}

func (c *Curve) zeroAt(t float64) float64 {
	p := c.params
	h, g := loadings(t / p.Tau1)
	z := p.Beta0 + p.Beta1*h + p.Beta2*g
	if c.family == Svensson {
		_, g2 := loadings(t / p.Tau2)
		z += p.Beta3 * g2
	}
	return z
}

// loadings evaluates the slope loading h(x) = (1−e^−x)/x and the curvature
// loading g(x) = h(x) − e^−x. Below x = 1e-6 the series expansions keep the
// x→0 limits h→1, g→0 exact.
func loadings(x float64) (h, g float64) {
	if x < 1e-6 {
		return 1 - x/2 + x*x/6, x/2 - x*x/3
	}
	e := math.Exp(-x)
	h = (1 - e) / x
	return h, h - e
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

package bond

import (
	"fmt"
	"math"

	"github.com/julian-hilg/ficclib/curve"
	"github.com/julian-hilg/ficclib/errs"
)

// defaultBump is the symmetric yield bump for numerical DV01s: half a basis
// point each way.
const defaultBump = 5e-5

// RiskMetrics bundles the flat-yield risk measures of a schedule.
type RiskMetrics struct {
	// Price is the dirty price at the quoted yield.
	Price float64
	// MacaulayDuration is the PV-weighted average payment time, in years.
	MacaulayDuration float64
	// ModifiedDuration is Macaulay scaled by 1/(1+y/f).
	ModifiedDuration float64
	// Convexity is the second-order price sensitivity coefficient.
	Convexity float64
	// DV01 is the analytic price change for a one basis point yield drop.
	DV01 float64
	// DV01Numerical rechecks DV01 by symmetric bump-and-reprice.
	DV01Numerical float64
}

// Metrics computes the flat-yield risk measures of the schedule:
//
//	w_i       = CF_i · (1+y/f)^(−f·t_i) / price
//	macaulay  = Σ w_i · t_i
//	modified  = macaulay / (1+y/f)
//	convexity = Σ w_i · t_i · (t_i + 1/f) / (1+y/f)²
//	dv01      = modified · price · 1e−4
//
// The numerical DV01 reprices at y ± 0.5bp.
func Metrics(s Schedule, yield float64, frequency int) (RiskMetrics, error) {
	return MetricsWithBump(s, yield, frequency, defaultBump)
}

// MetricsWithBump is Metrics with an explicit bump size for the numerical
// DV01 check.
func MetricsWithBump(s Schedule, yield float64, frequency int, bump float64) (RiskMetrics, error) {
	if math.IsNaN(bump) || math.IsInf(bump, 0) || bump <= 0 {
		return RiskMetrics{}, &errs.DomainError{Op: "bond.Metrics", Reason: "bump must be positive and finite", Value: bump}
	}
	base, err := compoundBase("bond.Metrics", s, yield, frequency)
	if err != nil {
		return RiskMetrics{}, err
	}

	f := float64(frequency)
	var pv, weighted, curvature float64
	for _, cf := range s {
		v := cf.Amount * math.Pow(base, -f*cf.Time)
		pv += v
		weighted += v * cf.Time
		curvature += v * cf.Time * (cf.Time + 1/f)
	}
	if pv <= 0 {
		return RiskMetrics{}, &errs.DomainError{Op: "bond.Metrics", Reason: "schedule has non-positive present value", Value: pv}
	}

	macaulay := weighted / pv
	modified := macaulay / base
	convexity := curvature / (pv * base * base)

	up, err := PriceAtYield(s, yield+bump, frequency)
	if err != nil {
		return RiskMetrics{}, fmt.Errorf("Metrics: %w", err)
	}
	down, err := PriceAtYield(s, yield-bump, frequency)
	if err != nil {
		return RiskMetrics{}, fmt.Errorf("Metrics: %w", err)
	}

	return RiskMetrics{
		Price:            pv,
		MacaulayDuration: macaulay,
		ModifiedDuration: modified,
		Convexity:        convexity,
		DV01:             modified * pv * 1e-4,
		DV01Numerical:    (down - up) / (2 * bump) * 1e-4,
	}, nil
}

// CurveDV01 is the price change of the schedule for a one basis point
// parallel drop of the curve's zero rates, by symmetric bump-and-reprice
// with a half basis point each way.
func CurveDV01(s Schedule, c *curve.Curve) (float64, error) {
	return CurveDV01WithBump(s, c, defaultBump)
}

// CurveDV01WithBump is CurveDV01 with an explicit bump size.
func CurveDV01WithBump(s Schedule, c *curve.Curve, bump float64) (float64, error) {
	if c == nil {
		return 0, ErrNilCurve
	}
	if math.IsNaN(bump) || math.IsInf(bump, 0) || bump <= 0 {
		return 0, &errs.DomainError{Op: "bond.CurveDV01", Reason: "bump must be positive and finite", Value: bump}
	}

	down, err := Price(s, c.Shift(-bump))
	if err != nil {
		return 0, fmt.Errorf("CurveDV01: %w", err)
	}
	up, err := Price(s, c.Shift(bump))
	if err != nil {
		return 0, fmt.Errorf("CurveDV01: %w", err)
	}
	return (down - up) / (2 * bump) * 1e-4, nil
}

// PriceChangeEstimate is the output of EstimatePriceChange.
type PriceChangeEstimate struct {
	// FirstOrder is the duration term −D·P·Δy.
	FirstOrder float64
	// SecondOrder is the convexity adjustment ½·C·P·Δy².
	SecondOrder float64
	// Total is the estimated price change.
	Total float64
	// NewPrice is the starting price plus Total.
	NewPrice float64
}

// EstimatePriceChange expands the price move for a yield change dy to second
// order around the metrics' base price:
//
//	ΔP ≈ −D_mod · P · Δy + ½ · C · P · Δy²
func EstimatePriceChange(m RiskMetrics, dy float64) PriceChangeEstimate {
	first := -m.ModifiedDuration * m.Price * dy
	second := 0.5 * m.Convexity * m.Price * dy * dy
	return PriceChangeEstimate{
		FirstOrder:  first,
		SecondOrder: second,
		Total:       first + second,
		NewPrice:    m.Price + first + second,
	}
}

// PriceChangeCheck pairs the Taylor estimate with an exact reprice.
type PriceChangeCheck struct {
	Estimate PriceChangeEstimate
	// ActualNewPrice is the exact price at the bumped yield.
	ActualNewPrice float64
	// EstimationError is Estimate.NewPrice minus ActualNewPrice.
	EstimationError float64
}

// CheckPriceChange evaluates the second-order estimate for a yield move dy
// and scores it against a full reprice at yield+dy.
func CheckPriceChange(s Schedule, yield float64, frequency int, dy float64) (PriceChangeCheck, error) {
	m, err := Metrics(s, yield, frequency)
	if err != nil {
		return PriceChangeCheck{}, fmt.Errorf("CheckPriceChange: %w", err)
	}
	actual, err := PriceAtYield(s, yield+dy, frequency)
	if err != nil {
		return PriceChangeCheck{}, fmt.Errorf("CheckPriceChange: %w", err)
	}
	est := EstimatePriceChange(m, dy)
	return PriceChangeCheck{
		Estimate:        est,
		ActualNewPrice:  actual,
		EstimationError: est.NewPrice - actual,
	}, nil
}

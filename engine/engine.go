// Package engine runs whole-portfolio bond analytics: it bootstraps a
// discount curve from market quotes, optionally calibrates a parametric
// curve to the bootstrapped pillars, and prices a batch of bonds
// concurrently against the result.
//
// Bond failures are isolated: a bond that cannot be priced carries its error
// in its own result slot and leaves the rest of the batch untouched.
// Request-level failures (bad quotes, a curve that will not build, a fit
// that will not converge) abort the whole analysis.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/julian-hilg/ficclib/bond"
	"github.com/julian-hilg/ficclib/bootstrap"
	"github.com/julian-hilg/ficclib/curve"
	"github.com/julian-hilg/ficclib/errs"
	"github.com/julian-hilg/ficclib/instrument"
	"github.com/julian-hilg/ficclib/nelsonsiegel"
)

// Request describes one analysis run.
type Request struct {
	// Instruments bootstrap the discount curve; instrument.Validate rules
	// apply.
	Instruments []instrument.MarketInstrument
	// Scheme selects the curve interpolation.
	Scheme curve.Scheme
	// Fit optionally calibrates a parametric family to the bootstrapped
	// pillars.
	Fit *FitRequest
	// Bonds are analyzed concurrently against the curve.
	Bonds []BondSpec
	// Concurrency caps parallel bond workers; 0 means one per CPU.
	Concurrency int
}

// FitRequest asks for a parametric calibration alongside the bootstrap.
type FitRequest struct {
	Family nelsonsiegel.Family
}

// BondSpec is one bond in the analysis batch.
type BondSpec struct {
	// Name labels the bond in the report; empty names are numbered.
	Name string
	bond.Terms
	// MarketPrice, when set, replaces the curve price as the basis for the
	// yield and risk measures and adds a z-spread versus the curve.
	MarketPrice *float64
}

// PricingResult is the analysis of a single bond. Optional analytics are
// pointers: nil means the value could not be computed, never that it is zero.
type PricingResult struct {
	Name string
	// Price is the dirty price off the bootstrapped curve.
	Price float64
	// PremiumToPar is the pricing basis minus face: positive for a premium
	// bond, negative for a discount.
	PremiumToPar float64
	// CurveDV01 is the parallel bump-and-reprice DV01 off the curve.
	CurveDV01 float64
	// MarketPrice echoes the bond's quote; ZSpread is the parallel spread
	// over the curve that reproduces it. Both are nil without a quote.
	MarketPrice *float64
	ZSpread     *float64
	// Yield is the flat yield implied by the market price when given,
	// otherwise by Price. It stays nil when the solve fails; the curve
	// analytics above remain valid in that case.
	Yield *float64
	// ParYieldDiffBp is the coupon minus Yield, in basis points.
	ParYieldDiffBp *float64
	// Metrics are the risk measures evaluated at Yield.
	Metrics *bond.RiskMetrics
	// DV01Per100 rescales the analytic DV01 to 100 of face.
	DV01Per100 *float64
	// FitPrice and FitDV01 reprice on the calibrated parametric curve; nil
	// without a fit.
	FitPrice *float64
	FitDV01  *float64
	// Err is the first failure in this bond's analysis; fields filled in
	// before it remain valid, the rest keep their zero values. The other
	// bonds in the batch are unaffected.
	Err error
}

// FitOutcome summarizes the parametric calibration in a report.
type FitOutcome struct {
	Family     nelsonsiegel.Family
	Parameters nelsonsiegel.Parameters
	Iterations int
	Residual   float64
}

// Report is the output of Analyze.
type Report struct {
	RequestID string
	Scheme    curve.Scheme
	Pillars   []curve.Point
	Fit       *FitOutcome
	Results   []PricingResult
	Elapsed   time.Duration
}

// Analyze bootstraps the curve and prices every bond in the request. The
// context cancels outstanding bond work; an already-cancelled context
// returns its error.
func Analyze(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Instruments) == 0 {
		return nil, &errs.DomainError{Op: "engine.Analyze", Reason: "at least one curve instrument required"}
	}

	c, err := bootstrap.Build(req.Instruments, req.Scheme)
	if err != nil {
		return nil, fmt.Errorf("Analyze: %w", err)
	}

	report := &Report{
		RequestID: uuid.NewString(),
		Scheme:    req.Scheme,
		Pillars:   c.Points(),
	}

	var fitted *nelsonsiegel.Curve
	if req.Fit != nil {
		outcome, fc, err := fitPillars(req.Fit.Family, c)
		if err != nil {
			return nil, fmt.Errorf("Analyze: %w", err)
		}
		report.Fit = outcome
		fitted = fc
	}

	report.Results = make([]PricingResult, len(req.Bonds))

	limit := req.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := range req.Bonds {
		i := i
		g.Go(func() error {
			name := req.Bonds[i].Name
			if name == "" {
				name = fmt.Sprintf("bond-%d", i+1)
			}
			if err := gctx.Err(); err != nil {
				report.Results[i] = PricingResult{Name: name, Err: err}
				return nil
			}
			report.Results[i] = analyzeBond(name, req.Bonds[i], c, fitted)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// fitPillars calibrates the family to the bootstrapped pillar zeros.
func fitPillars(family nelsonsiegel.Family, c *curve.Curve) (*FitOutcome, *nelsonsiegel.Curve, error) {
	pillars := c.Points()
	obs := make([]nelsonsiegel.Observation, len(pillars))
	for i, p := range pillars {
		obs[i] = nelsonsiegel.Observation{T: p.T, Z: p.Z}
	}

	res, err := nelsonsiegel.Fit(family, obs)
	if err != nil {
		return nil, nil, err
	}
	outcome := &FitOutcome{
		Family:     family,
		Parameters: res.Curve.Params(),
		Iterations: res.Iterations,
		Residual:   res.Residual,
	}
	return outcome, res.Curve, nil
}

// analyzeBond prices one bond off the curve, backs out its implied yield,
// and evaluates the risk measures there. Any failure is recorded on the
// result rather than returned. Curve analytics come first so that a failed
// yield or spread solve still leaves them on the result.
func analyzeBond(name string, spec BondSpec, c *curve.Curve, fitted *nelsonsiegel.Curve) PricingResult {
	res := PricingResult{Name: name}

	s, err := bond.NewSchedule(spec.Terms)
	if err != nil {
		res.Err = err
		return res
	}

	res.Price, err = bond.Price(s, c)
	if err != nil {
		res.Err = err
		return res
	}

	res.CurveDV01, err = bond.CurveDV01(s, c)
	if err != nil {
		res.Err = err
		return res
	}

	if fitted != nil {
		fitPrice, err := bond.Price(s, fitted)
		if err != nil {
			res.Err = err
			return res
		}
		fitDV01, err := parametricDV01(s, fitted)
		if err != nil {
			res.Err = err
			return res
		}
		res.FitPrice = &fitPrice
		res.FitDV01 = &fitDV01
	}

	pricingBasis := res.Price
	if spec.MarketPrice != nil {
		quote := *spec.MarketPrice
		res.MarketPrice = &quote
		pricingBasis = quote
	}
	res.PremiumToPar = pricingBasis - spec.Face

	if res.MarketPrice != nil {
		zres, err := bond.SolveZSpread(s, c, pricingBasis)
		if err != nil {
			res.Err = err
			return res
		}
		res.ZSpread = &zres.Spread
	}

	yield, err := impliedYield(s, pricingBasis, spec.Frequency, c)
	if err != nil {
		res.Err = err
		return res
	}
	res.Yield = &yield
	parDiff := (spec.Coupon - yield) * 1e4
	res.ParYieldDiffBp = &parDiff

	m, err := bond.Metrics(s, yield, spec.Frequency)
	if err != nil {
		res.Err = err
		return res
	}
	res.Metrics = &m
	per100 := m.DV01 / spec.Face * 100
	res.DV01Per100 = &per100

	return res
}

// impliedYield backs the flat yield out of the curve price, seeded with the
// curve zero at the schedule's weighted maturity.
func impliedYield(s bond.Schedule, price float64, frequency int, c *curve.Curve) (float64, error) {
	guess := 0.03
	if wm, err := bond.WeightedMaturity(s, 0, frequency); err == nil {
		if z, err := c.ZeroRate(wm); err == nil {
			guess = z
		}
	}
	res, err := bond.SolveYieldFrom(s, price, frequency, guess, bond.DefaultYieldParams)
	if err != nil {
		return 0, err
	}
	return res.Yield, nil
}

// parametricDV01 is the half-basis-point bump-and-reprice DV01 on the
// fitted curve; the level coefficient shift is an exact parallel move.
func parametricDV01(s bond.Schedule, c *nelsonsiegel.Curve) (float64, error) {
	const bump = 5e-5
	down, err := bond.Price(s, c.Shift(-bump))
	if err != nil {
		return 0, err
	}
	up, err := bond.Price(s, c.Shift(bump))
	if err != nil {
		return 0, err
	}
	return (down - up) / (2 * bump) * 1e-4, nil
}

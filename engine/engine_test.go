package engine_test

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/julian-hilg/ficclib/bond"
	"github.com/julian-hilg/ficclib/curve"
	"github.com/julian-hilg/ficclib/engine"
	"github.com/julian-hilg/ficclib/errs"
	"github.com/julian-hilg/ficclib/instrument"
	"github.com/julian-hilg/ficclib/nelsonsiegel"
)

// analysisFixture mirrors the JSON files under testdata. Expected prices and
// yields are closed-form values for flat curves, so they hold under every
// interpolation scheme.
type analysisFixture struct {
	Name        string              `json:"name"`
	Scheme      string              `json:"scheme"`
	Instruments []fixtureInstrument `json:"instruments"`
	Bonds       []fixtureBond       `json:"bonds"`
	PriceTol    float64             `json:"price_tol"`
	YieldTol    float64             `json:"yield_tol"`
}

type fixtureInstrument struct {
	Kind      string  `json:"kind"`
	Maturity  float64 `json:"maturity"`
	Rate      float64 `json:"rate"`
	Frequency int     `json:"frequency"`
	Coupon    float64 `json:"coupon"`
}

type fixtureBond struct {
	Name      string  `json:"name"`
	Coupon    float64 `json:"coupon"`
	Face      float64 `json:"face"`
	Maturity  float64 `json:"maturity"`
	Frequency int     `json:"frequency"`
	Price     float64 `json:"price"`
	Yield     float64 `json:"yield"`
}

func fixturePaths(t *testing.T) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join("testdata", "input_analysis_*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no analysis fixtures under testdata")
	return paths
}

func loadFixture(t *testing.T, path string) analysisFixture {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var fx analysisFixture
	require.NoError(t, json.Unmarshal(raw, &fx))
	return fx
}

func fixtureInstruments(t *testing.T, specs []fixtureInstrument) []instrument.MarketInstrument {
	t.Helper()
	out := make([]instrument.MarketInstrument, len(specs))
	for i, fi := range specs {
		switch fi.Kind {
		case "deposit":
			out[i] = instrument.NewDeposit(fi.Maturity, fi.Rate)
		case "swap":
			out[i] = instrument.NewSwap(fi.Maturity, fi.Rate, fi.Frequency)
		case "bond":
			out[i] = instrument.NewBondQuote(fi.Maturity, fi.Rate, fi.Coupon, fi.Frequency)
		default:
			t.Fatalf("fixture instrument kind %q", fi.Kind)
		}
	}
	return out
}

func TestAnalyze_Fixtures(t *testing.T) {
	t.Parallel()

	for _, path := range fixturePaths(t) {
		fx := loadFixture(t, path)
		t.Run(fx.Name, func(t *testing.T) {
			t.Parallel()

			scheme, err := curve.ParseScheme(fx.Scheme)
			require.NoError(t, err)

			req := engine.Request{
				Instruments: fixtureInstruments(t, fx.Instruments),
				Scheme:      scheme,
			}
			for _, fb := range fx.Bonds {
				req.Bonds = append(req.Bonds, engine.BondSpec{
					Name: fb.Name,
					Terms: bond.Terms{
						Coupon:    fb.Coupon,
						Face:      fb.Face,
						Maturity:  fb.Maturity,
						Frequency: fb.Frequency,
					},
				})
			}

			report, err := engine.Analyze(context.Background(), req)
			require.NoError(t, err)

			_, err = uuid.Parse(report.RequestID)
			require.NoError(t, err, "request id %q", report.RequestID)
			require.Len(t, report.Pillars, len(fx.Instruments))
			require.Len(t, report.Results, len(fx.Bonds))

			for i, want := range fx.Bonds {
				got := report.Results[i]
				require.NoError(t, got.Err, "bond %s", want.Name)
				require.Equal(t, want.Name, got.Name)
				require.InDelta(t, want.Price, got.Price, fx.PriceTol, "price of %s", want.Name)
				require.NotNil(t, got.Yield, "yield of %s", want.Name)
				require.InDelta(t, want.Yield, *got.Yield, fx.YieldTol, "yield of %s", want.Name)
				require.InDelta(t, want.Price-want.Face, got.PremiumToPar, fx.PriceTol)
				// Metrics are evaluated at the solved yield, so their price
				// must reproduce the curve price.
				require.NotNil(t, got.Metrics)
				require.InDelta(t, got.Price, got.Metrics.Price, 1e-6)
				require.Greater(t, got.Metrics.ModifiedDuration, 0.0)
				require.Greater(t, got.CurveDV01, 0.0)
				require.NotNil(t, got.ParYieldDiffBp)
				require.InDelta(t, (want.Coupon-want.Yield)*1e4, *got.ParYieldDiffBp, fx.YieldTol*1e4)
				require.NotNil(t, got.DV01Per100)
				require.InDelta(t, got.Metrics.DV01/want.Face*100, *got.DV01Per100, 1e-12)
				t.Logf("%-28s price=%.6f yield=%.6f dv01=%.6f", got.Name, got.Price, *got.Yield, got.CurveDV01)
			}
		})
	}
}

func flatRequest() engine.Request {
	return engine.Request{
		Instruments: []instrument.MarketInstrument{
			instrument.NewDeposit(1, 0.03),
			instrument.NewSwap(2, 0.03, 1),
			instrument.NewSwap(3, 0.03, 1),
			instrument.NewSwap(4, 0.03, 1),
			instrument.NewSwap(5, 0.03, 1),
		},
		Scheme: curve.LinearZero,
	}
}

func TestAnalyze_IsolatesBadBond(t *testing.T) {
	t.Parallel()

	req := flatRequest()
	req.Bonds = []engine.BondSpec{
		{Name: "good three-year", Terms: bond.Terms{Coupon: 0.04, Face: 100, Maturity: 3, Frequency: 1}},
		{Terms: bond.Terms{Coupon: 0.04, Face: 100, Maturity: 3, Frequency: 3}},
		{Name: "good five-year zero", Terms: bond.Terms{Face: 100, Maturity: 5, Frequency: 1}},
	}

	report, err := engine.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	require.NoError(t, report.Results[0].Err)
	require.Greater(t, report.Results[0].Price, 0.0)

	require.Error(t, report.Results[1].Err)
	require.Equal(t, "bond-2", report.Results[1].Name)
	var derr *errs.DomainError
	require.ErrorAs(t, report.Results[1].Err, &derr)

	require.NoError(t, report.Results[2].Err)
	require.InDelta(t, 86.2608784, report.Results[2].Price, 1e-4)
}

func TestAnalyze_RequestErrors(t *testing.T) {
	t.Parallel()

	unsorted := flatRequest()
	unsorted.Instruments[0], unsorted.Instruments[1] = unsorted.Instruments[1], unsorted.Instruments[0]

	impossible := flatRequest()
	impossible.Instruments[0] = instrument.NewDeposit(1, -1.5)

	badScheme := flatRequest()
	badScheme.Scheme = curve.Scheme(42)

	thinFit := engine.Request{
		Instruments: []instrument.MarketInstrument{
			instrument.NewDeposit(1, 0.03),
			instrument.NewSwap(5, 0.032, 1),
		},
		Scheme: curve.LinearZero,
		Fit:    &engine.FitRequest{Family: nelsonsiegel.NelsonSiegel},
	}

	cases := []struct {
		name   string
		req    engine.Request
		target any
	}{
		{"no instruments", engine.Request{Scheme: curve.LinearZero}, new(*errs.DomainError)},
		{"unsorted instruments", unsorted, new(*errs.OrderingError)},
		{"impossible deposit", impossible, new(*errs.BootstrapError)},
		{"unknown scheme", badScheme, new(*errs.DomainError)},
		{"too few pillars for fit", thinFit, new(*errs.FitError)},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			report, err := engine.Analyze(context.Background(), tc.req)
			require.Error(t, err)
			require.ErrorAs(t, err, tc.target)
			require.Nil(t, report)
		})
	}
}

func TestAnalyze_WithFit(t *testing.T) {
	t.Parallel()

	base := engine.Request{
		Instruments: []instrument.MarketInstrument{
			instrument.NewDeposit(0.25, 0.022),
			instrument.NewDeposit(0.5, 0.023),
			instrument.NewDeposit(1, 0.025),
			instrument.NewSwap(2, 0.028, 1),
			instrument.NewSwap(3, 0.030, 1),
			instrument.NewSwap(5, 0.032, 1),
			instrument.NewSwap(7, 0.0335, 1),
			instrument.NewSwap(10, 0.034, 1),
		},
		Scheme: curve.CubicZero,
		Bonds: []engine.BondSpec{
			{Name: "five-year 3%", Terms: bond.Terms{Coupon: 0.03, Face: 100, Maturity: 5, Frequency: 1}},
		},
	}

	for _, family := range []nelsonsiegel.Family{nelsonsiegel.NelsonSiegel, nelsonsiegel.Svensson} {
		family := family
		t.Run(family.String(), func(t *testing.T) {
			t.Parallel()

			req := base
			req.Fit = &engine.FitRequest{Family: family}

			report, err := engine.Analyze(context.Background(), req)
			require.NoError(t, err)
			require.NotNil(t, report.Fit)
			require.Equal(t, family, report.Fit.Family)
			require.GreaterOrEqual(t, report.Fit.Iterations, 1)
			require.GreaterOrEqual(t, report.Fit.Parameters.Tau1, 0.01)
			require.LessOrEqual(t, report.Fit.Parameters.Tau1, 30.0)

			res := report.Results[0]
			require.NoError(t, res.Err)
			require.NotNil(t, res.FitPrice)
			require.NotNil(t, res.FitDV01)
			require.InDelta(t, res.Price, *res.FitPrice, 2.0, "parametric reprice drifted from the curve price")
			require.Greater(t, *res.FitDV01, 0.0)
			relDiff := math.Abs(*res.FitDV01-res.CurveDV01) / res.CurveDV01
			require.Less(t, relDiff, 0.25)
		})
	}
}

func TestAnalyze_MarketPriceAddsZSpread(t *testing.T) {
	t.Parallel()

	quote := 103.0
	atCurve := 103.8269393

	req := flatRequest()
	req.Bonds = []engine.BondSpec{
		{Name: "cheap", Terms: bond.Terms{Coupon: 0.05, Face: 100, Maturity: 2, Frequency: 1}, MarketPrice: &quote},
		{Name: "fair", Terms: bond.Terms{Coupon: 0.05, Face: 100, Maturity: 2, Frequency: 1}, MarketPrice: &atCurve},
		{Name: "no quote", Terms: bond.Terms{Coupon: 0.05, Face: 100, Maturity: 2, Frequency: 1}},
	}

	report, err := engine.Analyze(context.Background(), req)
	require.NoError(t, err)

	cheap := report.Results[0]
	require.NoError(t, cheap.Err)
	require.NotNil(t, cheap.MarketPrice)
	require.NotNil(t, cheap.ZSpread)
	require.Greater(t, *cheap.ZSpread, 0.0, "below-curve quote should carry positive spread")
	require.NotNil(t, cheap.Yield)
	require.Greater(t, *cheap.Yield, 0.03, "yield off the cheap quote exceeds the curve-implied yield")
	require.NotNil(t, cheap.Metrics)
	require.InDelta(t, quote, cheap.Metrics.Price, 1e-6, "metrics reprice the market quote")
	require.InDelta(t, quote-100, cheap.PremiumToPar, 1e-12, "premium follows the quote, not the curve price")

	fair := report.Results[1]
	require.NoError(t, fair.Err)
	require.InDelta(t, 0.0, *fair.ZSpread, 1e-6, "quote at the curve price has no spread")
	require.NotNil(t, fair.Yield)
	require.InDelta(t, 0.03, *fair.Yield, 1e-5)

	require.Nil(t, report.Results[2].MarketPrice)
	require.Nil(t, report.Results[2].ZSpread)
}

func TestAnalyze_UnsolvableQuoteKeepsCurveAnalytics(t *testing.T) {
	t.Parallel()

	quote := -5.0
	req := flatRequest()
	req.Bonds = []engine.BondSpec{
		{Name: "negative quote", Terms: bond.Terms{Coupon: 0.05, Face: 100, Maturity: 2, Frequency: 1}, MarketPrice: &quote},
	}

	report, err := engine.Analyze(context.Background(), req)
	require.NoError(t, err)

	res := report.Results[0]
	require.Error(t, res.Err)
	var derr *errs.DomainError
	require.ErrorAs(t, res.Err, &derr)

	// The curve-side analytics were computed before the spread solve failed.
	require.InDelta(t, 103.8269393, res.Price, 1e-4)
	require.Greater(t, res.CurveDV01, 0.0)
	require.NotNil(t, res.MarketPrice)

	// Everything downstream of the failed solve stays absent, not zero.
	require.Nil(t, res.ZSpread)
	require.Nil(t, res.Yield)
	require.Nil(t, res.ParYieldDiffBp)
	require.Nil(t, res.Metrics)
	require.Nil(t, res.DV01Per100)
}

func TestAnalyze_WithoutFitLeavesParametricFieldsNil(t *testing.T) {
	t.Parallel()

	req := flatRequest()
	req.Bonds = []engine.BondSpec{
		{Name: "two-year", Terms: bond.Terms{Coupon: 0.05, Face: 100, Maturity: 2, Frequency: 1}},
	}

	report, err := engine.Analyze(context.Background(), req)
	require.NoError(t, err)
	require.Nil(t, report.Fit)
	require.Nil(t, report.Results[0].FitPrice)
	require.Nil(t, report.Results[0].FitDV01)
}

func TestAnalyze_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := flatRequest()
	req.Bonds = []engine.BondSpec{
		{Name: "two-year", Terms: bond.Terms{Coupon: 0.05, Face: 100, Maturity: 2, Frequency: 1}},
	}

	report, err := engine.Analyze(ctx, req)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, report)
}

func TestAnalyze_DeterministicAcrossConcurrency(t *testing.T) {
	t.Parallel()

	req := flatRequest()
	for i := 1; i <= 12; i++ {
		req.Bonds = append(req.Bonds,
			engine.BondSpec{Terms: bond.Terms{Coupon: 0.02 + 0.0015*float64(i), Face: 100, Maturity: float64(i), Frequency: 1}},
			engine.BondSpec{Terms: bond.Terms{Coupon: 0.02 + 0.0015*float64(i), Face: 100, Maturity: float64(i), Frequency: 2}},
		)
	}

	serialReq := req
	serialReq.Concurrency = 1
	parallelReq := req
	parallelReq.Concurrency = 8

	serial, err := engine.Analyze(context.Background(), serialReq)
	require.NoError(t, err)
	parallel, err := engine.Analyze(context.Background(), parallelReq)
	require.NoError(t, err)

	for _, res := range serial.Results {
		require.NoError(t, res.Err)
	}
	require.Equal(t, serial.Results, parallel.Results)
}

func TestAnalyze_EmptyBondList(t *testing.T) {
	t.Parallel()

	report, err := engine.Analyze(context.Background(), flatRequest())
	require.NoError(t, err)
	require.Empty(t, report.Results)
	require.Len(t, report.Pillars, 5)
}

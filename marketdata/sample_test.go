package marketdata_test

import (
	"context"
	"testing"

	"github.com/julian-hilg/ficclib/bootstrap"
	"github.com/julian-hilg/ficclib/curve"
	"github.com/julian-hilg/ficclib/engine"
	"github.com/julian-hilg/ficclib/marketdata"
	"github.com/julian-hilg/ficclib/nelsonsiegel"
)

// The sample sheet has to stay analyzable end to end; these tests catch
// edits that break it.

func TestSampleInstruments_Bootstrap(t *testing.T) {
	t.Parallel()

	for _, scheme := range []curve.Scheme{curve.LinearZero, curve.LogLinearDF, curve.CubicZero} {
		c, err := bootstrap.Build(marketdata.SampleInstruments(), scheme)
		if err != nil {
			t.Fatalf("Build(%v): %v", scheme, err)
		}
		if got, want := len(c.Points()), len(marketdata.SampleInstruments()); got != want {
			t.Fatalf("pillar count = %d, want %d", got, want)
		}
	}
}

func TestSampleRequest_AnalyzesClean(t *testing.T) {
	t.Parallel()

	req := marketdata.SampleRequest(curve.CubicZero)
	req.Fit = &engine.FitRequest{Family: nelsonsiegel.Svensson}

	report, err := engine.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if report.Fit == nil {
		t.Fatal("expected a fit outcome")
	}
	quoted := 0
	for _, res := range report.Results {
		if res.Err != nil {
			t.Fatalf("bond %s: %v", res.Name, res.Err)
		}
		if res.Yield == nil || res.Metrics == nil {
			t.Fatalf("bond %s: analysis incomplete without an error", res.Name)
		}
		if res.Price <= 0 || *res.Yield <= 0 {
			t.Fatalf("bond %s: implausible price=%.6f yield=%.6f", res.Name, res.Price, *res.Yield)
		}
		if res.MarketPrice != nil {
			quoted++
			if res.ZSpread == nil {
				t.Fatalf("bond %s: quote without z-spread", res.Name)
			}
		}
	}
	if quoted == 0 {
		t.Fatal("sample portfolio should carry at least one market quote")
	}
}

func TestSampleObservations_Fit(t *testing.T) {
	t.Parallel()

	res, err := nelsonsiegel.Fit(nelsonsiegel.Svensson, marketdata.SampleObservations())
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	params := res.Curve.Params()
	if params.Tau1 < 0.01 || params.Tau1 > 30 {
		t.Fatalf("Tau1 = %v outside bounds", params.Tau1)
	}
	if params.Tau2 < 0.01 || params.Tau2 > 30 {
		t.Fatalf("Tau2 = %v outside bounds", params.Tau2)
	}
}

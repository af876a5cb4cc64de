package main

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/julian-hilg/ficclib/bond"
	"github.com/julian-hilg/ficclib/curve"
	"github.com/julian-hilg/ficclib/engine"
	"github.com/julian-hilg/ficclib/instrument"
)

func TestMain(m *testing.M) {
	logger = zerolog.Nop()
	os.Exit(m.Run())
}

func TestParseTasks(t *testing.T) {
	single := []byte(`{"task_id":"a","scheme":"linear-zero"}`)
	tasks, isArray, err := parseTasks[bootstrapInput](single)
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if isArray || len(tasks) != 1 || tasks[0].TaskID != "a" {
		t.Fatalf("single: got %+v isArray=%v", tasks, isArray)
	}

	array := []byte(`[{"task_id":"a"},{"task_id":"b"}]`)
	tasks, isArray, err = parseTasks[bootstrapInput](array)
	if err != nil {
		t.Fatalf("array: %v", err)
	}
	if !isArray || len(tasks) != 2 || tasks[1].TaskID != "b" {
		t.Fatalf("array: got %+v isArray=%v", tasks, isArray)
	}

	if _, _, err := parseTasks[bootstrapInput](nil); err == nil {
		t.Fatal("empty input should error")
	}
	if _, _, err := parseTasks[bootstrapInput]([]byte(`[]`)); err == nil {
		t.Fatal("empty array should error")
	}
	if _, _, err := parseTasks[bootstrapInput]([]byte(`{"scheme":`)); err == nil {
		t.Fatal("malformed JSON should error")
	}
}

func TestBuildInstruments(t *testing.T) {
	specs := []wireInstrument{
		{Kind: "deposit", Maturity: 0.5, Rate: 0.03},
		{Kind: "swap", Maturity: 5, Rate: 0.032, Frequency: 1},
		{Kind: "bond", Maturity: 7, Price: 99.4, Coupon: 0.031, Frequency: 2},
	}
	instruments, err := buildInstruments(specs)
	if err != nil {
		t.Fatalf("buildInstruments: %v", err)
	}
	if len(instruments) != 3 {
		t.Fatalf("got %d instruments", len(instruments))
	}

	if _, err := buildInstruments([]wireInstrument{{Kind: "future", Maturity: 1}}); err == nil {
		t.Fatal("unknown kind should error")
	}
}

func TestRunBootstrapTask(t *testing.T) {
	in := bootstrapInput{
		TaskID: "flat",
		Scheme: "loglinear-df",
		Instruments: []wireInstrument{
			{Kind: "deposit", Maturity: 1, Rate: 0.03},
			{Kind: "swap", Maturity: 2, Rate: 0.03, Frequency: 1},
			{Kind: "swap", Maturity: 3, Rate: 0.03, Frequency: 1},
		},
		Grid: []float64{1.5, 2.5},
	}

	out, err := runBootstrapTask(in)
	if err != nil {
		t.Fatalf("runBootstrapTask: %v", err)
	}
	if out.TaskID != "flat" || out.Scheme != "loglinear-df" {
		t.Fatalf("echoed fields wrong: %+v", out)
	}
	if len(out.Pillars) != 3 || len(out.Grid) != 2 {
		t.Fatalf("pillars=%d grid=%d", len(out.Pillars), len(out.Grid))
	}
	if got, want := out.Pillars[0].DF, 1/1.03; math.Abs(got-want) > 1e-9 {
		t.Fatalf("DF(1) = %.12f, want %.12f", got, want)
	}

	in.Scheme = "bezier"
	if _, err := runBootstrapTask(in); err == nil {
		t.Fatal("unknown scheme should error")
	}
}

func TestRunFitTask_FlatObservations(t *testing.T) {
	in := fitInput{
		TaskID: "flat-fit",
		Observations: []wireObservation{
			{T: 0.5, Zero: 0.03}, {T: 1, Zero: 0.03}, {T: 2, Zero: 0.03},
			{T: 5, Zero: 0.03}, {T: 10, Zero: 0.03}, {T: 30, Zero: 0.03},
		},
		Grid: []float64{3, 7},
	}

	out, err := runFitTask(in)
	if err != nil {
		t.Fatalf("runFitTask: %v", err)
	}
	if out.Family != "nelson-siegel" {
		t.Fatalf("default family = %q", out.Family)
	}
	if out.Residual > 1e-12 {
		t.Fatalf("flat data should fit exactly, residual %g", out.Residual)
	}
	if math.Abs(out.Parameters.Beta0-0.03) > 1e-6 {
		t.Fatalf("Beta0 = %v, want 0.03", out.Parameters.Beta0)
	}
	for _, p := range out.Grid {
		if math.Abs(p.Zero-0.03) > 1e-6 {
			t.Fatalf("grid zero at %v = %v", p.T, p.Zero)
		}
	}

	in.Family = "polynomial"
	if _, err := runFitTask(in); err == nil {
		t.Fatal("unknown family should error")
	}
}

func TestRunYieldTask_Terms(t *testing.T) {
	out, err := runYieldTask(yieldInput{
		TaskID:    "terms",
		Price:     103.8269393,
		Coupon:    0.05,
		Maturity:  2,
		Frequency: 1,
	})
	if err != nil {
		t.Fatalf("runYieldTask: %v", err)
	}
	if math.Abs(out.Yield-0.03) > 1e-6 {
		t.Fatalf("yield = %.9f, want 0.03", out.Yield)
	}
	if out.Cashflows != 2 {
		t.Fatalf("cashflows = %d, want 2", out.Cashflows)
	}
	if math.Abs(out.Price-103.8269393) > 1e-6 {
		t.Fatalf("reprice at solved yield = %.7f", out.Price)
	}
}

func TestRunYieldTask_Dated(t *testing.T) {
	out, err := runYieldTask(yieldInput{
		TaskID:       "dated",
		Price:        100,
		Coupon:       0.04,
		Frequency:    2,
		Settlement:   "2026-08-25",
		MaturityDate: "2031-08-25",
		Convention:   "ACT/365F",
		Adjust:       "none",
	})
	if err != nil {
		t.Fatalf("runYieldTask: %v", err)
	}
	if out.Cashflows != 10 {
		t.Fatalf("cashflows = %d, want 10", out.Cashflows)
	}
	// A five year bond at par yields close to its coupon; actual day counts
	// move it a few basis points.
	if math.Abs(out.Yield-0.04) > 0.002 {
		t.Fatalf("yield = %.6f, want near 0.04", out.Yield)
	}
	if math.Abs(out.MaturityYears-5.0) > 0.01 {
		t.Fatalf("maturity years = %.6f, want near 5", out.MaturityYears)
	}
}

func TestRunYieldTask_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   yieldInput
	}{
		{"no maturity", yieldInput{Price: 100, Coupon: 0.04, Frequency: 2}},
		{"both maturities", yieldInput{Price: 100, Coupon: 0.04, Frequency: 2, Maturity: 5, MaturityDate: "2031-08-25", Settlement: "2026-08-25"}},
		{"bad settlement", yieldInput{Price: 100, Coupon: 0.04, Frequency: 2, Settlement: "yesterday", MaturityDate: "2031-08-25"}},
		{"maturity before settlement", yieldInput{Price: 100, Coupon: 0.04, Frequency: 2, Settlement: "2026-08-25", MaturityDate: "2020-08-25"}},
		{"bad adjust", yieldInput{Price: 100, Coupon: 0.04, Frequency: 2, Settlement: "2026-08-25", MaturityDate: "2031-08-25", Adjust: "previous"}},
		{"bad convention", yieldInput{Price: 100, Coupon: 0.04, Frequency: 2, Settlement: "2026-08-25", MaturityDate: "2031-08-25", Convention: "ACT/252"}},
		{"negative price", yieldInput{Price: -5, Coupon: 0.04, Frequency: 2, Maturity: 5}},
	}
	for _, tc := range cases {
		if _, err := runYieldTask(tc.in); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestBuildAnalyzeRequest(t *testing.T) {
	in := analyzeInput{
		Scheme:    "cubic-zero",
		FitFamily: "svensson",
		Instruments: []wireInstrument{
			{Kind: "deposit", Maturity: 1, Rate: 0.03},
		},
		Bonds: []wireBond{
			{Name: "b", Coupon: 0.04, Maturity: 5, Frequency: 2},
		},
	}
	req, err := buildAnalyzeRequest(in)
	if err != nil {
		t.Fatalf("buildAnalyzeRequest: %v", err)
	}
	if req.Fit == nil {
		t.Fatal("fit request missing")
	}
	if req.Bonds[0].Face != 100 {
		t.Fatalf("face default = %v, want 100", req.Bonds[0].Face)
	}

	in.FitFamily = "cubic"
	if _, err := buildAnalyzeRequest(in); err == nil {
		t.Fatal("unknown family should error")
	}
	in.FitFamily = ""
	in.Scheme = "bezier"
	if _, err := buildAnalyzeRequest(in); err == nil {
		t.Fatal("unknown scheme should error")
	}
}

func TestRunAnalyzeRequest_WireMapping(t *testing.T) {
	badQuote := -5.0
	req := engine.Request{
		Instruments: []instrument.MarketInstrument{
			instrument.NewDeposit(1, 0.03),
			instrument.NewSwap(2, 0.03, 1),
			instrument.NewSwap(3, 0.03, 1),
		},
		Scheme: curve.LinearZero,
		Bonds: []engine.BondSpec{
			{Name: "clean", Terms: bond.Terms{Coupon: 0.05, Face: 100, Maturity: 2, Frequency: 1}},
			{Name: "bad quote", Terms: bond.Terms{Coupon: 0.05, Face: 100, Maturity: 2, Frequency: 1}, MarketPrice: &badQuote},
		},
	}

	out, err := runAnalyzeRequest(context.Background(), "wire", req)
	if err != nil {
		t.Fatalf("runAnalyzeRequest: %v", err)
	}
	if out.TaskID != "wire" || out.RequestID == "" || len(out.Results) != 2 {
		t.Fatalf("output header wrong: %+v", out)
	}

	clean := out.Results[0]
	if clean.Error != "" {
		t.Fatalf("clean bond errored: %s", clean.Error)
	}
	if clean.Price == nil || clean.Yield == nil || clean.Macaulay == nil || clean.DV01Per100 == nil {
		t.Fatalf("clean bond missing analytics: %+v", clean)
	}
	if math.Abs(*clean.Price-103.8269393) > 1e-4 {
		t.Fatalf("clean price = %.7f", *clean.Price)
	}
	if math.Abs(*clean.PremiumToPar-(*clean.Price-100)) > 1e-9 {
		t.Fatalf("premium = %.7f for price %.7f", *clean.PremiumToPar, *clean.Price)
	}

	// The failed quote keeps its curve analytics but drops everything the
	// solve would have produced.
	bad := out.Results[1]
	if bad.Error == "" {
		t.Fatal("bad quote should carry an error")
	}
	if bad.Price == nil || bad.CurveDV01 == nil {
		t.Fatalf("bad quote lost its curve analytics: %+v", bad)
	}
	if bad.Yield != nil || bad.ZSpread != nil || bad.Macaulay != nil {
		t.Fatalf("bad quote carries solved fields: %+v", bad)
	}
}

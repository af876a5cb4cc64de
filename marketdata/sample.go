// Package marketdata bundles a static sample quote sheet for demos and
// smoke tests. Production callers wire their own instruments; these numbers
// are a plausible snapshot, not a live feed.
package marketdata

import (
	"github.com/julian-hilg/ficclib/bond"
	"github.com/julian-hilg/ficclib/curve"
	"github.com/julian-hilg/ficclib/engine"
	"github.com/julian-hilg/ficclib/instrument"
	"github.com/julian-hilg/ficclib/nelsonsiegel"
)

// SampleInstruments is a par quote sheet: money-market deposits to one year,
// semiannual par swaps beyond.
func SampleInstruments() []instrument.MarketInstrument {
	return []instrument.MarketInstrument{
		instrument.NewDeposit(0.25, 0.0362),
		instrument.NewDeposit(0.5, 0.0355),
		instrument.NewDeposit(1, 0.0341),
		instrument.NewSwap(2, 0.0328, 2),
		instrument.NewSwap(3, 0.0324, 2),
		instrument.NewSwap(5, 0.0327, 2),
		instrument.NewSwap(7, 0.0334, 2),
		instrument.NewSwap(10, 0.0343, 2),
		instrument.NewSwap(15, 0.0355, 2),
		instrument.NewSwap(20, 0.0361, 2),
		instrument.NewSwap(30, 0.0357, 2),
	}
}

// SampleBonds is a small benchmark list to price against the sample curve.
// The ten year carries a market quote so spread analytics have something to
// chew on.
func SampleBonds() []engine.BondSpec {
	tenYearQuote := 106.20
	return []engine.BondSpec{
		{Name: "2Y 3.875%", Terms: bond.Terms{Coupon: 0.03875, Face: 100, Maturity: 2, Frequency: 2}},
		{Name: "5Y 4.125%", Terms: bond.Terms{Coupon: 0.04125, Face: 100, Maturity: 5, Frequency: 2}},
		{Name: "7Y strip", Terms: bond.Terms{Face: 100, Maturity: 7, Frequency: 2}},
		{Name: "10Y 4.25%", Terms: bond.Terms{Coupon: 0.0425, Face: 100, Maturity: 10, Frequency: 2}, MarketPrice: &tenYearQuote},
	}
}

// SampleObservations is a zero rate sheet for parametric fitting demos.
func SampleObservations() []nelsonsiegel.Observation {
	return []nelsonsiegel.Observation{
		{T: 0.25, Z: 0.0358},
		{T: 0.5, Z: 0.0351},
		{T: 1, Z: 0.0337},
		{T: 2, Z: 0.0324},
		{T: 3, Z: 0.0321},
		{T: 5, Z: 0.0324},
		{T: 7, Z: 0.0331},
		{T: 10, Z: 0.0340},
		{T: 20, Z: 0.0357},
		{T: 30, Z: 0.0353},
	}
}

// SampleRequest bundles the sample sheet into a ready-to-run analysis.
func SampleRequest(scheme curve.Scheme) engine.Request {
	return engine.Request{
		Instruments: SampleInstruments(),
		Scheme:      scheme,
		Bonds:       SampleBonds(),
	}
}

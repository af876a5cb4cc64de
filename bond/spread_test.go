package bond_test

import (
	"errors"
	"math"
	"testing"

	"github.com/julian-hilg/ficclib/bond"
	"github.com/julian-hilg/ficclib/curve"
	"github.com/julian-hilg/ficclib/errs"
)

func TestSolveZSpread_RecoversParallelShift(t *testing.T) {
	t.Parallel()

	base, err := curve.New([]curve.Point{
		{T: 0.5, Z: 0.028},
		{T: 2, Z: 0.031},
		{T: 5, Z: 0.033},
		{T: 10, Z: 0.034},
	}, curve.CubicZero)
	if err != nil {
		t.Fatalf("curve.New: %v", err)
	}

	s, err := bond.NewSchedule(bond.Terms{Coupon: 0.04, Face: 100, Maturity: 7, Frequency: 2})
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}

	// Pricing on a parallel-shifted curve is exactly pricing on the base
	// curve with a z-spread equal to the shift.
	for _, shift := range []float64{0.0075, -0.004, 0.02} {
		price, err := bond.Price(s, base.Shift(shift))
		if err != nil {
			t.Fatalf("Price: %v", err)
		}
		res, err := bond.SolveZSpread(s, base, price)
		if err != nil {
			t.Fatalf("SolveZSpread(shift=%v): %v", shift, err)
		}
		if math.Abs(res.Spread-shift) > 1e-8 {
			t.Fatalf("spread = %.12f, want %.12f", res.Spread, shift)
		}
	}
}

func TestSolveZSpread_ZeroAtCurvePrice(t *testing.T) {
	t.Parallel()

	c, err := curve.New([]curve.Point{{T: 1, Z: 0.03}, {T: 5, Z: 0.032}}, curve.LinearZero)
	if err != nil {
		t.Fatalf("curve.New: %v", err)
	}
	s, err := bond.NewSchedule(bond.Terms{Coupon: 0.05, Face: 100, Maturity: 4, Frequency: 1})
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}

	price, err := bond.Price(s, c)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	res, err := bond.SolveZSpread(s, c, price)
	if err != nil {
		t.Fatalf("SolveZSpread: %v", err)
	}
	if math.Abs(res.Spread) > 1e-12 {
		t.Fatalf("spread at curve price = %g, want 0", res.Spread)
	}
}

func TestSolveZSpread_SignConvention(t *testing.T) {
	t.Parallel()

	c, err := curve.New([]curve.Point{{T: 1, Z: 0.03}, {T: 10, Z: 0.034}}, curve.LinearZero)
	if err != nil {
		t.Fatalf("curve.New: %v", err)
	}
	s, err := bond.NewSchedule(bond.Terms{Coupon: 0.035, Face: 100, Maturity: 5, Frequency: 2})
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}
	curvePrice, err := bond.Price(s, c)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}

	cheap, err := bond.SolveZSpread(s, c, curvePrice-1.5)
	if err != nil {
		t.Fatalf("SolveZSpread cheap: %v", err)
	}
	if cheap.Spread <= 0 {
		t.Fatalf("bond below curve price should carry positive spread, got %g", cheap.Spread)
	}

	rich, err := bond.SolveZSpread(s, c, curvePrice+1.5)
	if err != nil {
		t.Fatalf("SolveZSpread rich: %v", err)
	}
	if rich.Spread >= 0 {
		t.Fatalf("bond above curve price should carry negative spread, got %g", rich.Spread)
	}
}

func TestSolveZSpread_Errors(t *testing.T) {
	t.Parallel()

	c, err := curve.New([]curve.Point{{T: 1, Z: 0.03}}, curve.LinearZero)
	if err != nil {
		t.Fatalf("curve.New: %v", err)
	}
	s, err := bond.NewSchedule(bond.Terms{Coupon: 0.04, Face: 100, Maturity: 2, Frequency: 1})
	if err != nil {
		t.Fatalf("NewSchedule: %v", err)
	}

	if _, err := bond.SolveZSpread(s, nil, 100); !errors.Is(err, bond.ErrNilCurve) {
		t.Fatalf("nil curve: got %v", err)
	}

	var derr *errs.DomainError
	if _, err := bond.SolveZSpread(nil, c, 100); !errors.As(err, &derr) {
		t.Fatalf("empty schedule: got %v", err)
	}
	if _, err := bond.SolveZSpread(s, c, -3); !errors.As(err, &derr) {
		t.Fatalf("negative price: got %v", err)
	}
	if _, err := bond.SolveZSpread(s, c, math.NaN()); !errors.As(err, &derr) {
		t.Fatalf("NaN price: got %v", err)
	}
}

// Package instrument defines the market instruments consumed by the curve
// bootstrapper. Instruments are plain data plus validation; all behavior
// lives in the bootstrap package.
package instrument

import (
	"math"

	"github.com/julian-hilg/ficclib/errs"
)

// Kind discriminates the bootstrap instrument types.
type Kind int

const (
	// Deposit is a money-market deposit quoted as a simple annual rate.
	Deposit Kind = iota
	// Swap is a par interest-rate swap quoted by its fixed rate.
	Swap
	// BondQuote is a coupon bond quoted by its dirty price per 100 face.
	BondQuote
)

func (k Kind) String() string {
	switch k {
	case Deposit:
		return "deposit"
	case Swap:
		return "swap"
	case BondQuote:
		return "bond"
	default:
		return "unknown"
	}
}

// MarketInstrument is one observed quote feeding the bootstrap.
//
// Maturity is a year fraction from the valuation date. Rate is a decimal
// rate (negative allowed), except for BondQuote where it is the dirty price
// per 100 face.
type MarketInstrument struct {
	Kind      Kind
	Maturity  float64
	Rate      float64
	Frequency int     // fixed-leg or coupon payments per year; 0 for deposits
	Coupon    float64 // annual coupon rate as a decimal, BondQuote only
	Face      float64 // BondQuote only
}

// NewDeposit builds a deposit instrument from a simple annual rate.
func NewDeposit(maturity, rate float64) MarketInstrument {
	return MarketInstrument{Kind: Deposit, Maturity: maturity, Rate: rate}
}

// NewSwap builds a par swap instrument. frequency is fixed-leg payments per year.
func NewSwap(maturity, parRate float64, frequency int) MarketInstrument {
	return MarketInstrument{Kind: Swap, Maturity: maturity, Rate: parRate, Frequency: frequency}
}

// NewBondQuote builds a bond price instrument. price is the dirty price per
// 100 face and coupon the annual rate as a decimal; face is fixed at 100 to
// match the price quotation.
func NewBondQuote(maturity, price, coupon float64, frequency int) MarketInstrument {
	return MarketInstrument{
		Kind:      BondQuote,
		Maturity:  maturity,
		Rate:      price,
		Frequency: frequency,
		Coupon:    coupon,
		Face:      100,
	}
}

// periodRoundTol is the slack allowed when checking that a maturity is a
// whole number of payment periods.
const periodRoundTol = 1e-9

// Validate checks a bootstrap input set: every maturity positive and finite,
// every quote finite, maturities strictly increasing and unique, and
// periodic instruments carrying a usable payment frequency.
func Validate(set []MarketInstrument) error {
	if len(set) == 0 {
		return &errs.DomainError{Op: "instrument.Validate", Reason: "instrument set is empty"}
	}

	prev := 0.0
	for i, ins := range set {
		if math.IsNaN(ins.Maturity) || math.IsInf(ins.Maturity, 0) || ins.Maturity <= 0 {
			return &errs.DomainError{Op: "instrument.Validate", Reason: "maturity must be positive and finite", Value: ins.Maturity}
		}
		if math.IsNaN(ins.Rate) || math.IsInf(ins.Rate, 0) {
			return &errs.DomainError{Op: "instrument.Validate", Reason: "quote must be finite", Value: ins.Rate}
		}
		if i > 0 && ins.Maturity <= prev {
			return &errs.OrderingError{Op: "instrument.Validate", Index: i, Prev: prev, Curr: ins.Maturity}
		}
		if err := validatePeriodic(ins); err != nil {
			return err
		}
		prev = ins.Maturity
	}
	return nil
}

func validatePeriodic(ins MarketInstrument) error {
	switch ins.Kind {
	case Deposit:
		return nil
	case Swap, BondQuote:
		if ins.Frequency < 1 {
			return &errs.DomainError{
				Op:     "instrument.Validate",
				Reason: ins.Kind.String() + " frequency must be at least 1 per year",
				Value:  float64(ins.Frequency),
			}
		}
		periods := ins.Maturity * float64(ins.Frequency)
		if math.Abs(periods-math.Round(periods)) > periodRoundTol {
			return &errs.DomainError{
				Op:     "instrument.Validate",
				Reason: ins.Kind.String() + " maturity must be a whole number of payment periods",
				Value:  ins.Maturity,
			}
		}
		if ins.Kind != BondQuote {
			return nil
		}
		if ins.Rate <= 0 {
			return &errs.DomainError{Op: "instrument.Validate", Reason: "bond price must be positive", Value: ins.Rate}
		}
		if ins.Coupon < 0 {
			return &errs.DomainError{Op: "instrument.Validate", Reason: "bond coupon must be non-negative", Value: ins.Coupon}
		}
		if ins.Face <= 0 {
			return &errs.DomainError{Op: "instrument.Validate", Reason: "bond face must be positive", Value: ins.Face}
		}
		return nil
	default:
		return &errs.DomainError{Op: "instrument.Validate", Reason: "unknown instrument kind", Value: float64(ins.Kind)}
	}
}

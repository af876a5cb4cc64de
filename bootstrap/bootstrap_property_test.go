package bootstrap_test

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/julian-hilg/ficclib/bootstrap"
	"github.com/julian-hilg/ficclib/curve"
	"github.com/julian-hilg/ficclib/instrument"
)

func TestBootstrapProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("par swap curves reprice their quotes", prop.ForAll(
		func(r1, r2, r3, r4 float64) bool {
			instruments := []instrument.MarketInstrument{
				instrument.NewSwap(1, r1, 1),
				instrument.NewSwap(2, r2, 1),
				instrument.NewSwap(5, r3, 1),
				instrument.NewSwap(10, r4, 1),
			}
			for _, scheme := range allSchemes {
				c, err := bootstrap.Build(instruments, scheme)
				if err != nil {
					return false
				}
				if len(c.Points()) != len(instruments) {
					return false
				}
				for _, ins := range instruments {
					quote, err := modelQuote(c, ins)
					if err != nil || math.Abs(quote-ins.Rate) > repriceTol {
						return false
					}
				}
			}
			return true
		},
		gen.Float64Range(0.002, 0.09),
		gen.Float64Range(0.002, 0.09),
		gen.Float64Range(0.002, 0.09),
		gen.Float64Range(0.002, 0.09),
	))

	properties.Property("positive deposit curves keep discount factors in (0,1)", prop.ForAll(
		func(r1, r2 float64) bool {
			instruments := []instrument.MarketInstrument{
				instrument.NewDeposit(0.5, r1),
				instrument.NewDeposit(1, r2),
			}
			c, err := bootstrap.Build(instruments, curve.LinearZero)
			if err != nil {
				return false
			}
			for _, ts := range []float64{0.1, 0.5, 0.75, 1, 2} {
				df, err := c.DiscountFactor(ts)
				if err != nil || df <= 0 || df >= 1 {
					return false
				}
			}
			return true
		},
		gen.Float64Range(0.0001, 0.15),
		gen.Float64Range(0.0001, 0.15),
	))

	properties.TestingRun(t)
}

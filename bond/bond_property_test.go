package bond_test

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/julian-hilg/ficclib/bond"
)

func TestYieldProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	frequencies := []int{1, 2, 4}

	properties.Property("price-yield round trip recovers the yield", prop.ForAll(
		func(coupon, yield float64, years, freqIdx int) bool {
			frequency := frequencies[freqIdx]
			s, err := bond.NewSchedule(bond.Terms{
				Coupon:    coupon,
				Face:      100,
				Maturity:  float64(years),
				Frequency: frequency,
			})
			if err != nil {
				return false
			}
			price, err := bond.PriceAtYield(s, yield, frequency)
			if err != nil {
				return false
			}
			res, err := bond.SolveYield(s, price, frequency)
			if err != nil {
				return false
			}
			return math.Abs(res.Yield-yield) <= 1e-6*math.Max(math.Abs(yield), 1e-3)
		},
		gen.Float64Range(0, 0.12),
		gen.Float64Range(-0.005, 0.15),
		gen.IntRange(1, 30),
		gen.IntRange(0, len(frequencies)-1),
	))

	properties.Property("price falls as yield rises", prop.ForAll(
		func(coupon, yield float64, years int) bool {
			s, err := bond.NewSchedule(bond.Terms{
				Coupon:    coupon,
				Face:      100,
				Maturity:  float64(years),
				Frequency: 2,
			})
			if err != nil {
				return false
			}
			lo, err := bond.PriceAtYield(s, yield, 2)
			if err != nil {
				return false
			}
			hi, err := bond.PriceAtYield(s, yield+0.01, 2)
			if err != nil {
				return false
			}
			return hi < lo
		},
		gen.Float64Range(0, 0.12),
		gen.Float64Range(-0.005, 0.15),
		gen.IntRange(1, 30),
	))

	properties.TestingRun(t)
}

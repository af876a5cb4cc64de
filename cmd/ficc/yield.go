package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/julian-hilg/ficclib/bond"
	"github.com/julian-hilg/ficclib/calendar"
	"github.com/julian-hilg/ficclib/daycount"
)

// yieldInput prices one bond from a market price. Either maturity (in
// years, whole coupon periods) or settlement plus maturity_date selects the
// schedule; the dated form generates real payment dates with day count and
// business day handling.
type yieldInput struct {
	TaskID    string  `json:"task_id,omitempty"`
	Price     float64 `json:"price"`
	Coupon    float64 `json:"coupon"`
	Face      float64 `json:"face"`
	Frequency int     `json:"frequency"`

	Maturity float64 `json:"maturity,omitempty"`

	Settlement   string   `json:"settlement,omitempty"`
	MaturityDate string   `json:"maturity_date,omitempty"`
	Convention   string   `json:"convention,omitempty"`
	Holidays     []string `json:"holidays,omitempty"`
	Adjust       string   `json:"adjust,omitempty"`
}

type yieldOutput struct {
	TaskID        string  `json:"task_id,omitempty"`
	Yield         float64 `json:"yield"`
	Iterations    int     `json:"iterations"`
	Price         float64 `json:"price"`
	Macaulay      float64 `json:"macaulay"`
	Modified      float64 `json:"modified"`
	Convexity     float64 `json:"convexity"`
	DV01          float64 `json:"dv01"`
	DV01Numerical float64 `json:"dv01_numerical"`
	Cashflows     int     `json:"cashflows"`
	MaturityYears float64 `json:"maturity_years"`
	Error         string  `json:"error,omitempty"`
}

func newYieldCmd() *cobra.Command {
	var inputPath string
	cmd := &cobra.Command{
		Use:   "yield",
		Short: "Solve yield to maturity and risk measures from a price",
		Example: `  echo '{"price":98.2,"coupon":0.04,"maturity":5,"frequency":2}' | ficc yield
  echo '{"price":98.2,"coupon":0.04,"frequency":2,"settlement":"2026-08-25","maturity_date":"2031-02-15","convention":"ACT/365F"}' | ficc yield`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readTaskInput(cmd, inputPath)
			if err != nil {
				return err
			}
			tasks, isArray, err := parseTasks[yieldInput](raw)
			if err != nil {
				return fmt.Errorf("parse input: %w", err)
			}

			failed := 0
			outputs := make([]yieldOutput, 0, len(tasks))
			for _, task := range tasks {
				out, err := runYieldTask(task)
				if err != nil {
					failed++
					logger.Error().Str("task_id", task.TaskID).Err(err).Msg("yield task failed")
					outputs = append(outputs, yieldOutput{TaskID: task.TaskID, Error: err.Error()})
					continue
				}
				outputs = append(outputs, *out)
			}
			if err := emitOutputs(outputs, isArray); err != nil {
				return err
			}
			return taskFailures(failed, len(tasks))
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "JSON input path (default stdin)")
	return cmd
}

func runYieldTask(in yieldInput) (*yieldOutput, error) {
	face := in.Face
	if face == 0 {
		face = 100
	}

	var (
		s   bond.Schedule
		err error
	)
	switch {
	case in.MaturityDate != "" && in.Maturity != 0:
		return nil, errors.New("pass either maturity or maturity_date, not both")
	case in.MaturityDate != "":
		s, err = datedSchedule(in, face)
	case in.Maturity != 0:
		s, err = bond.NewSchedule(bond.Terms{
			Coupon:    in.Coupon,
			Face:      face,
			Maturity:  in.Maturity,
			Frequency: in.Frequency,
		})
	default:
		return nil, errors.New("maturity or maturity_date is required")
	}
	if err != nil {
		return nil, err
	}

	res, err := bond.SolveYield(s, in.Price, in.Frequency)
	if err != nil {
		return nil, err
	}
	m, err := bond.Metrics(s, res.Yield, in.Frequency)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("task_id", in.TaskID).
		Float64("yield", res.Yield).
		Int("iterations", res.Iterations).
		Msg("yield solved")

	return &yieldOutput{
		TaskID:        in.TaskID,
		Yield:         res.Yield,
		Iterations:    res.Iterations,
		Price:         m.Price,
		Macaulay:      m.MacaulayDuration,
		Modified:      m.ModifiedDuration,
		Convexity:     m.Convexity,
		DV01:          m.DV01,
		DV01Numerical: m.DV01Numerical,
		Cashflows:     len(s),
		MaturityYears: s[len(s)-1].Time,
	}, nil
}

// datedSchedule builds cashflows from real payment dates: coupon dates
// anchored to the maturity date, business day adjusted, then converted to
// year fractions under the requested day count.
func datedSchedule(in yieldInput, face float64) (bond.Schedule, error) {
	settle, err := time.Parse("2006-01-02", in.Settlement)
	if err != nil {
		return nil, fmt.Errorf("invalid settlement: %w", err)
	}
	maturity, err := time.Parse("2006-01-02", in.MaturityDate)
	if err != nil {
		return nil, fmt.Errorf("invalid maturity_date: %w", err)
	}

	conv := daycount.ACT365F
	if in.Convention != "" {
		conv, err = daycount.Parse(in.Convention)
		if err != nil {
			return nil, err
		}
	}

	cal, err := calendar.ParseHolidays(in.Holidays)
	if err != nil {
		return nil, err
	}
	var adjust func(time.Time) time.Time
	switch in.Adjust {
	case "", "modified-following":
		adjust = cal.Adjust
	case "following":
		adjust = cal.AdjustFollowing
	case "none":
		adjust = func(t time.Time) time.Time { return t }
	default:
		return nil, fmt.Errorf("unknown adjust %q (want modified-following, following, or none)", in.Adjust)
	}

	if in.Coupon < 0 {
		return nil, fmt.Errorf("negative coupon %v", in.Coupon)
	}
	if in.Coupon == 0 {
		tf := daycount.YearFraction(settle, adjust(maturity), conv)
		if tf <= 0 {
			return nil, errors.New("no future cashflows after settlement")
		}
		return bond.Schedule{{Time: tf, Amount: face}}, nil
	}

	dates, err := calendar.CouponDates(settle, maturity, in.Frequency)
	if err != nil {
		return nil, err
	}

	coupon := in.Coupon * face / float64(in.Frequency)
	s := make(bond.Schedule, 0, len(dates))
	for _, d := range dates {
		tf := daycount.YearFraction(settle, adjust(d), conv)
		if tf <= 0 {
			continue
		}
		s = append(s, bond.Cashflow{Time: tf, Amount: coupon})
	}
	if len(s) == 0 {
		return nil, errors.New("no future cashflows after settlement")
	}
	s[len(s)-1].Amount += face
	return s, nil
}

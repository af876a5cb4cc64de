package main

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/julian-hilg/ficclib/bond"
	"github.com/julian-hilg/ficclib/curve"
	"github.com/julian-hilg/ficclib/engine"
	"github.com/julian-hilg/ficclib/marketdata"
	"github.com/julian-hilg/ficclib/nelsonsiegel"
)

type wireBond struct {
	Name      string  `json:"name,omitempty"`
	Coupon    float64 `json:"coupon"`
	Face      float64 `json:"face"`
	Maturity  float64 `json:"maturity"`
	Frequency int     `json:"frequency"`
	// Price is an observed market quote; it switches the yield basis and
	// adds a z-spread.
	Price *float64 `json:"price,omitempty"`
}

type analyzeInput struct {
	TaskID string `json:"task_id,omitempty"`
	Scheme string `json:"scheme,omitempty"`
	// FitFamily requests a parametric calibration alongside the bootstrap.
	FitFamily   string           `json:"fit_family,omitempty"`
	Instruments []wireInstrument `json:"instruments"`
	Bonds       []wireBond       `json:"bonds"`
	Concurrency int              `json:"concurrency,omitempty"`
}

// wireResult mirrors engine.PricingResult field by field: a value the
// analysis could not produce is omitted from the JSON, never written as 0.
type wireResult struct {
	Name           string   `json:"name"`
	Price          *float64 `json:"price,omitempty"`
	PremiumToPar   *float64 `json:"premium_to_par,omitempty"`
	CurveDV01      *float64 `json:"curve_dv01,omitempty"`
	MarketPrice    *float64 `json:"market_price,omitempty"`
	ZSpread        *float64 `json:"z_spread,omitempty"`
	Yield          *float64 `json:"yield,omitempty"`
	ParYieldDiffBp *float64 `json:"par_yield_diff_bp,omitempty"`
	Macaulay       *float64 `json:"macaulay,omitempty"`
	Modified       *float64 `json:"modified,omitempty"`
	Convexity      *float64 `json:"convexity,omitempty"`
	DV01           *float64 `json:"dv01,omitempty"`
	DV01Numerical  *float64 `json:"dv01_numerical,omitempty"`
	DV01Per100     *float64 `json:"dv01_per_100,omitempty"`
	FitPrice       *float64 `json:"fit_price,omitempty"`
	FitDV01        *float64 `json:"fit_dv01,omitempty"`
	Error          string   `json:"error,omitempty"`
}

type wireFit struct {
	Family     string         `json:"family"`
	Parameters wireParameters `json:"parameters"`
	Iterations int            `json:"iterations"`
	Residual   float64        `json:"residual"`
}

type analyzeOutput struct {
	TaskID    string       `json:"task_id,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Scheme    string       `json:"scheme,omitempty"`
	Pillars   []ratePoint  `json:"pillars,omitempty"`
	Fit       *wireFit     `json:"fit,omitempty"`
	Results   []wireResult `json:"results,omitempty"`
	ElapsedMS float64      `json:"elapsed_ms"`
	Error     string       `json:"error,omitempty"`
}

func newAnalyzeCmd() *cobra.Command {
	var (
		inputPath string
		sample    bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Bootstrap a curve and price a bond portfolio against it",
		Example: `  ficc analyze --input portfolio.json
  ficc analyze --sample`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if sample {
				req := marketdata.SampleRequest(curve.CubicZero)
				req.Fit = &engine.FitRequest{Family: nelsonsiegel.Svensson}
				out, err := runAnalyzeRequest(cmd.Context(), "", req)
				if err != nil {
					return err
				}
				return emitOutputs([]analyzeOutput{*out}, false)
			}

			raw, err := readTaskInput(cmd, inputPath)
			if err != nil {
				return err
			}
			tasks, isArray, err := parseTasks[analyzeInput](raw)
			if err != nil {
				return fmt.Errorf("parse input: %w", err)
			}

			failed := 0
			outputs := make([]analyzeOutput, 0, len(tasks))
			for _, task := range tasks {
				req, err := buildAnalyzeRequest(task)
				var out *analyzeOutput
				if err == nil {
					out, err = runAnalyzeRequest(cmd.Context(), task.TaskID, req)
				}
				if err != nil {
					failed++
					logger.Error().Str("task_id", task.TaskID).Err(err).Msg("analyze task failed")
					outputs = append(outputs, analyzeOutput{TaskID: task.TaskID, Error: err.Error()})
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
	cmd.Flags().BoolVar(&sample, "sample", false, "run the bundled sample portfolio")
	return cmd
}

func buildAnalyzeRequest(in analyzeInput) (engine.Request, error) {
	var req engine.Request

	scheme := curve.LinearZero
	if in.Scheme != "" {
		var err error
		scheme, err = curve.ParseScheme(in.Scheme)
		if err != nil {
			return req, err
		}
	}
	instruments, err := buildInstruments(in.Instruments)
	if err != nil {
		return req, err
	}

	req = engine.Request{
		Instruments: instruments,
		Scheme:      scheme,
		Concurrency: in.Concurrency,
	}
	if req.Concurrency == 0 {
		req.Concurrency = viper.GetInt("analyze.concurrency")
	}
	if in.FitFamily != "" {
		family, err := nelsonsiegel.ParseFamily(in.FitFamily)
		if err != nil {
			return req, err
		}
		req.Fit = &engine.FitRequest{Family: family}
	}
	for _, b := range in.Bonds {
		face := b.Face
		if face == 0 {
			face = 100
		}
		req.Bonds = append(req.Bonds, engine.BondSpec{
			Name: b.Name,
			Terms: bond.Terms{
				Coupon:    b.Coupon,
				Face:      face,
				Maturity:  b.Maturity,
				Frequency: b.Frequency,
			},
			MarketPrice: b.Price,
		})
	}
	return req, nil
}

func runAnalyzeRequest(ctx context.Context, taskID string, req engine.Request) (*analyzeOutput, error) {
	report, err := engine.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &analyzeOutput{
		TaskID:    taskID,
		RequestID: report.RequestID,
		Scheme:    report.Scheme.String(),
		Pillars:   pillarPoints(report.Pillars),
		ElapsedMS: float64(report.Elapsed.Microseconds()) / 1000,
	}
	if report.Fit != nil {
		p := report.Fit.Parameters
		out.Fit = &wireFit{
			Family: report.Fit.Family.String(),
			Parameters: wireParameters{
				Beta0: p.Beta0, Beta1: p.Beta1, Beta2: p.Beta2,
				Beta3: p.Beta3, Tau1: p.Tau1, Tau2: p.Tau2,
			},
			Iterations: report.Fit.Iterations,
			Residual:   report.Fit.Residual,
		}
	}

	failedBonds := 0
	out.Results = make([]wireResult, len(report.Results))
	for i, res := range report.Results {
		w := wireResult{
			Name:           res.Name,
			MarketPrice:    res.MarketPrice,
			ZSpread:        res.ZSpread,
			Yield:          res.Yield,
			ParYieldDiffBp: res.ParYieldDiffBp,
			DV01Per100:     res.DV01Per100,
			FitPrice:       res.FitPrice,
			FitDV01:        res.FitDV01,
		}
		if res.Err != nil {
			failedBonds++
			w.Error = res.Err.Error()
		}
		// A failed bond may still carry its curve analytics; a computed
		// price is strictly positive.
		if res.Price > 0 {
			price, premium, curveDV01 := res.Price, res.PremiumToPar, res.CurveDV01
			w.Price, w.PremiumToPar, w.CurveDV01 = &price, &premium, &curveDV01
		}
		if m := res.Metrics; m != nil {
			w.Macaulay = &m.MacaulayDuration
			w.Modified = &m.ModifiedDuration
			w.Convexity = &m.Convexity
			w.DV01 = &m.DV01
			w.DV01Numerical = &m.DV01Numerical
		}
		out.Results[i] = w
	}

	logger.Info().
		Str("task_id", taskID).
		Str("request_id", report.RequestID).
		Int("bonds", len(report.Results)).
		Int("failed_bonds", failedBonds).
		Dur("elapsed", report.Elapsed).
		Msg("portfolio analyzed")

	return out, nil
}

// pillarPoints expands curve pillars with their discount factors.
func pillarPoints(points []curve.Point) []ratePoint {
	out := make([]ratePoint, len(points))
	for i, p := range points {
		out[i] = ratePoint{T: p.T, Zero: p.Z, DF: math.Exp(-p.Z * p.T)}
	}
	return out
}

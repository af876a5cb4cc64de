package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/julian-hilg/ficclib/instrument"
)

// wireInstrument is the JSON shape of a curve input. Deposits and swaps
// quote a rate; bond quotes carry a clean price and coupon.
type wireInstrument struct {
	Kind      string  `json:"kind"`
	Maturity  float64 `json:"maturity"`
	Rate      float64 `json:"rate"`
	Frequency int     `json:"frequency"`
	Coupon    float64 `json:"coupon"`
	Price     float64 `json:"price"`
}

func buildInstruments(specs []wireInstrument) ([]instrument.MarketInstrument, error) {
	out := make([]instrument.MarketInstrument, len(specs))
	for i, w := range specs {
		switch w.Kind {
		case "deposit":
			out[i] = instrument.NewDeposit(w.Maturity, w.Rate)
		case "swap":
			out[i] = instrument.NewSwap(w.Maturity, w.Rate, w.Frequency)
		case "bond":
			out[i] = instrument.NewBondQuote(w.Maturity, w.Price, w.Coupon, w.Frequency)
		default:
			return nil, fmt.Errorf("instrument %d: unknown kind %q (want deposit, swap, or bond)", i, w.Kind)
		}
	}
	return out, nil
}

// ratePoint is one curve evaluation on an output grid.
type ratePoint struct {
	T    float64 `json:"t"`
	Zero float64 `json:"zero"`
	DF   float64 `json:"df"`
}

type zeroCurve interface {
	ZeroRate(t float64) (float64, error)
	DiscountFactor(t float64) (float64, error)
}

func curveGrid(c zeroCurve, ts []float64) ([]ratePoint, error) {
	out := make([]ratePoint, len(ts))
	for i, t := range ts {
		z, err := c.ZeroRate(t)
		if err != nil {
			return nil, err
		}
		df, err := c.DiscountFactor(t)
		if err != nil {
			return nil, err
		}
		out[i] = ratePoint{T: t, Zero: z, DF: df}
	}
	return out, nil
}

// readTaskInput loads the task JSON from --input, falling back to stdin.
// An interactive terminal with no --input prints help instead of blocking.
func readTaskInput(cmd *cobra.Command, inputPath string) ([]byte, error) {
	path := strings.TrimSpace(inputPath)
	if path != "" {
		return os.ReadFile(path)
	}
	if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
		_ = cmd.Help()
		return nil, errors.New("no input: pipe JSON or pass --input")
	}
	return io.ReadAll(os.Stdin)
}

// parseTasks accepts a single task object or an array of them, and reports
// which form arrived so the output can mirror it.
func parseTasks[T any](raw []byte) ([]T, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, errors.New("empty input")
	}

	if trimmed[0] == '[' {
		var tasks []T
		if err := json.Unmarshal(trimmed, &tasks); err != nil {
			return nil, true, err
		}
		if len(tasks) == 0 {
			return nil, true, errors.New("empty task array")
		}
		return tasks, true, nil
	}

	var task T
	if err := json.Unmarshal(trimmed, &task); err != nil {
		return nil, false, err
	}
	return []T{task}, false, nil
}

// emitOutputs writes results to stdout, a bare object for a bare input and
// an array for an array.
func emitOutputs[T any](outputs []T, isArray bool) error {
	var (
		raw []byte
		err error
	)
	if isArray {
		raw, err = json.Marshal(outputs)
	} else {
		raw, err = json.Marshal(outputs[0])
	}
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Println(string(raw))
	return nil
}

func taskFailures(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d tasks failed", failed, total)
}

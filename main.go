package main

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/julian-hilg/ficclib/curve"
	"github.com/julian-hilg/ficclib/engine"
	"github.com/julian-hilg/ficclib/marketdata"
	"github.com/julian-hilg/ficclib/nelsonsiegel"
)

func main() {
	req := marketdata.SampleRequest(curve.CubicZero)
	req.Fit = &engine.FitRequest{Family: nelsonsiegel.Svensson}

	report, err := engine.Analyze(context.Background(), req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("request %s (%s curve, %d pillars)\n\n", report.RequestID, report.Scheme, len(report.Pillars))

	fmt.Println("Zero curve:")
	for _, p := range report.Pillars {
		fmt.Printf("  %6.2fy  zero %7.4f%%  df %.6f\n", p.T, 100*p.Z, math.Exp(-p.Z*p.T))
	}

	if report.Fit != nil {
		f := report.Fit
		fmt.Printf("\n%s fit (rss %.3g, %d iterations):\n", f.Family, f.Residual, f.Iterations)
		fmt.Printf("  beta0 %8.5f  beta1 %8.5f  beta2 %8.5f  beta3 %8.5f  tau1 %6.3f  tau2 %6.3f\n",
			f.Parameters.Beta0, f.Parameters.Beta1, f.Parameters.Beta2,
			f.Parameters.Beta3, f.Parameters.Tau1, f.Parameters.Tau2)
	}

	fmt.Println("\nPortfolio:")
	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Printf("  %-12s error: %v\n", res.Name, res.Err)
			continue
		}
		line := fmt.Sprintf("  %-12s price %9.4f  yield %6.3f%%  mod dur %6.3f  dv01 %8.5f",
			res.Name, res.Price, 100*(*res.Yield), res.Metrics.ModifiedDuration, res.CurveDV01)
		if res.ZSpread != nil {
			line += fmt.Sprintf("  z-spread %6.2fbp", *res.ZSpread*1e4)
		}
		fmt.Println(line)
	}
}

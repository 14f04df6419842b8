package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/kacperjurak/thermalcore"
)

func printTable(w io.Writer, out thermalcore.Output) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "time\ttop-oil\thot-spot\tcooling\t")
	if out.AgingRate != nil {
		fmt.Fprint(tw, "aging\t")
	}
	fmt.Fprintln(tw)

	for i, ts := range out.Timestamps {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%s\t", ts.Format(time.RFC3339), out.TopOil[i], out.HotSpot[i], out.Mode[i])
		if out.AgingRate != nil {
			fmt.Fprintf(tw, "%.4f\t", out.AgingRate[i])
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func printSummary(w io.Writer, label string, out thermalcore.Output) {
	i := floats.MaxIdx(out.HotSpot)
	fmt.Fprintf(w, "%s\tmax top-oil %.2f °C\tmax hot-spot %.2f °C at %s",
		label, floats.Max(out.TopOil), out.HotSpot[i], out.Timestamps[i].Format(time.RFC3339))
	if out.AgingRate != nil {
		fmt.Fprintf(w, "\taged %.3f days", out.DaysAged())
	}
	fmt.Fprintln(w)
}

func printCalibration(w io.Writer, res thermalcore.CalibrationResult) {
	fmt.Fprintf(w, "calibration (%s, %d runs): H = %.4f, hot-spot %.2f °C", res.Method, res.Iterations, res.HotSpotFactor, res.HotSpot)
	if res.BoundaryReached {
		fmt.Fprintf(w, ", clipped to %s bound", res.Boundary)
	}
	fmt.Fprintln(w)
}

// Package plot renders simulated temperature profiles as charts.
package plot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/kacperjurak/thermalcore"
)

// Options control the chart size and resolution.
type Options struct {
	Title string
	// Size is the width in inches. The height is 5/8 of it.
	Size float64
	DPI  int
	// Limit draws a horizontal line, usually the hot-spot limit. Zero omits it.
	Limit float64
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = 8
	}
	if o.DPI <= 0 {
		o.DPI = 96
	}
	if o.Title == "" {
		o.Title = "Transformer temperatures"
	}
	return o
}

// New builds a chart of the top-oil and hot-spot series of out. Three-winding
// runs get one extra line per winding.
func New(out thermalcore.Output, opts Options) (*plot.Plot, error) {
	opts = opts.withDefaults()
	if len(out.Timestamps) == 0 {
		return nil, fmt.Errorf("plot: empty output")
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Temperature [°C]"
	p.X.Tick.Marker = plot.TimeTicks{Format: "01-02\n15:04"}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	series := []namedSeries{
		{"top-oil", out.TopOil},
		{"hot-spot", out.HotSpot},
	}
	for side, values := range out.WindingHotSpot {
		series = append(series, namedSeries{"hot-spot " + thermalcore.WindingSide(side).String(), values})
	}

	for i, s := range series {
		line, err := plotter.NewLine(points(out, s.values))
		if err != nil {
			return nil, fmt.Errorf("plot %s: %w", s.name, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	if opts.Limit != 0 {
		first := float64(out.Timestamps[0].Unix())
		last := float64(out.Timestamps[len(out.Timestamps)-1].Unix())
		limit, err := plotter.NewLine(plotter.XYs{{X: first, Y: opts.Limit}, {X: last, Y: opts.Limit}})
		if err != nil {
			return nil, fmt.Errorf("plot limit: %w", err)
		}
		limit.Color = plotutil.Color(len(series))
		limit.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		p.Add(limit)
		p.Legend.Add(fmt.Sprintf("limit %.1f °C", opts.Limit), limit)
	}
	return p, nil
}

type namedSeries struct {
	name   string
	values []float64
}

func points(out thermalcore.Output, values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(out.Timestamps[i].Unix())
		pts[i].Y = v
	}
	return pts
}

// Write renders out in format ("svg", "png", "jpg", "tiff", "pdf" or "eps").
func Write(w io.Writer, out thermalcore.Output, format string, opts Options) error {
	opts = opts.withDefaults()
	p, err := New(out, opts)
	if err != nil {
		return err
	}

	width := vg.Length(opts.Size) * vg.Inch
	height := width * 5 / 8

	format = strings.ToLower(strings.TrimPrefix(format, "."))
	var wt io.WriterTo
	switch format {
	case "png", "jpg", "jpeg", "tif", "tiff":
		c := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(opts.DPI))
		p.Draw(draw.New(c))
		switch format {
		case "png":
			wt = vgimg.PngCanvas{Canvas: c}
		case "jpg", "jpeg":
			wt = vgimg.JpegCanvas{Canvas: c}
		default:
			wt = vgimg.TiffCanvas{Canvas: c}
		}
	default:
		wt, err = p.WriterTo(width, height, format)
		if err != nil {
			return fmt.Errorf("plot: %w", err)
		}
	}

	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("plot: write %s: %w", format, err)
	}
	return nil
}

// Save writes the chart to path, picking the format from its extension.
func Save(path string, out thermalcore.Output, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	if err := Write(f, out, filepath.Ext(path), opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

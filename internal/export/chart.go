// Package export renders playback frames to static PNG or SVG charts.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/limits"
	"github.com/san-kum/gdlab/internal/playback"
)

var ErrUnknownFormat = errors.New("export: unknown format")

type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case PNG, SVG:
		return Format(s), nil
	}
	return "", fmt.Errorf("%w %q (want png or svg)", ErrUnknownFormat, s)
}

func (f Format) provider() chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

// Panel names one of the four views of a frame.
type Panel string

const (
	PanelFit     Panel = "fit"
	PanelHistory Panel = "history"
	PanelPath    Panel = "path"
	PanelLoss    Panel = "loss"
)

var Panels = []Panel{PanelFit, PanelHistory, PanelPath, PanelLoss}

const (
	chartWidth   = 640
	chartHeight  = 480
	contourBands = 12
)

var (
	colorData    = drawing.ColorFromHex("7f8c8d")
	colorCurrent = drawing.ColorFromHex("e74c3c")
	colorRef     = drawing.ColorFromHex("2c3e50")
	colorHistory = drawing.ColorFromHex("2980b9")
	colorPath    = drawing.ColorFromHex("e67e22")
	colorContour = drawing.ColorFromHex("95a5a6")
)

// RenderPanels writes one chart per panel into dir and returns the paths.
func RenderPanels(f playback.Frame, ds *dataset.Dataset, s *playback.Surface, format Format, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(Panels))
	for _, p := range Panels {
		var buf bytes.Buffer
		if err := Render(&buf, p, f, ds, s, format); err != nil {
			return paths, fmt.Errorf("render %s: %w", p, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-%04d.%s", p, f.Step, format))
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Render draws a single panel of f.
func Render(w io.Writer, p Panel, f playback.Frame, ds *dataset.Dataset, s *playback.Surface, format Format) error {
	var ch chart.Chart
	switch p {
	case PanelFit:
		ch = fitChart(f, ds)
	case PanelHistory:
		ch = historyChart(f, ds)
	case PanelPath:
		ch = pathChart(f, s)
	case PanelLoss:
		ch = lossChart(f)
	default:
		return fmt.Errorf("export: unknown panel %q", p)
	}
	ch.Width, ch.Height = chartWidth, chartHeight
	ch.Background = chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 16, Bottom: 12}}
	return ch.Render(format.provider(), w)
}

func axis(name string, r limits.Range) (chart.XAxis, chart.YAxis) {
	rng := &chart.ContinuousRange{Min: r.Lo, Max: r.Hi}
	return chart.XAxis{Name: name, Range: rng}, chart.YAxis{Name: name, Range: rng}
}

func frame(title, xName, yName string, xr, yr limits.Range, series ...chart.Series) chart.Chart {
	xa, _ := axis(xName, xr)
	_, ya := axis(yName, yr)
	return chart.Chart{Title: title, XAxis: xa, YAxis: ya, Series: series}
}

func dots(name string, xs, ys []float64, col drawing.Color, width float64) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: width, DotColor: col},
	}
}

// visible keeps the finite points within a margin of the view. go-chart
// maps far-off values to overflowing pixel coordinates.
func visible(xs, ys []float64, xr, yr limits.Range) ([]float64, []float64) {
	const margin = 4
	wx, wy := limits.Padded(xr.Lo, xr.Hi, margin, 0), limits.Padded(yr.Lo, yr.Hi, margin, 0)
	outX, outY := make([]float64, 0, len(xs)), make([]float64, 0, len(ys))
	for i := range xs {
		if wx.Contains(xs[i]) && wy.Contains(ys[i]) {
			outX, outY = append(outX, xs[i]), append(outY, ys[i])
		}
	}
	return outX, outY
}

// appendSeries adds s unless nothing of it is visible; go-chart rejects
// series without values.
func appendSeries(series []chart.Series, s chart.ContinuousSeries, xr, yr limits.Range) []chart.Series {
	s.XValues, s.YValues = visible(s.XValues, s.YValues, xr, yr)
	if len(s.XValues) == 0 {
		return series
	}
	return append(series, s)
}

func segment(name string, l playback.Line, style chart.Style) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name:    name,
		XValues: []float64{l.From.X, l.To.X},
		YValues: []float64{l.From.Y, l.To.Y},
		Style:   style,
	}
}

func scatter(ds *dataset.Dataset, col drawing.Color) chart.ContinuousSeries {
	return dots("data", ds.X(), ds.Y(), col, 3)
}

func fitChart(f playback.Frame, ds *dataset.Dataset) chart.Chart {
	xr, yr := f.Bounds.FitX, f.Bounds.FitY
	series := []chart.Series{scatter(ds, colorData)}
	series = appendSeries(series, segment("OLS", f.RefLine, chart.Style{StrokeColor: colorRef, StrokeWidth: 2, StrokeDashArray: []float64{6, 4}}), xr, yr)
	series = appendSeries(series, segment("current", f.Fit, chart.Style{StrokeColor: colorCurrent, StrokeWidth: 2.5}), xr, yr)
	return frame(f.Title[0], "x", "y", xr, yr, series...)
}

func historyChart(f playback.Frame, ds *dataset.Dataset) chart.Chart {
	xr, yr := f.Bounds.FitX, f.Bounds.FitY
	series := []chart.Series{scatter(ds, colorData.WithAlpha(96))}
	for _, h := range f.History {
		a := uint8(h.Alpha * 255)
		series = appendSeries(series, segment(fmt.Sprintf("step %d", h.Step), h.Line,
			chart.Style{StrokeColor: colorHistory.WithAlpha(a), StrokeWidth: 1.5}), xr, yr)
	}
	return frame("history", "x", "y", xr, yr, series...)
}

func pathChart(f playback.Frame, s *playback.Surface) chart.Chart {
	xr, yr := f.Bounds.PathX, f.Bounds.PathY
	var series []chart.Series
	yName := "b"
	if f.Arity == descent.Two {
		cx, cy := contourPoints(s, xr, yr)
		if len(cx) > 0 {
			series = append(series, dots("contours", cx, cy, colorContour, 1))
		}
	} else {
		yName = "MSE"
		series = appendSeries(series, chart.ContinuousSeries{
			Name:    "MSE(m)",
			XValues: s.M,
			YValues: s.Curve(),
			Style:   chart.Style{StrokeColor: colorContour, StrokeWidth: 1.5},
		}, xr, yr)
	}

	px, py := make([]float64, len(f.Path)), make([]float64, len(f.Path))
	for i, pt := range f.Path {
		px[i], py[i] = pt.X, pt.Y
	}
	series = appendSeries(series, chart.ContinuousSeries{
		Name:    "path",
		XValues: px,
		YValues: py,
		Style:   chart.Style{StrokeColor: colorPath, StrokeWidth: 2},
	}, xr, yr)

	ref := f.Reference
	refY := ref.Params.Intercept
	if f.Arity == descent.One {
		refY = ref.Loss
	}
	series = appendSeries(series, dots("OLS", []float64{ref.Params.Slope}, []float64{refY}, colorRef, 6), xr, yr)
	if len(px) > 0 {
		series = appendSeries(series, dots("current", px[len(px)-1:], py[len(py)-1:], colorCurrent, 5), xr, yr)
	}
	return frame(f.Title[1], "m", yName, xr, yr, series...)
}

// contourPoints returns the grid nodes inside the view where the loss
// band changes towards a neighbor.
func contourPoints(s *playback.Surface, xr, yr limits.Range) (xs, ys []float64) {
	if s == nil || len(s.B) == 0 {
		return nil, nil
	}
	n, m := len(s.B), len(s.M)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			if !xr.Contains(s.M[i]) || !yr.Contains(s.B[j]) {
				continue
			}
			band := s.Band(s.Z[j][i], contourBands)
			if (i+1 < m && s.Band(s.Z[j][i+1], contourBands) != band) ||
				(j+1 < n && s.Band(s.Z[j+1][i], contourBands) != band) {
				xs = append(xs, s.M[i])
				ys = append(ys, s.B[j])
			}
		}
	}
	return xs, ys
}

func lossChart(f playback.Frame) chart.Chart {
	xs, ys := make([]float64, len(f.Loss)), make([]float64, len(f.Loss))
	for i, pt := range f.Loss {
		xs[i], ys[i] = pt.X, pt.Y
	}
	xs, ys = visible(xs, ys, f.Bounds.LossX, f.Bounds.LossY)
	// go-chart needs two x values to draw a line.
	if len(xs) == 1 {
		xs, ys = append(xs, xs[0]), append(ys, ys[0])
	}
	var series []chart.Series
	if len(xs) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    "MSE",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: colorCurrent, StrokeWidth: 2},
		})
	}
	return frame(fmt.Sprintf("MSE, step %d/%d", f.Step, f.Steps), "step", "MSE", f.Bounds.LossX, f.Bounds.LossY, series...)
}

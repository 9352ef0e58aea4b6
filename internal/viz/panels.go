package viz

import (
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/limits"
	"github.com/san-kum/gdlab/internal/playback"
)

// Canvas levels shared by the panels; they index into the style ramps.
const (
	levelFaint   = 0
	levelData    = 3
	levelRef     = 4
	levelCurrent = 5
)

const contourBands = 12

// drawFit draws the scatter, the dashed OLS line and the current fit.
func drawFit(c *Canvas, f playback.Frame, ds *dataset.Dataset) {
	c.Clear()
	p := newPlot(c, f.Bounds.FitX, f.Bounds.FitY)
	ds.Each(func(x, y float64) { p.point(x, y, levelData) })
	p.dashed(f.RefLine.From.X, f.RefLine.From.Y, f.RefLine.To.X, f.RefLine.To.Y, levelRef)
	p.line(f.Fit.From.X, f.Fit.From.Y, f.Fit.To.X, f.Fit.To.Y, levelCurrent)
}

// drawHistory draws the retained history lines faded by age, newest last
// so it wins shared cells.
func drawHistory(c *Canvas, f playback.Frame, ds *dataset.Dataset) {
	c.Clear()
	p := newPlot(c, f.Bounds.FitX, f.Bounds.FitY)
	ds.Each(func(x, y float64) { p.point(x, y, levelFaint) })
	for _, h := range f.History {
		p.line(h.Line.From.X, h.Line.From.Y, h.Line.To.X, h.Line.To.Y, alphaLevel(h.Alpha))
	}
}

// alphaLevel maps a history alpha in (0, 1] onto ramp levels 1..rampLevels-1.
func alphaLevel(alpha float64) int {
	lvl := int(math.Round(alpha * float64(rampLevels-1)))
	return min(max(lvl, 1), rampLevels-1)
}

// drawPath draws the parameter-space view. For two parameters the loss
// contours are traced by marking dots whose band differs from a
// neighbor's; for one parameter the MSE(slope) curve is drawn instead.
func drawPath(c *Canvas, f playback.Frame, s *playback.Surface, mo descent.Moments) {
	c.Clear()
	p := newPlot(c, f.Bounds.PathX, f.Bounds.PathY)
	if f.Arity == descent.Two {
		contours(p, s, mo)
	} else {
		z := s.Curve()
		for i := 1; i < len(s.M); i++ {
			p.line(s.M[i-1], z[i-1], s.M[i], z[i], 1)
		}
	}
	for i := 1; i < len(f.Path); i++ {
		a, b := f.Path[i-1], f.Path[i]
		p.line(a.X, a.Y, b.X, b.Y, 3)
	}
	ref := f.Reference.Params
	if f.Arity == descent.Two {
		p.marker(ref.Slope, ref.Intercept, 4)
	} else {
		p.marker(ref.Slope, f.Reference.Loss, 4)
	}
	if len(f.Path) > 0 {
		last := f.Path[len(f.Path)-1]
		p.point(last.X, last.Y, 4)
	}
}

func contours(p plot, s *playback.Surface, mo descent.Moments) {
	w, h := p.c.PixelWidth(), p.c.PixelHeight()
	bands := make([][]int, h)
	for py := range bands {
		bands[py] = make([]int, w)
		for px := range bands[py] {
			m, b := p.world(px, py)
			bands[py][px] = s.Band(mo.MSE(m, b), contourBands)
		}
	}
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			band := bands[py][px]
			edge := (px+1 < w && bands[py][px+1] != band) || (py+1 < h && bands[py+1][px] != band)
			if edge {
				p.c.Set(px, py, 2-3*band/contourBands)
			}
		}
	}
}

// lossChart plots MSE against step with asciigraph. In fixed mode the
// chart width is proportional to the share of the x range already
// visited. Steps from the first non-finite loss on are cut and named in
// the caption.
func lossChart(f playback.Frame, width, height int) string {
	if len(f.Loss) == 0 {
		return ""
	}
	series := make([]float64, len(f.Loss))
	for i, pt := range f.Loss {
		series[i] = pt.Y
	}
	shown := limits.FinitePrefix(series)
	caption := fmt.Sprintf("MSE  step %d/%d", f.Step, f.Steps)
	if len(shown) < len(series) {
		caption += fmt.Sprintf("  diverged at step %d", len(shown)+1)
	}
	if len(shown) == 0 {
		return caption
	}
	if len(shown) == 1 {
		shown = []float64{shown[0], shown[0]}
	}
	span := math.Max(f.Bounds.LossX.Span(), 1)
	visited := float64(f.Step) - f.Bounds.LossX.Lo
	w := int(math.Round(float64(width) * math.Min(visited/span, 1)))
	w = max(w, 2)

	opts := []asciigraph.Option{
		asciigraph.Height(max(height, 2)),
		asciigraph.Width(w),
		asciigraph.Caption(caption),
	}
	if f.Bounds.LossY.Finite() {
		opts = append(opts, asciigraph.LowerBound(f.Bounds.LossY.Lo), asciigraph.UpperBound(f.Bounds.LossY.Hi))
	}
	return asciigraph.Plot(shown, opts...)
}

// pathAxes labels the parameter-space panel.
func pathAxes(f playback.Frame) (string, string) {
	if f.Arity == descent.Two {
		return "m", "b"
	}
	return "m", "MSE"
}

func rangeLabel(name string, r limits.Range) string {
	return fmt.Sprintf("%s ∈ [%.2f, %.2f]", name, r.Lo, r.Hi)
}

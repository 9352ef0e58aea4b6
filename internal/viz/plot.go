package viz

import (
	"math"

	"github.com/san-kum/gdlab/internal/limits"
)

// plot maps world coordinates inside (xr, yr) onto a canvas.
type plot struct {
	c      *Canvas
	xr, yr limits.Range
}

func newPlot(c *Canvas, xr, yr limits.Range) plot {
	return plot{c: c, xr: nonEmpty(xr), yr: nonEmpty(yr)}
}

func nonEmpty(r limits.Range) limits.Range {
	if r.Span() <= 0 || math.IsNaN(r.Span()) {
		return limits.Range{Lo: r.Lo - 0.5, Hi: r.Lo + 0.5}
	}
	return r
}

func (p plot) dot(x, y float64) (int, int) {
	w, h := float64(p.c.PixelWidth()-1), float64(p.c.PixelHeight()-1)
	px := (x - p.xr.Lo) / p.xr.Span() * w
	py := h - (y-p.yr.Lo)/p.yr.Span()*h
	return int(math.Round(px)), int(math.Round(py))
}

// world is the inverse of dot for the center of a dot.
func (p plot) world(px, py int) (float64, float64) {
	w, h := float64(p.c.PixelWidth()-1), float64(p.c.PixelHeight()-1)
	x := p.xr.Lo + float64(px)/w*p.xr.Span()
	y := p.yr.Lo + (h-float64(py))/h*p.yr.Span()
	return x, y
}

func (p plot) point(x, y float64, level int) {
	if !p.xr.Contains(x) || !p.yr.Contains(y) {
		return
	}
	px, py := p.dot(x, y)
	p.c.Set(px, py, level)
}

// marker draws a small cross centered on (x, y).
func (p plot) marker(x, y float64, level int) {
	if !p.xr.Contains(x) || !p.yr.Contains(y) {
		return
	}
	px, py := p.dot(x, y)
	for d := -1; d <= 1; d++ {
		p.c.Set(px+d, py+d, level)
		p.c.Set(px+d, py-d, level)
	}
}

// line draws the part of the segment that falls inside the plot range.
func (p plot) line(x0, y0, x1, y1 float64, level int) {
	cx0, cy0, cx1, cy1, ok := clip(x0, y0, x1, y1, p.xr, p.yr)
	if !ok {
		return
	}
	ax, ay := p.dot(cx0, cy0)
	bx, by := p.dot(cx1, cy1)
	p.c.DrawLine(ax, ay, bx, by, level)
}

// dashed draws every other run of a line, for reference fits.
func (p plot) dashed(x0, y0, x1, y1 float64, level int) {
	const segments = 24
	for i := 0; i < segments; i += 2 {
		t0, t1 := float64(i)/segments, float64(i+1)/segments
		p.line(x0+(x1-x0)*t0, y0+(y1-y0)*t0, x0+(x1-x0)*t1, y0+(y1-y0)*t1, level)
	}
}

// clip is Liang–Barsky segment clipping against the rectangle xr × yr.
// Segments with a non-finite end, or whose direction overflows, are
// dropped.
func clip(x0, y0, x1, y1 float64, xr, yr limits.Range) (float64, float64, float64, float64, bool) {
	dx, dy := x1-x0, y1-y0
	if !finite(x0) || !finite(y0) || !finite(dx) || !finite(dy) {
		return 0, 0, 0, 0, false
	}
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, x0 - xr.Lo},
		{dx, xr.Hi - x0},
		{-dy, y0 - yr.Lo},
		{dy, yr.Hi - y0},
	}
	for _, e := range edges {
		pe, qe := e[0], e[1]
		if pe == 0 {
			if qe < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := qe / pe
		if pe < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, t)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

package export

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/limits"
	"github.com/san-kum/gdlab/internal/playback"
)

func renderer(t *testing.T, arity descent.Arity) *playback.Renderer {
	t.Helper()
	ds, err := dataset.New([]float64{-3, -1, 0, 2, 4, 5}, []float64{-7.2, -3.1, -0.6, 4.1, 8.8, 11.3})
	require.NoError(t, err)
	traj, err := descent.Generate(context.Background(), ds, descent.Config{
		Arity: arity, LearningRate: 0.02, Steps: 40,
	}, descent.Params{Slope: -2, Intercept: 4})
	require.NoError(t, err)
	return playback.NewRenderer(ds, traj, descent.ReferenceFit(ds, arity), playback.Options{HistoryStride: 5})
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("svg")
	require.NoError(t, err)
	assert.Equal(t, SVG, f)

	_, err = ParseFormat("gif")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRender_SVG(t *testing.T) {
	for _, arity := range []descent.Arity{descent.One, descent.Two} {
		r := renderer(t, arity)
		f := r.Frame(20)
		for _, p := range Panels {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, p, f, r.Dataset(), r.Surface(), SVG), "arity %d panel %s", arity, p)
			assert.Contains(t, buf.String(), "<svg", "arity %d panel %s", arity, p)
		}
	}
}

func TestRender_FirstStep(t *testing.T) {
	r := renderer(t, descent.Two)
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, PanelLoss, r.Frame(1), r.Dataset(), r.Surface(), SVG))
	assert.NotZero(t, buf.Len())
}

func TestRender_UnknownPanel(t *testing.T) {
	r := renderer(t, descent.Two)
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, Panel("surface3d"), r.Frame(1), r.Dataset(), r.Surface(), PNG))
}

func TestRenderPanels_WritesFiles(t *testing.T) {
	r := renderer(t, descent.Two)
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := RenderPanels(r.Frame(40), r.Dataset(), r.Surface(), PNG, dir)
	require.NoError(t, err)
	require.Len(t, paths, len(Panels))
	assert.Equal(t, filepath.Join(dir, "fit-0040.png"), paths[0])
	for _, p := range paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, []byte("\x89PNG"), data[:4], p)
	}
}

func TestContourPoints(t *testing.T) {
	r := renderer(t, descent.Two)
	s := r.Surface()
	b := r.FixedBounds()
	xs, ys := contourPoints(s, b.PathX, b.PathY)
	require.NotEmpty(t, xs)
	require.Len(t, ys, len(xs))
	for i := range xs {
		assert.True(t, b.PathX.Contains(xs[i]))
		assert.True(t, b.PathY.Contains(ys[i]))
	}

	xs, _ = contourPoints(s, limits.Range{Lo: 1e6, Hi: 2e6}, b.PathY)
	assert.Empty(t, xs)
}

func TestRender_DivergingRun(t *testing.T) {
	ds, err := dataset.New([]float64{-3, -1, 0, 2, 4, 5}, []float64{-7.2, -3.1, -0.6, 4.1, 8.8, 11.3})
	require.NoError(t, err)
	for _, arity := range []descent.Arity{descent.One, descent.Two} {
		traj, err := descent.Generate(context.Background(), ds, descent.Config{
			Arity: arity, LearningRate: 1, Steps: 400,
		}, descent.Params{Slope: -2, Intercept: 4})
		require.NoError(t, err)
		r := playback.NewRenderer(ds, traj, descent.ReferenceFit(ds, arity), playback.Options{HistoryStride: 20})
		for _, k := range []int{2, 150, 400} {
			f := r.Frame(k)
			for _, p := range Panels {
				var buf bytes.Buffer
				require.NoError(t, Render(&buf, p, f, ds, r.Surface(), SVG), "arity %d panel %s step %d", arity, p, k)
			}
		}
	}
}

func TestVisible(t *testing.T) {
	xr, yr := limits.Range{Lo: 0, Hi: 1}, limits.Range{Lo: 0, Hi: 1}
	xs := []float64{0.5, math.NaN(), 0.2, 3, 1e200}
	ys := []float64{0.5, 0.1, math.Inf(1), 4.5, 0.5}
	gx, gy := visible(xs, ys, xr, yr)
	assert.Equal(t, []float64{0.5, 3}, gx)
	assert.Equal(t, []float64{0.5, 4.5}, gy)
}

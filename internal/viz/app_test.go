package viz

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/gdlab/internal/dataset"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/limits"
	"github.com/san-kum/gdlab/internal/playback"
)

func testModel(t *testing.T, arity descent.Arity, steps int) Model {
	t.Helper()
	ds, err := dataset.New([]float64{-2, -1, 0, 1, 2, 3}, []float64{-3.1, -0.8, 1.2, 2.9, 5.2, 6.8})
	if err != nil {
		t.Fatal(err)
	}
	traj, err := descent.Generate(context.Background(), ds, descent.Config{
		Arity: arity, LearningRate: 0.05, Steps: steps,
	}, descent.Params{Slope: -1, Intercept: 3})
	if err != nil {
		t.Fatal(err)
	}
	rend := playback.NewRenderer(ds, traj, descent.ReferenceFit(ds, arity), playback.Options{HistoryStride: 3})
	return NewModel(rend, Options{Theme: "ocean"})
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm, cmd
}

func TestModel_PlayTicksAdvance(t *testing.T) {
	m := testModel(t, descent.Two, 5)
	m, cmd := update(t, m, runes(" "))
	if cmd == nil {
		t.Fatal("play should schedule a tick")
	}
	if !m.Controller().Playing() {
		t.Fatal("expected PLAYING")
	}
	gen := m.Controller().Generation()
	for i := 0; i < 10 && m.Controller().Playing(); i++ {
		m, cmd = update(t, m, TickMsg{Gen: gen})
	}
	if got := m.Controller().Position(); got != 5 {
		t.Errorf("expected to stop at the last step, got %d", got)
	}
	if m.Controller().Playing() || cmd != nil {
		t.Error("playback should pause with no pending tick at the end")
	}
}

func TestModel_StaleTickIgnored(t *testing.T) {
	m := testModel(t, descent.Two, 20)
	m, _ = update(t, m, runes(" "))
	stale := m.Controller().Generation()
	m, _ = update(t, m, runes(" "))
	m, _ = update(t, m, runes(" "))

	m, cmd := update(t, m, TickMsg{Gen: stale})
	if cmd != nil {
		t.Error("stale tick must not reschedule")
	}
	if got := m.Controller().Position(); got != 1 {
		t.Errorf("stale tick moved position to %d", got)
	}

	m, cmd = update(t, m, TickMsg{Gen: m.Controller().Generation()})
	if cmd == nil || m.Controller().Position() != 2 {
		t.Errorf("current tick should advance and reschedule, pos=%d", m.Controller().Position())
	}
}

func TestModel_Navigation(t *testing.T) {
	m := testModel(t, descent.Two, 30)
	steps := []struct {
		msg  tea.Msg
		want int
	}{
		{tea.KeyMsg{Type: tea.KeyRight}, 2},
		{runes("]"), 3},
		{tea.KeyMsg{Type: tea.KeyPgDown}, 13},
		{tea.KeyMsg{Type: tea.KeyLeft}, 12},
		{runes("["), 11},
		{tea.KeyMsg{Type: tea.KeyPgUp}, 1},
		{tea.KeyMsg{Type: tea.KeyEnd}, 30},
		{tea.KeyMsg{Type: tea.KeyPgDown}, 30},
		{tea.KeyMsg{Type: tea.KeyHome}, 1},
		{tea.KeyMsg{Type: tea.KeyLeft}, 1},
	}
	for i, s := range steps {
		m, _ = update(t, m, s.msg)
		if got := m.Controller().Position(); got != s.want {
			t.Fatalf("step %d (%v): position %d, want %d", i, s.msg, got, s.want)
		}
	}
}

func TestModel_PlayAtEndStaysPaused(t *testing.T) {
	m := testModel(t, descent.Two, 8)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnd})
	m, cmd := update(t, m, runes(" "))
	if cmd != nil || m.Controller().Playing() {
		t.Error("play at the final step should be a no-op")
	}
}

func TestModel_ResetWhilePlaying(t *testing.T) {
	m := testModel(t, descent.Two, 8)
	m, _ = update(t, m, runes(" "))
	gen := m.Controller().Generation()
	m, _ = update(t, m, TickMsg{Gen: gen})
	m, _ = update(t, m, runes("r"))
	if m.Controller().Playing() || m.Controller().Position() != 1 {
		t.Fatalf("reset should pause at step 1, got %s at %d", m.Controller().State(), m.Controller().Position())
	}
	m, cmd := update(t, m, TickMsg{Gen: gen})
	if cmd != nil || m.Controller().Position() != 1 {
		t.Error("tick from before the reset must be ignored")
	}
}

func TestModel_TogglesAndQuit(t *testing.T) {
	m := testModel(t, descent.Two, 8)
	m, _ = update(t, m, runes("d"))
	if !m.rend.Options().DynamicLimits {
		t.Error("d should enable dynamic limits")
	}
	m, _ = update(t, m, runes("t"))
	if m.Theme().Name != "sunset" {
		t.Errorf("theme after ocean = %q", m.Theme().Name)
	}
	m, _ = update(t, m, runes("?"))
	if !m.showHelp || !strings.Contains(m.View(), "KEYBOARD SHORTCUTS") {
		t.Error("? should show the help overlay")
	}
	_, cmd := update(t, m, runes("q"))
	if cmd == nil {
		t.Error("q should return a quit command")
	}
}

func TestModel_View(t *testing.T) {
	for _, arity := range []descent.Arity{descent.One, descent.Two} {
		m := testModel(t, arity, 12)
		m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 36})
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
		view := m.View()
		for _, want := range []string{"iter 11/12", "target (OLS)", "PAUSED", "Fit", "History", "Parameters", "Loss"} {
			if !strings.Contains(view, want) {
				t.Errorf("arity %d view missing %q", arity, want)
			}
		}
	}
}

func TestModel_ViewDivergingRun(t *testing.T) {
	for _, arity := range []descent.Arity{descent.One, descent.Two} {
		ds, err := dataset.Generate(dataset.Spec{
			N: 100, TrueSlope: 2.5, TrueIntercept: -1, NoiseStd: 1.2, XMin: -5, XMax: 7,
			ThroughOrigin: arity == descent.One,
		}, rand.New(rand.NewSource(1)))
		if err != nil {
			t.Fatal(err)
		}
		traj, err := descent.Generate(context.Background(), ds, descent.Config{
			Arity: arity, LearningRate: 0.5, Steps: 500,
		}, descent.Params{Slope: 1, Intercept: 1})
		if err != nil {
			t.Fatal(err)
		}
		if loss := traj.Final().Loss; !math.IsNaN(loss) && !math.IsInf(loss, 0) {
			t.Fatalf("expected the run to diverge, final loss %g", loss)
		}
		rend := playback.NewRenderer(ds, traj, descent.ReferenceFit(ds, arity), playback.Options{HistoryStride: 10})
		m := NewModel(rend, Options{})
		m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 36})
		for _, key := range []tea.KeyMsg{{Type: tea.KeyHome}, {Type: tea.KeyEnd}, runes("d"), {Type: tea.KeyHome}, {Type: tea.KeyEnd}} {
			m, _ = update(t, m, key)
			if view := m.View(); !strings.Contains(view, "Loss") {
				t.Fatalf("arity %d: view missing the loss panel", arity)
			}
		}
		if view := m.View(); !strings.Contains(view, "diverged at step") {
			t.Errorf("arity %d: loss caption should name the divergence", arity)
		}
	}
}

func TestLossChart_CutsNonFinite(t *testing.T) {
	f := playback.Frame{
		Step: 4, Steps: 4,
		Loss: []playback.Point{{X: 1, Y: 1}, {X: 2, Y: 10}, {X: 3, Y: math.Inf(1)}, {X: 4, Y: math.NaN()}},
		Bounds: playback.Bounds{
			LossX: limits.Range{Lo: 1, Hi: 4},
			LossY: limits.Range{Lo: math.Inf(-1), Hi: math.Inf(1)},
		},
	}
	if got := lossChart(f, 40, 6); !strings.Contains(got, "diverged at step 3") {
		t.Errorf("caption missing divergence step:\n%s", got)
	}
	f.Loss = f.Loss[2:]
	if got := lossChart(f, 40, 6); !strings.Contains(got, "diverged at step 1") {
		t.Errorf("got %q", got)
	}
}

func TestAlphaLevel(t *testing.T) {
	if got := alphaLevel(0.15); got != 1 {
		t.Errorf("oldest alpha level = %d", got)
	}
	if got := alphaLevel(0.95); got != rampLevels-1 {
		t.Errorf("newest alpha level = %d", got)
	}
}

func TestThemeRamp(t *testing.T) {
	ramp := ThemeMinimal.Ramp(rampLevels)
	if len(ramp) != rampLevels {
		t.Fatalf("ramp length %d", len(ramp))
	}
	if got := blend("#000000", "#ffffff", 0.5); got != "#7f7f7f" {
		t.Errorf("blend midpoint = %s", got)
	}
	if GetTheme("nope").Name != "cyberpunk" {
		t.Error("unknown theme should fall back to cyberpunk")
	}
}

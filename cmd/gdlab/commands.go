package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/gdlab/internal/config"
	"github.com/san-kum/gdlab/internal/descent"
	"github.com/san-kum/gdlab/internal/experiment"
	"github.com/san-kum/gdlab/internal/export"
	"github.com/san-kum/gdlab/internal/limits"
	"github.com/san-kum/gdlab/internal/metrics"
	"github.com/san-kum/gdlab/internal/optim"
	"github.com/san-kum/gdlab/internal/playback"
	"github.com/san-kum/gdlab/internal/storage"
	"github.com/san-kum/gdlab/internal/viz"
	"github.com/spf13/cobra"
)

// resolveConfig layers preset, config file and explicitly set flags, in
// that order, and picks the seed.
func resolveConfig(cmd *cobra.Command) (*config.Config, int64, error) {
	cfg, err := config.Resolve(preset, configFile)
	if err != nil {
		return nil, 0, err
	}
	f := cmd.Flags()
	if f.Changed("num-params") {
		cfg.Model.Arity = numParams
	}
	if f.Changed("n") {
		cfg.Data.N = numPoints
	}
	if f.Changed("true-m") {
		cfg.Data.TrueSlope = trueM
	}
	if f.Changed("true-b") {
		cfg.Data.TrueIntercept = trueB
	}
	if f.Changed("noise-std") {
		cfg.Data.NoiseStd = noiseStd
	}
	if f.Changed("x-min") {
		cfg.Data.XMin = xMin
	}
	if f.Changed("x-max") {
		cfg.Data.XMax = xMax
	}
	if f.Changed("lr") {
		cfg.Descent.LearningRate = learningRate
	}
	if f.Changed("steps") {
		cfg.Descent.Steps = steps
	}
	if f.Changed("m-init") {
		v := mInit
		cfg.Descent.InitSlope = &v
	}
	if f.Changed("b-init") {
		v := bInit
		cfg.Descent.InitIntercept = &v
	}
	applyPlaybackFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, 0, err
	}

	s := cfg.SeedOr(time.Now().UnixNano())
	if f.Changed("seed") {
		s = seed
	}
	return cfg, s, nil
}

func applyPlaybackFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("history-max") {
		cfg.Playback.HistoryMax = historyMax
	}
	if f.Changed("history-stride") {
		cfg.Playback.HistoryStride = historyStride
	}
	if f.Changed("dynamic-limits") {
		cfg.Playback.DynamicLimits = dynamicLimits
	}
	if f.Changed("play-interval-ms") {
		cfg.Playback.PlayIntervalMS = playIntervalMS
	}
	if f.Changed("theme") {
		cfg.Theme = theme
	}
}

func logf(cmd *cobra.Command, format string, args ...any) {
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runExperiment(cmd *cobra.Command) (*experiment.Result, error) {
	cfg, s, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	logf(cmd, "seed %d, arity %d, %d points, lr %g, %d steps", s, cfg.Model.Arity, cfg.Data.N, cfg.Descent.LearningRate, cfg.Descent.Steps)
	start := time.Now()
	res, err := experiment.New(cfg, s).Run(cmdContext(cmd))
	if err != nil {
		return nil, err
	}
	logf(cmd, "trajectory computed in %v, fingerprint %016x", time.Since(start), res.Trajectory.Fingerprint())
	return res, nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	res, err := runExperiment(cmd)
	if err != nil {
		return err
	}
	header := preset
	if header == "" {
		header = fmt.Sprintf("seed %d", res.Seed)
	}
	return viz.Run(res.Renderer(), viz.Options{
		Interval: res.Config.Interval(),
		Theme:    res.Config.Theme,
		Header:   header,
	})
}

func runSimple(cmd *cobra.Command, args []string) error {
	res, err := runExperiment(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	traj := res.Trajectory
	arity := traj.Arity

	fmt.Fprintf(out, "initial %s = %s\n", arity, formatParams(arity, traj.Initial))
	for _, s := range traj.Snapshots {
		if s.Step%10 == 0 || s.Step == 1 || s.Step == traj.Len() {
			fmt.Fprintf(out, "iter %5d  %s = %s  mse = %.6f\n", s.Step, arity, formatParams(arity, s.Params), s.Loss)
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, lossGraph(traj.Losses(), "MSE vs. iteration"))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tSLOPE\tINTERCEPT\tMSE")
	final := traj.Final()
	fmt.Fprintf(w, "gradient descent\t%.6f\t%.6f\t%.6f\n", final.Params.Slope, final.Params.Intercept, final.Loss)
	fmt.Fprintf(w, "least squares\t%.6f\t%.6f\t%.6f\n", res.Reference.Params.Slope, res.Reference.Params.Intercept, res.Reference.Loss)
	if arity == descent.Two {
		if p, err := descent.NormalEquations(res.Dataset); err == nil {
			fmt.Fprintf(w, "normal equations\t%.6f\t%.6f\t%.6f\n", p.Slope, p.Intercept, descent.MSE(res.Dataset, p))
		} else {
			logf(cmd, "normal equations: %v", err)
		}
	}
	sp := metrics.StatFit(res.Dataset, arity)
	fmt.Fprintf(w, "gonum stat\t%.6f\t%.6f\t%.6f\n", sp.Slope, sp.Intercept, descent.MSE(res.Dataset, sp))
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	printMetrics(out, res.Metrics)
	return nil
}

func formatParams(arity descent.Arity, p descent.Params) string {
	if arity == descent.Two {
		return fmt.Sprintf("(%.4f, %.4f)", p.Slope, p.Intercept)
	}
	return fmt.Sprintf("(%.4f)", p.Slope)
}

// lossGraph plots losses up to the first NaN or infinity and names the
// step where the run diverged in the caption.
func lossGraph(losses []float64, caption string) string {
	finite := limits.FinitePrefix(losses)
	if len(finite) < len(losses) {
		caption = fmt.Sprintf("%s (diverged at step %d)", caption, len(finite)+1)
	}
	switch len(finite) {
	case 0:
		return caption
	case 1:
		finite = []float64{finite[0], finite[0]}
	}
	return asciigraph.Plot(finite,
		asciigraph.Height(10),
		asciigraph.Width(70),
		asciigraph.Caption(caption),
	)
}

func printMetrics(out io.Writer, m map[string]float64) {
	fmt.Fprintln(out, "metrics:")
	for _, name := range []string{"final_loss", "loss_reduction", "ols_gap", "loss_gap", "convergence_step"} {
		if v, ok := m[name]; ok {
			fmt.Fprintf(out, "  %s: %.6g\n", name, v)
		}
	}
}

func saveRun(cmd *cobra.Command, args []string) error {
	c, err := storage.ParseCodec(codec)
	if err != nil {
		return err
	}
	res, err := runExperiment(cmd)
	if err != nil {
		return err
	}
	st := storage.New(dataDir, storage.WithCodec(c))
	if err := st.Init(); err != nil {
		return err
	}
	name := runName
	if name == "" {
		name = preset
	}
	runID, err := st.Save(res.StorageRun(name))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run id: %s\n", runID)
	fmt.Fprintf(out, "steps: %d\n", res.Trajectory.Len())
	printMetrics(out, res.Metrics)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPARAMS\tLR\tSTEPS\tFINAL MSE\tOLS MSE\tCODEC")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%d\t%.6f\t%.6f\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Arity,
			run.LearningRate,
			run.Steps,
			run.Final.Loss,
			run.Reference.Loss,
			run.Codec,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if showJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}

	traj, err := st.LoadTrajectory(meta.ID)
	if err != nil {
		return err
	}
	arity := descent.Arity(meta.Arity)
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "seed: %d\n", meta.Seed)
	fmt.Fprintf(out, "data: n=%d m=%g b=%g noise=%g x=[%g, %g]\n",
		meta.Data.N, meta.Data.TrueSlope, meta.Data.TrueIntercept, meta.Data.NoiseStd, meta.Data.XMin, meta.Data.XMax)
	fmt.Fprintf(out, "descent: lr=%g steps=%d\n", meta.LearningRate, meta.Steps)
	fmt.Fprintf(out, "initial %s = %s\n", arity, formatParams(arity, meta.Initial))
	fmt.Fprintf(out, "final   %s = %s  mse = %.6f\n", arity, formatParams(arity, meta.Final.Params), meta.Final.Loss)
	if meta.DivergedAt > 0 {
		fmt.Fprintf(out, "diverged at step %d; final is the last finite step (%d)\n", meta.DivergedAt, meta.Final.Step)
	}
	fmt.Fprintf(out, "ols     %s = %s  mse = %.6f\n\n", arity, formatParams(arity, meta.Reference.Params), meta.Reference.Loss)
	fmt.Fprintln(out, lossGraph(traj.Losses(), "MSE vs. iteration"))
	fmt.Fprintln(out)
	printMetrics(out, meta.Metrics)
	return nil
}

// loadRenderer rebuilds a saved run's renderer, applying playback flags
// over the defaults.
func loadRenderer(cmd *cobra.Command, runID string) (*playback.Renderer, *config.Config, *storage.RunMetadata, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	ds, err := st.LoadDataset(runID)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := config.DefaultConfig()
	applyPlaybackFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	return playback.NewRenderer(ds, traj, meta.Reference, cfg.PlaybackOptions()), cfg, meta, nil
}

func replayRun(cmd *cobra.Command, args []string) error {
	rend, cfg, meta, err := loadRenderer(cmd, args[0])
	if err != nil {
		return err
	}
	return viz.Run(rend, viz.Options{
		Interval: cfg.Interval(),
		Theme:    cfg.Theme,
		Header:   meta.ID,
	})
}

func exportCSV(cmd *cobra.Command, args []string) error {
	data, _, err := storage.New(dataDir).RawTrajectory(args[0])
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func renderFrame(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(renderFormat)
	if err != nil {
		return err
	}
	var rend *playback.Renderer
	if len(args) == 1 {
		rend, _, _, err = loadRenderer(cmd, args[0])
	} else {
		var res *experiment.Result
		if res, err = runExperiment(cmd); err == nil {
			rend = res.Renderer()
		}
	}
	if err != nil {
		return err
	}

	k := renderStep
	if k <= 0 {
		k = rend.Trajectory().Len()
	}
	paths, err := export.RenderPanels(rend.Frame(k), rend.Dataset(), rend.Surface(), format, renderOut)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	return nil
}

func evaluateRun(cmd *cobra.Command, args []string) error {
	cfg, s, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	res, err := experiment.New(cfg, s).RunSplit(cmdContext(cmd), testFrac)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "seed %d: %d train / %d test points\n\n", s, res.Train.Len(), res.Test.Len())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tSPLIT\tMSE\tRMSE\tR2")
	rows := []struct {
		name string
		tt   metrics.TrainTest
	}{
		{"gradient descent", res.GD},
		{"least squares", res.OLS},
	}
	for _, r := range rows {
		for _, split := range []struct {
			name string
			ev   metrics.Evaluation
		}{{"train", r.tt.Train}, {"test", r.tt.Test}} {
			fmt.Fprintf(w, "%s\t%s\t%.6f\t%.6f\t%s\n", r.name, split.name, split.ev.MSE, split.ev.RMSE, formatR2(split.ev.R2))
		}
	}
	return w.Flush()
}

func sweepRun(cmd *cobra.Command, args []string) error {
	cfg, s, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	names := []string{optim.LearningRate}
	lrs, err := optim.ParseRange(sweepLRs)
	if err != nil {
		return err
	}
	ranges := [][]float64{lrs}
	if sweepSteps != "" {
		st, err := optim.ParseRange(sweepSteps)
		if err != nil {
			return err
		}
		names = append(names, optim.Steps)
		ranges = append(ranges, st)
	}

	g := optim.NewGridSearch(names, ranges)
	if sweepWorkers > 0 {
		g.WithWorkers(sweepWorkers)
	}
	logf(cmd, "sweeping %d points, seed %d", len(g.Points()), s)
	sweep, err := g.Search(cmdContext(cmd), optim.Builder(cfg, s), sweepMetric)
	if err != nil && !errors.Is(err, optim.ErrNoResult) {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "LR\tSTEPS\t%s\t\n", strings.ToUpper(sweepMetric))
	for _, p := range sweep.Points {
		st := float64(cfg.Descent.Steps)
		if v, ok := p.Params[optim.Steps]; ok {
			st = v
		}
		val := fmt.Sprintf("%.6g", p.Value)
		if p.Err != nil {
			val = "error: " + p.Err.Error()
		}
		mark := ""
		if err == nil && sameParams(p.Params, sweep.Best.Params) {
			mark = "*"
		}
		fmt.Fprintf(w, "%g\t%.0f\t%s\t%s\n", p.Params[optim.LearningRate], st, val, mark)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func sameParams(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func formatR2(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

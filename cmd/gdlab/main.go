package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/san-kum/gdlab/internal/config"
	"github.com/san-kum/gdlab/internal/storage"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool

	// experiment flags
	numParams      int
	seed           int64
	numPoints      int
	trueM          float64
	trueB          float64
	noiseStd       float64
	xMin           float64
	xMax           float64
	learningRate   float64
	steps          int
	mInit          float64
	bInit          float64
	historyMax     int
	historyStride  int
	dynamicLimits  bool
	playIntervalMS int
	configFile     string
	preset         string
	theme          string

	// save
	runName string
	codec   string
	// render
	renderStep   int
	renderFormat string
	renderOut    string
	// evaluate
	testFrac float64
	// show
	showJSON bool
	// sweep
	sweepLRs     string
	sweepSteps   string
	sweepMetric  string
	sweepWorkers int
)

// main registers the gdlab commands; with no subcommand it opens the
// interactive playback view. It exits with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "gdlab",
		Short:         "gradient descent playback lab for linear regression",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runTUI,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".gdlab", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print run diagnostics to stderr")
	addExperimentFlags(rootCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "generate a trajectory and play it back interactively",
		Args:  cobra.NoArgs,
		RunE:  runTUI,
	}
	addExperimentFlags(runCmd)

	simpleCmd := &cobra.Command{
		Use:   "simple",
		Short: "run without the TUI and compare against closed-form fits",
		Args:  cobra.NoArgs,
		RunE:  runSimple,
	}
	addExperimentFlags(simpleCmd)

	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "generate a trajectory and store it",
		Args:  cobra.NoArgs,
		RunE:  saveRun,
	}
	addExperimentFlags(saveCmd)
	saveCmd.Flags().StringVar(&runName, "name", "", "run name (defaults to the preset or \"run\")")
	saveCmd.Flags().StringVar(&codec, "codec", "zstd", fmt.Sprintf("trajectory compression %v", storage.CodecNames()))

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "summarize a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the metadata as JSON")

	replayCmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "play a saved run back interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  replayRun,
	}
	addPlaybackFlags(replayCmd)

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write a saved trajectory to stdout as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render the four panels of one step to PNG or SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE:  renderFrame,
	}
	addExperimentFlags(renderCmd)
	renderCmd.Flags().IntVar(&renderStep, "step", 0, "step to render (0 = last)")
	renderCmd.Flags().StringVar(&renderFormat, "format", "png", "png or svg")
	renderCmd.Flags().StringVar(&renderOut, "out", "render", "output directory")

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "fit on a training split and score on held-out data",
		Args:  cobra.NoArgs,
		RunE:  evaluateRun,
	}
	addExperimentFlags(evaluateCmd)
	evaluateCmd.Flags().Float64Var(&testFrac, "test-frac", 0.25, "fraction of points held out")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "grid search learning rate and step count",
		Args:  cobra.NoArgs,
		RunE:  sweepRun,
	}
	addExperimentFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepLRs, "lrs", "0.001,0.005,0.01,0.02,0.05", "learning rates: list a,b,c or span lo:hi:count")
	sweepCmd.Flags().StringVar(&sweepSteps, "steps-grid", "", "step counts, same syntax (default: --steps only)")
	sweepCmd.Flags().StringVar(&sweepMetric, "metric", "final_loss", "metric to minimize")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "parallel runs (0 = one per CPU)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arity := range []int{2, 1} {
				fmt.Fprintf(out, "presets for %d parameter(s):\n", arity)
				for _, p := range config.ListPresets(arity) {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, simpleCmd, saveCmd, listCmd, showCmd, replayCmd, exportCSVCmd, renderCmd, evaluateCmd, sweepCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func addExperimentFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&numParams, "num-params", config.DefaultArity, "1 fits y = m*x, 2 fits y = m*x + b")
	f.Int64Var(&seed, "seed", 0, "random seed (default: time based)")
	f.IntVar(&numPoints, "n", config.DefaultN, "number of data points")
	f.Float64Var(&trueM, "true-m", config.DefaultTrueSlope, "ground-truth slope")
	f.Float64Var(&trueB, "true-b", config.DefaultTrueIntercept, "ground-truth intercept")
	f.Float64Var(&noiseStd, "noise-std", config.DefaultNoiseStd, "gaussian noise std")
	f.Float64Var(&xMin, "x-min", config.DefaultXMin, "smallest x")
	f.Float64Var(&xMax, "x-max", config.DefaultXMax, "largest x")
	f.Float64Var(&learningRate, "lr", config.DefaultLearningRate, "learning rate")
	f.IntVar(&steps, "steps", config.DefaultSteps, "number of descent steps")
	f.Float64Var(&mInit, "m-init", 0, "initial slope (default: random)")
	f.Float64Var(&bInit, "b-init", 0, "initial intercept (default: random)")
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	addPlaybackFlags(cmd)
}

func addPlaybackFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&historyMax, "history-max", 0, "max history lines kept (0 = all)")
	f.IntVar(&historyStride, "history-stride", config.DefaultHistoryStride, "sample every n-th step into the history")
	f.BoolVar(&dynamicLimits, "dynamic-limits", false, "fit axis limits to the visited prefix")
	f.IntVar(&playIntervalMS, "play-interval-ms", config.DefaultIntervalMS, "auto-play interval in milliseconds")
	f.StringVar(&theme, "theme", config.DefaultTheme, "color theme")
}

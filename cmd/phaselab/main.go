package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/san-kum/phaselab/internal/config"
	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/engine"
	"github.com/san-kum/phaselab/internal/systems"
	"github.com/san-kum/phaselab/internal/viz"
	"github.com/spf13/cobra"
)

var (
	configFile string
	dataDir    string
	logLevel   string
	themeName  string
	jsonOut    bool

	cfg    *config.Config
	logger *slog.Logger
	eng    *engine.Engine
)

// main registers the commands and exits with status 1 when one fails.
func main() {
	rootCmd := &cobra.Command{
		Use:               "phaselab",
		Short:             "dynamical systems analysis lab",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&dataDir, "data", "", "data directory (overrides config)")
	pf.StringVar(&logLevel, "log-level", "", "log level (overrides config)")
	pf.StringVar(&themeName, "theme", "phosphor", "plot theme")
	pf.BoolVar(&jsonOut, "json", false, "print results as JSON")

	rootCmd.AddCommand(computeCommands()...)
	rootCmd.AddCommand(nonlinearCommands()...)
	rootCmd.AddCommand(runCommands()...)
	rootCmd.AddCommand(serveCmd(), liveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	cfg = config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger = config.NewLogger(cfg.Log, os.Stderr)
	eng = engine.New(systems.NewRegistry(), cfg.Defaults, logger)
	return nil
}

func newPlot() *viz.Plot {
	p := viz.NewPlot(72, 20)
	p.Theme = viz.ThemeByName(themeName)
	return p
}

// emit prints res as JSON under --json, otherwise renders it as text.
func emit(res any, render func(w io.Writer) error) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return render(os.Stdout)
}

// systemFlags select a system and its parameters on the command line.
// Parameters layer as model defaults, then --preset, then --param. A
// --matrix selects the linear system unless --system names another kind,
// which the engine then rejects.
type systemFlags struct {
	kind   string
	preset string
	params map[string]string
	x0     []float64
	matrix []float64

	cmd *cobra.Command
}

func (f *systemFlags) register(cmd *cobra.Command, kind systems.Kind) {
	f.cmd = cmd
	fl := cmd.Flags()
	fl.StringVar(&f.kind, "system", string(kind), "system kind, see the systems command")
	fl.StringVar(&f.preset, "preset", "", "named parameter preset")
	fl.StringToStringVar(&f.params, "param", nil, "parameter override, e.g. --param r=3.7")
	fl.Float64SliceVar(&f.x0, "x0", nil, "initial state")
	fl.Float64SliceVar(&f.matrix, "matrix", nil, "linear matrix as a11,a12,a21,a22")
}

func (f *systemFlags) input() (engine.SystemInput, engine.Vector, error) {
	in := engine.SystemInput{SystemType: f.kind}
	var x0 engine.Vector

	if len(f.matrix) > 0 {
		m, err := toMatrix(f.matrix)
		if err != nil {
			return in, nil, err
		}
		if !f.kindChanged() {
			in.SystemType = string(systems.Linear)
		}
		in.Matrix = m
		if len(f.x0) > 0 {
			x0 = f.x0
		}
		return in, x0, nil
	}

	model, err := eng.Registry().Get(f.kind)
	if err != nil {
		return in, nil, err
	}
	params := model.DefaultParams()

	if f.preset != "" {
		p := config.GetPreset(f.kind, f.preset)
		if p == nil {
			return in, nil, fmt.Errorf("unknown preset: %s (available: %v)", f.preset, config.ListPresets(f.kind))
		}
		for k, v := range p.Params {
			params[k] = v
		}
		x0 = p.InitialState
	}

	overrides, err := parseParams(f.params)
	if err != nil {
		return in, nil, err
	}
	for k, v := range overrides {
		params[k] = v
	}
	in.Parameters = params

	if len(f.x0) > 0 {
		x0 = f.x0
	}
	return in, x0, nil
}

// linearMatrix returns the matrix of a linear selection, building it from
// a11..a22 when no --matrix was given.
func (f *systemFlags) linearMatrix() ([][]float64, error) {
	in, _, err := f.input()
	if err != nil {
		return nil, err
	}
	if in.SystemType != string(systems.Linear) {
		return nil, fmt.Errorf("--system %s is not linear; use --system linear or --matrix alone", in.SystemType)
	}
	if in.Matrix != nil {
		return in.Matrix, nil
	}
	p := in.Parameters
	return [][]float64{{p["a11"], p["a12"]}, {p["a21"], p["a22"]}}, nil
}

func (f *systemFlags) kindChanged() bool {
	return f.cmd != nil && f.cmd.Flags().Changed("system")
}

func parseParams(raw map[string]string) (dynamo.Params, error) {
	out := make(dynamo.Params, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := strconv.ParseFloat(raw[k], 64)
		if err != nil {
			return nil, fmt.Errorf("--param %s: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func toMatrix(v []float64) ([][]float64, error) {
	if len(v) != 4 {
		return nil, fmt.Errorf("--matrix needs 4 values, got %d", len(v))
	}
	return [][]float64{{v[0], v[1]}, {v[2], v[3]}}, nil
}

// timeSpan converts --time into a t_span; zero keeps the configured
// default.
func timeSpan(total float64) []float64 {
	if total <= 0 {
		return nil
	}
	return []float64{0, total}
}

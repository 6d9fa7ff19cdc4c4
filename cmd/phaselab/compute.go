package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/san-kum/phaselab/internal/analysis"
	"github.com/san-kum/phaselab/internal/engine"
	"github.com/san-kum/phaselab/internal/storage"
	"github.com/san-kum/phaselab/internal/systems"
	"github.com/spf13/cobra"
)

func computeCommands() []*cobra.Command {
	return []*cobra.Command{
		trajectoryCmd(),
		analyzeCmd(),
		portraitCmd(),
		sweepCmd(),
		poincareCmd(),
		lyapunovCmd(),
		fractalCmd(),
		spectrumCmd(),
		discreteCmd(),
		bifurcationCmd(),
		cobwebCmd(),
		returnMapCmd(),
		mapPortraitCmd(),
	}
}

func trajectoryCmd() *cobra.Command {
	var (
		sf                  systemFlags
		total, dt, offset   float64
		steps, transient    int
		count, xAxis, yAxis int
	)
	cmd := &cobra.Command{
		Use:   "trajectory",
		Short: "integrate a flow or iterate a map and store the run",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, x0, err := sf.input()
			if err != nil {
				return err
			}
			res, err := eng.GenerateTrajectory(cmd.Context(), engine.TrajectoryRequest{
				SystemInput:     in,
				X0:              x0,
				TSpan:           timeSpan(total),
				Dt:              dt,
				NSteps:          steps,
				Transient:       transient,
				NumTrajectories: count,
				Offset:          offset,
			})
			if err != nil {
				return err
			}

			st := storage.New(cfg.DataDir)
			if err := st.Init(); err != nil {
				return err
			}
			v := res.Trajectory
			run, err := st.Save(storage.Run{
				Kind:   string(res.Kind),
				Params: res.Params,
				Dt:     res.Dt,
				Steps:  res.Steps,
				Metrics: map[string]float64{
					"bounded_fraction": v.BoundedFraction,
					"extent":           v.Extent,
				},
			}, v.Raw)
			if err != nil {
				return err
			}
			logger.Debug("run saved", "id", run.ID, "dir", cfg.DataDir)

			return emit(res, func(w io.Writer) error {
				fmt.Fprintf(w, "run id: %s\n", run.ID)
				fmt.Fprintf(w, "system: %s %v\n", res.Kind, res.Params)
				fmt.Fprintf(w, "samples: %d  diverged: %v  bounded: %.3f\n\n", v.Samples, v.Diverged, v.BoundedFraction)
				if v.Raw.Len() > 0 && len(v.Raw.States[0]) > max(xAxis, yAxis) {
					fmt.Fprint(w, newPlot().Phase(fmt.Sprintf("x%d vs x%d", yAxis, xAxis), v.Raw.Component(xAxis), v.Raw.Component(yAxis)))
				} else {
					fmt.Fprint(w, newPlot().Series("x0", v.Raw.Component(0)))
				}
				return nil
			})
		},
	}
	sf.register(cmd, systems.Lorenz)
	fl := cmd.Flags()
	fl.Float64Var(&total, "time", 0, "integration time (flows)")
	fl.Float64Var(&dt, "dt", 0, "time step (flows)")
	fl.IntVar(&steps, "steps", 0, "iterations (maps)")
	fl.IntVar(&transient, "transient", 0, "iterations to discard (maps)")
	fl.IntVar(&count, "count", 0, "ensemble size (flows)")
	fl.Float64Var(&offset, "offset", 0, "ensemble initial-condition offset")
	fl.IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	fl.IntVar(&yAxis, "y-axis", 1, "state index for y-axis")
	return cmd
}

func analyzeCmd() *cobra.Command {
	var sf systemFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "eigen analysis of a 2x2 linear system",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := sf.linearMatrix()
			if err != nil {
				return err
			}
			res, err := eng.AnalyzeSystem(cmd.Context(), engine.AnalyzeSystemRequest{Matrix: m})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				fmt.Fprintf(w, "matrix:          %v\n", res.Matrix)
				fmt.Fprintf(w, "trace:           %.6g\n", res.Trace)
				fmt.Fprintf(w, "determinant:     %.6g\n", res.Det)
				fmt.Fprintf(w, "discriminant:    %.6g\n", res.Discriminant)
				for i, ev := range res.Eigenvalues {
					fmt.Fprintf(w, "lambda%d:         %.6g%+.6gi\n", i+1, ev.Re, ev.Im)
				}
				fmt.Fprintf(w, "classification:  %s\n", res.Classification)
				fmt.Fprintf(w, "stable:          %v\n", res.Stable)
				if res.Lyapunov.Solvable {
					fmt.Fprintf(w, "lyapunov P:      %v (positive definite: %v)\n", res.Lyapunov.P, res.Lyapunov.PositiveDefinite)
				}
				return nil
			})
		},
	}
	sf.register(cmd, systems.Linear)
	return cmd
}

func portraitCmd() *cobra.Command {
	var (
		sf       systemFlags
		grid     int
		duration float64
	)
	cmd := &cobra.Command{
		Use:   "portrait",
		Short: "vector field and sample trajectories of a linear system",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := sf.linearMatrix()
			if err != nil {
				return err
			}
			res, err := eng.PhasePortrait(cmd.Context(), engine.PhasePortraitRequest{Matrix: m, GridSize: grid, Duration: duration})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				_, err := fmt.Fprint(w, newPlot().Portrait(res))
				return err
			})
		},
	}
	sf.register(cmd, systems.Linear)
	cmd.Flags().IntVar(&grid, "grid", 0, "vector field grid size")
	cmd.Flags().Float64Var(&duration, "time", 0, "trajectory duration")
	return cmd
}

func sweepCmd() *cobra.Command {
	var (
		sf    systemFlags
		entry string
		rng   []float64
		steps int
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one matrix entry and classify each value",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := sf.linearMatrix()
			if err != nil {
				return err
			}
			res, err := eng.LinearSweep(cmd.Context(), engine.LinearSweepRequest{Matrix: m, Entry: entry, ParamRange: rng, ParamSteps: steps})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "%s\tLAMBDA1\tLAMBDA2\tCLASS\n", res.Entry)
				for _, pt := range res.Points {
					fmt.Fprintf(tw, "%.4g\t%.4g%+.4gi\t%.4g%+.4gi\t%s\n", pt.Value,
						pt.Eigenvalues[0].Re, pt.Eigenvalues[0].Im,
						pt.Eigenvalues[1].Re, pt.Eigenvalues[1].Im,
						pt.Classification)
				}
				return tw.Flush()
			})
		},
	}
	sf.register(cmd, systems.Linear)
	cmd.Flags().StringVar(&entry, "entry", "", "matrix entry (a11, a12, a21, a22)")
	cmd.Flags().Float64SliceVar(&rng, "range", nil, "sweep range lo,hi")
	cmd.Flags().IntVar(&steps, "steps", 0, "sweep steps")
	return cmd
}

func poincareCmd() *cobra.Command {
	var (
		sf                       systemFlags
		plane                    string
		value, total, dt, offset float64
		count                    int
	)
	cmd := &cobra.Command{
		Use:   "poincare",
		Short: "Poincaré section of a flow",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, x0, err := sf.input()
			if err != nil {
				return err
			}
			req := engine.PoincareRequest{
				SystemInput:       in,
				InitialConditions: x0,
				TSpan:             timeSpan(total),
				Dt:                dt,
				SectionPlane:      plane,
				NumTrajectories:   count,
				Offset:            offset,
			}
			if cmd.Flags().Changed("value") {
				req.SectionValue = &value
			}
			res, err := eng.PoincareSection(cmd.Context(), req)
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				_, err := fmt.Fprint(w, newPlot().Section(res.Message, res.Intersections))
				return err
			})
		},
	}
	sf.register(cmd, systems.Lorenz)
	fl := cmd.Flags()
	fl.StringVar(&plane, "plane", "", "section plane (x, y, z)")
	fl.Float64Var(&value, "value", 0, "section value")
	fl.Float64Var(&total, "time", 0, "integration time")
	fl.Float64Var(&dt, "dt", 0, "time step")
	fl.IntVar(&count, "count", 0, "ensemble size")
	fl.Float64Var(&offset, "offset", 0, "ensemble initial-condition offset")
	return cmd
}

func printQuality(w io.Writer, q analysis.Quality) {
	fmt.Fprintf(w, "converged: %v  diverged: %v\n", q.Converged, q.Diverged)
	for _, warn := range q.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func lyapunovCmd() *cobra.Command {
	var (
		sf                      systemFlags
		method                  string
		dt, duration, transient float64
		renorm, steps           int
	)
	cmd := &cobra.Command{
		Use:   "lyapunov",
		Short: "Lyapunov exponents of a flow or map",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, x0, err := sf.input()
			if err != nil {
				return err
			}
			res, err := eng.CalculateLyapunov(cmd.Context(), engine.LyapunovRequest{
				SystemInput:       in,
				InitialConditions: x0,
				Method:            method,
				Dt:                dt,
				Duration:          duration,
				Transient:         transient,
				RenormEvery:       renorm,
				NSteps:            steps,
			})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				fmt.Fprintf(w, "system:    %s (%s)\n", res.Kind, res.Method)
				fmt.Fprintf(w, "exponents: %.5g\n", res.Exponents)
				fmt.Fprintf(w, "largest:   %.5g\n", res.Largest)
				fmt.Fprintf(w, "sum:       %.5g\n", res.Sum)
				fmt.Fprintf(w, "chaotic:   %v\n", res.Chaotic)
				printQuality(w, res.Quality)
				return nil
			})
		},
	}
	sf.register(cmd, systems.Lorenz)
	fl := cmd.Flags()
	fl.StringVar(&method, "method", "", "variational or separation (flows)")
	fl.Float64Var(&dt, "dt", 0, "time step")
	fl.Float64Var(&duration, "time", 0, "averaging time")
	fl.Float64Var(&transient, "transient", 0, "time or iterations to discard")
	fl.IntVar(&renorm, "renorm", 0, "steps between renormalisations")
	fl.IntVar(&steps, "steps", 0, "iterations (maps)")
	return cmd
}

func fractalCmd() *cobra.Command {
	var (
		sf                   systemFlags
		total, dt, transient float64
		steps, maxPoints     int
	)
	cmd := &cobra.Command{
		Use:   "fractal",
		Short: "box-counting and correlation dimension of an attractor",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, x0, err := sf.input()
			if err != nil {
				return err
			}
			res, err := eng.FractalDimension(cmd.Context(), engine.FractalRequest{
				SystemInput:       in,
				InitialConditions: x0,
				TSpan:             timeSpan(total),
				Dt:                dt,
				Transient:         transient,
				NSteps:            steps,
				MaxPoints:         maxPoints,
			})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				fmt.Fprintf(w, "system:                %s\n", res.Kind)
				fmt.Fprintf(w, "points:                %d (discarded %d)\n", res.Points, res.Discarded)
				fmt.Fprintf(w, "box dimension:         %.4f\n", res.BoxDimension)
				fmt.Fprintf(w, "correlation dimension: %.4f\n", res.CorrelationDimension)
				printQuality(w, res.Quality)
				return nil
			})
		},
	}
	sf.register(cmd, systems.Lorenz)
	fl := cmd.Flags()
	fl.Float64Var(&total, "time", 0, "integration time (flows)")
	fl.Float64Var(&dt, "dt", 0, "time step (flows)")
	fl.Float64Var(&transient, "transient", 0, "time or iterations to discard")
	fl.IntVar(&steps, "steps", 0, "iterations (maps)")
	fl.IntVar(&maxPoints, "max-points", 0, "point cloud cap")
	return cmd
}

func spectrumCmd() *cobra.Command {
	var (
		sf               systemFlags
		total, dt        float64
		steps, component int
	)
	cmd := &cobra.Command{
		Use:   "spectrum",
		Short: "power spectrum of one state component",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, x0, err := sf.input()
			if err != nil {
				return err
			}
			res, err := eng.Spectrum(cmd.Context(), engine.SpectrumRequest{
				SystemInput:       in,
				InitialConditions: x0,
				TSpan:             timeSpan(total),
				Dt:                dt,
				NSteps:            steps,
				Component:         component,
			})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				fmt.Fprintf(w, "peak frequency: %.5g\n\n", res.Peak)
				_, err := fmt.Fprint(w, newPlot().Series(fmt.Sprintf("power of x%d", res.Component), res.Power))
				return err
			})
		},
	}
	sf.register(cmd, systems.Lorenz)
	fl := cmd.Flags()
	fl.Float64Var(&total, "time", 0, "integration time (flows)")
	fl.Float64Var(&dt, "dt", 0, "time step (flows)")
	fl.IntVar(&steps, "steps", 0, "iterations (maps)")
	fl.IntVar(&component, "component", 0, "state component")
	return cmd
}

func discreteCmd() *cobra.Command {
	var (
		sf        systemFlags
		maxPeriod int
	)
	cmd := &cobra.Command{
		Use:   "discrete",
		Short: "fixed points, cycles and Lyapunov exponents of a map",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, x0, err := sf.input()
			if err != nil {
				return err
			}
			res, err := eng.AnalyzeDiscreteSystem(cmd.Context(), engine.DiscreteAnalysisRequest{SystemInput: in, X0: x0, MaxPeriod: maxPeriod})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				fmt.Fprintf(w, "map: %s %v\n\n", res.Kind, res.Params)
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "FIXED POINT\tMULTIPLIER\tSTABILITY")
				for _, fp := range res.Stability {
					fmt.Fprintf(tw, "%.6g\t%.6g\t%s\n", fp.Point, fp.Multiplier, fp.Stability)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				if len(res.PeriodicOrbits) > 0 {
					fmt.Fprintln(w)
					tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
					fmt.Fprintln(tw, "PERIOD\tORBIT\tMULTIPLIER\tSTABILITY")
					for _, o := range res.PeriodicOrbits {
						fmt.Fprintf(tw, "%d\t%.5g\t%.5g\t%s\n", o.Period, o.Points, o.Multiplier, o.Stability)
					}
					if err := tw.Flush(); err != nil {
						return err
					}
				}
				if l := res.Lyapunov; l != nil {
					fmt.Fprintf(w, "\nlyapunov: %.5g (chaotic: %v)\n", l.Exponents, l.Chaotic)
				}
				return nil
			})
		},
	}
	sf.register(cmd, systems.Logistic)
	cmd.Flags().IntVar(&maxPeriod, "max-period", 0, "longest cycle to search for (1-D maps)")
	return cmd
}

func bifurcationCmd() *cobra.Command {
	var (
		sf                        systemFlags
		param                     string
		rng                       []float64
		steps, transient, samples int
		keepPartial               bool
	)
	cmd := &cobra.Command{
		Use:   "bifurcation",
		Short: "bifurcation diagram of a map parameter",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, x0, err := sf.input()
			if err != nil {
				return err
			}
			res, err := eng.GenerateBifurcationDiagram(cmd.Context(), engine.BifurcationRequest{
				SystemInput: in,
				X0:          x0,
				ParamName:   param,
				ParamRange:  rng,
				ParamSteps:  steps,
				Transient:   transient,
				Samples:     samples,
				KeepPartial: keepPartial,
			})
			if res == nil {
				return err
			}
			if perr := emit(res, func(w io.Writer) error {
				if res.Message != "" {
					fmt.Fprintln(w, res.Message)
				}
				_, err := fmt.Fprint(w, newPlot().Bifurcation(res.BifurcationDataset))
				return err
			}); perr != nil {
				return errors.Join(err, perr)
			}
			return err
		},
	}
	sf.register(cmd, systems.Logistic)
	fl := cmd.Flags()
	fl.StringVar(&param, "param-name", "", "parameter to scan")
	fl.Float64SliceVar(&rng, "range", nil, "scan range lo,hi")
	fl.IntVar(&steps, "steps", 0, "parameter steps")
	fl.IntVar(&transient, "transient", 0, "iterations discarded per value")
	fl.IntVar(&samples, "samples", 0, "iterations recorded per value")
	fl.BoolVar(&keepPartial, "keep-partial", true, "print the partial scan when interrupted")
	return cmd
}

func cobwebCmd() *cobra.Command {
	var (
		sf    systemFlags
		steps int
	)
	cmd := &cobra.Command{
		Use:   "cobweb",
		Short: "cobweb plot of a one-dimensional map",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, x0, err := sf.input()
			if err != nil {
				return err
			}
			res, err := eng.GenerateCobwebPlot(cmd.Context(), engine.CobwebRequest{SystemInput: in, X0: x0, NSteps: steps})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				_, err := fmt.Fprint(w, newPlot().Cobweb(res.CobwebPlot))
				return err
			})
		},
	}
	sf.register(cmd, systems.Logistic)
	cmd.Flags().IntVar(&steps, "steps", 0, "iterations")
	return cmd
}

func returnMapCmd() *cobra.Command {
	var (
		sf           systemFlags
		steps, delay int
		noTrim       bool
	)
	cmd := &cobra.Command{
		Use:   "return-map",
		Short: "x[n] against x[n+delay] for a map",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, x0, err := sf.input()
			if err != nil {
				return err
			}
			trim := !noTrim
			res, err := eng.GenerateReturnMap(cmd.Context(), engine.ReturnMapRequest{SystemInput: in, X0: x0, NSteps: steps, Delay: delay, Trim: &trim})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				if res.Message != "" {
					fmt.Fprintln(w, res.Message)
				}
				_, err := fmt.Fprint(w, newPlot().ReturnMap(res.ReturnMap))
				return err
			})
		},
	}
	sf.register(cmd, systems.Logistic)
	fl := cmd.Flags()
	fl.IntVar(&steps, "steps", 0, "iterations")
	fl.IntVar(&delay, "delay", 0, "delay")
	fl.BoolVar(&noTrim, "no-trim", false, "keep the settled tail of the orbit")
	return cmd
}

func mapPortraitCmd() *cobra.Command {
	var (
		sf    systemFlags
		steps int
	)
	cmd := &cobra.Command{
		Use:   "map-portrait",
		Short: "phase portrait of a two-dimensional map",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, x0, err := sf.input()
			if err != nil {
				return err
			}
			res, err := eng.DiscretePhasePortrait(cmd.Context(), engine.DiscretePortraitRequest{SystemInput: in, X0: x0, NSteps: steps})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				_, err := fmt.Fprint(w, newPlot().Scatter(fmt.Sprintf("%s orbit", res.Kind), res.X, res.Y))
				return err
			})
		},
	}
	sf.register(cmd, systems.Henon)
	cmd.Flags().IntVar(&steps, "steps", 0, "iterations")
	return cmd
}

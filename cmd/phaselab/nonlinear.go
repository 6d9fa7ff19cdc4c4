package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/phaselab/internal/engine"
	"github.com/san-kum/phaselab/internal/systems"
	"github.com/spf13/cobra"
)

func nonlinearCommands() []*cobra.Command {
	return []*cobra.Command{nonlinearCmd(), nonlinearPortraitCmd(), derivationCmd()}
}

// equationFlags hold a planar system typed as two expressions in x and y.
type equationFlags struct {
	dxdt, dydt string
	view       float64
}

func (f *equationFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.dxdt, "dx", "y", "dx/dt as an expression in x and y")
	fl.StringVar(&f.dydt, "dy", "-x", "dy/dt as an expression in x and y")
	fl.Float64Var(&f.view, "range", 0, "half-width of the square search window")
}

func (f *equationFlags) input() engine.NonlinearInput {
	return engine.NonlinearInput{DxDt: f.dxdt, DyDt: f.dydt}
}

func nonlinearCmd() *cobra.Command {
	var ef equationFlags
	cmd := &cobra.Command{
		Use:   "nonlinear",
		Short: "equilibria of a planar system given as expressions",
		Example: `  phaselab nonlinear --dx y --dy "x - x^3"
  phaselab nonlinear --dx "x(3 - x - 2y)" --dy "y(2 - x - y)" --range 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := eng.AnalyzeNonlinear(cmd.Context(), engine.NonlinearAnalysisRequest{NonlinearInput: ef.input(), ViewRange: ef.view})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				fmt.Fprintf(w, "dx/dt = %s\ndy/dt = %s\n\n", res.Equations.DxDt, res.Equations.DyDt)
				if res.Message != "" {
					_, err := fmt.Fprintln(w, res.Message)
					return err
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "POINT\tLAMBDA1\tLAMBDA2\tTYPE\tHYPERBOLIC")
				for _, e := range res.Equilibria {
					l1, l2 := e.Eigenvalues[0], e.Eigenvalues[1]
					fmt.Fprintf(tw, "%s\t%.4g%+.4gi\t%.4g%+.4gi\t%s\t%v\n", e.Formatted, l1.Re, l1.Im, l2.Re, l2.Im, e.Classification, e.Hyperbolic)
				}
				return tw.Flush()
			})
		},
	}
	ef.register(cmd)
	return cmd
}

func nonlinearPortraitCmd() *cobra.Command {
	var (
		ef       equationFlags
		grid     int
		duration float64
	)
	cmd := &cobra.Command{
		Use:   "nonlinear-portrait",
		Short: "nullclines, equilibria and trajectories of a planar system",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := eng.NonlinearPortrait(cmd.Context(), engine.NonlinearPortraitRequest{
				NonlinearInput: ef.input(),
				ViewRange:      ef.view,
				GridSize:       grid,
				Duration:       duration,
			})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				_, err := fmt.Fprint(w, newPlot().NonlinearPortrait(res.NonlinearPortrait))
				return err
			})
		},
	}
	ef.register(cmd)
	cmd.Flags().IntVar(&grid, "grid", 0, "nullcline grid size")
	cmd.Flags().Float64Var(&duration, "time", 0, "trajectory duration")
	return cmd
}

func derivationCmd() *cobra.Command {
	var sf systemFlags
	cmd := &cobra.Command{
		Use:   "derivation",
		Short: "step-by-step eigen and stability analysis of a 2x2 linear system",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := sf.linearMatrix()
			if err != nil {
				return err
			}
			res, err := eng.Derivation(cmd.Context(), engine.AnalyzeSystemRequest{Matrix: m})
			if err != nil {
				return err
			}
			return emit(res, func(w io.Writer) error {
				section := func(title string, lines ...string) {
					fmt.Fprintf(w, "%s\n  %s\n\n", title, strings.Join(lines, "\n  "))
				}
				section("characteristic polynomial", res.Polynomial.Steps...)
				section("eigenvalues", res.Eigenvalues.Steps...)
				section("stability", res.Stability.Condition, res.Stability.Reasoning)
				section("classification: "+string(res.Classification.Type), append([]string{res.Classification.Description}, res.Classification.Properties...)...)
				lines := []string{res.Lyapunov.Conclusion}
				if res.Lyapunov.Function != "" {
					lines = append([]string{res.Lyapunov.Function}, lines...)
				}
				section("lyapunov", lines...)
				return nil
			})
		},
	}
	sf.register(cmd, systems.Linear)
	return cmd
}

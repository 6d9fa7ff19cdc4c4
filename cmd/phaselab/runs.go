package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/san-kum/phaselab/internal/config"
	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/storage"
	"github.com/san-kum/phaselab/internal/viz"
	"github.com/spf13/cobra"
)

func runCommands() []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot every component of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	var out string
	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tr, err := loadRun(args[0])
			if err != nil {
				return err
			}
			return writeTo(out, func(w io.Writer) error { return storage.WriteCSV(w, tr) })
		},
	}
	exportCSVCmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and samples to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, tr, err := loadRun(args[0])
			if err != nil {
				return err
			}
			return writeTo(out, func(w io.Writer) error { return storage.ExportJSON(w, *run, tr) })
		},
	}
	exportJSONCmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")

	var (
		xAxis, yAxis int
		points       bool
	)
	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a two-component projection of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tr, err := loadRun(args[0])
			if err != nil {
				return err
			}
			if tr.Len() == 0 || len(tr.States[0]) <= max(xAxis, yAxis) {
				return fmt.Errorf("run %s has no component %d", args[0], max(xAxis, yAxis))
			}
			opts := viz.DefaultSVGOptions()
			opts.Points = points
			return writeTo(out, func(w io.Writer) error {
				return viz.WriteSVG(w, tr.Component(xAxis), tr.Component(yAxis), opts)
			})
		},
	}
	exportSVGCmd.Flags().StringVarP(&out, "output", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	exportSVGCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")
	exportSVGCmd.Flags().BoolVar(&points, "points", false, "draw dots instead of a path")

	presetsCmd := &cobra.Command{
		Use:   "presets [system]",
		Short: "list available presets for a system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for system: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, name := range presets {
				p := config.GetPreset(args[0], name)
				fmt.Printf("  %-14s %s %v\n", name, p.Description, p.Params)
			}
			return nil
		},
	}

	systemsCmd := &cobra.Command{
		Use:   "systems",
		Short: "list supported systems and their parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			models := eng.Systems()
			return emit(models, func(w io.Writer) error {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "KIND\tFAMILY\tDIM\tPARAMS\tDESCRIPTION")
				for _, m := range models {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%v\t%s\n", m.Kind, m.Family, m.Dim, m.DefaultParams(), m.Description)
				}
				return tw.Flush()
			})
		},
	}

	return []*cobra.Command{listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, presetsCmd, systemsCmd}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.DataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tSTEPS\tDT\tSAMPLES\tDIVERGED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4g\t%d\t%v\n",
			run.ID,
			run.Kind,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Steps,
			run.Dt,
			run.Samples,
			run.Diverged,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	run, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if tr.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", run.ID)
	fmt.Printf("system: %s %v\n", run.Kind, run.Params)
	fmt.Printf("samples: %d\n\n", tr.Len())

	p := newPlot()
	for i := range tr.States[0] {
		fmt.Println(p.Series(fmt.Sprintf("x%d vs time", i), tr.Component(i)))
	}
	if len(tr.States[0]) >= 2 {
		fmt.Print(p.Phase("x1 vs x0", tr.Component(0), tr.Component(1)))
	}
	return nil
}

func loadRun(id string) (*storage.Run, *dynamo.Trajectory, error) {
	st := storage.New(cfg.DataDir)
	run, err := st.Load(id)
	if err != nil {
		return nil, nil, err
	}
	tr, err := st.LoadTrajectory(id)
	if err != nil {
		return nil, nil, err
	}
	return run, tr, nil
}

func writeTo(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

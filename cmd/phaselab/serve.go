package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/phaselab/internal/server"
	"github.com/san-kum/phaselab/internal/systems"
	"github.com/san-kum/phaselab/internal/viz"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the analysis API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := cfg.Server
			if addr != "" {
				sc.Addr = addr
			}
			return server.New(eng, sc, logger).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func liveCmd() *cobra.Command {
	var (
		sf      systemFlags
		dt      float64
		perTick int
		gifPath string
	)
	cmd := &cobra.Command{
		Use:   "live",
		Short: "animate a system in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, x0, err := sf.input()
			if err != nil {
				return err
			}
			sys, err := eng.Registry().Resolve(in.Spec(systems.Lorenz))
			if err != nil {
				return err
			}
			start, err := sys.InitialState("x0", x0)
			if err != nil {
				return err
			}
			if dt <= 0 {
				dt = cfg.Defaults.Dt
			}

			m := viz.NewLive(sys, start, viz.LiveOptions{
				Dt:           dt,
				StepsPerTick: perTick,
				Theme:        themeName,
				GIFPath:      gifPath,
			})
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	sf.register(cmd, systems.Lorenz)
	fl := cmd.Flags()
	fl.Float64Var(&dt, "dt", 0, "time step (flows)")
	fl.IntVar(&perTick, "speed", 4, "steps per frame")
	fl.StringVar(&gifPath, "gif", "", "path for recorded GIFs")
	return cmd
}

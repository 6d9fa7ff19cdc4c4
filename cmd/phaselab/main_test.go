package main

import (
	"context"
	"testing"

	"github.com/san-kum/phaselab/internal/engine"
	"github.com/spf13/cobra"
)

func TestParseParams(t *testing.T) {
	got, err := parseParams(map[string]string{"r": "3.7", "b": "0.3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["r"] != 3.7 || got["b"] != 0.3 {
		t.Errorf("unexpected params %v", got)
	}

	if _, err := parseParams(map[string]string{"r": "abc"}); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestToMatrix(t *testing.T) {
	m, err := toMatrix([]float64{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	if m[0][1] != 2 || m[1][0] != 3 {
		t.Errorf("unexpected layout %v", m)
	}
	if _, err := toMatrix([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for 3 values")
	}
}

func TestSystemFlagsLayering(t *testing.T) {
	if err := setup(&cobra.Command{}, nil); err != nil {
		t.Fatal(err)
	}

	sf := systemFlags{kind: "logistic", preset: "chaos", params: map[string]string{"r": "3.6"}}
	in, x0, err := sf.input()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Parameters["r"] != 3.6 {
		t.Errorf("override lost: %v", in.Parameters)
	}
	if len(x0) != 1 || x0[0] != 0.5 {
		t.Errorf("expected preset initial state, got %v", x0)
	}

	sf = systemFlags{kind: "henon", params: map[string]string{"a": "1.2"}}
	in, _, err = sf.input()
	if err != nil {
		t.Fatal(err)
	}
	if in.Parameters["a"] != 1.2 || in.Parameters["b"] != 0.3 {
		t.Errorf("expected defaults under override, got %v", in.Parameters)
	}

	sf = systemFlags{kind: "logistic", preset: "nope"}
	if _, _, err := sf.input(); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestLinearMatrix(t *testing.T) {
	if err := setup(&cobra.Command{}, nil); err != nil {
		t.Fatal(err)
	}

	sf := systemFlags{kind: "linear", preset: "saddle"}
	m, err := sf.linearMatrix()
	if err != nil {
		t.Fatal(err)
	}
	if m[0][0] != 1 || m[1][1] != -1 {
		t.Errorf("unexpected matrix %v", m)
	}

	sf = systemFlags{kind: "lorenz"}
	if _, err := sf.linearMatrix(); err == nil {
		t.Error("expected error for a non-linear system")
	}
}

func TestMatrixSelectsLinear(t *testing.T) {
	if err := setup(&cobra.Command{}, nil); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{}
	var sf systemFlags
	sf.register(cmd, "lorenz")
	if err := cmd.Flags().Set("matrix", "0,1,-1,0"); err != nil {
		t.Fatal(err)
	}
	in, _, err := sf.input()
	if err != nil {
		t.Fatal(err)
	}
	if in.SystemType != "linear" {
		t.Errorf("expected --matrix to select linear, got %s", in.SystemType)
	}

	if err := cmd.Flags().Set("system", "lorenz"); err != nil {
		t.Fatal(err)
	}
	in, _, err = sf.input()
	if err != nil {
		t.Fatal(err)
	}
	if in.SystemType != "lorenz" {
		t.Errorf("explicit --system overridden, got %s", in.SystemType)
	}
	if _, err := eng.GenerateTrajectory(context.Background(), engine.TrajectoryRequest{SystemInput: in, TSpan: []float64{0, 1}}); err == nil {
		t.Error("expected the engine to reject a matrix for lorenz")
	}
	if _, err := sf.linearMatrix(); err == nil {
		t.Error("expected linearMatrix to reject an explicit nonlinear system")
	}
}

func TestEquationFlagsDefaults(t *testing.T) {
	if err := setup(&cobra.Command{}, nil); err != nil {
		t.Fatal(err)
	}

	cmd := nonlinearCmd()
	if err := cmd.Flags().Set("dy", "x - x^3"); err != nil {
		t.Fatal(err)
	}
	dy, _ := cmd.Flags().GetString("dy")
	dx, _ := cmd.Flags().GetString("dx")
	res, err := eng.AnalyzeNonlinear(context.Background(), engine.NonlinearAnalysisRequest{
		NonlinearInput: engine.NonlinearInput{DxDt: dx, DyDt: dy},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Equilibria) != 3 {
		t.Errorf("expected 3 equilibria, got %+v", res.Equilibria)
	}
}

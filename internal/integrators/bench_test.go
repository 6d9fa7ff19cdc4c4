package integrators

import (
	"context"
	"testing"

	"github.com/san-kum/phaselab/internal/dynamo"
	"github.com/san-kum/phaselab/internal/maps"
	"github.com/san-kum/phaselab/internal/physics"
)

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(oscillator{}, x, 0, 0.01)
	}
}

func BenchmarkRK4_Lorenz(b *testing.B) {
	integrator := NewRK4()
	dyn := physics.NewLorenz()
	x := dynamo.State{1.0, 1.0, 1.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.001)
	}
}

func BenchmarkIntegrate_Lorenz5000(b *testing.B) {
	dyn := physics.NewLorenz()
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		if _, err := Integrate(ctx, NewRK4(), dyn, dynamo.State{1, 1, 1}, 0.01, 5000); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIterate_Logistic(b *testing.B) {
	m := &maps.Logistic{R: 3.9}
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		if _, err := Iterate(ctx, m, dynamo.State{0.5}, 1000, 100); err != nil {
			b.Fatal(err)
		}
	}
}

// Package analysis provides chaos and stability analysis for flows and maps.
//
//   - [AnalyzeLinear]: spectrum, classification and Lyapunov function of a planar linear system
//   - [FixedPoints], [ClassifyFixedPoint], [PeriodicOrbits]: discrete-map equilibria and cycles
//   - [PoincareSection]: transversal crossings of a plane
//   - [FlowSpectrum], [SeparationExponent], [MapSpectrum]: Lyapunov exponents
//   - [FractalDimension]: box-counting and correlation dimensions
//   - [Bifurcation], [SweepLinear]: parameter sweeps
//   - [Cobweb], [ReturnMapOf], [Power]: derived views of a single orbit
//
// Every function takes its inputs explicitly and keeps no state between
// calls. Long computations take a context and return a
// *dynamo.CancellationError when it ends.
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	spec, err := analysis.FlowSpectrum(ctx, physics.NewLorenz(), dynamo.State{1, 1, 1}, analysis.DefaultLyapunovOptions())
//	if err == nil && spec.Chaotic {
//	    // System is chaotic
//	}
package analysis

// Package physics provides the continuous-time vector fields.
//
// Each model implements [dynamo.Flow] and [dynamo.Linearizable]:
//
//   - [Lorenz]: butterfly attractor
//   - [Rossler]: single-scroll spiral attractor
//   - [Chua]: double-scroll circuit with a piecewise-linear diode
//   - [Thomas]: cyclically symmetric attractor
//   - [Linear]: planar linear system dX/dt = A X
//
// Models are plain values. Parameters are read with GetParams and changed
// with SetParam, so a caller can build one model per request without
// sharing state.
//
//	l := physics.NewLorenz()
//	l.SetParam("rho", 99.96)
//	dx := l.Derive(dynamo.State{1, 1, 1}, 0)
package physics

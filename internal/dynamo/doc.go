// Package dynamo provides the core value types shared by every phaselab
// package.
//
//   - [State]: vector representing a system state
//   - [Params]: named real parameters
//   - [Flow]: continuous-time system (dX/dt = f(X, t))
//   - [Map]: discrete-time system (X[n+1] = f(X[n]))
//   - [Linearizable]: systems with an analytic Jacobian
//   - [Trajectory]: ordered samples with a divergence flag
//
// Errors are returned as values. Input problems are [ValidationError]
// (errors.Is(err, [ErrValidation])), interrupted work is [CancellationError]
// (errors.Is(err, [ErrCanceled])). Divergence is never an error: it is
// recorded on the [Trajectory].
//
// # Example
//
//	flow := physics.NewLorenz()
//	tr, err := integrators.Integrate(ctx, integrators.NewRK4(), flow, dynamo.State{1, 1, 1}, 0.01, 5000)
//	if err != nil {
//		return err
//	}
//	fmt.Println(tr.Diverged, tr.Last())
package dynamo

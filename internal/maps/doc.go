// Package maps provides the discrete-time systems.
//
// One-dimensional maps implement [Scalar] (logistic, tent, sine, affine);
// two-dimensional maps implement [dynamo.Map] with an analytic Jacobian
// (Hénon, linear, scaled rotation). Maps with closed-form fixed points
// implement [FixedPointer].
package maps

// Package optics owns the frequency-domain reconstruction primitives for
// lensless in-line holography.
//
// Responsibilities: acquisition geometry, the propagation frequency kernel,
// angular-spectrum propagation, and the numeric backend abstraction that the
// rest of the pipeline shares.
//
// Dependency rule: optics may depend on config and units, but never on
// holo, tracking, or pipeline.
package optics

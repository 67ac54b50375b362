// Package analysis post-processes recorded runs.
//
// Everything here works on [sim.State] snapshots, so the same tools apply to
// a live result and to a run loaded back from storage:
//
//   - [Series]: one component of one body over time
//   - [PowerSpectrum], [DominantFrequency]: jitter and oscillation spectra
//   - [GeneratePhasePortrait]: any two components of a body against each other
//   - [GenerateSection]: points recorded when a component crosses a threshold
//   - [Divergence]: growth rate of a small perturbation between two runs
//   - [Sweep]: local maxima of a component across a parameter range
//
// # Sensitivity
//
// Granular scenes are usually chaotic. A positive divergence rate means a
// perturbation of one body grows until it reaches the scene scale:
//
//	lambda, err := analysis.Divergence(build, 0, 1e-6, 5.0)
//	if lambda > 0 {
//	    // outcome depends on initial conditions
//	}
package analysis

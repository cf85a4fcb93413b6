// Package engine computes the outcome of a multi-position preferential
// election. It is a pure, re-entrant pipeline: tally, two-pass preference
// allocation, cross-position conflict resolution, boundary tie detection,
// chain-effect analysis, dependency recalculation, and status assignment.
//
// The engine performs no I/O. Callers fetch the election, registrations,
// and ballots, invoke Compute, and own persistence of the returned report.
// Identical inputs always produce an identical report.
package engine

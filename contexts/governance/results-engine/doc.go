// Package resultsengine implements the election results engine inside the
// governance context.
//
// The module owns the election lifecycle (create/open/close), candidate
// registration with first/second position choices, per-position multi-select
// ballots, and the deterministic results pipeline that allocates seats,
// resolves cross-position conflicts, detects boundary ties, and surfaces
// tie-driven dependencies between positions. It keeps business rules in
// application/domain layers and isolates infrastructure concerns behind ports
// and adapters.
package resultsengine

// Package delatrain builds a geospatial dataset of the national rail
// network: stations, physical track geometry and per-train routing rules.
// The package owns the resumable state machine that drives collection
// through its scrape, fixup and pathfinding phases, one unit of work per
// step, with all mutable state in a single checkpointable aggregate.
package delatrain

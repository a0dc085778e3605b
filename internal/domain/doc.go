// Package domain defines the core data model shared across the pipeline:
// projects, artifacts, connections, groups, and the typed events that
// flow over the event bus.
//
// Artifacts and connections are created once per pipeline run and never
// mutated by the core; downstream edits are a store concern.
package domain

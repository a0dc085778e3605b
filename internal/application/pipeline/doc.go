// Package pipeline implements the fan-out/fan-in orchestration for
// research and plan runs.
//
// The manager owns the per-run sequence:
//   - Planning: obtain independent units of work from the planner
//   - FanningOut: run one sub-task runner per unit, join on all
//   - Synthesizing: propose groups and connections over the results
//   - Persisting: enforce the DAG invariant and save via the store
//   - Notifying: publish per-node/per-edge events and phase completion
//   - Enriching: best-effort visual generation, not awaited by callers
//
// A single unit's failure never cancels its siblings; a run in which
// every unit fails completes with a zero count instead of an error.
package pipeline

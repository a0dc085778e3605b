package domain

import "time"

// EventType identifies an event on the wire.
type EventType string

// Event types published by the pipeline. Payloads are flat key/value
// structures serialized as JSON text frames.
const (
	EventTaskStarted       EventType = "task_started"
	EventTaskProgress      EventType = "task_progress"
	EventTaskCompleted     EventType = "task_completed"
	EventTaskFailed        EventType = "task_failed"
	EventNodeCreated       EventType = "node_created"
	EventEdgeCreated       EventType = "edge_created"
	EventGroupCreated      EventType = "group_created"
	EventDirectionsPlanned EventType = "directions_planned"
	EventPhaseComplete     EventType = "phase_complete"
	EventEnriching         EventType = "enriching"
	EventNodeEnriched      EventType = "node_enriched"
	EventEnrichComplete    EventType = "enrich_complete"
	EventError             EventType = "error"
)

// Event is one message on a project topic.
type Event struct {
	Topic     string         `json:"topic"`
	Type      EventType      `json:"type"`
	Payload   map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

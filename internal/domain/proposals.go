package domain

// Angle is one independent research direction produced by the planning
// capability; each angle becomes one fan-out unit.
type Angle struct {
	Name     string `json:"angle"`
	SubQuery string `json:"sub_query"`
	Focus    string `json:"focus"`
}

// Finding is one structured research result from a unit of work.
type Finding struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Summary    string `json:"summary"`
	SourceURL  string `json:"source_url"`
	Importance int    `json:"importance"`
}

// GroupProposal is a grouping suggested by the synthesis capability.
type GroupProposal struct {
	Title       string   `json:"title"`
	Color       string   `json:"color"`
	ArtifactIDs []string `json:"artifact_ids"`
}

// EdgeProposal is a candidate connection suggested by an LLM step.
// Ids may reference artifacts that do not exist (hallucinated) or, in
// the plan pipeline, temporary ids that still need remapping.
type EdgeProposal struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Label  string `json:"label"`
	Type   string `json:"connection_type"`
}

// Synthesis is the combined output of the synthesis capability.
// The zero value is the documented fallback when synthesis fails.
type Synthesis struct {
	Groups  []GroupProposal `json:"groups"`
	Edges   []EdgeProposal  `json:"connections"`
	Summary string          `json:"summary"`
}

// PlanComponent is one proposed plan node. TempID is only meaningful
// within a single pipeline run, before durable ids are assigned.
type PlanComponent struct {
	TempID        string   `json:"temp_id"`
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Summary       string   `json:"summary"`
	Importance    int      `json:"importance"`
	References    []string `json:"references"`
	HasUI         bool     `json:"has_ui"`
	UIDescription string   `json:"ui_description"`
}

// PlanResult is the output of the plan-generation capability.
type PlanResult struct {
	Components   []PlanComponent   `json:"components"`
	Edges        []EdgeProposal    `json:"connections"`
	DesignSystem map[string]string `json:"design_system"`
}

package domain

import (
	"math/rand/v2"
	"time"
)

// Phase identifies which pipeline produced an artifact.
const (
	PhaseResearch = "research"
	PhasePlan     = "plan"
)

// Connection types form a closed set; anything else proposed by the
// synthesis step is coerced to ConnectionRelated.
const (
	ConnectionRelated    = "related"
	ConnectionCompetes   = "competes"
	ConnectionDepends    = "depends"
	ConnectionReferences = "references"
)

// Project is the partition key for runs, artifacts and events.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Phase       string    `json:"phase"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Artifact is one node on the project canvas.
type Artifact struct {
	ID         string            `json:"id"`
	ProjectID  string            `json:"project_id"`
	Phase      string            `json:"phase"`
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Content    string            `json:"content"`
	Summary    string            `json:"summary"`
	SourceURL  string            `json:"source_url,omitempty"`
	Importance int               `json:"importance"`
	GroupID    string            `json:"group_id,omitempty"`
	PositionX  float64           `json:"position_x"`
	PositionY  float64           `json:"position_y"`
	ImageURL   string            `json:"image_url,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	References []string          `json:"references,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Connection is a directed, labeled edge between two artifacts.
// The set of connections per project is guaranteed acyclic by the
// graph builder before it reaches the store.
type Connection struct {
	ID             string `json:"id"`
	ProjectID      string `json:"project_id"`
	FromArtifactID string `json:"from_artifact_id"`
	ToArtifactID   string `json:"to_artifact_id"`
	Label          string `json:"label"`
	Type           string `json:"connection_type"`
}

// Group is a visual cluster of artifacts on the canvas.
type Group struct {
	ID        string  `json:"id"`
	ProjectID string  `json:"project_id"`
	Phase     string  `json:"phase"`
	Title     string  `json:"title"`
	Color     string  `json:"color"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return string(b)
}

// NewArtifactID returns a short canvas-friendly artifact identifier.
func NewArtifactID() string {
	return "art_" + randomSuffix(4)
}

// NewGroupID returns a short group identifier.
func NewGroupID() string {
	return "grp_" + randomSuffix(4)
}

// ValidConnectionType reports whether t belongs to the closed
// connection-type set.
func ValidConnectionType(t string) bool {
	switch t {
	case ConnectionRelated, ConnectionCompetes, ConnectionDepends, ConnectionReferences:
		return true
	}
	return false
}

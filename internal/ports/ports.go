package ports

import (
	"context"
	"time"

	"github.com/researchcanvas/canvasd/internal/domain"
)

// Store persists projects, artifacts, connections and groups. All write
// methods must be at-least-once safe: saving the same record twice must
// not corrupt state.
type Store interface {
	CreateProject(ctx context.Context, p *domain.Project) error
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	UpdateProject(ctx context.Context, projectID string, updates map[string]any) error

	GetArtifacts(ctx context.Context, projectID, phase string) ([]domain.Artifact, error)
	SaveArtifacts(ctx context.Context, artifacts []domain.Artifact) error
	SaveConnections(ctx context.Context, connections []domain.Connection) error
	SaveGroups(ctx context.Context, groups []domain.Group) error

	// UpdateArtifactImage attaches an enrichment result to an artifact.
	// Returns false when the artifact no longer exists.
	UpdateArtifactImage(ctx context.Context, artifactID, imageURL string) (bool, error)
}

// Planner produces independent research angles for a query. It may
// return zero angles; the orchestrator degenerates to a single generic
// unit in that case.
type Planner interface {
	PlanResearch(ctx context.Context, query string, extra map[string]string) ([]domain.Angle, error)
}

// Researcher executes one research angle and returns structured
// findings. Errors are isolated by the sub-task runner.
type Researcher interface {
	ResearchAngle(ctx context.Context, angle domain.Angle) ([]domain.Finding, error)
}

// Synthesizer proposes groupings and connections over collected
// artifacts. A failure downgrades to the zero Synthesis, never aborts
// the run.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, artifacts []domain.Artifact) (domain.Synthesis, error)
}

// PlanGenerator breaks a project description into plan components plus
// candidate edges between their temporary ids.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, description string, research []domain.Artifact) (domain.PlanResult, error)
}

// Enricher generates a visual for one artifact. Safe to retry.
type Enricher interface {
	GenerateImage(ctx context.Context, artifact domain.Artifact, style string) (string, error)
}

// Metrics collects operational counters for the pipeline and the bus.
type Metrics interface {
	RecordRunStarted(kind string)
	RecordRunCompleted(kind, status string, duration time.Duration)
	RecordUnit(status string, duration time.Duration)
	RecordEventPublished(eventType string)
	SetSubscribers(count int)
	SetBufferedEvents(count int)
	RecordEnrichment(status string)
	RecordLLMCall(op, status string, duration time.Duration)
}

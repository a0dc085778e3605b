package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/bus"
	"github.com/researchcanvas/canvasd/internal/domain"
	"github.com/researchcanvas/canvasd/internal/ports"
)

// unitRunner executes one unit of fan-out work. One instance handles
// exactly one angle and is discarded after Run returns; it keeps no
// state across invocations.
type unitRunner struct {
	id        string
	projectID string
	angle     domain.Angle

	researcher ports.Researcher
	bus        *bus.Bus
	metrics    ports.Metrics
	logger     *zap.Logger
}

func newUnitRunner(projectID string, angle domain.Angle, researcher ports.Researcher, eventBus *bus.Bus, metrics ports.Metrics, logger *zap.Logger) *unitRunner {
	return &unitRunner{
		id:         "unit_" + uuid.New().String()[:8],
		projectID:  projectID,
		angle:      angle,
		researcher: researcher,
		bus:        eventBus,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run performs the unit's delegated work, streaming lifecycle events
// as it goes: task_started first, then progress and node_created
// events, then exactly one terminal event. A failure of the delegated
// work is caught here, reported as task_failed, and returned to the
// orchestrator as an error with an empty artifact set; it never
// propagates further.
func (r *unitRunner) Run(ctx context.Context) ([]domain.Artifact, error) {
	start := time.Now()

	r.bus.Publish(r.projectID, domain.EventTaskStarted, map[string]any{
		"unit_id":   r.id,
		"angle":     r.angle.Name,
		"sub_query": r.angle.SubQuery,
	})

	r.logger.Info("unit started",
		zap.String("unit_id", r.id),
		zap.String("project_id", r.projectID),
		zap.String("angle", r.angle.Name))

	r.bus.Publish(r.projectID, domain.EventTaskProgress, map[string]any{
		"unit_id": r.id,
		"text":    "Searching & analyzing: " + r.angle.SubQuery,
	})

	findings, err := r.researcher.ResearchAngle(ctx, r.angle)
	if err != nil {
		r.logger.Error("unit failed",
			zap.String("unit_id", r.id),
			zap.String("angle", r.angle.Name),
			zap.Error(err))
		r.bus.Publish(r.projectID, domain.EventTaskFailed, map[string]any{
			"unit_id": r.id,
			"angle":   r.angle.Name,
			"error":   err.Error(),
		})
		r.metrics.RecordUnit("failed", time.Since(start))
		return nil, err
	}

	artifacts := make([]domain.Artifact, 0, len(findings))
	for _, f := range findings {
		artifact := domain.Artifact{
			ID:         domain.NewArtifactID(),
			ProjectID:  r.projectID,
			Phase:      domain.PhaseResearch,
			Type:       f.Type,
			Title:      f.Title,
			Content:    f.Content,
			Summary:    f.Summary,
			SourceURL:  f.SourceURL,
			Importance: f.Importance,
			Metadata:   map[string]string{"angle": r.angle.Name, "unit_id": r.id},
			CreatedAt:  time.Now(),
		}
		if artifact.Type == "" {
			artifact.Type = "research_finding"
		}
		artifacts = append(artifacts, artifact)

		r.bus.Publish(r.projectID, domain.EventNodeCreated, map[string]any{
			"artifact": artifact,
		})
	}

	r.bus.Publish(r.projectID, domain.EventTaskCompleted, map[string]any{
		"unit_id":        r.id,
		"artifact_count": len(artifacts),
	})
	r.metrics.RecordUnit("succeeded", time.Since(start))

	r.logger.Info("unit complete",
		zap.String("unit_id", r.id),
		zap.Int("findings", len(artifacts)),
		zap.Duration("duration", time.Since(start)))

	return artifacts, nil
}

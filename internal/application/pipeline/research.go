package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/domain"
	"github.com/researchcanvas/canvasd/internal/graph"
)

// runResearch drives one research run end to end. The synchronous
// portion finishes at the phase_complete event; enrichment continues
// in the background.
func (m *Manager) runResearch(ctx context.Context, run *Run, query string, extra map[string]string) {
	start := time.Now()
	m.logger.Info("research run started",
		zap.String("run_id", run.ID),
		zap.String("project_id", run.ProjectID),
		zap.String("query", query))

	// Planning. An unusable plan degenerates to a single generic unit
	// instead of failing the run.
	run.setPhase(PhasePlanning)
	angles, err := m.planner.PlanResearch(ctx, query, extra)
	if err != nil || len(angles) == 0 {
		if err != nil {
			m.logger.Warn("research planning failed, using fallback angle",
				zap.String("run_id", run.ID),
				zap.Error(err))
		}
		angles = []domain.Angle{{
			Name:     "General Research",
			SubQuery: query,
			Focus:    "Find comprehensive information about the topic",
		}}
	}

	planned := make([]map[string]any, 0, len(angles))
	for _, a := range angles {
		planned = append(planned, map[string]any{"angle": a.Name, "sub_query": a.SubQuery})
	}
	m.publish(run.ProjectID, domain.EventDirectionsPlanned, map[string]any{"angles": planned})

	// FanningOut. Every unit runs to a terminal state; one unit's
	// failure never cancels its siblings.
	run.setPhase(PhaseFanningOut)
	results := make([][]domain.Artifact, len(angles))
	errs := make([]error, len(angles))

	var wg sync.WaitGroup
	for i, angle := range angles {
		wg.Add(1)
		go func(i int, angle domain.Angle) {
			defer wg.Done()
			unitCtx := ctx
			if m.cfg.UnitTimeout > 0 {
				var cancel context.CancelFunc
				unitCtx, cancel = context.WithTimeout(ctx, m.cfg.UnitTimeout)
				defer cancel()
			}
			runner := newUnitRunner(run.ProjectID, angle, m.researcher, m.bus, m.metrics, m.logger)
			results[i], errs[i] = runner.Run(unitCtx)
		}(i, angle)
	}
	wg.Wait()

	var artifacts []domain.Artifact
	failed := 0
	for i := range results {
		if errs[i] != nil {
			failed++
			continue
		}
		artifacts = append(artifacts, results[i]...)
	}
	m.logger.Info("fan-out complete",
		zap.String("run_id", run.ID),
		zap.Int("units", len(angles)),
		zap.Int("failed", failed),
		zap.Int("artifacts", len(artifacts)))

	// Every unit failing is a successful-but-empty outcome, not an
	// error.
	if len(artifacts) == 0 {
		m.publish(run.ProjectID, domain.EventPhaseComplete, map[string]any{
			"phase":           domain.PhaseResearch,
			"summary":         "No findings were generated.",
			"total_artifacts": 0,
		})
		run.setPhase(PhaseDone)
		m.runs.Delete(run.ID)
		m.finishRun(run, "empty", start)
		return
	}

	// Synthesizing. A failed synthesis downgrades to the zero value.
	run.setPhase(PhaseSynthesizing)
	synthesis, err := m.synth.Synthesize(ctx, query, artifacts)
	if err != nil {
		m.logger.Warn("synthesis failed, continuing without groups or edges",
			zap.String("run_id", run.ID),
			zap.Error(err))
		synthesis = domain.Synthesis{}
	}

	artifacts, groups := computeLayout(artifacts, synthesis.Groups, run.ProjectID, domain.PhaseResearch)

	summary := domain.Artifact{
		ID:         domain.NewArtifactID(),
		ProjectID:  run.ProjectID,
		Phase:      domain.PhaseResearch,
		Type:       "markdown",
		Title:      "Research Summary",
		Content:    synthesis.Summary,
		Summary:    "Summary of research on: " + query,
		Importance: 95,
		PositionY:  -200,
		CreatedAt:  time.Now(),
	}
	artifacts = append([]domain.Artifact{summary}, artifacts...)

	// Persisting. The DAG invariant is enforced before anything
	// reaches the store; a store failure is reported but does not undo
	// the events already published.
	run.setPhase(PhasePersisting)
	accepted, layers := graph.BuildAcyclicGraph(artifactIDs(artifacts), toGraphEdges(synthesis.Edges, domain.ConnectionRelated))
	connections := toConnections(run.ProjectID, accepted)

	m.logger.Info("graph built",
		zap.String("run_id", run.ID),
		zap.Int("proposed_edges", len(synthesis.Edges)),
		zap.Int("accepted_edges", len(connections)),
		zap.Int("layers", len(layers)))

	if err := m.persist(ctx, artifacts, connections, groups); err != nil {
		m.logger.Error("persist failed",
			zap.String("run_id", run.ID),
			zap.Error(err))
		m.publish(run.ProjectID, domain.EventError, map[string]any{
			"message": "Failed to save research: " + err.Error(),
		})
	}

	// Notifying. Per-finding node_created events already streamed
	// during fan-out; the summary node, groups and edges go out here,
	// then the phase completion.
	run.setPhase(PhaseNotifying)
	for _, g := range groups {
		m.publish(run.ProjectID, domain.EventGroupCreated, map[string]any{"group": g})
	}
	for _, c := range connections {
		m.publish(run.ProjectID, domain.EventEdgeCreated, map[string]any{
			"id":               c.ID,
			"project_id":       c.ProjectID,
			"from_artifact_id": c.FromArtifactID,
			"to_artifact_id":   c.ToArtifactID,
			"label":            c.Label,
			"connection_type":  c.Type,
		})
	}
	m.publish(run.ProjectID, domain.EventNodeCreated, map[string]any{"artifact": summary})
	m.publish(run.ProjectID, domain.EventPhaseComplete, map[string]any{
		"phase":           domain.PhaseResearch,
		"summary":         synthesis.Summary,
		"total_artifacts": len(artifacts),
	})
	m.finishRun(run, "completed", start)

	m.logger.Info("research run complete",
		zap.String("run_id", run.ID),
		zap.Int("total_artifacts", len(artifacts)),
		zap.Duration("duration", time.Since(start)))

	// Enriching. Fire-and-forget; the run is already complete from the
	// caller's point of view.
	m.startEnrichment(run, artifacts, "")
}

func (m *Manager) persist(ctx context.Context, artifacts []domain.Artifact, connections []domain.Connection, groups []domain.Group) error {
	if err := m.store.SaveArtifacts(ctx, artifacts); err != nil {
		return err
	}
	if err := m.store.SaveConnections(ctx, connections); err != nil {
		return err
	}
	if err := m.store.SaveGroups(ctx, groups); err != nil {
		return err
	}
	return nil
}

// toGraphEdges converts proposals to builder edges, coercing any
// connection type outside the closed set to fallback.
func toGraphEdges(proposals []domain.EdgeProposal, fallback string) []graph.Edge {
	edges := make([]graph.Edge, 0, len(proposals))
	for _, p := range proposals {
		edgeType := p.Type
		if !domain.ValidConnectionType(edgeType) {
			edgeType = fallback
		}
		edges = append(edges, graph.Edge{
			From:  p.FromID,
			To:    p.ToID,
			Label: p.Label,
			Type:  edgeType,
		})
	}
	return edges
}

func toConnections(projectID string, edges []graph.Edge) []domain.Connection {
	connections := make([]domain.Connection, 0, len(edges))
	for _, e := range edges {
		connections = append(connections, domain.Connection{
			ID:             newConnectionID(),
			ProjectID:      projectID,
			FromArtifactID: e.From,
			ToArtifactID:   e.To,
			Label:          e.Label,
			Type:           e.Type,
		})
	}
	return connections
}

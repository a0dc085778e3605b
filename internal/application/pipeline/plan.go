package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/domain"
	"github.com/researchcanvas/canvasd/internal/graph"
)

// runPlan drives one plan-breakdown run. The plan generator refers to
// components by temporary ids; the full temporary-to-durable mapping
// is populated before any edge is resolved, and edges that cannot be
// resolved are dropped rather than left dangling.
func (m *Manager) runPlan(ctx context.Context, run *Run, description string, referenceIDs []string) {
	start := time.Now()
	m.logger.Info("plan run started",
		zap.String("run_id", run.ID),
		zap.String("project_id", run.ProjectID),
		zap.Int("reference_artifacts", len(referenceIDs)))

	// Planning. Research artifacts feed the plan generator as context;
	// failing to load them is not fatal.
	run.setPhase(PhasePlanning)
	research, err := m.store.GetArtifacts(ctx, run.ProjectID, domain.PhaseResearch)
	if err != nil {
		m.logger.Warn("loading research context failed",
			zap.String("run_id", run.ID),
			zap.Error(err))
		research = nil
	}
	if len(referenceIDs) > 0 {
		wanted := make(map[string]struct{}, len(referenceIDs))
		for _, id := range referenceIDs {
			wanted[id] = struct{}{}
		}
		filtered := research[:0]
		for _, a := range research {
			if _, ok := wanted[a.ID]; ok {
				filtered = append(filtered, a)
			}
		}
		research = filtered
	}

	result, err := m.planGen.GeneratePlan(ctx, description, research)
	if err != nil {
		m.logger.Warn("plan generation failed, completing empty",
			zap.String("run_id", run.ID),
			zap.Error(err))
		result = domain.PlanResult{}
	}
	if len(result.Components) == 0 {
		m.publish(run.ProjectID, domain.EventPhaseComplete, map[string]any{
			"phase":           domain.PhasePlan,
			"summary":         "No plan components were generated.",
			"total_artifacts": 0,
		})
		run.setPhase(PhaseDone)
		m.runs.Delete(run.ID)
		m.finishRun(run, "empty", start)
		return
	}

	// FanningOut is trivial for plans: components arrive in one batch.
	// Assign durable ids and build the temp mapping atomically, before
	// edge resolution.
	run.setPhase(PhaseFanningOut)
	tempToReal := make(map[string]string, len(result.Components))
	artifacts := make([]domain.Artifact, 0, len(result.Components))
	type uiScreen struct {
		parentID    string
		parentTitle string
		description string
	}
	var uiQueue []uiScreen

	for _, comp := range result.Components {
		realID := domain.NewArtifactID()
		if comp.TempID != "" {
			tempToReal[comp.TempID] = realID
		}

		artifact := domain.Artifact{
			ID:         realID,
			ProjectID:  run.ProjectID,
			Phase:      domain.PhasePlan,
			Type:       comp.Type,
			Title:      comp.Title,
			Content:    comp.Content,
			Summary:    comp.Summary,
			Importance: comp.Importance,
			References: comp.References,
			CreatedAt:  time.Now(),
		}
		if artifact.Type == "" {
			artifact.Type = "plan_component"
		}
		artifacts = append(artifacts, artifact)

		if comp.HasUI && comp.UIDescription != "" {
			uiQueue = append(uiQueue, uiScreen{
				parentID:    realID,
				parentTitle: artifact.Title,
				description: comp.UIDescription,
			})
		}

		m.publish(run.ProjectID, domain.EventNodeCreated, map[string]any{"artifact": artifact})
	}

	// Companion screen nodes are always materialized for components
	// that declare a UI, and their edges go through the same remap and
	// DAG enforcement as everything else.
	var uiEdges []domain.EdgeProposal
	for _, ui := range uiQueue {
		screen := domain.Artifact{
			ID:         domain.NewArtifactID(),
			ProjectID:  run.ProjectID,
			Phase:      domain.PhasePlan,
			Type:       "ui_screen",
			Title:      ui.parentTitle + " UI",
			Content:    ui.description,
			Summary:    ui.description,
			Importance: 60,
			References: []string{ui.parentID},
			CreatedAt:  time.Now(),
		}
		artifacts = append(artifacts, screen)
		uiEdges = append(uiEdges, domain.EdgeProposal{
			FromID: ui.parentID,
			ToID:   screen.ID,
			Label:  "visualizes",
			Type:   domain.ConnectionReferences,
		})

		m.publish(run.ProjectID, domain.EventNodeCreated, map[string]any{"artifact": screen})
	}
	if len(uiQueue) > 0 {
		m.logger.Info("created screen companions",
			zap.String("run_id", run.ID),
			zap.Int("count", len(uiQueue)))
	}

	// Resolve temporary ids. Unresolved edges are dropped here; the
	// graph builder then drops anything else out of range and enforces
	// acyclicity.
	proposals := make([]domain.EdgeProposal, 0, len(result.Edges)+len(uiEdges))
	for _, e := range result.Edges {
		from, okFrom := tempToReal[e.FromID]
		to, okTo := tempToReal[e.ToID]
		if !okFrom || !okTo {
			continue
		}
		proposals = append(proposals, domain.EdgeProposal{
			FromID: from,
			ToID:   to,
			Label:  e.Label,
			Type:   e.Type,
		})
	}
	proposals = append(proposals, uiEdges...)

	run.setPhase(PhasePersisting)
	accepted, layers := graph.BuildAcyclicGraph(artifactIDs(artifacts), toGraphEdges(proposals, domain.ConnectionDepends))
	connections := toConnections(run.ProjectID, accepted)

	m.logger.Info("graph built",
		zap.String("run_id", run.ID),
		zap.Int("proposed_edges", len(proposals)),
		zap.Int("accepted_edges", len(connections)),
		zap.Int("layers", len(layers)))

	if err := m.persist(ctx, artifacts, connections, nil); err != nil {
		m.logger.Error("persist failed",
			zap.String("run_id", run.ID),
			zap.Error(err))
		m.publish(run.ProjectID, domain.EventError, map[string]any{
			"message": "Failed to save plan: " + err.Error(),
		})
	}

	run.setPhase(PhaseNotifying)
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
	m.publish(run.ProjectID, domain.EventPhaseComplete, map[string]any{
		"phase":           domain.PhasePlan,
		"summary":         fmt.Sprintf("Generated %d plan components for: %s", len(artifacts), description),
		"total_artifacts": len(artifacts),
	})
	m.finishRun(run, "completed", start)

	m.logger.Info("plan run complete",
		zap.String("run_id", run.ID),
		zap.Int("total_artifacts", len(artifacts)),
		zap.Duration("duration", time.Since(start)))

	m.startEnrichment(run, artifacts, designStyle(result.DesignSystem))
}

// designStyle renders the proposed design system as a style hint for
// the enricher, in a fixed key order so output is deterministic.
func designStyle(system map[string]string) string {
	if len(system) == 0 {
		return ""
	}
	labels := []struct{ key, label string }{
		{"primary_color", "Primary color"},
		{"secondary_color", "Secondary color"},
		{"accent_color", "Accent color"},
		{"background_style", "Background"},
		{"font_style", "Typography"},
		{"overall_feel", "Overall feel"},
	}
	var parts []string
	for _, l := range labels {
		if v := system[l.key]; v != "" {
			parts = append(parts, l.label+": "+v)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Design system: " + strings.Join(parts, ", ") + "."
}

package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/domain"
)

// startEnrichment kicks off best-effort visual generation for the run's
// artifacts. It returns immediately; nothing downstream waits on it.
// When no enricher is configured, or nothing qualifies, the run goes
// straight to done.
func (m *Manager) startEnrichment(run *Run, artifacts []domain.Artifact, style string) {
	var targets []domain.Artifact
	for _, a := range artifacts {
		if a.Type == "mermaid" {
			continue
		}
		targets = append(targets, a)
	}

	if m.enricher == nil || len(targets) == 0 {
		run.setPhase(PhaseDone)
		m.runs.Delete(run.ID)
		return
	}

	run.setPhase(PhaseEnriching)
	m.publish(run.ProjectID, domain.EventEnriching, map[string]any{
		"total": len(targets),
	})
	m.logger.Info("enrichment started",
		zap.String("run_id", run.ID),
		zap.Int("targets", len(targets)))

	m.enrichWG.Add(1)
	go func() {
		defer m.enrichWG.Done()

		var wg sync.WaitGroup
		for _, a := range targets {
			wg.Add(1)
			go func(a domain.Artifact) {
				defer wg.Done()
				m.enrichOne(run, a, style)
			}(a)
		}
		wg.Wait()

		m.publish(run.ProjectID, domain.EventEnrichComplete, map[string]any{})
		run.setPhase(PhaseDone)
		m.runs.Delete(run.ID)
		m.logger.Info("enrichment complete", zap.String("run_id", run.ID))
	}()
}

// enrichOne generates and attaches one artifact's visual with bounded
// retries and exponential backoff. Exhausting the retries abandons the
// artifact silently; the canvas renders it without an image.
func (m *Manager) enrichOne(run *Run, artifact domain.Artifact, style string) {
	backoff := m.cfg.EnrichInitialBackoff

	for attempt := 1; attempt <= m.cfg.EnrichMaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.EnrichAttemptTimeout)
		url, err := m.enricher.GenerateImage(ctx, artifact, style)
		cancel()

		if err == nil {
			found, err := m.store.UpdateArtifactImage(context.Background(), artifact.ID, url)
			if err != nil {
				m.logger.Warn("saving enrichment result failed",
					zap.String("artifact_id", artifact.ID),
					zap.Error(err))
				m.metrics.RecordEnrichment("save_failed")
				return
			}
			if !found {
				m.metrics.RecordEnrichment("orphaned")
				return
			}
			m.publish(run.ProjectID, domain.EventNodeEnriched, map[string]any{
				"artifact_id": artifact.ID,
				"image_url":   url,
			})
			m.metrics.RecordEnrichment("succeeded")
			return
		}

		m.logger.Warn("enrichment attempt failed",
			zap.String("artifact_id", artifact.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < m.cfg.EnrichMaxRetries {
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	m.metrics.RecordEnrichment("abandoned")
}

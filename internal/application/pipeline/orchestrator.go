package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/bus"
	"github.com/researchcanvas/canvasd/internal/domain"
	"github.com/researchcanvas/canvasd/internal/ports"
)

// Phase is the coarse state of a run.
type Phase string

const (
	PhasePlanning     Phase = "planning"
	PhaseFanningOut   Phase = "fanning_out"
	PhaseSynthesizing Phase = "synthesizing"
	PhasePersisting   Phase = "persisting"
	PhaseNotifying    Phase = "notifying"
	PhaseEnriching    Phase = "enriching"
	PhaseDone         Phase = "done"
)

// Config holds orchestration tuning knobs.
type Config struct {
	// UnitTimeout bounds one fan-out unit's delegated work. Zero
	// disables the bound.
	UnitTimeout time.Duration

	// Enrichment retry policy: bounded attempts with exponential
	// backoff, each attempt individually timed out.
	EnrichMaxRetries     int
	EnrichInitialBackoff time.Duration
	EnrichAttemptTimeout time.Duration
}

// Run tracks one pipeline execution for status queries.
type Run struct {
	ID        string
	ProjectID string
	Kind      string
	StartedAt time.Time

	mu    sync.RWMutex
	phase Phase
}

func newRun(projectID, kind string) *Run {
	return &Run{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Kind:      kind,
		StartedAt: time.Now(),
		phase:     PhasePlanning,
	}
}

// Phase returns the run's current phase.
func (r *Run) Phase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

func (r *Run) setPhase(p Phase) {
	r.mu.Lock()
	r.phase = p
	r.mu.Unlock()
}

// Status is the externally visible snapshot of a run.
type Status struct {
	ID        string    `json:"run_id"`
	ProjectID string    `json:"project_id"`
	Kind      string    `json:"kind"`
	Phase     Phase     `json:"phase"`
	StartedAt time.Time `json:"started_at"`
}

// Manager coordinates pipeline runs. It composes the sub-task runner,
// the graph builder and the event bus, and owns the partial-failure
// policy for each phase.
type Manager struct {
	store      ports.Store
	planner    ports.Planner
	researcher ports.Researcher
	synth      ports.Synthesizer
	planGen    ports.PlanGenerator
	enricher   ports.Enricher
	bus        *bus.Bus
	metrics    ports.Metrics
	logger     *zap.Logger
	cfg        Config

	// Track active runs and unjoined enrichment tasks. Enrichment is
	// tracked for observability only; run completion never depends on
	// it.
	runs     sync.Map // map[string]*Run
	enrichWG sync.WaitGroup
}

// NewManager creates a pipeline manager. The enricher may be nil, in
// which case the enrichment phase is skipped entirely.
func NewManager(
	store ports.Store,
	planner ports.Planner,
	researcher ports.Researcher,
	synth ports.Synthesizer,
	planGen ports.PlanGenerator,
	enricher ports.Enricher,
	eventBus *bus.Bus,
	metrics ports.Metrics,
	logger *zap.Logger,
	cfg Config,
) *Manager {
	if cfg.EnrichMaxRetries < 1 {
		cfg.EnrichMaxRetries = 1
	}
	if cfg.EnrichInitialBackoff <= 0 {
		cfg.EnrichInitialBackoff = 2 * time.Second
	}
	if cfg.EnrichAttemptTimeout <= 0 {
		cfg.EnrichAttemptTimeout = 45 * time.Second
	}
	return &Manager{
		store:      store,
		planner:    planner,
		researcher: researcher,
		synth:      synth,
		planGen:    planGen,
		enricher:   enricher,
		bus:        eventBus,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// StartResearch launches a research run for the project and returns
// its run id immediately; the pipeline proceeds in the background.
func (m *Manager) StartResearch(projectID, query string, extra map[string]string) string {
	run := newRun(projectID, "research")
	m.runs.Store(run.ID, run)
	m.metrics.RecordRunStarted(run.Kind)

	go m.runResearch(context.Background(), run, query, extra)

	return run.ID
}

// StartPlan launches a plan-breakdown run for the project and returns
// its run id immediately.
func (m *Manager) StartPlan(projectID, description string, referenceIDs []string) string {
	run := newRun(projectID, "plan")
	m.runs.Store(run.ID, run)
	m.metrics.RecordRunStarted(run.Kind)

	go m.runPlan(context.Background(), run, description, referenceIDs)

	return run.ID
}

// GetRun returns the status of an active run.
func (m *Manager) GetRun(runID string) (Status, bool) {
	val, ok := m.runs.Load(runID)
	if !ok {
		return Status{}, false
	}
	run := val.(*Run)
	return Status{
		ID:        run.ID,
		ProjectID: run.ProjectID,
		Kind:      run.Kind,
		Phase:     run.Phase(),
		StartedAt: run.StartedAt,
	}, true
}

// Shutdown waits for in-flight enrichment tasks up to the context
// deadline. Runs themselves are not cancelled; the synchronous portion
// of a run has no caller-triggered cancellation.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down pipeline manager")

	done := make(chan struct{})
	go func() {
		m.enrichWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("pipeline manager shut down complete")
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout with enrichment tasks in flight")
	}
	return nil
}

// publish sends an event on the run's project topic.
func (m *Manager) publish(projectID string, eventType domain.EventType, payload map[string]any) {
	m.bus.Publish(projectID, eventType, payload)
}

func (m *Manager) finishRun(run *Run, status string, started time.Time) {
	m.metrics.RecordRunCompleted(run.Kind, status, time.Since(started))
}

func newConnectionID() string {
	return uuid.New().String()
}

func artifactIDs(artifacts []domain.Artifact) []string {
	ids := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		ids = append(ids, a.ID)
	}
	return ids
}

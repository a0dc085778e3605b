package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/bus"
	"github.com/researchcanvas/canvasd/internal/domain"
)

type fakeStore struct {
	mu          sync.Mutex
	artifacts   []domain.Artifact
	connections []domain.Connection
	groups      []domain.Group
	images      map[string]string

	research []domain.Artifact

	saveArtifactsErr error
	getArtifactsErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{images: make(map[string]string)}
}

func (s *fakeStore) CreateProject(ctx context.Context, p *domain.Project) error { return nil }

func (s *fakeStore) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	return &domain.Project{ID: projectID}, nil
}

func (s *fakeStore) UpdateProject(ctx context.Context, projectID string, updates map[string]any) error {
	return nil
}

func (s *fakeStore) GetArtifacts(ctx context.Context, projectID, phase string) ([]domain.Artifact, error) {
	if s.getArtifactsErr != nil {
		return nil, s.getArtifactsErr
	}
	return s.research, nil
}

func (s *fakeStore) SaveArtifacts(ctx context.Context, artifacts []domain.Artifact) error {
	if s.saveArtifactsErr != nil {
		return s.saveArtifactsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = append(s.artifacts, artifacts...)
	return nil
}

func (s *fakeStore) SaveConnections(ctx context.Context, connections []domain.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections = append(s.connections, connections...)
	return nil
}

func (s *fakeStore) SaveGroups(ctx context.Context, groups []domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = append(s.groups, groups...)
	return nil
}

func (s *fakeStore) UpdateArtifactImage(ctx context.Context, artifactID, imageURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[artifactID] = imageURL
	return true, nil
}

type fakePlanner struct {
	angles []domain.Angle
	err    error
}

func (p *fakePlanner) PlanResearch(ctx context.Context, query string, extra map[string]string) ([]domain.Angle, error) {
	return p.angles, p.err
}

// fakeResearcher fails the angles named in failing and returns one
// finding per succeeding angle.
type fakeResearcher struct {
	failing map[string]bool
}

func (r *fakeResearcher) ResearchAngle(ctx context.Context, angle domain.Angle) ([]domain.Finding, error) {
	if r.failing[angle.Name] {
		return nil, errors.New("upstream unavailable")
	}
	return []domain.Finding{{
		Title:      angle.Name + " finding",
		Content:    "content for " + angle.SubQuery,
		Summary:    "summary",
		Importance: 70,
	}}, nil
}

type fakeSynth struct {
	result domain.Synthesis
	err    error

	// synthesize dynamically from the artifacts it is handed
	fn func(artifacts []domain.Artifact) domain.Synthesis
}

func (s *fakeSynth) Synthesize(ctx context.Context, query string, artifacts []domain.Artifact) (domain.Synthesis, error) {
	if s.err != nil {
		return domain.Synthesis{}, s.err
	}
	if s.fn != nil {
		return s.fn(artifacts), nil
	}
	return s.result, nil
}

type fakePlanGen struct {
	result domain.PlanResult
	err    error
}

func (g *fakePlanGen) GeneratePlan(ctx context.Context, description string, research []domain.Artifact) (domain.PlanResult, error) {
	return g.result, g.err
}

type fakeEnricher struct {
	mu    sync.Mutex
	calls int
	fail  int // fail this many calls before succeeding
}

func (e *fakeEnricher) GenerateImage(ctx context.Context, artifact domain.Artifact, style string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls <= e.fail {
		return "", errors.New("generation failed")
	}
	return "data:image/png;base64,aGVsbG8=", nil
}

type nopMetrics struct{}

func (nopMetrics) RecordRunStarted(kind string)                            {}
func (nopMetrics) RecordRunCompleted(kind, status string, d time.Duration) {}
func (nopMetrics) RecordUnit(status string, d time.Duration)               {}
func (nopMetrics) RecordEventPublished(eventType string)                   {}
func (nopMetrics) SetSubscribers(count int)                                {}
func (nopMetrics) SetBufferedEvents(count int)                             {}
func (nopMetrics) RecordEnrichment(status string)                          {}
func (nopMetrics) RecordLLMCall(op, status string, d time.Duration)        {}

// recordingSink captures every event it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Send(event domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) byType(t domain.EventType) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (s *recordingSink) types() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	manager *Manager
	store   *fakeStore
	bus     *bus.Bus
	sink    *recordingSink
}

type deps struct {
	planner  *fakePlanner
	research *fakeResearcher
	synth    *fakeSynth
	planGen  *fakePlanGen
	enricher *fakeEnricher
	cfg      Config
}

func newTestEnv(opts ...func(*fakeStore, *deps)) *testEnv {
	store := newFakeStore()
	d := &deps{
		planner:  &fakePlanner{},
		research: &fakeResearcher{},
		synth:    &fakeSynth{},
		planGen:  &fakePlanGen{},
		cfg: Config{
			EnrichMaxRetries:     2,
			EnrichInitialBackoff: time.Millisecond,
			EnrichAttemptTimeout: time.Second,
		},
	}
	for _, opt := range opts {
		opt(store, d)
	}

	logger := zap.NewNop()
	eventBus := bus.New(time.Minute, logger, nopMetrics{})
	sink := &recordingSink{}
	if _, err := eventBus.Subscribe("proj-1", sink); err != nil {
		panic(err)
	}

	manager := NewManager(store, d.planner, d.research, d.synth, d.planGen, nil, eventBus, nopMetrics{}, logger, d.cfg)
	if d.enricher != nil {
		manager.enricher = d.enricher
	}

	return &testEnv{manager: manager, store: store, bus: eventBus, sink: sink}
}

// runResearchSync drives a research run on the calling goroutine and
// waits for any enrichment to drain.
func (e *testEnv) runResearchSync(query string) *Run {
	run := newRun("proj-1", "research")
	e.manager.runs.Store(run.ID, run)
	e.manager.runResearch(context.Background(), run, query, nil)
	e.manager.enrichWG.Wait()
	return run
}

func (e *testEnv) runPlanSync(description string, refs []string) *Run {
	run := newRun("proj-1", "plan")
	e.manager.runs.Store(run.ID, run)
	e.manager.runPlan(context.Background(), run, description, refs)
	e.manager.enrichWG.Wait()
	return run
}

package pipeline

import (
	"errors"
	"testing"

	"github.com/researchcanvas/canvasd/internal/domain"
)

func threeAngles() []domain.Angle {
	return []domain.Angle{
		{Name: "Market", SubQuery: "market size", Focus: "numbers"},
		{Name: "Competitors", SubQuery: "competitor landscape", Focus: "players"},
		{Name: "Technology", SubQuery: "technical approaches", Focus: "methods"},
	}
}

func TestResearchHappyPath(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planner.angles = threeAngles()
		d.synth.fn = func(artifacts []domain.Artifact) domain.Synthesis {
			return domain.Synthesis{
				Groups: []domain.GroupProposal{{
					Title:       "Landscape",
					ArtifactIDs: []string{artifacts[0].ID, artifacts[1].ID},
				}},
				Edges: []domain.EdgeProposal{{
					FromID: artifacts[0].ID,
					ToID:   artifacts[1].ID,
					Label:  "informs",
					Type:   domain.ConnectionRelated,
				}},
				Summary: "Three angles covered.",
			}
		}
	})

	run := env.runResearchSync("electric bikes")

	if got := run.Phase(); got != PhaseDone {
		t.Fatalf("phase = %q, want %q", got, PhaseDone)
	}

	// 3 findings plus the summary artifact.
	if len(env.store.artifacts) != 4 {
		t.Fatalf("persisted %d artifacts, want 4", len(env.store.artifacts))
	}
	if env.store.artifacts[0].Title != "Research Summary" {
		t.Errorf("first persisted artifact = %q, want the summary", env.store.artifacts[0].Title)
	}
	if env.store.artifacts[0].Importance != 95 {
		t.Errorf("summary importance = %d, want 95", env.store.artifacts[0].Importance)
	}
	if len(env.store.connections) != 1 {
		t.Fatalf("persisted %d connections, want 1", len(env.store.connections))
	}
	if len(env.store.groups) != 1 {
		t.Fatalf("persisted %d groups, want 1", len(env.store.groups))
	}

	if got := len(env.sink.byType(domain.EventTaskStarted)); got != 3 {
		t.Errorf("task_started events = %d, want 3", got)
	}
	if got := len(env.sink.byType(domain.EventTaskCompleted)); got != 3 {
		t.Errorf("task_completed events = %d, want 3", got)
	}
	// 3 finding nodes plus the summary node.
	if got := len(env.sink.byType(domain.EventNodeCreated)); got != 4 {
		t.Errorf("node_created events = %d, want 4", got)
	}

	complete := env.sink.byType(domain.EventPhaseComplete)
	if len(complete) != 1 {
		t.Fatalf("phase_complete events = %d, want 1", len(complete))
	}
	if complete[0].Payload["total_artifacts"] != 4 {
		t.Errorf("total_artifacts = %v, want 4", complete[0].Payload["total_artifacts"])
	}
}

func TestResearchPartialUnitFailure(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planner.angles = threeAngles()
		d.research.failing = map[string]bool{"Competitors": true}
	})

	env.runResearchSync("electric bikes")

	if got := len(env.sink.byType(domain.EventTaskFailed)); got != 1 {
		t.Fatalf("task_failed events = %d, want 1", got)
	}
	if got := len(env.sink.byType(domain.EventTaskCompleted)); got != 2 {
		t.Fatalf("task_completed events = %d, want 2", got)
	}

	// 2 findings plus the summary survive the failed sibling.
	if len(env.store.artifacts) != 3 {
		t.Fatalf("persisted %d artifacts, want 3", len(env.store.artifacts))
	}
	if got := len(env.sink.byType(domain.EventError)); got != 0 {
		t.Errorf("error events = %d, want 0", got)
	}
}

func TestResearchAllUnitsFailCompletesEmpty(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planner.angles = threeAngles()
		d.research.failing = map[string]bool{
			"Market": true, "Competitors": true, "Technology": true,
		}
	})

	run := env.runResearchSync("electric bikes")

	if got := run.Phase(); got != PhaseDone {
		t.Fatalf("phase = %q, want %q", got, PhaseDone)
	}
	if len(env.store.artifacts) != 0 {
		t.Fatalf("persisted %d artifacts, want 0", len(env.store.artifacts))
	}
	if got := len(env.sink.byType(domain.EventError)); got != 0 {
		t.Errorf("error events = %d, want 0", got)
	}

	complete := env.sink.byType(domain.EventPhaseComplete)
	if len(complete) != 1 {
		t.Fatalf("phase_complete events = %d, want 1", len(complete))
	}
	if complete[0].Payload["total_artifacts"] != 0 {
		t.Errorf("total_artifacts = %v, want 0", complete[0].Payload["total_artifacts"])
	}
}

func TestResearchPlannerFailureFallsBackToSingleAngle(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planner.err = errors.New("model overloaded")
	})

	env.runResearchSync("electric bikes")

	started := env.sink.byType(domain.EventTaskStarted)
	if len(started) != 1 {
		t.Fatalf("task_started events = %d, want 1", len(started))
	}
	if started[0].Payload["angle"] != "General Research" {
		t.Errorf("fallback angle = %v, want General Research", started[0].Payload["angle"])
	}
	if started[0].Payload["sub_query"] != "electric bikes" {
		t.Errorf("fallback sub_query = %v, want the original query", started[0].Payload["sub_query"])
	}
}

func TestResearchSynthesisFailureDowngrades(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planner.angles = threeAngles()
		d.synth.err = errors.New("bad json")
	})

	run := env.runResearchSync("electric bikes")

	if got := run.Phase(); got != PhaseDone {
		t.Fatalf("phase = %q, want %q", got, PhaseDone)
	}
	if len(env.store.connections) != 0 {
		t.Errorf("persisted %d connections, want 0", len(env.store.connections))
	}
	if len(env.store.groups) != 0 {
		t.Errorf("persisted %d groups, want 0", len(env.store.groups))
	}
	// Findings and summary still land.
	if len(env.store.artifacts) != 4 {
		t.Fatalf("persisted %d artifacts, want 4", len(env.store.artifacts))
	}
	if got := len(env.sink.byType(domain.EventError)); got != 0 {
		t.Errorf("error events = %d, want 0", got)
	}
}

func TestResearchPersistFailureReportsAndContinues(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planner.angles = threeAngles()
		s.saveArtifactsErr = errors.New("connection refused")
	})

	run := env.runResearchSync("electric bikes")

	if got := run.Phase(); got != PhaseDone {
		t.Fatalf("phase = %q, want %q", got, PhaseDone)
	}

	errs := env.sink.byType(domain.EventError)
	if len(errs) != 1 {
		t.Fatalf("error events = %d, want 1", len(errs))
	}
	// The run still announces completion after reporting the failure.
	if got := len(env.sink.byType(domain.EventPhaseComplete)); got != 1 {
		t.Errorf("phase_complete events = %d, want 1", got)
	}
}

func TestResearchHallucinatedEdgesDropped(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planner.angles = threeAngles()
		d.synth.fn = func(artifacts []domain.Artifact) domain.Synthesis {
			return domain.Synthesis{
				Edges: []domain.EdgeProposal{
					{FromID: artifacts[0].ID, ToID: "art_nope", Type: domain.ConnectionRelated},
					{FromID: artifacts[0].ID, ToID: artifacts[1].ID, Type: "made_up_type"},
				},
			}
		}
	})

	env.runResearchSync("electric bikes")

	if len(env.store.connections) != 1 {
		t.Fatalf("persisted %d connections, want 1", len(env.store.connections))
	}
	if got := env.store.connections[0].Type; got != domain.ConnectionRelated {
		t.Errorf("coerced type = %q, want %q", got, domain.ConnectionRelated)
	}
}

func TestResearchUnitEventOrdering(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planner.angles = []domain.Angle{{Name: "Only", SubQuery: "just one"}}
	})

	env.runResearchSync("narrow topic")

	var unitTypes []domain.EventType
	for _, typ := range env.sink.types() {
		switch typ {
		case domain.EventTaskStarted, domain.EventTaskProgress,
			domain.EventTaskCompleted, domain.EventTaskFailed:
			unitTypes = append(unitTypes, typ)
		}
	}

	want := []domain.EventType{
		domain.EventTaskStarted,
		domain.EventTaskProgress,
		domain.EventTaskCompleted,
	}
	if len(unitTypes) != len(want) {
		t.Fatalf("unit event types = %v, want %v", unitTypes, want)
	}
	for i := range want {
		if unitTypes[i] != want[i] {
			t.Fatalf("unit event types = %v, want %v", unitTypes, want)
		}
	}
}

func TestResearchEnrichmentAttachesImages(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planner.angles = threeAngles()
		d.enricher = &fakeEnricher{}
	})

	env.runResearchSync("electric bikes")

	// 3 findings plus the summary, none of type mermaid.
	if got := len(env.store.images); got != 4 {
		t.Fatalf("enriched %d artifacts, want 4", got)
	}
	if got := len(env.sink.byType(domain.EventNodeEnriched)); got != 4 {
		t.Errorf("node_enriched events = %d, want 4", got)
	}
	if got := len(env.sink.byType(domain.EventEnrichComplete)); got != 1 {
		t.Errorf("enrich_complete events = %d, want 1", got)
	}
}

func TestResearchEnrichmentRetriesThenSucceeds(t *testing.T) {
	enricher := &fakeEnricher{fail: 1}
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planner.angles = []domain.Angle{{Name: "Only", SubQuery: "just one"}}
		d.enricher = enricher
	})

	env.runResearchSync("narrow topic")

	// First attempt fails, backoff, second succeeds; both targets
	// (finding + summary) end up enriched.
	if got := len(env.store.images); got != 2 {
		t.Fatalf("enriched %d artifacts, want 2", got)
	}
	if enricher.calls < 3 {
		t.Errorf("enricher calls = %d, want at least 3 (one retry)", enricher.calls)
	}
}

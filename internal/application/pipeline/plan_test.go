package pipeline

import (
	"errors"
	"testing"

	"github.com/researchcanvas/canvasd/internal/domain"
)

func TestPlanRemapsTempIDsAndDropsUnresolved(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planGen.result = domain.PlanResult{
			Components: []domain.PlanComponent{
				{TempID: "comp_1", Title: "Auth service", Type: "feature"},
				{TempID: "comp_2", Title: "API gateway", Type: "feature"},
			},
			Edges: []domain.EdgeProposal{
				{FromID: "comp_1", ToID: "comp_2", Label: "routes through", Type: domain.ConnectionDepends},
				{FromID: "comp_1", ToID: "comp_99", Label: "ghost", Type: domain.ConnectionDepends},
			},
		}
	})

	env.runPlanSync("build a saas product", nil)

	if len(env.store.artifacts) != 2 {
		t.Fatalf("persisted %d artifacts, want 2", len(env.store.artifacts))
	}
	for _, a := range env.store.artifacts {
		if a.ID == "comp_1" || a.ID == "comp_2" {
			t.Errorf("temporary id %q leaked into persisted artifact", a.ID)
		}
		if a.Phase != domain.PhasePlan {
			t.Errorf("artifact phase = %q, want %q", a.Phase, domain.PhasePlan)
		}
	}

	if len(env.store.connections) != 1 {
		t.Fatalf("persisted %d connections, want 1 (unresolved edge dropped)", len(env.store.connections))
	}
	c := env.store.connections[0]
	if c.FromArtifactID != env.store.artifacts[0].ID || c.ToArtifactID != env.store.artifacts[1].ID {
		t.Errorf("edge endpoints not remapped: %+v", c)
	}
}

func TestPlanUIScreenCompanions(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planGen.result = domain.PlanResult{
			Components: []domain.PlanComponent{
				{TempID: "comp_1", Title: "Dashboard", Type: "feature", HasUI: true, UIDescription: "Charts over a dark sidebar layout"},
				{TempID: "comp_2", Title: "Billing job", Type: "feature"},
			},
		}
	})

	env.runPlanSync("build a saas product", nil)

	if len(env.store.artifacts) != 3 {
		t.Fatalf("persisted %d artifacts, want 3 (2 components + 1 screen)", len(env.store.artifacts))
	}

	var screen *domain.Artifact
	for i := range env.store.artifacts {
		if env.store.artifacts[i].Type == "ui_screen" {
			screen = &env.store.artifacts[i]
		}
	}
	if screen == nil {
		t.Fatal("no ui_screen artifact persisted")
	}
	if screen.Title != "Dashboard UI" {
		t.Errorf("screen title = %q, want %q", screen.Title, "Dashboard UI")
	}
	if screen.Importance != 60 {
		t.Errorf("screen importance = %d, want 60", screen.Importance)
	}

	parentID := env.store.artifacts[0].ID
	if len(screen.References) != 1 || screen.References[0] != parentID {
		t.Errorf("screen references = %v, want [%s]", screen.References, parentID)
	}

	if len(env.store.connections) != 1 {
		t.Fatalf("persisted %d connections, want 1", len(env.store.connections))
	}
	c := env.store.connections[0]
	if c.FromArtifactID != parentID || c.ToArtifactID != screen.ID {
		t.Errorf("screen edge endpoints = %s -> %s, want %s -> %s", c.FromArtifactID, c.ToArtifactID, parentID, screen.ID)
	}
	if c.Label != "visualizes" || c.Type != domain.ConnectionReferences {
		t.Errorf("screen edge = %q/%q, want visualizes/references", c.Label, c.Type)
	}
}

func TestPlanCyclicProposalsEnforcedAcyclic(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planGen.result = domain.PlanResult{
			Components: []domain.PlanComponent{
				{TempID: "a", Title: "A"},
				{TempID: "b", Title: "B"},
			},
			Edges: []domain.EdgeProposal{
				{FromID: "a", ToID: "b", Type: domain.ConnectionDepends},
				{FromID: "b", ToID: "a", Type: domain.ConnectionDepends},
			},
		}
	})

	env.runPlanSync("two features", nil)

	if len(env.store.connections) != 1 {
		t.Fatalf("persisted %d connections, want 1 (cycle edge removed)", len(env.store.connections))
	}
}

func TestPlanGenerationFailureCompletesEmpty(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planGen.err = errors.New("model overloaded")
	})

	run := env.runPlanSync("build a saas product", nil)

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

func TestPlanEnrichmentUsesDesignStyle(t *testing.T) {
	env := newTestEnv(func(s *fakeStore, d *deps) {
		d.planGen.result = domain.PlanResult{
			Components: []domain.PlanComponent{{TempID: "c", Title: "Home", HasUI: true, UIDescription: "landing page"}},
			DesignSystem: map[string]string{
				"primary_color": "#3b82f6",
				"overall_feel":  "calm and minimal",
			},
		}
		d.enricher = &fakeEnricher{}
	})

	env.runPlanSync("marketing site", nil)

	// Component plus its screen both enriched.
	if got := len(env.store.images); got != 2 {
		t.Fatalf("enriched %d artifacts, want 2", got)
	}
}

func TestDesignStyleFixedOrder(t *testing.T) {
	style := designStyle(map[string]string{
		"overall_feel":  "playful",
		"primary_color": "#ff0000",
		"font_style":    "rounded sans",
	})
	want := "Design system: Primary color: #ff0000, Typography: rounded sans, Overall feel: playful."
	if style != want {
		t.Errorf("designStyle = %q, want %q", style, want)
	}

	if got := designStyle(nil); got != "" {
		t.Errorf("designStyle(nil) = %q, want empty", got)
	}
}

package gemini

import (
	"strings"
	"testing"

	"github.com/researchcanvas/canvasd/internal/domain"
)

func TestBuildPromptPerType(t *testing.T) {
	a := domain.Artifact{Type: "ui_screen", Title: "Dashboard", Summary: "charts and filters"}
	prompt := buildPrompt(a, "")
	if !strings.Contains(prompt, "UI mockup of: Dashboard") {
		t.Errorf("ui_screen prompt = %q", prompt)
	}

	a.Type = "something_unknown"
	prompt = buildPrompt(a, "")
	if !strings.Contains(prompt, "conceptual illustration for: Dashboard") {
		t.Errorf("unknown type did not fall back to markdown template: %q", prompt)
	}
}

func TestBuildPromptStyleAndTruncation(t *testing.T) {
	long := strings.Repeat("x", 500)
	a := domain.Artifact{Type: "plan_component", Title: "Auth", Content: long}
	prompt := buildPrompt(a, "Design system: Primary color: #fff.")

	if strings.Contains(prompt, long) {
		t.Error("content was not truncated")
	}
	if !strings.Contains(prompt, strings.Repeat("x", 200)) {
		t.Error("truncated content missing")
	}
	if !strings.HasSuffix(prompt, "Design system: Primary color: #fff.") {
		t.Errorf("style hint not appended: %q", prompt)
	}
}

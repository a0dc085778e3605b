package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/researchcanvas/canvasd/internal/domain"
	"github.com/researchcanvas/canvasd/internal/ports"
)

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 8000
	planMaxTokens    = 12000
)

// Config holds Anthropic client configuration.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int64
	Metrics   ports.Metrics
	Logger    *zap.Logger
}

// Client talks to the Anthropic Messages API. It implements the
// Planner, Researcher, Synthesizer and PlanGenerator ports.
type Client struct {
	api       anthropic.Client
	model     anthropic.Model
	maxTokens int64
	metrics   ports.Metrics
	logger    *zap.Logger
}

// NewClient creates an Anthropic-backed LLM client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		api:       anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}, nil
}

// complete sends one user prompt and returns the first text block of
// the response.
func (c *Client) complete(ctx context.Context, op, prompt string, maxTokens int64) (string, error) {
	start := time.Now()

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		c.record(op, "failed", time.Since(start))
		return "", fmt.Errorf("anthropic %s: %w", op, err)
	}
	c.record(op, "succeeded", time.Since(start))

	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			return text.Text, nil
		}
	}
	return "", nil
}

func (c *Client) record(op, status string, d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordLLMCall(op, status, d)
	}
}

// PlanResearch asks the model for 3-5 independent research angles.
// An unparseable response degrades to a single generic angle.
func (c *Client) PlanResearch(ctx context.Context, query string, extra map[string]string) ([]domain.Angle, error) {
	var hints strings.Builder
	for k, v := range extra {
		fmt.Fprintf(&hints, "\n%s: %s", k, v)
	}

	prompt := fmt.Sprintf(`You are a research planning assistant. Given a research query, generate 3-5 distinct research angles to investigate in parallel.

Research query: "%s"%s

Return a JSON array of research angles. Each angle should have:
- "angle": A short label for this research direction (2-5 words)
- "sub_query": A specific search query to use for investigation
- "focus": What to look for in the results (1 sentence)

Return ONLY the JSON array, no other text.

Example output:
[
  {"angle": "Direct Competitors", "sub_query": "best project management tools 2025", "focus": "Identify the top competitors and their key features"},
  {"angle": "User Pain Points", "sub_query": "project management software complaints reviews", "focus": "Common frustrations users have with existing tools"}
]`, query, hints.String())

	text, err := c.complete(ctx, "plan_research", prompt, c.maxTokens)
	if err != nil {
		return nil, err
	}

	var angles []domain.Angle
	if err := json.Unmarshal([]byte(extractJSONArray(text)), &angles); err != nil || len(angles) == 0 {
		c.logger.Warn("research plan unparseable, using fallback angle", zap.Error(err))
		return []domain.Angle{{
			Name:     "General Research",
			SubQuery: query,
			Focus:    "Find comprehensive information about the topic",
		}}, nil
	}
	return angles, nil
}

// ResearchAngle investigates one angle and returns structured findings.
// An unparseable response yields zero findings without an error.
func (c *Client) ResearchAngle(ctx context.Context, angle domain.Angle) ([]domain.Finding, error) {
	prompt := fmt.Sprintf(`You are a research analyst. Investigate the following research direction and create structured findings from your knowledge.

Research angle: "%s"
Query: "%s"
Focus: %s

Create 1-4 research findings. Each finding should be a JSON object:
{
  "type": "research_finding" or "competitor",
  "title": "2-6 word title",
  "content": "Detailed markdown content (2-4 paragraphs)",
  "summary": "1-2 sentence summary",
  "source_url": "most relevant source URL if known, else empty",
  "importance": 0-100 score
}

Return ONLY a JSON array of findings, no other text.`, angle.Name, angle.SubQuery, angle.Focus)

	text, err := c.complete(ctx, "research_angle", prompt, c.maxTokens)
	if err != nil {
		return nil, err
	}

	var findings []domain.Finding
	if err := json.Unmarshal([]byte(extractJSONArray(text)), &findings); err != nil {
		c.logger.Warn("findings unparseable, returning none",
			zap.String("angle", angle.Name),
			zap.Error(err))
		return nil, nil
	}
	return findings, nil
}

// Synthesize proposes groups, connections and a summary over the
// collected artifacts. An unparseable response degrades to an empty
// synthesis with a fixed failure summary.
func (c *Client) Synthesize(ctx context.Context, query string, artifacts []domain.Artifact) (domain.Synthesis, error) {
	var summaries strings.Builder
	for _, a := range artifacts {
		fmt.Fprintf(&summaries, "- %s: [%s] %s: %s\n", a.ID, a.Type, a.Title, a.Summary)
	}

	prompt := fmt.Sprintf(`You are a research synthesizer. Given these research findings, create logical groups and identify connections between them.

Original query: "%s"

Artifacts:
%s
Return a JSON object with:
1. "groups": Array of groups, each with:
   - "title": group name
   - "color": hex color (pick distinct colors)
   - "artifact_ids": array of artifact IDs that belong to this group

2. "connections": Array of connections between artifacts, each with:
   - "from_id": artifact ID
   - "to_id": artifact ID
   - "label": relationship description (2-5 words)
   - "connection_type": "related", "competes", "depends", or "references"

3. "summary": A markdown summary (2-3 paragraphs) synthesizing all research findings

Return ONLY the JSON object, no other text.`, query, summaries.String())

	text, err := c.complete(ctx, "synthesize", prompt, c.maxTokens)
	if err != nil {
		return domain.Synthesis{}, err
	}

	var synthesis domain.Synthesis
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &synthesis); err != nil {
		c.logger.Warn("synthesis unparseable, returning empty", zap.Error(err))
		return domain.Synthesis{Summary: "Research synthesis failed."}, nil
	}
	return synthesis, nil
}

// GeneratePlan breaks a project description into plan components plus
// candidate edges between temporary ids and a proposed design system.
func (c *Client) GeneratePlan(ctx context.Context, description string, research []domain.Artifact) (domain.PlanResult, error) {
	var refs strings.Builder
	if len(research) > 0 {
		refs.WriteString("\n\nAvailable research findings for reference:\n")
		for _, a := range research {
			fmt.Fprintf(&refs, "- %s: %s: %s\n", a.ID, a.Title, a.Summary)
		}
	}

	prompt := fmt.Sprintf(`You are a product architect. Break down this product/project into a blueprint with components that could be handed to coding agents.

Project description: "%s"%s

Return a JSON object with:
1. "components": Array of 5-12 plan components, each:
{
  "temp_id": "comp_1" (unique within this response),
  "type": "plan_component" or "mermaid" (include 1-2 mermaid architecture diagrams),
  "title": "2-6 word component title",
  "content": "Detailed markdown description (3-5 paragraphs) including purpose, key features, technical approach, dependencies; for mermaid, the diagram source",
  "summary": "1-2 sentence summary",
  "importance": 0-100 (higher = more critical/foundational),
  "references": ["art_xxxx", ...] (IDs of research artifacts this references, if any),
  "has_ui": true if this component has a user-facing screen,
  "ui_description": "1-2 sentence description of that screen, if has_ui"
}

2. "connections": Array of edges between components, each:
{
  "from_id": "comp_1",
  "to_id": "comp_2",
  "label": "relationship description (2-5 words)",
  "connection_type": "related", "competes", "depends", or "references"
}

3. "design_system": Object with "primary_color", "secondary_color", "accent_color", "background_style", "font_style", "overall_feel"

Return ONLY the JSON object, no other text.`, description, refs.String())

	text, err := c.complete(ctx, "generate_plan", prompt, planMaxTokens)
	if err != nil {
		return domain.PlanResult{}, err
	}

	var result domain.PlanResult
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &result); err != nil {
		c.logger.Warn("plan unparseable, returning empty", zap.Error(err))
		return domain.PlanResult{}, nil
	}
	return result, nil
}

package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/researchcanvas/canvasd/internal/domain"
)

const defaultModel = "gemini-3-pro-image-preview"

const noTextRule = "IMPORTANT: Do NOT render any text, letters, numbers, words, or written labels in the image."

// promptTemplates maps artifact types to image prompt shapes. Unknown
// types use the markdown template.
var promptTemplates = map[string]string{
	"research_finding": "Create a detailed illustration depicting the concept: %s. " +
		"Key details to visually represent: %s. " +
		"Style: rich conceptual scene with visual metaphors, saturated colors, " +
		"and flowing compositions on a dark background (#1e1e2e). " + noTextRule,
	"competitor": "Create a detailed product illustration representing: %s. " +
		"Visual context: %s. " +
		"Style: polished product concept art with clean gradients and a " +
		"professional aesthetic on a dark background (#1e1e2e). " + noTextRule,
	"plan_component": "Create a detailed technical illustration showing: %s. " +
		"What this component does: %s. " +
		"Style: node-and-connection aesthetics with glowing edges and " +
		"circuit-like compositions on a dark background (#1e1e2e). " + noTextRule,
	"ui_screen": "Create a high-fidelity UI mockup of: %s. " +
		"Screen description: %s. " +
		"Style: modern product interface, realistic layout and spacing, " +
		"on a dark background (#1e1e2e). " + noTextRule,
	"markdown": "Create a detailed conceptual illustration for: %s. " +
		"Context: %s. " +
		"Style: rich visual storytelling with harmonious colors and " +
		"organic-meets-geometric compositions on a dark background (#1e1e2e). " + noTextRule,
}

// Config holds Gemini enricher configuration.
type Config struct {
	APIKey string
	Model  string
	Logger *zap.Logger
}

// Enricher generates one image per artifact and returns it as a base64
// data URL.
type Enricher struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// New creates a Gemini-backed enricher.
func New(ctx context.Context, cfg *Config) (*Enricher, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Enricher{client: client, model: model, logger: cfg.Logger}, nil
}

// GenerateImage produces a visual for the artifact. An optional style
// hint is appended to the prompt. The result is a data URL; an empty
// image in the response is an error so the caller can retry.
func (e *Enricher) GenerateImage(ctx context.Context, artifact domain.Artifact, style string) (string, error) {
	prompt := buildPrompt(artifact, style)

	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generating image for %s: %w", artifact.ID, err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil || !strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				continue
			}
			b64 := base64.StdEncoding.EncodeToString(part.InlineData.Data)
			return "data:" + part.InlineData.MIMEType + ";base64," + b64, nil
		}
	}

	e.logger.Warn("no image in response", zap.String("artifact_id", artifact.ID))
	return "", fmt.Errorf("gemini: no image in response for %s", artifact.ID)
}

func buildPrompt(artifact domain.Artifact, style string) string {
	template, ok := promptTemplates[artifact.Type]
	if !ok {
		template = promptTemplates["markdown"]
	}

	summary := artifact.Summary
	if summary == "" {
		summary = artifact.Content
		if len(summary) > 200 {
			summary = summary[:200]
		}
	}

	prompt := fmt.Sprintf(template, artifact.Title, summary)
	if style != "" {
		prompt += " " + style
	}
	return prompt
}

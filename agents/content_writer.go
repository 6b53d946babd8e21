package agents

import (
	"context"
	"fmt"
	"strings"
)

// ContentWriterAgent produces the title and bullet points. It is the first
// writer of both, so its output sticks unless the marketing reviewer is
// declared authoritative.
type ContentWriterAgent struct {
	BaseAgent
}

func NewContentWriterAgent(model ModelService) *ContentWriterAgent {
	return &ContentWriterAgent{BaseAgent{
		AgentName:         "content_writer",
		Temperature:       0.5,
		DefaultConfidence: 0.75,
		Model:             model,
	}}
}

func (a *ContentWriterAgent) SystemPrompt() string {
	return `You are an expert marketplace copywriter. You write listing titles and bullet
points that are specific, benefit-driven and within marketplace limits.
You always answer with a single valid JSON object and nothing else.`
}

func (a *ContentWriterAgent) BuildPrompt(product ProductInput, view *ListingView) string {
	summary := "unknown"
	if view != nil && view.Extra != nil {
		if s, ok := view.Extra["product_summary"].(string); ok && s != "" {
			summary = s
		}
	}
	return fmt.Sprintf(`Write the title and bullet points for this listing.

PRODUCT:
Name: %s
Category: %s
Value proposition: %s
Advantages: %s
Use cases: %s
Analyst summary: %s

Title must stay under 200 characters. At most 5 bullet points.

RESPONSE FORMAT (JSON):
{
  "title": "optimized listing title",
  "bullet_points": ["benefit-led bullet", "..."],
  "confidence": 0.0,
  "recommendations": ["suggestions to improve the content further"]
}`,
		orUnknown(product.ProductName),
		orUnknown(product.Category),
		orUnknown(product.ValueProposition),
		orUnknown(strings.Join(product.CompetitiveAdvantages, ", ")),
		orUnknown(strings.Join(product.UseSituations, ", ")),
		summary)
}

func (a *ContentWriterAgent) Process(ctx context.Context, product ProductInput, view *ListingView) AgentResult {
	result := a.Execute(ctx, a, product, view, func() map[string]any {
		return a.fallbackContent(product)
	})
	// When the model did not score itself, score by completeness instead of
	// the flat default.
	if result.Status == StatusSuccess {
		if _, ok := result.Payload["confidence"]; !ok {
			result.Confidence = scoreContent(result.Payload)
		}
	}
	return result
}

// fallbackContent assembles a serviceable title and bullets straight from
// the intake data when the model response was unusable.
func (a *ContentWriterAgent) fallbackContent(product ProductInput) map[string]any {
	payload := map[string]any{}
	titleParts := []string{product.ProductName}
	if len(product.CompetitiveAdvantages) > 0 {
		titleParts = append(titleParts, product.CompetitiveAdvantages[0])
	}
	if title := strings.TrimSpace(strings.Join(titleParts, " - ")); title != "" && title != "-" {
		payload["title"] = title
	}

	var bullets []string
	if product.ValueProposition != "" {
		bullets = append(bullets, product.ValueProposition)
	}
	for _, adv := range product.CompetitiveAdvantages {
		if len(bullets) == maxBulletPoints {
			break
		}
		bullets = append(bullets, adv)
	}
	if len(bullets) > 0 {
		payload["bullet_points"] = bullets
	}
	return payload
}

// scoreContent rates a content payload by completeness: a full set of
// bullets and a usable title score high, thin output scores low.
func scoreContent(payload map[string]any) float64 {
	score := 0.0
	if title, ok := payload["title"].(string); ok {
		t := strings.TrimSpace(title)
		if t != "" {
			score += 0.3
		}
		if len(t) >= 30 && len(t) <= maxTitleLength {
			score += 0.15
		}
	}
	bullets := stringList(payload["bullet_points"])
	switch {
	case len(bullets) >= 4:
		score += 0.4
	case len(bullets) >= 2:
		score += 0.25
	case len(bullets) == 1:
		score += 0.1
	}
	if len(stringList(payload["recommendations"])) > 0 {
		score += 0.15
	}
	return clamp(score, 0.0, 1.0)
}

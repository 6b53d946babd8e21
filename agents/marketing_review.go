package agents

import (
	"context"
	"fmt"
	"strings"
)

// MarketingReviewAgent runs last over the consolidated view. It is declared
// authoritative for the title, so a reviewed title replaces the content
// writer's; everything else it emits follows normal first-writer rules.
type MarketingReviewAgent struct {
	BaseAgent
}

func NewMarketingReviewAgent(model ModelService) *MarketingReviewAgent {
	return &MarketingReviewAgent{BaseAgent{
		AgentName:         "marketing_review",
		Temperature:       0.4,
		DefaultConfidence: 0.6,
		Model:             model,
	}}
}

func (a *MarketingReviewAgent) SystemPrompt() string {
	return `You are a senior marketing reviewer. You audit a complete marketplace listing
and either approve the content or supply concrete improvements.
You always answer with a single valid JSON object and nothing else.`
}

func (a *MarketingReviewAgent) BuildPrompt(product ProductInput, view *ListingView) string {
	title := "unknown"
	description := "unknown"
	bullets := "unknown"
	keywords := "unknown"
	price := 0.0
	if view != nil {
		price = view.TargetPrice
		if view.Title != "" {
			title = view.Title
		}
		if view.Description != "" {
			description = truncate(view.Description, 500)
		}
		if len(view.BulletPoints) > 0 {
			bullets = strings.Join(view.BulletPoints, " | ")
		}
		if len(view.Keywords) > 0 {
			keywords = strings.Join(view.Keywords, ", ")
		}
	}
	return fmt.Sprintf(`Review this complete listing and improve it where needed.

LISTING:
Product: %s
Title: %s
Description: %s
Bullets: %s
Keywords: %s
Price: %.2f

Only include a field in your answer when you are changing it.

RESPONSE FORMAT (JSON):
{
  "title": "improved title, omit if the current one is fine",
  "keywords": ["additional keywords, omit if none"],
  "review_score": 0,
  "confidence": 0.0,
  "recommendations": ["edits the seller should apply manually"]
}`,
		orUnknown(product.ProductName),
		title, description, bullets, keywords,
		price)
}

func (a *MarketingReviewAgent) Process(ctx context.Context, product ProductInput, view *ListingView) AgentResult {
	// No fallback payload: a reviewer with nothing parseable has no opinion.
	return a.Execute(ctx, a, product, view, nil)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

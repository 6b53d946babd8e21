package agents

import (
	"context"
	"fmt"
	"strings"
)

// ProductAnalysisAgent runs first: it normalizes the raw product intake into
// an analysis block later agents build on, and seeds the keyword set.
type ProductAnalysisAgent struct {
	BaseAgent
}

func NewProductAnalysisAgent(model ModelService) *ProductAnalysisAgent {
	return &ProductAnalysisAgent{BaseAgent{
		AgentName:         "product_analysis",
		Temperature:       0.3,
		DefaultConfidence: 0.7,
		Model:             model,
	}}
}

func (a *ProductAnalysisAgent) SystemPrompt() string {
	return `You are an e-commerce product analyst. You break a raw product brief down into
category positioning, differentiators and search-relevant terms.
You always answer with a single valid JSON object and nothing else.`
}

func (a *ProductAnalysisAgent) BuildPrompt(product ProductInput, view *ListingView) string {
	return fmt.Sprintf(`Analyze this product for a marketplace listing.

PRODUCT:
Name: %s
Category: %s
Value proposition: %s
Competitive advantages: %s
Specifications: %s

RESPONSE FORMAT (JSON):
{
  "product_summary": "one-paragraph positioning summary",
  "differentiators": ["key", "differentiators"],
  "keywords": ["search", "terms", "buyers", "use"],
  "confidence": 0.0,
  "recommendations": ["actionable suggestions for the listing"]
}`,
		orUnknown(product.ProductName),
		orUnknown(product.Category),
		orUnknown(product.ValueProposition),
		orUnknown(strings.Join(product.CompetitiveAdvantages, ", ")),
		orUnknown(product.RawSpecifications))
}

func (a *ProductAnalysisAgent) Process(ctx context.Context, product ProductInput, view *ListingView) AgentResult {
	return a.Execute(ctx, a, product, view, func() map[string]any {
		// Degraded mode still seeds keywords from the intake data.
		payload := map[string]any{}
		if len(product.TargetKeywords) > 0 {
			payload["keywords"] = product.TargetKeywords
		}
		return payload
	})
}

// orUnknown keeps prompts well-formed when upstream fields are empty.
func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}

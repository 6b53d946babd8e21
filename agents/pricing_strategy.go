package agents

import (
	"context"
	"fmt"
)

// PricingStrategyAgent proposes the target price for the listing.
type PricingStrategyAgent struct {
	BaseAgent
}

func NewPricingStrategyAgent(model ModelService) *PricingStrategyAgent {
	return &PricingStrategyAgent{BaseAgent{
		AgentName:         "pricing_strategy",
		Temperature:       0.2,
		DefaultConfidence: 0.65,
		Model:             model,
	}}
}

func (a *PricingStrategyAgent) SystemPrompt() string {
	return `You are a marketplace pricing strategist. You recommend a launch price from the
product brief and its competitive positioning.
You always answer with a single valid JSON object and nothing else.`
}

func (a *PricingStrategyAgent) BuildPrompt(product ProductInput, view *ListingView) string {
	target := "unknown"
	if product.TargetPrice > 0 {
		target = fmt.Sprintf("%.2f", product.TargetPrice)
	}
	return fmt.Sprintf(`Recommend pricing for this listing.

PRODUCT:
Name: %s
Category: %s
Seller's target price: %s
Advantages: %s

RESPONSE FORMAT (JSON):
{
  "target_price": 0.0,
  "price_rationale": "why this price",
  "confidence": 0.0,
  "recommendations": ["pricing actions worth taking"]
}`,
		orUnknown(product.ProductName),
		orUnknown(product.Category),
		target,
		joinOrUnknown(product.CompetitiveAdvantages))
}

func (a *PricingStrategyAgent) Process(ctx context.Context, product ProductInput, view *ListingView) AgentResult {
	return a.Execute(ctx, a, product, view, func() map[string]any {
		// Degraded mode falls back to the seller's own target price.
		if product.TargetPrice > 0 {
			return map[string]any{"target_price": product.TargetPrice}
		}
		return map[string]any{}
	})
}

func joinOrUnknown(items []string) string {
	if len(items) == 0 {
		return "unknown"
	}
	out := items[0]
	for _, item := range items[1:] {
		out += ", " + item
	}
	return out
}

package agents

import (
	"context"
	"fmt"
	"strings"
)

// DescriptionWriterAgent produces the long-form product description.
type DescriptionWriterAgent struct {
	BaseAgent
}

func NewDescriptionWriterAgent(model ModelService) *DescriptionWriterAgent {
	return &DescriptionWriterAgent{BaseAgent{
		AgentName:         "description_writer",
		Temperature:       0.6,
		DefaultConfidence: 0.7,
		Model:             model,
	}}
}

func (a *DescriptionWriterAgent) SystemPrompt() string {
	return `You are a product description specialist. You turn features into a persuasive
narrative: hook, story, benefits, use cases, call to action.
You always answer with a single valid JSON object and nothing else.`
}

func (a *DescriptionWriterAgent) BuildPrompt(product ProductInput, view *ListingView) string {
	title := "unknown"
	if view != nil && view.Title != "" {
		title = view.Title
	}
	return fmt.Sprintf(`Write the full description for this listing.

PRODUCT:
Name: %s
Working title: %s
Value proposition: %s
Advantages: %s
Box contents: %s
Warranty: %s

RESPONSE FORMAT (JSON):
{
  "description": "full listing description",
  "confidence": 0.0,
  "recommendations": ["suggestions to strengthen the description"]
}`,
		orUnknown(product.ProductName),
		title,
		orUnknown(product.ValueProposition),
		orUnknown(strings.Join(product.CompetitiveAdvantages, ", ")),
		orUnknown(product.BoxContents),
		orUnknown(product.WarrantyInfo))
}

func (a *DescriptionWriterAgent) Process(ctx context.Context, product ProductInput, view *ListingView) AgentResult {
	return a.Execute(ctx, a, product, view, func() map[string]any {
		return map[string]any{"description": a.fallbackDescription(product)}
	})
}

// fallbackDescription assembles the listing sections directly from the
// intake data, mirroring what a human would enter by hand.
func (a *DescriptionWriterAgent) fallbackDescription(product ProductInput) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("Discover %s", product.ProductName))
	if product.ValueProposition != "" {
		parts = append(parts, product.ValueProposition)
	}
	if len(product.CompetitiveAdvantages) > 0 {
		parts = append(parts, "KEY FEATURES:")
		for _, adv := range product.CompetitiveAdvantages {
			parts = append(parts, "- "+adv)
		}
	}
	if len(product.UseSituations) > 0 {
		parts = append(parts, "IDEAL FOR:")
		for _, use := range product.UseSituations {
			parts = append(parts, "- "+use)
		}
	}
	if product.BoxContents != "" {
		parts = append(parts, "IN THE BOX: "+product.BoxContents)
	}
	if product.WarrantyInfo != "" {
		parts = append(parts, "WARRANTY: "+product.WarrantyInfo)
	}
	return strings.Join(parts, "\n")
}

package agents

import (
	"context"
	"fmt"
	"strings"
)

// SEOKeywordsAgent extends the keyword set using the title and bullets the
// content writer already produced, which is why it depends on that agent.
type SEOKeywordsAgent struct {
	BaseAgent
}

func NewSEOKeywordsAgent(model ModelService) *SEOKeywordsAgent {
	return &SEOKeywordsAgent{BaseAgent{
		AgentName:         "seo_keywords",
		Temperature:       0.3,
		DefaultConfidence: 0.7,
		Model:             model,
	}}
}

func (a *SEOKeywordsAgent) SystemPrompt() string {
	return `You are a marketplace SEO specialist. You derive backend search keywords from
listing content so buyers can find the product.
You always answer with a single valid JSON object and nothing else.`
}

func (a *SEOKeywordsAgent) BuildPrompt(product ProductInput, view *ListingView) string {
	title := "unknown"
	bullets := "unknown"
	if view != nil {
		if view.Title != "" {
			title = view.Title
		}
		if len(view.BulletPoints) > 0 {
			bullets = strings.Join(view.BulletPoints, " | ")
		}
	}
	return fmt.Sprintf(`Generate search keywords for this listing.

CONTEXT:
Product: %s
Category: %s
Current title: %s
Bullet points: %s
Seller keywords: %s

RESPONSE FORMAT (JSON):
{
  "keywords": ["search", "terms"],
  "confidence": 0.0,
  "recommendations": ["SEO actions worth taking"]
}`,
		orUnknown(product.ProductName),
		orUnknown(product.Category),
		title,
		bullets,
		joinOrUnknown(product.TargetKeywords))
}

func (a *SEOKeywordsAgent) Process(ctx context.Context, product ProductInput, view *ListingView) AgentResult {
	return a.Execute(ctx, a, product, view, func() map[string]any {
		return map[string]any{"keywords": fallbackKeywords(product)}
	})
}

// fallbackKeywords derives keywords from the intake data alone: seller
// keywords, product name tokens and advantage tokens longer than 3 chars.
func fallbackKeywords(product ProductInput) []string {
	var out []string
	seen := map[string]bool{}
	add := func(kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			return
		}
		seen[kw] = true
		out = append(out, kw)
	}
	for _, kw := range product.TargetKeywords {
		add(kw)
	}
	add(product.ProductName)
	for _, adv := range product.CompetitiveAdvantages {
		for _, word := range strings.Fields(adv) {
			if len(word) > 3 {
				add(word)
			}
		}
	}
	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	return out
}

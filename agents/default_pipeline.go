package agents

// DefaultPrecedence declares the marketing reviewer authoritative for the
// title; every other listing field is first-writer-wins.
func DefaultPrecedence() Precedence {
	return Precedence{
		"title": "marketing_review",
	}
}

// DefaultPipeline wires the standard listing chain in dependency order:
// analysis first, content before description and SEO, the marketing review
// last over the full aggregate.
func DefaultPipeline(model ModelService) (*Pipeline, error) {
	return NewPipeline([]AgentSpec{
		{Agent: NewProductAnalysisAgent(model)},
		{Agent: NewContentWriterAgent(model), DependsOn: []string{"product_analysis"}},
		{Agent: NewDescriptionWriterAgent(model), DependsOn: []string{"content_writer"}},
		{Agent: NewPricingStrategyAgent(model), DependsOn: []string{"product_analysis"}},
		{Agent: NewSEOKeywordsAgent(model), DependsOn: []string{"content_writer"}},
		{Agent: NewMarketingReviewAgent(model), DependsOn: []string{"content_writer", "description_writer", "seo_keywords"}},
	}, DefaultPrecedence())
}

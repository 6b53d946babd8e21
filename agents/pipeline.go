package agents

import (
	"context"
	"fmt"
	"log"
	"time"
)

// PipelineStatus is the terminal state of one pipeline run.
type PipelineStatus string

const (
	PipelinePending            PipelineStatus = "pending"
	PipelineRunning            PipelineStatus = "running"
	PipelineCompleted          PipelineStatus = "completed"
	PipelinePartiallyCompleted PipelineStatus = "partially_completed"
)

// AgentSpec binds an agent to the agents whose folded output it consumes.
// Dependencies must appear earlier in the declared order.
type AgentSpec struct {
	Agent     Agent
	DependsOn []string
}

// RunOutput is the terminal output of one pipeline run: the consolidated
// view plus the ordered per-agent results for audit metadata.
type RunOutput struct {
	View              *ListingView   `json:"listing_view"`
	Results           []AgentResult  `json:"agent_results"`
	OverallConfidence float64        `json:"overall_confidence"`
	Status            PipelineStatus `json:"pipeline_status"`
}

// Pipeline sequences agents in a fixed dependency order and folds each
// result into the running view before the next agent sees it.
type Pipeline struct {
	specs      []AgentSpec
	precedence Precedence
}

// NewPipeline validates the declared order up front: duplicate names,
// self-dependencies and dependencies on agents that do not appear earlier in
// the order (which covers cycles, given the fixed sequence) are
// configuration errors.
func NewPipeline(specs []AgentSpec, precedence Precedence) (*Pipeline, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("pipeline needs at least one agent")
	}
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		name := spec.Agent.Name()
		if seen[name] {
			return nil, fmt.Errorf("duplicate agent in pipeline: %s", name)
		}
		for _, dep := range spec.DependsOn {
			if dep == name {
				return nil, fmt.Errorf("agent %s depends on itself", name)
			}
			if !seen[dep] {
				return nil, fmt.Errorf("agent %s depends on %q which is not earlier in the pipeline order", name, dep)
			}
		}
		seen[name] = true
	}
	return &Pipeline{specs: specs, precedence: precedence}, nil
}

// Run executes the pipeline against product intake data. An individual agent
// error never aborts the run: the failure is recorded, an empty payload is
// folded and later agents continue against the view built so far.
func (p *Pipeline) Run(ctx context.Context, product ProductInput) RunOutput {
	start := time.Now()
	log.Printf("🚀 [PIPELINE] Starting run for product: %s (%d agents)", product.ProductName, len(p.specs))

	view := &ListingView{}
	results := make([]AgentResult, 0, len(p.specs))
	errored := false

	for i, spec := range p.specs {
		name := spec.Agent.Name()
		log.Printf("▶️ [PIPELINE] Running agent %d/%d: %s", i+1, len(p.specs), name)

		result := spec.Agent.Process(ctx, product, view)
		if result.Status == StatusError {
			// Confidence for errored agents is 0 regardless of what the
			// agent put in the result.
			result.Confidence = 0.0
			errored = true
			log.Printf("⚠️ [PIPELINE] Agent %s failed, continuing with remaining agents", name)
		}

		results = append(results, result)
		view = Fold(view, result, p.precedence)
	}

	var sum float64
	for _, r := range results {
		sum += r.Confidence
	}
	overall := sum / float64(len(results))

	status := PipelineCompleted
	if errored {
		status = PipelinePartiallyCompleted
	}

	log.Printf("✅ [PIPELINE] Run finished in %v: status=%s confidence=%.2f", time.Since(start), status, overall)
	return RunOutput{
		View:              view,
		Results:           results,
		OverallConfidence: overall,
		Status:            status,
	}
}

package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAgent returns a fixed result; used to drive the runner without a
// model backend.
type stubAgent struct {
	name   string
	result AgentResult
}

func (s *stubAgent) Name() string         { return s.name }
func (s *stubAgent) SystemPrompt() string { return "stub" }
func (s *stubAgent) BuildPrompt(ProductInput, *ListingView) string {
	return "stub"
}
func (s *stubAgent) Process(ctx context.Context, product ProductInput, view *ListingView) AgentResult {
	r := s.result
	r.AgentName = s.name
	return r
}

func TestNewPipelineRejectsBadConfigurations(t *testing.T) {
	ok := &stubAgent{name: "a"}

	_, err := NewPipeline(nil, nil)
	assert.Error(t, err)

	_, err = NewPipeline([]AgentSpec{{Agent: ok}, {Agent: &stubAgent{name: "a"}}}, nil)
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewPipeline([]AgentSpec{{Agent: ok, DependsOn: []string{"a"}}}, nil)
	assert.ErrorContains(t, err, "depends on itself")

	// Dependency on a later agent is a forward reference, i.e. a cycle
	// under the fixed order.
	_, err = NewPipeline([]AgentSpec{
		{Agent: ok, DependsOn: []string{"b"}},
		{Agent: &stubAgent{name: "b"}},
	}, nil)
	assert.ErrorContains(t, err, "not earlier in the pipeline order")
}

func TestPipelineCompletedRun(t *testing.T) {
	p, err := NewPipeline([]AgentSpec{
		{Agent: &stubAgent{name: "a", result: AgentResult{Status: StatusSuccess, Confidence: 0.8, Payload: map[string]any{"title": "X"}}}},
		{Agent: &stubAgent{name: "b", result: AgentResult{Status: StatusSuccess, Confidence: 0.6, Payload: map[string]any{"target_price": 10.0}}}, DependsOn: []string{"a"}},
	}, nil)
	require.NoError(t, err)

	out := p.Run(context.Background(), ProductInput{ProductName: "p"})
	assert.Equal(t, PipelineCompleted, out.Status)
	assert.Len(t, out.Results, 2)
	assert.InDelta(t, 0.7, out.OverallConfidence, 1e-9)
	assert.Equal(t, "X", out.View.Title)
	assert.Equal(t, 10.0, out.View.TargetPrice)
}

// An errored agent must not abort the run: remaining agents still fold and
// the final status is partially completed.
func TestPipelineContinuesPastAgentError(t *testing.T) {
	p, err := NewPipeline([]AgentSpec{
		{Agent: &stubAgent{name: "a", result: AgentResult{Status: StatusSuccess, Confidence: 0.8, Payload: map[string]any{"title": "X"}}}},
		{Agent: &stubAgent{name: "broken", result: AgentResult{Status: StatusError, Confidence: 0.9}}},
		{Agent: &stubAgent{name: "c", result: AgentResult{Status: StatusSuccess, Confidence: 0.4, Payload: map[string]any{"description": "d"}}}},
	}, nil)
	require.NoError(t, err)

	out := p.Run(context.Background(), ProductInput{ProductName: "p"})
	assert.Equal(t, PipelinePartiallyCompleted, out.Status)
	require.Len(t, out.Results, 3)
	// Errored agents contribute 0 regardless of what they reported.
	assert.Zero(t, out.Results[1].Confidence)
	assert.InDelta(t, (0.8+0.0+0.4)/3, out.OverallConfidence, 1e-9)
	assert.Equal(t, "X", out.View.Title)
	assert.Equal(t, "d", out.View.Description)
}

// One agent at 0.8, one errored/empty -> overall 0.4 and a partially
// completed status.
func TestPipelineOverallConfidenceAveragesErrors(t *testing.T) {
	p, err := NewPipeline([]AgentSpec{
		{Agent: &stubAgent{name: "good", result: AgentResult{Status: StatusSuccess, Confidence: 0.8, Payload: map[string]any{"title": "X", "confidence": 0.8}}}},
		{Agent: &stubAgent{name: "bad", result: AgentResult{Status: StatusError}}},
	}, nil)
	require.NoError(t, err)

	out := p.Run(context.Background(), ProductInput{ProductName: "p"})
	assert.InDelta(t, 0.4, out.OverallConfidence, 1e-9)
	assert.Equal(t, PipelinePartiallyCompleted, out.Status)
	assert.Equal(t, "X", out.View.Title)
}

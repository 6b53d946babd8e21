package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"
)

// ModelService is the boundary to the language-model backend. Transport,
// retries and timeouts live behind this interface; agents only ever see raw
// text or an error.
type ModelService interface {
	Invoke(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

// Agent is one role-specific content-generation unit. Process must never
// return a malformed result: model or parse failures are converted into
// status=error with confidence 0.0 inside the agent.
type Agent interface {
	Name() string
	SystemPrompt() string
	BuildPrompt(product ProductInput, view *ListingView) string
	Process(ctx context.Context, product ProductInput, view *ListingView) AgentResult
}

const (
	// maxRecommendations caps how many recommendations one agent may emit.
	maxRecommendations = 5
	// degradedConfidenceCeiling is the upper bound for fallback results.
	degradedConfidenceCeiling = 0.5
	// degradedConfidenceFloor keeps a degraded result distinguishable from
	// a hard error's 0.0.
	degradedConfidenceFloor = 0.2
)

// BaseAgent carries the shared wiring every role agent embeds: the model
// service handle, the sampling temperature and the default confidence used
// when the model does not score itself.
type BaseAgent struct {
	AgentName         string
	Temperature       float64
	DefaultConfidence float64
	Model             ModelService
}

// Name returns the stable agent identifier used to key results and
// recommendations back to their origin.
func (b *BaseAgent) Name() string { return b.AgentName }

// Execute runs the standard agent flow: build prompt, invoke the model,
// parse, compute confidence, extract recommendations. fallback supplies the
// agent's degraded-mode payload when the response was non-structured; it may
// be nil, in which case the degraded payload is empty.
func (b *BaseAgent) Execute(ctx context.Context, a Agent, product ProductInput, view *ListingView, fallback func() map[string]any) AgentResult {
	start := time.Now()

	prompt := a.BuildPrompt(product, view)
	raw, err := b.Model.Invoke(ctx, a.SystemPrompt(), prompt, b.Temperature)
	if err != nil {
		log.Printf("❌ [AGENT] %s: model invocation failed: %v", b.AgentName, err)
		return b.errorResult(fmt.Sprintf("model invocation failed: %v", err), time.Since(start))
	}

	parsed := ParseStructured(raw)
	if !parsed.Success {
		log.Printf("❌ [AGENT] %s: %s", b.AgentName, parsed.ParseError)
		return b.errorResult(parsed.ParseError, time.Since(start))
	}

	if !parsed.IsStructured {
		payload := map[string]any{}
		if fallback != nil {
			payload = fallback()
		}
		conf := clamp(b.DefaultConfidence, degradedConfidenceFloor, degradedConfidenceCeiling)
		log.Printf("⚠️ [AGENT] %s: structured parse failed, using fallback (confidence %.2f)", b.AgentName, conf)
		return AgentResult{
			AgentName:      b.AgentName,
			Status:         StatusDegraded,
			Payload:        payload,
			Confidence:     conf,
			Notes:          []string{"structured parsing failed; fallback payload used", parsed.ParseError},
			ProcessingTime: time.Since(start),
		}
	}

	conf := b.confidenceFrom(parsed.Parsed)
	recs := ExtractRecommendations(parsed.Parsed)

	return AgentResult{
		AgentName:       b.AgentName,
		Status:          StatusSuccess,
		Payload:         parsed.Parsed,
		Confidence:      conf,
		Recommendations: recs,
		ProcessingTime:  time.Since(start),
	}
}

func (b *BaseAgent) errorResult(msg string, elapsed time.Duration) AgentResult {
	return AgentResult{
		AgentName:      b.AgentName,
		Status:         StatusError,
		Payload:        map[string]any{},
		Confidence:     0.0,
		Notes:          []string{"error: " + msg},
		ProcessingTime: elapsed,
	}
}

// confidenceFrom prefers a model-supplied confidence field, clamped into
// [0,1]; otherwise the agent's default constant is used.
func (b *BaseAgent) confidenceFrom(payload map[string]any) float64 {
	if raw, ok := payload["confidence"]; ok {
		if f, ok := toFloat(raw); ok {
			return clamp(f, 0.0, 1.0)
		}
	}
	return clamp(b.DefaultConfidence, 0.0, 1.0)
}

// ExtractRecommendations scans the payload for recommendation carriers: the
// top-level "recommendations" list plus any nested object holding one. The
// flattened sequence is de-duplicated (normalized comparison) and capped.
func ExtractRecommendations(payload map[string]any) []string {
	var collected []string

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if raw, ok := payload["recommendations"]; ok {
		collected = append(collected, stringList(raw)...)
	}
	for _, k := range keys {
		if k == "recommendations" {
			continue
		}
		if sub, ok := payload[k].(map[string]any); ok {
			if raw, ok := sub["recommendations"]; ok {
				collected = append(collected, stringList(raw)...)
			}
		}
	}

	seen := make(map[string]bool, len(collected))
	out := make([]string, 0, maxRecommendations)
	for _, rec := range collected {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		key := normalizeText(rec)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rec)
		if len(out) == maxRecommendations {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringList(raw any) []string {
	var out []string
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, v...)
	case string:
		out = append(out, v)
	}
	return out
}

// normalizeText lowercases, collapses whitespace and strips trailing
// punctuation so near-duplicate strings compare equal.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimRight(s, ".,;:!")
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func clamp(f, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, f))
}

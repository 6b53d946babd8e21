package agents

import (
	"strings"
	"time"
)

// AgentStatus describes the outcome of one agent invocation.
type AgentStatus string

const (
	StatusSuccess  AgentStatus = "success"
	StatusDegraded AgentStatus = "degraded"
	StatusError    AgentStatus = "error"
)

// AgentResult is the uniform output of one agent invocation. It is created
// once per run, immutable afterwards, and folded into the running listing
// view by the aggregator.
type AgentResult struct {
	AgentName       string         `json:"agent_name"`
	Status          AgentStatus    `json:"status"`
	Payload         map[string]any `json:"payload,omitempty"`
	Confidence      float64        `json:"confidence"`
	Recommendations []string       `json:"recommendations,omitempty"`
	Notes           []string       `json:"notes,omitempty"`
	ProcessingTime  time.Duration  `json:"processing_time"`
}

// ProductInput is the intake data a pipeline run starts from.
type ProductInput struct {
	ProductName           string   `json:"product_name"`
	Category              string   `json:"category,omitempty"`
	TargetPrice           float64  `json:"target_price,omitempty"`
	TargetKeywords        []string `json:"target_keywords,omitempty"`
	ValueProposition      string   `json:"value_proposition,omitempty"`
	CompetitiveAdvantages []string `json:"competitive_advantages,omitempty"`
	UseSituations         []string `json:"use_situations,omitempty"`
	RawSpecifications     string   `json:"raw_specifications,omitempty"`
	BoxContents           string   `json:"box_contents,omitempty"`
	WarrantyInfo          string   `json:"warranty_info,omitempty"`
	TargetCustomer        string   `json:"target_customer,omitempty"`
}

// ListingView is the running aggregate threaded through the pipeline.
// It is mutated only by Fold; agents read it but never write it.
type ListingView struct {
	Title        string         `json:"title,omitempty"`
	Description  string         `json:"description,omitempty"`
	BulletPoints []string       `json:"bullet_points,omitempty"`
	Keywords     []string       `json:"keywords,omitempty"`
	TargetPrice  float64        `json:"target_price,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Clone returns a deep copy of the view so folds never alias slices or the
// extension map between pipeline steps.
func (v *ListingView) Clone() *ListingView {
	out := &ListingView{
		Title:       v.Title,
		Description: v.Description,
		TargetPrice: v.TargetPrice,
	}
	if len(v.BulletPoints) > 0 {
		out.BulletPoints = append([]string(nil), v.BulletPoints...)
	}
	if len(v.Keywords) > 0 {
		out.Keywords = append([]string(nil), v.Keywords...)
	}
	if len(v.Extra) > 0 {
		out.Extra = make(map[string]any, len(v.Extra))
		for k, val := range v.Extra {
			out.Extra[k] = val
		}
	}
	return out
}

// HasKeyword reports whether the keyword set already contains kw
// (case-insensitive membership, insertion order preserved elsewhere).
func (v *ListingView) HasKeyword(kw string) bool {
	for _, existing := range v.Keywords {
		if strings.EqualFold(existing, kw) {
			return true
		}
	}
	return false
}

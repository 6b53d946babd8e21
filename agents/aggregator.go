package agents

import (
	"sort"
	"strings"
)

const (
	maxTitleLength  = 200 // Amazon title limit
	maxBulletPoints = 5
	maxKeywords     = 20
)

// Precedence declares, per listing field, the one agent allowed to overwrite
// a value an earlier agent already populated. Fields absent from the map are
// strictly first-writer-wins.
type Precedence map[string]string

// Fold merges one agent result into a copy of the view. It is pure and
// deterministic: replaying the same ordered result sequence into a fresh
// view always produces an identical aggregate. Listing fields obey the
// precedence rule; everything else lands in the extension map.
func Fold(view *ListingView, result AgentResult, prec Precedence) *ListingView {
	out := view.Clone()
	if len(result.Payload) == 0 {
		return out
	}

	keys := make([]string, 0, len(result.Payload))
	for k := range result.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, field := range keys {
		value := result.Payload[field]
		switch field {
		case "title":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				if out.Title == "" || prec[field] == result.AgentName {
					out.Title = clampTitle(strings.TrimSpace(s))
				}
			}
		case "description":
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				if out.Description == "" || prec[field] == result.AgentName {
					out.Description = strings.TrimSpace(s)
				}
			}
		case "bullet_points":
			bullets := stringList(value)
			if len(bullets) > 0 {
				if len(out.BulletPoints) == 0 || prec[field] == result.AgentName {
					if len(bullets) > maxBulletPoints {
						bullets = bullets[:maxBulletPoints]
					}
					out.BulletPoints = bullets
				}
			}
		case "keywords":
			// Keyword set semantics: later agents extend, never replace.
			for _, kw := range stringList(value) {
				kw = strings.TrimSpace(kw)
				if kw == "" || out.HasKeyword(kw) {
					continue
				}
				if len(out.Keywords) >= maxKeywords {
					break
				}
				out.Keywords = append(out.Keywords, kw)
			}
		case "target_price":
			if f, ok := toFloat(value); ok && f > 0 {
				if out.TargetPrice == 0 || prec[field] == result.AgentName {
					out.TargetPrice = f
				}
			}
		case "confidence", "recommendations", "notes":
			// Result metadata, not listing content.
		default:
			if out.Extra == nil {
				out.Extra = make(map[string]any)
			}
			if _, exists := out.Extra[field]; !exists || prec[field] == result.AgentName {
				out.Extra[field] = value
			}
		}
	}
	return out
}

func clampTitle(title string) string {
	if len(title) <= maxTitleLength {
		return title
	}
	return title[:maxTitleLength-3] + "..."
}

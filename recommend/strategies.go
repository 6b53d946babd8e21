package recommend

import (
	"regexp"
	"strconv"
	"strings"

	"listingmaker/storage"
)

// Strategy turns one free-text recommendation into candidate field
// mutations for a listing. An empty map means no automatic change could be
// derived; that is a valid outcome, not an error.
type Strategy func(text string, l *storage.StoredListing) map[string]any

// Registry maps an originating agent name to its mutation strategy. It is
// built once at startup and read-only afterwards. Agent names the registry
// does not know resolve to nil: the conservative default is "no automatic
// change".
type Registry map[string]Strategy

// NewRegistry wires the known agent families. Aliases cover both the
// pipeline's canonical names and the looser names callers historically used.
func NewRegistry() Registry {
	r := Registry{}
	register := func(strategy Strategy, names ...string) {
		for _, name := range names {
			r[name] = strategy
		}
	}
	register(priceStrategy, "pricing_strategy", "pricing_agent", "pricing_strategy_agent")
	register(keywordStrategy, "seo_keywords", "seo_agent", "seo_visual_agent")
	register(titleStrategy, "content_writer", "content_agent", "marketing_review")
	register(descriptionStrategy, "description_writer", "product_description_agent")
	return r
}

// Lookup resolves a strategy by agent name, case-insensitively.
func (r Registry) Lookup(agentName string) Strategy {
	return r[strings.ToLower(strings.TrimSpace(agentName))]
}

var (
	priceRe    = regexp.MustCompile(`\$?\d+(?:\.\d{1,2})?`)
	brandRe    = regexp.MustCompile(`(?i)brand(?:\s+name)?\s+([A-Za-z0-9][\w-]*)`)
	titleRe    = regexp.MustCompile(`(?i)(?:change|set|update)\s+(?:the\s+)?title\s+to\s+"([^"]+)"`)
	quotedRe   = regexp.MustCompile(`"([^"]+)"`)
	keywordsRe = regexp.MustCompile(`(?i)keywords?\s*:\s*(.+)$`)
)

// priceStrategy extracts a concrete price from the text. Phrases with no
// number ("be more competitive") yield no change.
func priceStrategy(text string, l *storage.StoredListing) map[string]any {
	matches := priceRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	// The last number in the sentence is the proposed price ("adjust price
	// from 45.00 to 39.99").
	raw := strings.TrimPrefix(matches[len(matches)-1], "$")
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 {
		return nil
	}
	return map[string]any{"target_price": price}
}

// keywordStrategy pulls keyword phrases from "keywords: a, b, c" tails or
// quoted phrases and merges them into the existing set.
func keywordStrategy(text string, l *storage.StoredListing) map[string]any {
	var candidates []string
	if m := keywordsRe.FindStringSubmatch(text); m != nil {
		for _, kw := range strings.Split(m[1], ",") {
			candidates = append(candidates, strings.TrimSpace(kw))
		}
	} else {
		for _, m := range quotedRe.FindAllStringSubmatch(text, -1) {
			candidates = append(candidates, strings.TrimSpace(m[1]))
		}
	}
	// A brand mention routed to the SEO family mutates the title instead.
	if len(candidates) == 0 {
		return titleStrategy(text, l)
	}

	merged := append([]string(nil), l.Keywords...)
	changed := false
	for _, kw := range candidates {
		if kw == "" || containsFold(merged, kw) {
			continue
		}
		merged = append(merged, kw)
		changed = true
	}
	if !changed {
		return nil
	}
	if len(merged) > 15 {
		merged = merged[:15]
	}
	return map[string]any{"keywords": merged}
}

// titleStrategy handles explicit retitles (`change title to "..."`) and
// brand-prefix recommendations ("Add brand name TechPro ...").
func titleStrategy(text string, l *storage.StoredListing) map[string]any {
	if m := titleRe.FindStringSubmatch(text); m != nil {
		title := strings.TrimSpace(m[1])
		if title != "" {
			return map[string]any{"title": title}
		}
	}
	if m := brandRe.FindStringSubmatch(text); m != nil {
		brand := m[1]
		current := l.Title
		if current == "" {
			current = l.ProductName
		}
		if current == "" || strings.Contains(strings.ToLower(current), strings.ToLower(brand)) {
			return nil
		}
		return map[string]any{"title": brand + " " + current}
	}
	return nil
}

// descriptionStrategy appends quoted copy to the description. Without a
// concrete quoted addition there is nothing to apply automatically.
func descriptionStrategy(text string, l *storage.StoredListing) map[string]any {
	m := quotedRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	addition := strings.TrimSpace(m[1])
	if addition == "" || strings.Contains(l.Description, addition) {
		return nil
	}
	if l.Description == "" {
		return map[string]any{"description": addition}
	}
	return map[string]any{"description": l.Description + "\n\n" + addition}
}

func containsFold(items []string, target string) bool {
	for _, item := range items {
		if strings.EqualFold(item, target) {
			return true
		}
	}
	return false
}

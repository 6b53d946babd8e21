package recommend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"listingmaker/storage"
)

// Recommendation is one free-text suggestion attributed to the agent that
// produced it.
type Recommendation struct {
	AgentName string `json:"agent_name"`
	Text      string `json:"recommendation_text"`
	Index     int    `json:"recommendation_index,omitempty"`
}

// FieldChange reports one applied mutation.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Report is the structured outcome of one apply call. It is always
// returned, even when nothing changed.
type Report struct {
	Applied       bool                   `json:"applied"`
	UpdatedFields map[string]FieldChange `json:"updated_fields,omitempty"`
	Message       string                 `json:"message"`
	Version       int                    `json:"version,omitempty"`
}

// Applier translates recommendations into listing mutations. Applications
// against the same listing are serialized per listing; different listings
// proceed independently.
type Applier struct {
	store    *storage.Store
	registry Registry
	locks    sync.Map // listing ID -> *sync.Mutex
}

func NewApplier(store *storage.Store, registry Registry) *Applier {
	return &Applier{store: store, registry: registry}
}

func (a *Applier) lockFor(id string) *sync.Mutex {
	mu, _ := a.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Apply resolves each recommendation against the stored listing and writes
// the surviving mutations in one versioned save. Within one request, when
// two recommendations target the same field the later one wins; both are
// recorded in the audit trail. A version conflict on write is retried once
// against a fresh read; a second conflict is returned to the caller.
func (a *Applier) Apply(ctx context.Context, listingID string, recs []Recommendation) (*Report, error) {
	if len(recs) == 0 {
		return &Report{Applied: false, Message: "no recommendations supplied"}, nil
	}

	mu := a.lockFor(listingID)
	mu.Lock()
	defer mu.Unlock()

	report, err := a.attempt(ctx, listingID, recs)
	if errors.Is(err, storage.ErrVersionConflict) {
		log.Printf("⚠️ [RECOMMEND] Version conflict on listing %s, retrying with fresh read", listingID)
		report, err = a.attempt(ctx, listingID, recs)
	}
	return report, err
}

func (a *Applier) attempt(ctx context.Context, listingID string, recs []Recommendation) (*Report, error) {
	listing, err := a.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	expectedVersion := listing.Version

	// field -> winning value, in submission order so later wins.
	pending := map[string]any{}
	var auditEntries []storage.AuditEntry
	var skipped []string
	now := time.Now().UTC()

	for _, rec := range recs {
		strategy := a.registry.Lookup(rec.AgentName)
		if strategy == nil {
			log.Printf("ℹ️ [RECOMMEND] No strategy for agent %q, skipping", rec.AgentName)
			skipped = append(skipped, fmt.Sprintf("no mutation strategy for agent %q", rec.AgentName))
			continue
		}

		normText := normalizeRecommendation(rec.Text)
		if alreadyApplied(listing, rec.AgentName, normText) {
			log.Printf("ℹ️ [RECOMMEND] Recommendation already applied to %s, skipping: %s", listingID, rec.Text)
			skipped = append(skipped, "recommendation already applied")
			continue
		}

		mutations := strategy(rec.Text, listing)
		if len(mutations) == 0 {
			skipped = append(skipped, "no automatic change")
			continue
		}

		var touched []string
		for field, value := range mutations {
			if equalValue(currentValue(listing, field), value) {
				continue
			}
			pending[field] = value
			touched = append(touched, field)
		}
		if len(touched) == 0 {
			skipped = append(skipped, "listing already matches recommendation")
			continue
		}
		auditEntries = append(auditEntries, storage.AuditEntry{
			AgentName: rec.AgentName,
			Text:      normText,
			Fields:    touched,
			Timestamp: now,
		})
	}

	if len(pending) == 0 {
		msg := "no automatic change"
		if len(skipped) > 0 {
			msg = strings.Join(skipped, "; ")
		}
		return &Report{Applied: false, Message: msg, Version: listing.Version}, nil
	}

	updated := make(map[string]FieldChange, len(pending))
	for field, value := range pending {
		updated[field] = FieldChange{Old: currentValue(listing, field), New: value}
		setValue(listing, field, value)
	}
	listing.Audit = append(listing.Audit, auditEntries...)
	listing.Confidence = math.Min(1.0, listing.Confidence+0.02)

	if err := a.store.SaveListing(ctx, listing, expectedVersion); err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(updated))
	for field := range updated {
		fields = append(fields, field)
	}
	log.Printf("✅ [RECOMMEND] Applied %d recommendation(s) to %s: %v", len(auditEntries), listingID, fields)
	return &Report{
		Applied:       true,
		UpdatedFields: updated,
		Message:       fmt.Sprintf("updated %d field(s)", len(updated)),
		Version:       listing.Version,
	}, nil
}

// normalizeRecommendation makes idempotence checks robust to cosmetic
// differences: case, whitespace, trailing punctuation.
func normalizeRecommendation(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimRight(text, ".,;:!")
}

func alreadyApplied(l *storage.StoredListing, agentName, normText string) bool {
	for _, entry := range l.Audit {
		if strings.EqualFold(entry.AgentName, agentName) && entry.Text == normText {
			return true
		}
	}
	return false
}

func currentValue(l *storage.StoredListing, field string) any {
	switch field {
	case "title":
		return l.Title
	case "description":
		return l.Description
	case "target_price":
		return l.TargetPrice
	case "keywords":
		return l.Keywords
	case "bullet_points":
		return l.BulletPoints
	}
	if l.Extra != nil {
		return l.Extra[field]
	}
	return nil
}

func setValue(l *storage.StoredListing, field string, value any) {
	switch field {
	case "title":
		if s, ok := value.(string); ok {
			l.Title = s
		}
	case "description":
		if s, ok := value.(string); ok {
			l.Description = s
		}
	case "target_price":
		if f, ok := value.(float64); ok {
			l.TargetPrice = f
		}
	case "keywords":
		if kws, ok := value.([]string); ok {
			l.Keywords = kws
		}
	case "bullet_points":
		if bps, ok := value.([]string); ok {
			l.BulletPoints = bps
		}
	default:
		if l.Extra == nil {
			l.Extra = make(map[string]any)
		}
		l.Extra[field] = value
	}
}

func equalValue(a, b any) bool {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return av == bv
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av == bv
		}
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	}
	return false
}

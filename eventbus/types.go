package eventbus

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Event types published by the listing engine.
const (
	TypePipelineCompleted     = "listing.pipeline.completed"
	TypeRecommendationApplied = "listing.recommendation.applied"
)

// ListingEvent is the uniform event envelope published on the bus.
type ListingEvent struct {
	EventID   string         `json:"event_id"`
	Source    string         `json:"source"`
	Type      string         `json:"type"`
	ListingID string         `json:"listing_id"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewEvent builds a validated envelope for one listing lifecycle event.
func NewEvent(eventType, listingID string, metadata map[string]any) ListingEvent {
	now := time.Now()
	return ListingEvent{
		EventID:   NewEventID("evt_", now),
		Source:    "listingmaker",
		Type:      eventType,
		ListingID: listingID,
		Timestamp: now.UTC(),
		Metadata:  metadata,
	}
}

// NewEventID generates a compact unique event id with a date prefix.
func NewEventID(prefix string, t time.Time) string {
	// 8 random bytes -> 16 hex chars
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + t.UTC().Format("20060102") + "_" + hex.EncodeToString(b)
}

// MinimalValidate checks required fields.
func (e *ListingEvent) MinimalValidate() bool {
	return e.EventID != "" && e.Source != "" && e.Type != "" && !e.Timestamp.IsZero()
}

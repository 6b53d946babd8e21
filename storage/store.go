package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"listingmaker/agents"
)

var (
	// ErrNotFound is returned when no listing exists under the given ID.
	ErrNotFound = errors.New("listing not found")
	// ErrVersionConflict signals an optimistic-concurrency violation: the
	// stored version moved past the caller's expected version.
	ErrVersionConflict = errors.New("listing version conflict")
)

// AuditEntry records one applied recommendation for idempotence checks.
type AuditEntry struct {
	AgentName string    `json:"agent_name"`
	Text      string    `json:"text"`
	Fields    []string  `json:"fields"`
	Timestamp time.Time `json:"timestamp"`
}

// StoredListing is the durable listing entity. Every successful mutation
// increments Version; writers must pass the version they read.
type StoredListing struct {
	ID           string               `json:"id"`
	ProductName  string               `json:"product_name,omitempty"`
	Title        string               `json:"title,omitempty"`
	Description  string               `json:"description,omitempty"`
	BulletPoints []string             `json:"bullet_points,omitempty"`
	Keywords     []string             `json:"keywords,omitempty"`
	TargetPrice  float64              `json:"target_price,omitempty"`
	Extra        map[string]any       `json:"extra,omitempty"`
	Confidence   float64              `json:"confidence"`
	Status       string               `json:"status,omitempty"`
	AgentResults []agents.AgentResult `json:"agent_results,omitempty"`
	Version      int                  `json:"version"`
	Audit        []AuditEntry         `json:"audit,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Store persists listings as JSON blobs in Redis with a per-key optimistic
// version check on writes.
type Store struct {
	redis  *redis.Client
	prefix string
}

func NewStore(client *redis.Client) *Store {
	return &Store{redis: client, prefix: "listing:"}
}

func (s *Store) key(id string) string { return s.prefix + id }

// CreateListing persists a new listing at version 1 and assigns an ID when
// the caller did not set one.
func (s *Store) CreateListing(ctx context.Context, l *StoredListing) error {
	if l.ID == "" {
		l.ID = NewListingID()
	}
	now := time.Now().UTC()
	l.Version = 1
	l.CreatedAt = now
	l.UpdatedAt = now

	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("failed to marshal listing: %v", err)
	}
	if err := s.redis.Set(ctx, s.key(l.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store listing %s: %v", l.ID, err)
	}
	log.Printf("💾 [STORE] Created listing %s (version 1)", l.ID)
	return nil
}

// GetListing loads one listing by ID.
func (s *Store) GetListing(ctx context.Context, id string) (*StoredListing, error) {
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %s: %v", id, err)
	}
	var l StoredListing
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to decode listing %s: %v", id, err)
	}
	return &l, nil
}

// SaveListing writes a mutated listing under an optimistic version check: if
// the stored version no longer equals expectedVersion (or the key changed
// mid-transaction) the write fails with ErrVersionConflict and the caller
// must re-read. On success the listing's version is expectedVersion+1.
func (s *Store) SaveListing(ctx context.Context, l *StoredListing, expectedVersion int) error {
	key := s.key(l.ID)

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var current StoredListing
		if err := json.Unmarshal(data, &current); err != nil {
			return fmt.Errorf("failed to decode stored listing %s: %v", l.ID, err)
		}
		if current.Version != expectedVersion {
			return ErrVersionConflict
		}

		l.Version = expectedVersion + 1
		l.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("failed to marshal listing %s: %v", l.ID, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		return err
	}, key)

	if err == redis.TxFailedErr {
		// Another writer touched the key between read and write.
		return ErrVersionConflict
	}
	if err != nil {
		return err
	}
	log.Printf("💾 [STORE] Saved listing %s (version %d)", l.ID, l.Version)
	return nil
}

// NewListingID generates a random hex identifier.
func NewListingID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("lst_%d", time.Now().UnixNano())
	}
	return "lst_" + hex.EncodeToString(b)
}

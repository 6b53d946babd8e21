package recommend

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingmaker/storage"
)

func newTestApplier(t *testing.T) (*Applier, *storage.Store, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	store := storage.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return NewApplier(store, NewRegistry()), store, func() { mr.Close() }
}

func seedListing(t *testing.T, store *storage.Store) *storage.StoredListing {
	t.Helper()
	l := &storage.StoredListing{
		ProductName: "Wireless Mouse",
		Title:       "Wireless Mouse - Ergonomic",
		Description: "A comfortable wireless mouse.",
		TargetPrice: 45.0,
		Keywords:    []string{"mouse", "wireless"},
		Confidence:  0.7,
	}
	require.NoError(t, store.CreateListing(context.Background(), l))
	return l
}

func TestApplyPriceRecommendation(t *testing.T) {
	applier, store, cleanup := newTestApplier(t)
	defer cleanup()
	ctx := context.Background()
	l := seedListing(t, store)

	report, err := applier.Apply(ctx, l.ID, []Recommendation{
		{AgentName: "pricing_agent", Text: "Adjust price to 39.99"},
	})
	require.NoError(t, err)

	assert.True(t, report.Applied)
	require.Contains(t, report.UpdatedFields, "target_price")
	assert.Equal(t, 45.0, report.UpdatedFields["target_price"].Old)
	assert.Equal(t, 39.99, report.UpdatedFields["target_price"].New)
	assert.Equal(t, 2, report.Version)

	stored, err := store.GetListing(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, 39.99, stored.TargetPrice)
	assert.Equal(t, 2, stored.Version)
	require.Len(t, stored.Audit, 1)
	assert.Equal(t, "pricing_agent", stored.Audit[0].AgentName)
	assert.Equal(t, []string{"target_price"}, stored.Audit[0].Fields)
}

func TestApplyIsIdempotent(t *testing.T) {
	applier, store, cleanup := newTestApplier(t)
	defer cleanup()
	ctx := context.Background()
	l := seedListing(t, store)

	recs := []Recommendation{{AgentName: "pricing_agent", Text: "Adjust price to 39.99"}}
	first, err := applier.Apply(ctx, l.ID, recs)
	require.NoError(t, err)
	assert.True(t, first.Applied)

	// Same agent and text again, including cosmetic differences.
	second, err := applier.Apply(ctx, l.ID, []Recommendation{
		{AgentName: "pricing_agent", Text: "  adjust PRICE to 39.99. "},
	})
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Empty(t, second.UpdatedFields)

	stored, _ := store.GetListing(ctx, l.ID)
	assert.Equal(t, 2, stored.Version, "second apply must not bump the version")
	assert.Len(t, stored.Audit, 1)
}

// Two recommendations in one request targeting the same field: the later one
// wins, but both land in the audit trail.
func TestApplyConflictLaterWins(t *testing.T) {
	applier, store, cleanup := newTestApplier(t)
	defer cleanup()
	ctx := context.Background()
	l := seedListing(t, store)

	report, err := applier.Apply(ctx, l.ID, []Recommendation{
		{AgentName: "pricing_agent", Text: "Set price at 42.00"},
		{AgentName: "pricing_strategy", Text: "Adjust price to 39.99"},
	})
	require.NoError(t, err)

	assert.True(t, report.Applied)
	assert.Equal(t, 39.99, report.UpdatedFields["target_price"].New)

	stored, _ := store.GetListing(ctx, l.ID)
	assert.Equal(t, 39.99, stored.TargetPrice)
	assert.Len(t, stored.Audit, 2)
}

func TestApplyBrandRecommendation(t *testing.T) {
	applier, store, cleanup := newTestApplier(t)
	defer cleanup()
	ctx := context.Background()
	l := seedListing(t, store)

	report, err := applier.Apply(ctx, l.ID, []Recommendation{
		{AgentName: "seo_visual_agent", Text: "Add brand name TechPro to improve discoverability"},
	})
	require.NoError(t, err)

	assert.True(t, report.Applied)
	stored, _ := store.GetListing(ctx, l.ID)
	assert.Equal(t, "TechPro Wireless Mouse - Ergonomic", stored.Title)
}

func TestApplyKeywordListRecommendation(t *testing.T) {
	applier, store, cleanup := newTestApplier(t)
	defer cleanup()
	ctx := context.Background()
	l := seedListing(t, store)

	report, err := applier.Apply(ctx, l.ID, []Recommendation{
		{AgentName: "seo_agent", Text: "Add backend keywords: ergonomic, office, rechargeable"},
	})
	require.NoError(t, err)

	assert.True(t, report.Applied)
	stored, _ := store.GetListing(ctx, l.ID)
	assert.Equal(t, []string{"mouse", "wireless", "ergonomic", "office", "rechargeable"}, stored.Keywords)
}

func TestApplyUnrecognizedAgentIsNoOp(t *testing.T) {
	applier, store, cleanup := newTestApplier(t)
	defer cleanup()
	ctx := context.Background()
	l := seedListing(t, store)

	report, err := applier.Apply(ctx, l.ID, []Recommendation{
		{AgentName: "mystery_agent", Text: "Adjust price to 1.00"},
	})
	require.NoError(t, err)

	assert.False(t, report.Applied)
	assert.Contains(t, report.Message, "no mutation strategy")

	stored, _ := store.GetListing(ctx, l.ID)
	assert.Equal(t, 45.0, stored.TargetPrice)
	assert.Equal(t, 1, stored.Version)
}

func TestApplyVagueTextIsNoOp(t *testing.T) {
	applier, store, cleanup := newTestApplier(t)
	defer cleanup()
	ctx := context.Background()
	l := seedListing(t, store)

	report, err := applier.Apply(ctx, l.ID, []Recommendation{
		{AgentName: "pricing_agent", Text: "Adjust price to be more competitive in the market"},
	})
	require.NoError(t, err)

	assert.False(t, report.Applied)
	assert.Contains(t, report.Message, "no automatic change")

	stored, _ := store.GetListing(ctx, l.ID)
	assert.Equal(t, 1, stored.Version)
}

func TestApplyMissingListing(t *testing.T) {
	applier, _, cleanup := newTestApplier(t)
	defer cleanup()

	_, err := applier.Apply(context.Background(), "missing", []Recommendation{
		{AgentName: "pricing_agent", Text: "Adjust price to 9.99"},
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestApplyBumpsConfidenceSlightly(t *testing.T) {
	applier, store, cleanup := newTestApplier(t)
	defer cleanup()
	ctx := context.Background()
	l := seedListing(t, store)

	_, err := applier.Apply(ctx, l.ID, []Recommendation{
		{AgentName: "pricing_agent", Text: "Adjust price to 39.99"},
	})
	require.NoError(t, err)

	stored, _ := store.GetListing(ctx, l.ID)
	assert.InDelta(t, 0.72, stored.Confidence, 1e-9)
}

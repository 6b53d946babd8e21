package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"listingmaker/agents"
	"listingmaker/llm"
	"listingmaker/recommend"
	"listingmaker/storage"
)

// newTestServer wires an APIServer to an in-memory redis and a mock model.
func newTestServer(t *testing.T) (*APIServer, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	cleanup := func() { mr.Close() }

	mock := llm.NewMockModel()
	mock.Responses["marketplace copywriter"] = `{"title": "Wireless Mouse - Ergonomic Comfort", "bullet_points": ["All-day comfort", "6-month battery"], "confidence": 0.8}`
	mock.Responses["description specialist"] = `{"description": "A comfortable wireless mouse for long workdays.", "confidence": 0.75}`
	mock.Responses["pricing strategist"] = `{"target_price": 45.0, "confidence": 0.7}`
	mock.Responses["SEO specialist"] = `{"keywords": ["wireless mouse", "ergonomic"], "confidence": 0.7, "recommendations": ["Add keywords: office, rechargeable"]}`
	mock.Responses["product analyst"] = `{"product_summary": "An ergonomic wireless mouse.", "confidence": 0.8}`
	mock.Responses["marketing reviewer"] = `{"review_score": 8, "confidence": 0.7, "recommendations": ["Adjust price to 39.99"]}`

	pipeline, err := agents.DefaultPipeline(mock)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}

	store := storage.NewStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	applier := recommend.NewApplier(store, recommend.NewRegistry())

	// No event bus during tests.
	s := NewAPIServer(pipeline, store, applier, nil, nil)
	return s, cleanup
}

func postJSON(t *testing.T, s *APIServer, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestGenerateAndFetchListing(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	product := agents.ProductInput{
		ProductName:      "Wireless Mouse",
		Category:         "electronics",
		TargetPrice:      49.0,
		ValueProposition: "All-day comfort without cables",
	}
	rec := postJSON(t, s, "/api/v1/listings", product)
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status=%d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ListingID         string               `json:"listing_id"`
		ListingView       agents.ListingView   `json:"listing_view"`
		AgentResults      []agents.AgentResult `json:"agent_results"`
		OverallConfidence float64              `json:"overall_confidence"`
		PipelineStatus    string               `json:"pipeline_status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PipelineStatus != string(agents.PipelineCompleted) {
		t.Fatalf("expected completed pipeline, got %s", resp.PipelineStatus)
	}
	if resp.ListingView.Title != "Wireless Mouse - Ergonomic Comfort" {
		t.Fatalf("unexpected title: %q", resp.ListingView.Title)
	}
	if resp.ListingView.TargetPrice != 45.0 {
		t.Fatalf("unexpected price: %v", resp.ListingView.TargetPrice)
	}
	if len(resp.AgentResults) != 6 {
		t.Fatalf("expected 6 agent results, got %d", len(resp.AgentResults))
	}

	// Stored listing must be retrievable at version 1.
	req := httptest.NewRequest("GET", "/api/v1/listings/"+resp.ListingID, nil)
	getRec := httptest.NewRecorder()
	s.Router().ServeHTTP(getRec, req)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status=%d", getRec.Code)
	}
	var stored storage.StoredListing
	if err := json.Unmarshal(getRec.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode stored: %v", err)
	}
	if stored.Version != 1 {
		t.Fatalf("expected version 1, got %d", stored.Version)
	}
}

func TestGenerateRequiresProductName(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	rec := postJSON(t, s, "/api/v1/listings", map[string]string{"category": "misc"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestApplyRecommendationEndpoint(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	rec := postJSON(t, s, "/api/v1/listings", agents.ProductInput{ProductName: "Wireless Mouse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate status=%d", rec.Code)
	}
	var created struct {
		ListingID string `json:"listing_id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	apply := postJSON(t, s, "/api/v1/listings/"+created.ListingID+"/recommendations", map[string]string{
		"agent_name":          "pricing_agent",
		"recommendation_text": "Adjust price to 39.99",
	})
	if apply.Code != http.StatusOK {
		t.Fatalf("apply status=%d body=%s", apply.Code, apply.Body.String())
	}
	var report recommend.Report
	if err := json.Unmarshal(apply.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Applied {
		t.Fatalf("expected recommendation to apply: %+v", report)
	}
	change, ok := report.UpdatedFields["target_price"]
	if !ok {
		t.Fatalf("expected target_price change, got %+v", report.UpdatedFields)
	}
	if change.New != 39.99 {
		t.Fatalf("expected new price 39.99, got %v", change.New)
	}

	// Re-applying the identical recommendation is a no-op.
	again := postJSON(t, s, "/api/v1/listings/"+created.ListingID+"/recommendations", map[string]string{
		"agent_name":          "pricing_agent",
		"recommendation_text": "Adjust price to 39.99",
	})
	if again.Code != http.StatusOK {
		t.Fatalf("second apply status=%d", again.Code)
	}
	var second recommend.Report
	_ = json.Unmarshal(again.Body.Bytes(), &second)
	if second.Applied {
		t.Fatalf("expected idempotent no-op, got %+v", second)
	}
}

func TestApplyRecommendationUnknownListing(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	rec := postJSON(t, s, "/api/v1/listings/nope/recommendations", map[string]string{
		"agent_name":          "pricing_agent",
		"recommendation_text": "Adjust price to 9.99",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s, cleanup := newTestServer(t)
	defer cleanup()

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status=%d", rec.Code)
	}
}

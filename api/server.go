package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"listingmaker/agents"
	"listingmaker/eventbus"
	"listingmaker/recommend"
	"listingmaker/storage"
)

// ModelProber is the slice of the model client the health endpoint needs.
type ModelProber interface {
	Ping(ctx context.Context) error
}

// APIServer exposes the pipeline-invocation and recommendation boundaries
// over HTTP.
type APIServer struct {
	router   *mux.Router
	pipeline *agents.Pipeline
	store    *storage.Store
	applier  *recommend.Applier
	eventBus *eventbus.NATSBus
	model    ModelProber
}

func NewAPIServer(pipeline *agents.Pipeline, store *storage.Store, applier *recommend.Applier, bus *eventbus.NATSBus, model ModelProber) *APIServer {
	s := &APIServer{
		router:   mux.NewRouter(),
		pipeline: pipeline,
		store:    store,
		applier:  applier,
		eventBus: bus,
		model:    model,
	}
	s.setupRoutes()
	return s
}

func (s *APIServer) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/api/v1/listings", s.handleGenerateListing).Methods("POST")
	s.router.HandleFunc("/api/v1/listings/{id}", s.handleGetListing).Methods("GET")
	s.router.HandleFunc("/api/v1/listings/{id}/recommendations", s.handleApplyRecommendation).Methods("POST")
}

// Router exposes the configured router, mainly for tests.
func (s *APIServer) Router() http.Handler { return s.router }

// Start blocks serving HTTP on addr.
func (s *APIServer) Start(addr string) error {
	log.Printf("🚀 [API] Listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok", "time": time.Now().UTC()}
	if s.model != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.model.Ping(ctx); err != nil {
			status["model"] = fmt.Sprintf("unavailable: %v", err)
		} else {
			status["model"] = "available"
		}
	}
	s.writeJSON(w, http.StatusOK, status)
}

// handleGenerateListing runs the agent pipeline against the product intake
// and persists the consolidated listing. A partially completed pipeline
// still yields a usable, persisted listing.
func (s *APIServer) handleGenerateListing(w http.ResponseWriter, r *http.Request) {
	var product agents.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if product.ProductName == "" {
		s.writeError(w, http.StatusBadRequest, "product_name is required")
		return
	}

	output := s.pipeline.Run(r.Context(), product)

	listing := &storage.StoredListing{
		ProductName:  product.ProductName,
		Title:        output.View.Title,
		Description:  output.View.Description,
		BulletPoints: output.View.BulletPoints,
		Keywords:     output.View.Keywords,
		TargetPrice:  output.View.TargetPrice,
		Extra:        output.View.Extra,
		Confidence:   output.OverallConfidence,
		Status:       string(output.Status),
		AgentResults: output.Results,
	}
	if err := s.store.CreateListing(r.Context(), listing); err != nil {
		log.Printf("❌ [API] Failed to persist listing: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to persist listing")
		return
	}

	s.publishEvent(eventbus.TypePipelineCompleted, listing.ID, map[string]any{
		"pipeline_status":    output.Status,
		"overall_confidence": output.OverallConfidence,
	})

	s.writeJSON(w, http.StatusOK, map[string]any{
		"listing_id":         listing.ID,
		"listing_view":       output.View,
		"agent_results":      output.Results,
		"overall_confidence": output.OverallConfidence,
		"pipeline_status":    output.Status,
	})
}

func (s *APIServer) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	listing, err := s.store.GetListing(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, listing)
}

// applyRequest accepts either a single recommendation or a batch.
type applyRequest struct {
	AgentName       string                    `json:"agent_name"`
	Text            string                    `json:"recommendation_text"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
}

func (s *APIServer) handleApplyRecommendation(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	recs := req.Recommendations
	if len(recs) == 0 {
		if req.Text == "" {
			s.writeError(w, http.StatusBadRequest, "recommendation_text or recommendations is required")
			return
		}
		recs = []recommend.Recommendation{{AgentName: req.AgentName, Text: req.Text}}
	}

	report, err := s.applier.Apply(r.Context(), id, recs)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	if errors.Is(err, storage.ErrVersionConflict) {
		s.writeError(w, http.StatusConflict, "listing was modified concurrently, retry")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if report.Applied {
		s.publishEvent(eventbus.TypeRecommendationApplied, id, map[string]any{
			"updated_fields": report.UpdatedFields,
			"version":        report.Version,
		})
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *APIServer) publishEvent(eventType, listingID string, metadata map[string]any) {
	if s.eventBus == nil {
		return
	}
	evt := eventbus.NewEvent(eventType, listingID, metadata)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.eventBus.Publish(ctx, evt); err != nil {
		log.Printf("⚠️ [API] Failed to publish %s event: %v", eventType, err)
	}
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

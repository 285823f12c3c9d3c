// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

// Package api exposes the HTTP surface: availability lookups, compatibility
// scoring, recommendation ranking, and training status.
package api

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/streamfinder/internal/availability"
	"github.com/tomtom215/streamfinder/internal/embedding"
	"github.com/tomtom215/streamfinder/internal/monetize"
	"github.com/tomtom215/streamfinder/internal/recommend"
)

// Handler holds the service collaborators behind the HTTP surface.
type Handler struct {
	embeddings *embedding.Service
	scorer     embedding.Scorer
	aggregator *availability.Aggregator
	linker     *monetize.Linker
	trainer    *recommend.Trainer
	startedAt  time.Time
}

// NewHandler wires the HTTP handlers to their collaborators.
func NewHandler(
	embeddings *embedding.Service,
	scorer embedding.Scorer,
	aggregator *availability.Aggregator,
	linker *monetize.Linker,
	trainer *recommend.Trainer,
) *Handler {
	return &Handler{
		embeddings: embeddings,
		scorer:     scorer,
		aggregator: aggregator,
		linker:     linker,
		trainer:    trainer,
		startedAt:  time.Now(),
	}
}

// Health reports liveness plus basic runtime facts.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondData(w, map[string]any{
		"status":        "ok",
		"uptime":        time.Since(h.startedAt).String(),
		"encoder":       h.embeddings.EncoderName(),
		"scorer":        h.scorer.Name(),
		"model_version": h.embeddings.ModelVersion(),
	})
}

// Availability returns the aggregated availability for one title.
// Query parameters: title, media_type, external_id, user_id (enables
// affiliate links), plus optional filter parameters handled by the filter
// endpoint.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	req := availability.Request{
		TitleID:    chi.URLParam(r, "titleID"),
		Title:      r.URL.Query().Get("title"),
		MediaType:  r.URL.Query().Get("media_type"),
		ExternalID: r.URL.Query().Get("external_id"),
	}

	agg, err := h.aggregator.Lookup(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if userID := r.URL.Query().Get("user_id"); userID != "" {
		agg = h.linker.Monetize(agg, userID)
	}
	respondData(w, agg)
}

// filterRequest is the body for a filtered availability lookup.
type filterRequest struct {
	TitleID     string                   `json:"title_id"`
	Title       string                   `json:"title,omitempty"`
	MediaType   string                   `json:"media_type,omitempty"`
	ExternalID  string                   `json:"external_id,omitempty"`
	UserID      string                   `json:"user_id,omitempty"`
	Preferences availability.Preferences `json:"preferences"`
}

// FilteredAvailability aggregates a title and applies the caller's platform
// preferences. The cached aggregate stays untouched; the response is a
// filtered copy.
func (h *Handler) FilteredAvailability(w http.ResponseWriter, r *http.Request) {
	var body filterRequest
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	agg, err := h.aggregator.Lookup(r.Context(), availability.Request{
		TitleID:    body.TitleID,
		Title:      body.Title,
		MediaType:  body.MediaType,
		ExternalID: body.ExternalID,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	filtered := body.Preferences.Apply(agg)
	if body.UserID != "" {
		filtered = h.linker.Monetize(filtered, body.UserID)
	}
	respondData(w, filtered)
}

// batchRequest is the body for a multi-title availability lookup.
type batchRequest struct {
	Titles []availability.Request `json:"titles"`
}

// BatchAvailability aggregates many titles with rate-limit-aware batching.
func (h *Handler) BatchAvailability(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if len(body.Titles) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_body", "titles list is empty")
		return
	}

	aggs, err := h.aggregator.BatchLookup(r.Context(), body.Titles)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "batch_failed", err.Error())
		return
	}
	respondData(w, aggs)
}

// scoreRequest is the body for a compatibility score computation.
type scoreRequest struct {
	User    embedding.UserProfile    `json:"user"`
	Content embedding.ContentProfile `json:"content"`
}

// scoreResponse is one scored user-content pair.
type scoreResponse struct {
	UserID    string  `json:"user_id"`
	ContentID string  `json:"content_id"`
	Score     float64 `json:"score"`
	Scorer    string  `json:"scorer"`
}

// Score computes the compatibility score for one user-content pair.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var body scoreRequest
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	ue, err := h.embeddings.EmbedUser(&body.User)
	if err != nil {
		respondEmbedError(w, err)
		return
	}
	ce, err := h.embeddings.EmbedContent(&body.Content)
	if err != nil {
		respondEmbedError(w, err)
		return
	}

	respondData(w, scoreResponse{
		UserID:    body.User.ID,
		ContentID: body.Content.ID,
		Score:     h.scorer.Score(ue, ce),
		Scorer:    h.scorer.Name(),
	})
}

// recommendRequest is the body for ranking a candidate set for one user.
type recommendRequest struct {
	User       embedding.UserProfile      `json:"user"`
	Candidates []embedding.ContentProfile `json:"candidates"`
	Limit      int                        `json:"limit,omitempty"`
}

// rankedItem is one entry in a ranked recommendation response.
type rankedItem struct {
	ContentID string  `json:"content_id"`
	Score     float64 `json:"score"`

	// Predicted is the factor-model rating prediction, present once a
	// trained model exists and knows the item.
	Predicted *float64 `json:"predicted_rating,omitempty"`
}

// Recommend ranks a candidate content set for a user by compatibility
// score, annotating each entry with the factor model's rating prediction
// when one is available.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var body recommendRequest
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	if len(body.Candidates) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_body", "candidates list is empty")
		return
	}

	ue, err := h.embeddings.EmbedUser(&body.User)
	if err != nil {
		respondEmbedError(w, err)
		return
	}

	model := h.trainer.Model()
	ranked := make([]rankedItem, 0, len(body.Candidates))

	for i := range body.Candidates {
		c := &body.Candidates[i]
		ce, err := h.embeddings.EmbedContent(c)
		if err != nil {
			respondEmbedError(w, err)
			return
		}

		item := rankedItem{ContentID: c.ID, Score: h.scorer.Score(ue, ce)}
		if model != nil && model.HasItem(c.ID) {
			pred := model.Predict(body.User.ID, c.ID)
			item.Predicted = &pred
		}
		ranked = append(ranked, item)
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if body.Limit > 0 && body.Limit < len(ranked) {
		ranked = ranked[:body.Limit]
	}
	respondData(w, ranked)
}

// trainRequest is the body for a training run.
type trainRequest struct {
	Ratings []recommend.Rating `json:"ratings"`
	Users   []string           `json:"users,omitempty"`
	Items   []string           `json:"items,omitempty"`
}

// Train runs a synchronous ALS training pass over the submitted rating
// snapshot and returns the new model's summary.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	var body trainRequest
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	model, err := h.trainer.Train(r.Context(), body.Ratings, body.Users, body.Items)
	if err != nil {
		respondError(w, http.StatusConflict, "training_failed", err.Error())
		return
	}
	respondData(w, model)
}

// TrainingStatus reports the trainer's current state.
func (h *Handler) TrainingStatus(w http.ResponseWriter, _ *http.Request) {
	respondData(w, h.trainer.Status())
}

// respondEmbedError maps embedding failures onto HTTP statuses. A missing
// identifier is a caller error; anything else is internal.
func respondEmbedError(w http.ResponseWriter, err error) {
	if errors.Is(err, embedding.ErrMissingID) {
		respondError(w, http.StatusBadRequest, "missing_id", err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "embedding_failed", err.Error())
}

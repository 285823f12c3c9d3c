// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

// Package embedding turns heterogeneous user and content attributes into
// fixed-length numeric vectors and scores user-content affinity.
//
// The generator runs one of two strategies chosen at startup: a learned
// encoder loaded from a model file, or a closed-form feature-engineering
// fallback. Both produce identically shaped vectors. Composites are
// L2-normalized concatenations of the sub-embeddings and are cached keyed by
// (entity id, model version); bumping the model version invalidates every
// cached embedding.
package embedding

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/streamfinder/internal/cache"
	"github.com/tomtom215/streamfinder/internal/metrics"
)

// Service generates and caches user and content embeddings.
type Service struct {
	encoder Encoder
	cache   *cache.Cache
	version string
	logger  zerolog.Logger
}

// embedKey is the cache key payload: one entry per (entity, model version).
type embedKey struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// NewService creates an embedding service with the given encoding strategy.
// The cache is an injected collaborator so callers control its lifetime and
// tests stay isolated.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewService(enc Encoder, c *cache.Cache, modelVersion string, logger zerolog.Logger) *Service {
	return &Service{
		encoder: enc,
		cache:   c,
		version: modelVersion,
		logger:  logger.With().Str("component", "embedding").Logger(),
	}
}

// NewEncoder selects the encoding strategy once at startup. A nil or
// encoder-less model selects the closed-form fallback with a structured
// warning so operators can see the degraded path in the logs.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEncoder(model *ModelFile, logger zerolog.Logger) Encoder {
	if model != nil && model.Encoder != nil {
		logger.Info().Str("strategy", "learned").Msg("embedding encoder ready")
		return NewLearnedEncoder(model.Encoder)
	}

	logger.Warn().Str("strategy", "closed-form").
		Msg("encoder model unavailable, using closed-form fallback")
	metrics.FallbackUsage.WithLabelValues("encoder").Inc()
	return NewClosedFormEncoder()
}

// ModelVersion returns the active embedding model version.
func (s *Service) ModelVersion() string { return s.version }

// EncoderName returns the active encoding strategy name.
func (s *Service) EncoderName() string { return s.encoder.Name() }

// EmbedUser generates the embedding for a user profile. A cache hit returns
// the prior object unchanged (pure function semantics). The profile id is a
// hard precondition.
func (s *Service) EmbedUser(p *UserProfile) (*UserEmbedding, error) {
	if p == nil || p.ID == "" {
		return nil, ErrMissingID
	}

	key := cache.GenerateKey("embed:user", embedKey{ID: p.ID, Version: s.version})
	if cached, ok := s.cache.Get(key); ok {
		if emb, ok := cached.(*UserEmbedding); ok {
			metrics.EmbeddingCacheHits.WithLabelValues("user").Inc()
			return emb, nil
		}
	}

	genre, behavior, ctx := s.encoder.EncodeUser(p)

	emb := &UserEmbedding{
		ID:           p.ID,
		ModelVersion: s.version,
		Genre:        genre,
		Behavior:     behavior,
		Context:      ctx,
		Composite:    l2Normalize(concat(genre, behavior, ctx)),
	}

	s.cache.Set(key, emb)
	return emb, nil
}

// EmbedContent generates the embedding for a content profile. Semantics
// mirror EmbedUser.
func (s *Service) EmbedContent(p *ContentProfile) (*ContentEmbedding, error) {
	if p == nil || p.ID == "" {
		return nil, ErrMissingID
	}

	key := cache.GenerateKey("embed:content", embedKey{ID: p.ID, Version: s.version})
	if cached, ok := s.cache.Get(key); ok {
		if emb, ok := cached.(*ContentEmbedding); ok {
			metrics.EmbeddingCacheHits.WithLabelValues("content").Inc()
			return emb, nil
		}
	}

	genre, theme, quality := s.encoder.EncodeContent(p)

	emb := &ContentEmbedding{
		ID:           p.ID,
		ModelVersion: s.version,
		Genre:        genre,
		Theme:        theme,
		Quality:      quality,
		Composite:    l2Normalize(concat(genre, theme, quality)),
	}

	s.cache.Set(key, emb)
	return emb, nil
}

// concat joins sub-embeddings into one freshly allocated vector.
func concat(vecs ...[]float64) []float64 {
	total := 0
	for _, v := range vecs {
		total += len(v)
	}
	out := make([]float64, 0, total)
	for _, v := range vecs {
		out = append(out, v...)
	}
	return out
}

// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package embedding

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/streamfinder/internal/metrics"
)

// Scorer combines a user embedding and a content embedding into a single
// affinity score in [0, 1].
//
// Output contract: both implementations return a value in [0, 1]. The cosine
// fallback clamps negative similarity to 0 so downstream ranking always sees
// one bounded, comparable scale regardless of which strategy is active.
// Dimension mismatches and zero-length composites score 0.
type Scorer interface {
	Name() string
	Score(u *UserEmbedding, c *ContentEmbedding) float64
}

// CosineScorer is the fallback scoring strategy: cosine similarity between
// the two composite vectors, clamped to [0, 1].
type CosineScorer struct{}

// NewCosineScorer creates the fallback scorer.
func NewCosineScorer() *CosineScorer {
	return &CosineScorer{}
}

// Name returns the strategy identifier.
func (s *CosineScorer) Name() string { return "cosine" }

// Score computes clamped cosine similarity between the composites.
func (s *CosineScorer) Score(u *UserEmbedding, c *ContentEmbedding) float64 {
	if u == nil || c == nil {
		return 0
	}
	return clamp01(cosine(u.Composite, c.Composite))
}

// LearnedScorer evaluates the trained scalar affinity head over the
// concatenated composites, sigmoid-bounded to (0, 1).
type LearnedScorer struct {
	weights *ScorerWeights
}

// NewLearnedScorer creates a scorer from validated model weights.
func NewLearnedScorer(w *ScorerWeights) *LearnedScorer {
	return &LearnedScorer{weights: w}
}

// Name returns the strategy identifier.
func (s *LearnedScorer) Name() string { return "learned" }

// Score evaluates the trained head. Inputs that do not match the trained
// dimensionality score 0 rather than silently truncating.
func (s *LearnedScorer) Score(u *UserEmbedding, c *ContentEmbedding) float64 {
	if u == nil || c == nil {
		return 0
	}
	if len(u.Composite) == 0 || len(c.Composite) == 0 {
		return 0
	}
	if len(u.Composite)+len(c.Composite) != len(s.weights.Weights) {
		return 0
	}

	sum := s.weights.Bias
	for i, x := range u.Composite {
		sum += s.weights.Weights[i] * x
	}
	offset := len(u.Composite)
	for i, x := range c.Composite {
		sum += s.weights.Weights[offset+i] * x
	}
	return sigmoid(sum)
}

// NewScorer selects the scoring strategy once at startup. A nil or
// scorer-less model selects the cosine fallback with a structured warning.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewScorer(model *ModelFile, logger zerolog.Logger) Scorer {
	if model != nil && model.Scorer != nil {
		logger.Info().Str("strategy", "learned").Msg("compatibility scorer ready")
		return NewLearnedScorer(model.Scorer)
	}

	logger.Warn().Str("strategy", "cosine").
		Msg("scoring model unavailable, using cosine fallback")
	metrics.FallbackUsage.WithLabelValues("scorer").Inc()
	return NewCosineScorer()
}

// Interface compliance.
var (
	_ Scorer = (*CosineScorer)(nil)
	_ Scorer = (*LearnedScorer)(nil)
)

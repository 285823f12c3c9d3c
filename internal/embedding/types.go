// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package embedding

import "errors"

// Sub-embedding dimensions. Both the learned and the closed-form encoder
// produce vectors of exactly these sizes so downstream code is agnostic to
// which path ran.
const (
	GenreDim    = 8
	BehaviorDim = 7
	ContextDim  = 6
	ThemeDim    = 8
	QualityDim  = 5

	// UserCompositeDim and ContentCompositeDim are deliberately equal so the
	// cosine fallback scorer can compare composites directly.
	UserCompositeDim    = GenreDim + BehaviorDim + ContextDim
	ContentCompositeDim = GenreDim + ThemeDim + QualityDim
)

// ErrMissingID is returned when a profile lacks its required identifier.
// Missing optional fields get defaults instead; a missing identifier is a
// hard precondition failure.
var ErrMissingID = errors.New("embedding: profile identifier is required")

// BehaviorSignals captures a user's viewing behavior.
type BehaviorSignals struct {
	// CompletionRate is the fraction of started titles finished (0-1).
	CompletionRate float64 `json:"completion_rate"`

	// SkipRate is the fraction of titles skipped early (0-1).
	SkipRate float64 `json:"skip_rate"`

	// BingeIntensity categorizes session clustering: low, medium, high.
	BingeIntensity string `json:"binge_intensity"`

	// PreferredLength is the preferred episode/feature length in minutes.
	PreferredLength int `json:"preferred_length"`

	// WatchTimeTags are habitual watching slots ("late_night", "weekend").
	WatchTimeTags []string `json:"watch_time_tags"`

	// GenreDrift tracks per-genre affinity change over time. Positive values
	// mean growing interest.
	GenreDrift map[string]float64 `json:"genre_drift"`
}

// ContextSignals captures the situational context of a request.
type ContextSignals struct {
	Mood           string   `json:"mood"`
	TimeOfDay      string   `json:"time_of_day"`
	DayOfWeek      string   `json:"day_of_week"`
	Season         string   `json:"season"`
	RecentActivity []string `json:"recent_activity"`
}

// UserProfile is the raw input for user embedding generation.
// It is ephemeral input, not persisted by this package.
type UserProfile struct {
	ID       string          `json:"id"`
	Genres   []string        `json:"genres"`
	Behavior BehaviorSignals `json:"behavior"`
	Context  ContextSignals  `json:"context"`
}

// QualityMetrics captures catalog quality signals for a title.
type QualityMetrics struct {
	// Rating is the average rating on a 0-10 scale.
	Rating float64 `json:"rating"`

	// Popularity is normalized to 0-1.
	Popularity float64 `json:"popularity"`

	// VoteCount is the number of ratings behind Rating.
	VoteCount int `json:"vote_count"`
}

// ContentProfile is the raw input for content embedding generation.
type ContentProfile struct {
	ID       string         `json:"id"`
	Genres   []string       `json:"genres"`
	Overview string         `json:"overview"`
	Quality  QualityMetrics `json:"quality"`
}

// UserEmbedding holds a user's sub-embeddings and composite vector.
// Instances are immutable once built; cache hits return the prior object.
type UserEmbedding struct {
	ID           string    `json:"id"`
	ModelVersion string    `json:"model_version"`
	Genre        []float64 `json:"genre"`
	Behavior     []float64 `json:"behavior"`
	Context      []float64 `json:"context"`

	// Composite is the L2-normalized concatenation of the sub-embeddings.
	// A zero pre-normalization magnitude passes through as a zero vector.
	Composite []float64 `json:"composite"`
}

// ContentEmbedding holds a title's sub-embeddings and composite vector.
type ContentEmbedding struct {
	ID           string    `json:"id"`
	ModelVersion string    `json:"model_version"`
	Genre        []float64 `json:"genre"`
	Theme        []float64 `json:"theme"`
	Quality      []float64 `json:"quality"`
	Composite    []float64 `json:"composite"`
}

// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package embedding

// LearnedEncoder applies trained projection layers on top of the engineered
// features. Projections are square (dim x dim per sub-domain), so the learned
// path produces vectors of exactly the same shape as the closed-form path.
type LearnedEncoder struct {
	weights *EncoderWeights
}

// NewLearnedEncoder creates an encoder from validated model weights.
func NewLearnedEncoder(w *EncoderWeights) *LearnedEncoder {
	return &LearnedEncoder{weights: w}
}

// Name returns the strategy identifier.
func (e *LearnedEncoder) Name() string { return "learned" }

// EncodeUser projects the engineered user features through the trained layers.
func (e *LearnedEncoder) EncodeUser(p *UserProfile) (genre, behavior, ctx []float64) {
	genre = e.weights.UserGenre.apply(genreVector(p.Genres))
	behavior = e.weights.UserBehavior.apply(behaviorVector(&p.Behavior))
	ctx = e.weights.UserContext.apply(contextVector(&p.Context))
	return genre, behavior, ctx
}

// EncodeContent projects the engineered content features through the trained layers.
func (e *LearnedEncoder) EncodeContent(p *ContentProfile) (genre, theme, quality []float64) {
	genre = e.weights.ContentGenre.apply(genreVector(p.Genres))
	theme = e.weights.ContentTheme.apply(themeVector(p.Overview))
	quality = e.weights.ContentQuality.apply(qualityVector(&p.Quality))
	return genre, theme, quality
}

// Interface compliance.
var (
	_ Encoder = (*ClosedFormEncoder)(nil)
	_ Encoder = (*LearnedEncoder)(nil)
)

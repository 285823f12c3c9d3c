// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package embedding

import (
	"math"
	"strings"
)

// Encoder maps raw profile attributes into fixed-length sub-embeddings.
//
// Two implementations exist: the learned encoder (trained projection layers
// loaded from a model file) and the closed-form encoder (deterministic
// feature engineering). Both produce vectors of the declared dimensions so
// downstream code never branches on which path is active. The choice is made
// once at startup, not per call.
type Encoder interface {
	// Name identifies the encoding strategy ("learned" or "closed-form").
	Name() string

	// EncodeUser produces the genre, behavior and context sub-embeddings.
	EncodeUser(p *UserProfile) (genre, behavior, ctx []float64)

	// EncodeContent produces the genre, theme and quality sub-embeddings.
	EncodeContent(p *ContentProfile) (genre, theme, quality []float64)
}

// ClosedFormEncoder is the non-ML fallback path. Every transform is a pure
// function of the profile, so embedding generation stays deterministic and
// cache-friendly.
type ClosedFormEncoder struct{}

// NewClosedFormEncoder creates the feature-engineering encoder.
func NewClosedFormEncoder() *ClosedFormEncoder {
	return &ClosedFormEncoder{}
}

// Name returns the strategy identifier.
func (e *ClosedFormEncoder) Name() string { return "closed-form" }

// EncodeUser builds the user sub-embeddings from engineered features.
func (e *ClosedFormEncoder) EncodeUser(p *UserProfile) (genre, behavior, ctx []float64) {
	return genreVector(p.Genres), behaviorVector(&p.Behavior), contextVector(&p.Context)
}

// EncodeContent builds the content sub-embeddings from engineered features.
func (e *ClosedFormEncoder) EncodeContent(p *ContentProfile) (genre, theme, quality []float64) {
	return genreVector(p.Genres), themeVector(p.Overview), qualityVector(&p.Quality)
}

// genreVector encodes membership in the fixed genre vocabulary and folds the
// one-hot encoding down to GenreDim dimensions. Unknown labels are ignored.
func genreVector(genres []string) []float64 {
	v := make([]float64, GenreDim)

	matched := 0
	for _, g := range genres {
		idx, ok := genreIndex[strings.ToLower(strings.TrimSpace(g))]
		if !ok {
			continue
		}
		v[idx%GenreDim]++
		matched++
	}

	if matched > 0 {
		for i := range v {
			v[i] /= float64(matched)
		}
	}
	return v
}

// behaviorVector encodes viewing-behavior signals. Missing fields default to
// neutral values rather than erroring.
func behaviorVector(b *BehaviorSignals) []float64 {
	completion := clamp01(b.CompletionRate)
	skip := clamp01(b.SkipRate)

	// Preferred length normalized against a 2-hour feature.
	length := clamp01(float64(b.PreferredLength) / 120.0)

	// Diversity of habitual watching slots, saturating at 5 tags.
	diversity := clamp01(float64(len(b.WatchTimeTags)) / 5.0)

	// Engagement couples finishing with not skipping.
	engagement := completion * (1.0 - skip)

	// Mean absolute per-genre affinity drift, saturating at 1.
	var drift float64
	if len(b.GenreDrift) > 0 {
		for _, d := range b.GenreDrift {
			drift += math.Abs(d)
		}
		drift = clamp01(drift / float64(len(b.GenreDrift)))
	}

	return []float64{
		completion,
		skip,
		lookupSignal(bingeSignal, strings.ToLower(b.BingeIntensity)),
		length,
		diversity,
		engagement,
		drift,
	}
}

// contextVector encodes situational signals via fixed lookup tables.
// Values the tables do not know resolve to 0.5.
func contextVector(c *ContextSignals) []float64 {
	// Recency volume and diversity from the recent-activity tags.
	volume := clamp01(float64(len(c.RecentActivity)) / 10.0)

	unique := make(map[string]struct{}, len(c.RecentActivity))
	for _, tag := range c.RecentActivity {
		unique[strings.ToLower(tag)] = struct{}{}
	}
	var diversity float64
	if len(c.RecentActivity) > 0 {
		diversity = float64(len(unique)) / float64(len(c.RecentActivity))
	}

	return []float64{
		lookupSignal(moodSignal, strings.ToLower(c.Mood)),
		lookupSignal(timeOfDaySignal, strings.ToLower(c.TimeOfDay)),
		lookupSignal(dayOfWeekSignal, strings.ToLower(c.DayOfWeek)),
		lookupSignal(seasonSignal, strings.ToLower(c.Season)),
		volume,
		diversity,
	}
}

// themeVector scores a synopsis against the fixed keyword-to-theme table.
// Each theme score is the fraction of its keywords present in the text.
func themeVector(overview string) []float64 {
	v := make([]float64, ThemeDim)
	if overview == "" {
		return v
	}

	text := strings.ToLower(overview)
	for i, theme := range themeOrder {
		keywords := themeKeywords[theme]
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				matches++
			}
		}
		v[i] = float64(matches) / float64(len(keywords))
	}
	return v
}

// qualityVector encodes catalog quality metrics with high/low-quality flags.
func qualityVector(q *QualityMetrics) []float64 {
	rating := clamp01(q.Rating / 10.0)
	popularity := clamp01(q.Popularity)

	// Log-scaled vote count capped at 100k votes.
	votes := clamp01(math.Log1p(float64(q.VoteCount)) / math.Log1p(100000))

	var high, low float64
	if q.Rating >= 7.5 && q.VoteCount >= 100 {
		high = 1
	}
	if q.Rating > 0 && q.Rating <= 4.0 && q.VoteCount >= 50 {
		low = 1
	}

	return []float64{rating, popularity, votes, high, low}
}

// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package embedding

import (
	"fmt"
	"math"
	"os"

	"github.com/goccy/go-json"
)

// Layer holds a single trained projection: out = tanh(W*x + b).
type Layer struct {
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// apply runs the projection. The caller guarantees len(x) matches the layer
// input dimension (checked at load time).
func (l *Layer) apply(x []float64) []float64 {
	out := make([]float64, len(l.Weights))
	for i, row := range l.Weights {
		sum := l.Bias[i]
		for j, w := range row {
			sum += w * x[j]
		}
		out[i] = math.Tanh(sum)
	}
	return out
}

// validate checks the layer against expected input/output dimensions.
func (l *Layer) validate(name string, inDim, outDim int) error {
	if len(l.Weights) != outDim {
		return fmt.Errorf("layer %s: %d output rows, want %d", name, len(l.Weights), outDim)
	}
	if len(l.Bias) != outDim {
		return fmt.Errorf("layer %s: %d bias terms, want %d", name, len(l.Bias), outDim)
	}
	for i, row := range l.Weights {
		if len(row) != inDim {
			return fmt.Errorf("layer %s: row %d has %d columns, want %d", name, i, len(row), inDim)
		}
	}
	return nil
}

// EncoderWeights holds the trained per-sub-domain projection layers.
type EncoderWeights struct {
	UserGenre      Layer `json:"user_genre"`
	UserBehavior   Layer `json:"user_behavior"`
	UserContext    Layer `json:"user_context"`
	ContentGenre   Layer `json:"content_genre"`
	ContentTheme   Layer `json:"content_theme"`
	ContentQuality Layer `json:"content_quality"`
}

// ScorerWeights holds the trained scalar affinity head evaluated over the
// concatenated user and content composites.
type ScorerWeights struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// ModelFile is the on-disk format for trained embedding/scoring weights.
// Either section may be absent; absent sections fall back to closed-form.
type ModelFile struct {
	Version string          `json:"version"`
	Encoder *EncoderWeights `json:"encoder,omitempty"`
	Scorer  *ScorerWeights  `json:"scorer,omitempty"`
}

// LoadModel reads and validates a model file. A validation failure is an
// error rather than a partial load so a corrupt model never half-applies.
func LoadModel(path string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}

	var m ModelFile
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse model file: %w", err)
	}

	if m.Encoder != nil {
		checks := []struct {
			name  string
			layer *Layer
			dim   int
		}{
			{"user_genre", &m.Encoder.UserGenre, GenreDim},
			{"user_behavior", &m.Encoder.UserBehavior, BehaviorDim},
			{"user_context", &m.Encoder.UserContext, ContextDim},
			{"content_genre", &m.Encoder.ContentGenre, GenreDim},
			{"content_theme", &m.Encoder.ContentTheme, ThemeDim},
			{"content_quality", &m.Encoder.ContentQuality, QualityDim},
		}
		for _, c := range checks {
			if err := c.layer.validate(c.name, c.dim, c.dim); err != nil {
				return nil, fmt.Errorf("model file: %w", err)
			}
		}
	}

	if m.Scorer != nil {
		wantDim := UserCompositeDim + ContentCompositeDim
		if len(m.Scorer.Weights) != wantDim {
			return nil, fmt.Errorf("model file: scorer has %d weights, want %d",
				len(m.Scorer.Weights), wantDim)
		}
	}

	return &m, nil
}

// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package embedding

import (
	"math"
	"testing"
	"time"

	"github.com/tomtom215/streamfinder/internal/cache"
	"github.com/tomtom215/streamfinder/internal/logging"
)

func newTestService(t *testing.T, version string) *Service {
	t.Helper()
	c := cache.New(time.Minute)
	t.Cleanup(c.Close)
	return NewService(NewClosedFormEncoder(), c, version, logging.NewTestLogger())
}

func sampleUser() *UserProfile {
	return &UserProfile{
		ID:     "u1",
		Genres: []string{"drama", "thriller"},
		Behavior: BehaviorSignals{
			CompletionRate:  0.8,
			SkipRate:        0.1,
			BingeIntensity:  "high",
			PreferredLength: 45,
			WatchTimeTags:   []string{"late_night", "weekend"},
		},
		Context: ContextSignals{
			Mood:      "relaxed",
			TimeOfDay: "evening",
			DayOfWeek: "friday",
			Season:    "winter",
		},
	}
}

func sampleContent() *ContentProfile {
	return &ContentProfile{
		ID:       "c1",
		Genres:   []string{"drama"},
		Overview: "A family struggles through an emotional journey of loss.",
		Quality:  QualityMetrics{Rating: 8.2, Popularity: 0.7, VoteCount: 1500},
	}
}

func norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func TestEmbedUserCompositeNormalized(t *testing.T) {
	svc := newTestService(t, "v1")

	emb, err := svc.EmbedUser(sampleUser())
	if err != nil {
		t.Fatalf("EmbedUser() error = %v", err)
	}

	if len(emb.Composite) != UserCompositeDim {
		t.Errorf("composite dim = %d, want %d", len(emb.Composite), UserCompositeDim)
	}
	if n := norm(emb.Composite); math.Abs(n-1.0) > 1e-6 {
		t.Errorf("composite norm = %v, want 1.0", n)
	}
}

func TestEmbedContentCompositeNormalized(t *testing.T) {
	svc := newTestService(t, "v1")

	emb, err := svc.EmbedContent(sampleContent())
	if err != nil {
		t.Fatalf("EmbedContent() error = %v", err)
	}

	if len(emb.Composite) != ContentCompositeDim {
		t.Errorf("composite dim = %d, want %d", len(emb.Composite), ContentCompositeDim)
	}
	if n := norm(emb.Composite); math.Abs(n-1.0) > 1e-6 {
		t.Errorf("composite norm = %v, want 1.0", n)
	}
}

func TestEmbedContentZeroInputZeroComposite(t *testing.T) {
	svc := newTestService(t, "v1")

	// No genres, no overview, no quality signals: every sub-vector is zero
	// and normalization must pass the zero vector through unchanged.
	emb, err := svc.EmbedContent(&ContentProfile{ID: "empty"})
	if err != nil {
		t.Fatalf("EmbedContent() error = %v", err)
	}

	if n := norm(emb.Composite); n != 0 {
		t.Errorf("zero-input composite norm = %v, want 0", n)
	}
}

func TestEmbedMissingID(t *testing.T) {
	svc := newTestService(t, "v1")

	if _, err := svc.EmbedUser(&UserProfile{}); err != ErrMissingID {
		t.Errorf("EmbedUser(no id) error = %v, want ErrMissingID", err)
	}
	if _, err := svc.EmbedContent(nil); err != ErrMissingID {
		t.Errorf("EmbedContent(nil) error = %v, want ErrMissingID", err)
	}
}

func TestEmbedCacheReturnsSameObject(t *testing.T) {
	svc := newTestService(t, "v1")

	first, err := svc.EmbedUser(sampleUser())
	if err != nil {
		t.Fatalf("EmbedUser() error = %v", err)
	}
	second, err := svc.EmbedUser(sampleUser())
	if err != nil {
		t.Fatalf("EmbedUser() error = %v", err)
	}

	if first != second {
		t.Error("cache hit returned a different object")
	}
}

func TestEmbedCacheKeyedByModelVersion(t *testing.T) {
	c := cache.New(time.Minute)
	t.Cleanup(c.Close)

	v1 := NewService(NewClosedFormEncoder(), c, "v1", logging.NewTestLogger())
	v2 := NewService(NewClosedFormEncoder(), c, "v2", logging.NewTestLogger())

	a, err := v1.EmbedUser(sampleUser())
	if err != nil {
		t.Fatalf("EmbedUser() error = %v", err)
	}
	b, err := v2.EmbedUser(sampleUser())
	if err != nil {
		t.Fatalf("EmbedUser() error = %v", err)
	}

	if a == b {
		t.Error("different model versions shared a cache entry")
	}
	if b.ModelVersion != "v2" {
		t.Errorf("ModelVersion = %q, want v2", b.ModelVersion)
	}
}

func TestGenreVectorUnknownLabelsIgnored(t *testing.T) {
	v := genreVector([]string{"drama", "polka-documentary"})

	var sum float64
	for _, x := range v {
		sum += x
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("genre vector mass = %v, want 1.0 over the single matched label", sum)
	}
}

func TestGenreVectorAliasVariants(t *testing.T) {
	a := genreVector([]string{"sci-fi"})
	b := genreVector([]string{"science fiction"})

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("alias produced a different vector: %v vs %v", a, b)
		}
	}
}

func TestBehaviorVectorEngagement(t *testing.T) {
	b := &BehaviorSignals{CompletionRate: 0.8, SkipRate: 0.25}
	v := behaviorVector(b)

	want := 0.8 * (1 - 0.25)
	if math.Abs(v[5]-want) > 1e-9 {
		t.Errorf("engagement = %v, want %v", v[5], want)
	}
}

func TestContextVectorUnknownDefaults(t *testing.T) {
	v := contextVector(&ContextSignals{Mood: "bewildered", TimeOfDay: "brunch"})

	if v[0] != unknownSignal || v[1] != unknownSignal {
		t.Errorf("unknown context values = %v, %v, want %v defaults", v[0], v[1], unknownSignal)
	}
}

func TestThemeVectorKeywordFraction(t *testing.T) {
	v := themeVector("A detective follows a clue into a mystery.")

	// mystery theme: 3 of 6 keywords present.
	idx := -1
	for i, theme := range themeOrder {
		if theme == "mystery" {
			idx = i
		}
	}
	if math.Abs(v[idx]-0.5) > 1e-9 {
		t.Errorf("mystery score = %v, want 0.5", v[idx])
	}
}

func TestQualityVectorFlags(t *testing.T) {
	tests := []struct {
		name     string
		q        QualityMetrics
		wantHigh float64
		wantLow  float64
	}{
		{"acclaimed", QualityMetrics{Rating: 8.5, VoteCount: 5000}, 1, 0},
		{"panned", QualityMetrics{Rating: 2.5, VoteCount: 300}, 0, 1},
		{"unrated", QualityMetrics{}, 0, 0},
		{"good but obscure", QualityMetrics{Rating: 9.0, VoteCount: 10}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := qualityVector(&tt.q)
			if v[3] != tt.wantHigh || v[4] != tt.wantLow {
				t.Errorf("flags = %v, %v, want %v, %v", v[3], v[4], tt.wantHigh, tt.wantLow)
			}
		})
	}
}

func TestScoreSelfBeatsOrthogonal(t *testing.T) {
	scorer := NewCosineScorer()

	self := &UserEmbedding{Composite: make([]float64, UserCompositeDim)}
	self.Composite[0] = 1

	same := &ContentEmbedding{Composite: make([]float64, ContentCompositeDim)}
	same.Composite[0] = 1

	orthogonal := &ContentEmbedding{Composite: make([]float64, ContentCompositeDim)}
	orthogonal.Composite[1] = 1

	if s, o := scorer.Score(self, same), scorer.Score(self, orthogonal); s < o {
		t.Errorf("self score %v < orthogonal score %v", s, o)
	}
}

func TestCosineScorerClampsToUnitInterval(t *testing.T) {
	scorer := NewCosineScorer()

	u := &UserEmbedding{Composite: make([]float64, UserCompositeDim)}
	u.Composite[0] = 1
	opposite := &ContentEmbedding{Composite: make([]float64, ContentCompositeDim)}
	opposite.Composite[0] = -1

	if got := scorer.Score(u, opposite); got != 0 {
		t.Errorf("Score(opposite) = %v, want clamped to 0", got)
	}
}

func TestScorerZeroOnDimensionMismatch(t *testing.T) {
	u := &UserEmbedding{Composite: []float64{1, 0}}
	c := &ContentEmbedding{Composite: []float64{1, 0, 0}}

	if got := NewCosineScorer().Score(u, c); got != 0 {
		t.Errorf("cosine Score(mismatch) = %v, want 0", got)
	}

	learned := NewLearnedScorer(&ScorerWeights{Weights: make([]float64, 42)})
	if got := learned.Score(u, c); got != 0 {
		t.Errorf("learned Score(mismatch) = %v, want 0", got)
	}
}

func TestNewScorerFallsBackWithoutModel(t *testing.T) {
	s := NewScorer(nil, logging.NewTestLogger())
	if s.Name() != "cosine" {
		t.Errorf("scorer = %q, want cosine fallback without a model", s.Name())
	}
}

func TestNewEncoderFallsBackWithoutModel(t *testing.T) {
	e := NewEncoder(nil, logging.NewTestLogger())
	if e.Name() != "closed-form" {
		t.Errorf("encoder = %q, want closed-form fallback without a model", e.Name())
	}
}

func TestEncoderPathsProduceSameShape(t *testing.T) {
	closed := NewClosedFormEncoder()
	learned := NewLearnedEncoder(identityEncoderWeights())

	user := sampleUser()
	g1, b1, x1 := closed.EncodeUser(user)
	g2, b2, x2 := learned.EncodeUser(user)

	if len(g1) != len(g2) || len(b1) != len(b2) || len(x1) != len(x2) {
		t.Errorf("learned user dims (%d,%d,%d) differ from closed-form (%d,%d,%d)",
			len(g2), len(b2), len(x2), len(g1), len(b1), len(x1))
	}

	content := sampleContent()
	cg1, t1, q1 := closed.EncodeContent(content)
	cg2, t2, q2 := learned.EncodeContent(content)

	if len(cg1) != len(cg2) || len(t1) != len(t2) || len(q1) != len(q2) {
		t.Errorf("learned content dims (%d,%d,%d) differ from closed-form (%d,%d,%d)",
			len(cg2), len(t2), len(q2), len(cg1), len(t1), len(q1))
	}
}

// identityEncoderWeights builds square identity layers, enough to exercise
// shape guarantees.
func identityEncoderWeights() *EncoderWeights {
	layer := func(dim int) Layer {
		w := make([][]float64, dim)
		for i := range w {
			w[i] = make([]float64, dim)
			w[i][i] = 1
		}
		return Layer{Weights: w, Bias: make([]float64, dim)}
	}
	return &EncoderWeights{
		UserGenre:      layer(GenreDim),
		UserBehavior:   layer(BehaviorDim),
		UserContext:    layer(ContextDim),
		ContentGenre:   layer(GenreDim),
		ContentTheme:   layer(ThemeDim),
		ContentQuality: layer(QualityDim),
	}
}

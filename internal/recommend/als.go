// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

// Package recommend implements the offline matrix factorization engine.
//
// The engine factorizes a sparse explicit-feedback rating matrix via
// regularized alternating least squares with bias terms. Training is
// CPU-bound synchronous numeric work and is expected to run off the I/O
// path (a background goroutine or batch process).
package recommend

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/streamfinder/internal/metrics"
)

// observation is one observed cell from one side's perspective: the index of
// the entity on the other side and the rating value.
type observation struct {
	index int
	value float64
}

// rmseCheckEvery is the iteration interval for convergence checks.
const rmseCheckEvery = 10

// convergedChecks is how many consecutive small RMSE deltas stop training.
const convergedChecks = 3

// Config contains ALS training configuration.
type Config struct {
	// Factors is the latent dimension k. Typical range: 8-64.
	Factors int

	// Regularization is the L2 term added to each normal-equations diagonal.
	// It prevents overfitting and guarantees the systems stay invertible
	// even for entities with few (or zero) observations.
	Regularization float64

	// MaxIterations caps training when convergence is slow.
	MaxIterations int

	// RMSEThreshold is the |delta RMSE| below which a check counts as
	// converged.
	RMSEThreshold float64

	// Workers is the number of parallel workers for factor updates.
	Workers int

	// Seed makes factor initialization reproducible. Zero selects a default.
	Seed int64
}

// DefaultConfig returns default ALS configuration.
func DefaultConfig() Config {
	return Config{
		Factors:        16,
		Regularization: 0.05,
		MaxIterations:  200,
		RMSEThreshold:  1e-4,
		Workers:        4,
		Seed:           42,
	}
}

// Trainer runs ALS training and holds the current model. Training takes the
// exclusive lock; reads share it, matching how prediction traffic overlaps
// retraining.
type Trainer struct {
	config Config
	logger zerolog.Logger

	mu          sync.RWMutex
	model       *FactorModel
	version     int
	training    bool
	ratingCount int
	userCount   int
	itemCount   int
}

// NewTrainer creates an ALS trainer, applying defaults for zero values.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainer(cfg Config, logger zerolog.Logger) *Trainer {
	def := DefaultConfig()
	if cfg.Factors <= 0 {
		cfg.Factors = def.Factors
	}
	if cfg.Regularization <= 0 {
		cfg.Regularization = def.Regularization
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.RMSEThreshold <= 0 {
		cfg.RMSEThreshold = def.RMSEThreshold
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}

	return &Trainer{
		config: cfg,
		logger: logger.With().Str("component", "als").Logger(),
	}
}

// Model returns the current model, or nil before the first training run.
func (t *Trainer) Model() *FactorModel {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.model
}

// Status returns a snapshot of the trainer state.
func (t *Trainer) Status() TrainingStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	st := TrainingStatus{
		IsTraining:   t.training,
		ModelVersion: t.version,
		RatingCount:  t.ratingCount,
		UserCount:    t.userCount,
		ItemCount:    t.itemCount,
	}
	if t.model != nil {
		st.LastTrainedAt = t.model.TrainedAt
		st.LastRMSE = t.model.RMSE
		st.LastIteration = t.model.Iterations
	}
	return st
}

// Train fits a new FactorModel from a rating snapshot. The users and items
// slices may name entities with no observed ratings; those keep their
// near-zero initial factors and zero bias (the regularized diagonal keeps
// every system solvable). The returned model supersedes the previous one
// wholesale.
//
//nolint:gocyclo // training loops are inherently branchy
func (t *Trainer) Train(ctx context.Context, ratings []Rating, users, items []string) (*FactorModel, error) {
	start := time.Now()

	t.mu.Lock()
	if t.training {
		t.mu.Unlock()
		return nil, fmt.Errorf("als: training already in progress")
	}
	t.training = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.training = false
		t.mu.Unlock()
	}()

	userIndex, indexToUser := buildIndex(users, ratings, func(r Rating) string { return r.UserID })
	itemIndex, indexToItem := buildIndex(items, ratings, func(r Rating) string { return r.ItemID })

	numUsers := len(indexToUser)
	numItems := len(indexToItem)
	k := t.config.Factors

	// Sparse observation lists. Zero/absent cells are not observations and
	// must never enter the normal equations. Sorted slices keep summation
	// order deterministic run to run.
	cellMap := make(map[int]map[int]float64, numUsers)
	for _, r := range ratings {
		if r.UserID == "" || r.ItemID == "" {
			continue
		}
		ui := userIndex[r.UserID]
		ii := itemIndex[r.ItemID]
		if cellMap[ui] == nil {
			cellMap[ui] = make(map[int]float64)
		}
		// Last write wins for duplicate cells.
		cellMap[ui][ii] = r.Value
	}

	userItems := make([][]observation, numUsers)
	itemUsers := make([][]observation, numItems)
	var ratingSum float64
	observed := 0

	for ui := 0; ui < numUsers; ui++ {
		cells := cellMap[ui]
		if len(cells) == 0 {
			continue
		}
		obs := make([]observation, 0, len(cells))
		for ii, v := range cells {
			obs = append(obs, observation{index: ii, value: v})
			ratingSum += v
			observed++
		}
		sort.Slice(obs, func(a, b int) bool { return obs[a].index < obs[b].index })
		userItems[ui] = obs
		for _, o := range obs {
			itemUsers[o.index] = append(itemUsers[o.index], observation{index: ui, value: o.value})
		}
	}

	if numUsers == 0 || numItems == 0 || observed == 0 {
		return nil, fmt.Errorf("als: no observed ratings to train on")
	}

	// Global bias: mean observed rating, computed once and held fixed.
	globalBias := ratingSum / float64(observed)

	rng := rand.New(rand.NewSource(t.config.Seed)) //nolint:gosec // reproducible init, not crypto
	X := initFactors(rng, numUsers, k)
	Y := initFactors(rng, numItems, k)
	userBias := make([]float64, numUsers)
	itemBias := make([]float64, numItems)

	lambda := t.config.Regularization

	var lastRMSE float64
	haveLast := false
	smallDeltas := 0
	iterations := 0

	for iter := 1; iter <= t.config.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t.updateSide(userItems, X, Y, userBias, itemBias, globalBias, numUsers, k, lambda)
		t.updateSide(itemUsers, Y, X, itemBias, userBias, globalBias, numItems, k, lambda)
		iterations = iter

		if iter%rmseCheckEvery != 0 {
			continue
		}

		rmse := computeRMSE(userItems, X, Y, userBias, itemBias, globalBias, observed)
		t.logger.Debug().Int("iteration", iter).Float64("rmse", rmse).Msg("convergence check")

		if haveLast && math.Abs(lastRMSE-rmse) < t.config.RMSEThreshold {
			smallDeltas++
		} else {
			smallDeltas = 0
		}
		lastRMSE = rmse
		haveLast = true

		if smallDeltas >= convergedChecks {
			t.logger.Info().Int("iteration", iter).Float64("rmse", rmse).Msg("converged early")
			break
		}
	}

	finalRMSE := computeRMSE(userItems, X, Y, userBias, itemBias, globalBias, observed)

	t.mu.Lock()
	t.version++
	model := &FactorModel{
		Factors:    k,
		X:          X,
		Y:          Y,
		UserBias:   userBias,
		ItemBias:   itemBias,
		GlobalBias: globalBias,
		RMSE:       finalRMSE,
		Iterations: iterations,
		Version:    t.version,
		RunID:      uuid.NewString(),
		TrainedAt:  time.Now(),
		userIndex:  userIndex,
		itemIndex:  itemIndex,
	}
	t.model = model
	t.ratingCount = observed
	t.userCount = numUsers
	t.itemCount = numItems
	t.mu.Unlock()

	metrics.TrainingRuns.Inc()
	metrics.TrainingRMSE.Set(finalRMSE)
	metrics.TrainingDuration.Observe(time.Since(start).Seconds())

	t.logger.Info().
		Int("users", numUsers).
		Int("items", numItems).
		Int("ratings", observed).
		Int("iterations", iterations).
		Float64("rmse", finalRMSE).
		Dur("elapsed", time.Since(start)).
		Msg("training complete")

	return model, nil
}

// updateSide runs one half of an ALS iteration: with the other side's
// factors fixed, solve the k x k regularized normal equations for every
// entity on this side and refresh its bias as the mean residual over its
// observed cells. Entities with no observations are skipped entirely and
// keep their initial factors and zero bias.
func (t *Trainer) updateSide(
	obs [][]observation,
	factors, other [][]float64,
	bias, otherBias []float64,
	globalBias float64,
	n, k int,
	lambda float64,
) {
	var wg sync.WaitGroup
	chunk := (n + t.config.Workers - 1) / t.config.Workers

	for w := 0; w < t.config.Workers; w++ {
		start := w * chunk
		end := min(start+chunk, n)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for e := lo; e < hi; e++ {
				cells := obs[e]
				if len(cells) == 0 {
					continue
				}
				updateEntity(e, cells, factors, other, bias, otherBias, globalBias, k, lambda)
			}
		}(start, end)
	}

	wg.Wait()
}

// updateEntity refreshes one entity's bias and factor vector.
//
//nolint:gocritic // A, b follow standard linear algebra notation
func updateEntity(
	e int,
	cells []observation,
	factors, other [][]float64,
	bias, otherBias []float64,
	globalBias float64,
	k int,
	lambda float64,
) {
	// Bias first: mean residual over observed cells given current factors.
	var residual float64
	for _, c := range cells {
		var dot float64
		for f := 0; f < k; f++ {
			dot += factors[e][f] * other[c.index][f]
		}
		residual += c.value - globalBias - otherBias[c.index] - dot
	}
	bias[e] = residual / float64(len(cells))

	// Normal equations over observed cells only, with the lambda-regularized
	// diagonal guaranteeing positive definiteness.
	A := make([][]float64, k)
	for f := range A {
		A[f] = make([]float64, k)
		A[f][f] = lambda
	}
	b := make([]float64, k)

	for _, c := range cells {
		target := c.value - globalBias - bias[e] - otherBias[c.index]
		vec := other[c.index]
		for f1 := 0; f1 < k; f1++ {
			for f2 := f1; f2 < k; f2++ {
				delta := vec[f1] * vec[f2]
				A[f1][f2] += delta
				if f1 != f2 {
					A[f2][f1] += delta
				}
			}
			b[f1] += target * vec[f1]
		}
	}

	factors[e] = solveLinearSystem(A, b)
}

// solveLinearSystem solves A*x = b using Cholesky decomposition. A is
// symmetric positive definite by construction (lambda on the diagonal).
//
//nolint:gocritic // A, L follow standard linear algebra notation
func solveLinearSystem(A [][]float64, b []float64) []float64 {
	n := len(b)

	L := make([][]float64, n)
	for i := range L {
		L[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := A[i][j]
			for k := 0; k < j; k++ {
				sum -= L[i][k] * L[j][k]
			}

			if i == j {
				if sum <= 0 {
					sum = 1e-10
				}
				L[i][j] = math.Sqrt(sum)
			} else if L[j][j] != 0 {
				L[i][j] = sum / L[j][j]
			}
		}
	}

	// Forward substitution: L * z = b
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for j := 0; j < i; j++ {
			sum -= L[i][j] * z[j]
		}
		if L[i][i] != 0 {
			z[i] = sum / L[i][i]
		}
	}

	// Back substitution: L' * x = z
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for j := i + 1; j < n; j++ {
			sum -= L[j][i] * x[j]
		}
		if L[i][i] != 0 {
			x[i] = sum / L[i][i]
		}
	}

	return x
}

// computeRMSE evaluates prediction error over all observed cells.
func computeRMSE(
	userItems [][]observation,
	X, Y [][]float64,
	userBias, itemBias []float64,
	globalBias float64,
	observed int,
) float64 {
	var sse float64
	for u, cells := range userItems {
		for _, c := range cells {
			pred := globalBias + userBias[u] + itemBias[c.index]
			for f := range X[u] {
				pred += X[u][f] * Y[c.index][f]
			}
			diff := c.value - pred
			sse += diff * diff
		}
	}
	return math.Sqrt(sse / float64(observed))
}

// initFactors allocates an n x k factor matrix with small random values.
func initFactors(rng *rand.Rand, n, k int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, k)
		for f := range m[i] {
			m[i][f] = 0.1 * (rng.Float64() - 0.5)
		}
	}
	return m
}

// buildIndex assigns dense indices to declared entities plus any extra
// entities that appear only in the ratings.
func buildIndex(declared []string, ratings []Rating, key func(Rating) string) (map[string]int, []string) {
	index := make(map[string]int, len(declared))
	var order []string

	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := index[id]; !ok {
			index[id] = len(order)
			order = append(order, id)
		}
	}

	for _, id := range declared {
		add(id)
	}
	for _, r := range ratings {
		add(key(r))
	}

	return index, order
}

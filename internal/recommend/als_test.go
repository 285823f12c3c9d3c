// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package recommend

import (
	"context"
	"math"
	"testing"

	"github.com/tomtom215/streamfinder/internal/logging"
)

func testRatings() []Rating {
	// Two taste clusters: u1/u2 like a/b and dislike c/d, u3/u4 inverted.
	return []Rating{
		{UserID: "u1", ItemID: "a", Value: 5},
		{UserID: "u1", ItemID: "b", Value: 4.5},
		{UserID: "u1", ItemID: "c", Value: 1},
		{UserID: "u2", ItemID: "a", Value: 4.5},
		{UserID: "u2", ItemID: "b", Value: 5},
		{UserID: "u2", ItemID: "d", Value: 1.5},
		{UserID: "u3", ItemID: "a", Value: 1},
		{UserID: "u3", ItemID: "c", Value: 5},
		{UserID: "u3", ItemID: "d", Value: 4.5},
		{UserID: "u4", ItemID: "b", Value: 1.5},
		{UserID: "u4", ItemID: "c", Value: 4.5},
		{UserID: "u4", ItemID: "d", Value: 5},
	}
}

func newTestTrainer(t *testing.T, cfg Config) *Trainer {
	t.Helper()
	return NewTrainer(cfg, logging.NewTestLogger())
}

func TestTrainFitsObservedCells(t *testing.T) {
	trainer := newTestTrainer(t, Config{Factors: 4, MaxIterations: 100})

	model, err := trainer.Train(context.Background(), testRatings(), nil, nil)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if model.RMSE >= 1.0 {
		t.Errorf("RMSE = %v, want < 1.0 on an easily factorizable matrix", model.RMSE)
	}

	for _, r := range testRatings() {
		pred := model.Predict(r.UserID, r.ItemID)
		if math.Abs(pred-r.Value) > 1.5 {
			t.Errorf("Predict(%s, %s) = %v, want within 1.5 of %v", r.UserID, r.ItemID, pred, r.Value)
		}
	}
}

func denseRatings() []Rating {
	// Fully observed 4x4 matrix, same two taste clusters with every cell
	// filled in.
	return []Rating{
		{UserID: "u1", ItemID: "a", Value: 5},
		{UserID: "u1", ItemID: "b", Value: 4.5},
		{UserID: "u1", ItemID: "c", Value: 1},
		{UserID: "u1", ItemID: "d", Value: 1.5},
		{UserID: "u2", ItemID: "a", Value: 4.5},
		{UserID: "u2", ItemID: "b", Value: 5},
		{UserID: "u2", ItemID: "c", Value: 1.5},
		{UserID: "u2", ItemID: "d", Value: 1},
		{UserID: "u3", ItemID: "a", Value: 1},
		{UserID: "u3", ItemID: "b", Value: 1.5},
		{UserID: "u3", ItemID: "c", Value: 5},
		{UserID: "u3", ItemID: "d", Value: 4.5},
		{UserID: "u4", ItemID: "a", Value: 1.5},
		{UserID: "u4", ItemID: "b", Value: 1},
		{UserID: "u4", ItemID: "c", Value: 4.5},
		{UserID: "u4", ItemID: "d", Value: 5},
	}
}

func TestTrainConvergesOnDenseMatrix(t *testing.T) {
	// On a fully observed 4x4 matrix training must reach a tight fit well
	// inside the iteration cap.
	trainer := newTestTrainer(t, Config{Factors: 4, MaxIterations: 200})

	model, err := trainer.Train(context.Background(), denseRatings(), nil, nil)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if model.RMSE >= 0.05 {
		t.Errorf("RMSE = %v, want < 0.05 on a fully observed matrix", model.RMSE)
	}
	if model.Iterations > 200 {
		t.Errorf("Iterations = %d, want within the cap of 200", model.Iterations)
	}
}

func TestTrainRMSEDecreasesEarly(t *testing.T) {
	// Seeded runs replay identical iterations, so capping the run at 10 and
	// 20 iterations samples the same trajectory at two points. Far from
	// convergence the fit must still be strictly improving.
	at10 := Config{Factors: 4, MaxIterations: 10, Seed: 7}
	at20 := Config{Factors: 4, MaxIterations: 20, Seed: 7}

	m10, err := newTestTrainer(t, at10).Train(context.Background(), denseRatings(), nil, nil)
	if err != nil {
		t.Fatalf("Train(10 iterations) error = %v", err)
	}
	m20, err := newTestTrainer(t, at20).Train(context.Background(), denseRatings(), nil, nil)
	if err != nil {
		t.Fatalf("Train(20 iterations) error = %v", err)
	}

	if m20.RMSE >= m10.RMSE {
		t.Errorf("RMSE at 20 iterations = %v, want strictly below %v at 10", m20.RMSE, m10.RMSE)
	}
}

func TestTrainGlobalBiasIsMeanRating(t *testing.T) {
	ratings := testRatings()
	var sum float64
	for _, r := range ratings {
		sum += r.Value
	}
	want := sum / float64(len(ratings))

	trainer := newTestTrainer(t, Config{Factors: 2, MaxIterations: 10})
	model, err := trainer.Train(context.Background(), ratings, nil, nil)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if math.Abs(model.GlobalBias-want) > 1e-9 {
		t.Errorf("GlobalBias = %v, want %v", model.GlobalBias, want)
	}
}

func TestTrainZeroObservationEntities(t *testing.T) {
	// Declared entities with no ratings must train without error, keep a
	// zero bias, and predict at a finite defined value.
	trainer := newTestTrainer(t, Config{Factors: 4, MaxIterations: 50})

	model, err := trainer.Train(context.Background(), testRatings(),
		[]string{"u1", "u2", "u3", "u4", "ghost-user"},
		[]string{"a", "b", "c", "d", "ghost-item"})
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if !model.HasUser("ghost-user") {
		t.Fatal("HasUser(ghost-user) = false, want declared entity indexed")
	}
	if !model.HasItem("ghost-item") {
		t.Fatal("HasItem(ghost-item) = false, want declared entity indexed")
	}

	pred := model.Predict("ghost-user", "ghost-item")
	if math.IsNaN(pred) || math.IsInf(pred, 0) {
		t.Fatalf("Predict(ghost, ghost) = %v, want finite", pred)
	}

	ui := model.userIndex["ghost-user"]
	if model.UserBias[ui] != 0 {
		t.Errorf("ghost user bias = %v, want 0", model.UserBias[ui])
	}
}

func TestPredictUnknownEntities(t *testing.T) {
	trainer := newTestTrainer(t, Config{Factors: 2, MaxIterations: 20})
	model, err := trainer.Train(context.Background(), testRatings(), nil, nil)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	tests := []struct {
		name   string
		userID string
		itemID string
	}{
		{"unknown user", "nobody", "a"},
		{"unknown item", "u1", "nothing"},
		{"both unknown", "nobody", "nothing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := model.Predict(tt.userID, tt.itemID)
			if math.IsNaN(pred) || math.IsInf(pred, 0) {
				t.Errorf("Predict(%s, %s) = %v, want finite", tt.userID, tt.itemID, pred)
			}
		})
	}

	if got := model.Predict("nobody", "nothing"); got != model.GlobalBias {
		t.Errorf("Predict(both unknown) = %v, want global bias %v", got, model.GlobalBias)
	}
}

func TestTrainEmptyInput(t *testing.T) {
	trainer := newTestTrainer(t, Config{})

	if _, err := trainer.Train(context.Background(), nil, nil, nil); err == nil {
		t.Error("Train(no ratings) error = nil, want error")
	}
}

func TestTrainCancelledContext(t *testing.T) {
	trainer := newTestTrainer(t, Config{Factors: 4, MaxIterations: 100})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := trainer.Train(ctx, testRatings(), nil, nil); err == nil {
		t.Error("Train(cancelled ctx) error = nil, want context error")
	}
}

func TestTrainVersionIncrements(t *testing.T) {
	trainer := newTestTrainer(t, Config{Factors: 2, MaxIterations: 10})

	first, err := trainer.Train(context.Background(), testRatings(), nil, nil)
	if err != nil {
		t.Fatalf("first Train() error = %v", err)
	}
	second, err := trainer.Train(context.Background(), testRatings(), nil, nil)
	if err != nil {
		t.Fatalf("second Train() error = %v", err)
	}

	if second.Version != first.Version+1 {
		t.Errorf("Version = %d after %d, want increment", second.Version, first.Version)
	}
	if trainer.Model() != second {
		t.Error("Model() does not return the latest model")
	}
}

func TestTrainerStatus(t *testing.T) {
	trainer := newTestTrainer(t, Config{Factors: 2, MaxIterations: 10})

	st := trainer.Status()
	if st.IsTraining || st.ModelVersion != 0 {
		t.Errorf("fresh Status() = %+v, want idle with version 0", st)
	}

	if _, err := trainer.Train(context.Background(), testRatings(), nil, nil); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	st = trainer.Status()
	if st.ModelVersion != 1 {
		t.Errorf("ModelVersion = %d, want 1", st.ModelVersion)
	}
	if st.RatingCount != len(testRatings()) {
		t.Errorf("RatingCount = %d, want %d", st.RatingCount, len(testRatings()))
	}
	if st.UserCount != 4 || st.ItemCount != 4 {
		t.Errorf("counts = %d users %d items, want 4 and 4", st.UserCount, st.ItemCount)
	}
}

func TestTrainDeterministicWithSeed(t *testing.T) {
	cfg := Config{Factors: 4, MaxIterations: 30, Seed: 7}

	m1, err := newTestTrainer(t, cfg).Train(context.Background(), testRatings(), nil, nil)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	m2, err := newTestTrainer(t, cfg).Train(context.Background(), testRatings(), nil, nil)
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	if math.Abs(m1.RMSE-m2.RMSE) > 1e-12 {
		t.Errorf("RMSE differs across identical seeded runs: %v vs %v", m1.RMSE, m2.RMSE)
	}
	if m1.Predict("u1", "d") != m2.Predict("u1", "d") {
		t.Error("predictions differ across identical seeded runs")
	}
}

func TestSolveLinearSystem(t *testing.T) {
	// 2x2 SPD system with known solution x = (1, 2):
	// [4 1][1]   [6]
	// [1 3][2] = [7]
	A := [][]float64{{4, 1}, {1, 3}}
	b := []float64{6, 7}

	x := solveLinearSystem(A, b)
	if math.Abs(x[0]-1) > 1e-9 || math.Abs(x[1]-2) > 1e-9 {
		t.Errorf("solveLinearSystem() = %v, want [1 2]", x)
	}
}

func TestTrainParallelMatchesSerial(t *testing.T) {
	serial := Config{Factors: 4, MaxIterations: 30, Workers: 1, Seed: 11}
	parallel := Config{Factors: 4, MaxIterations: 30, Workers: 4, Seed: 11}

	m1, err := newTestTrainer(t, serial).Train(context.Background(), testRatings(), nil, nil)
	if err != nil {
		t.Fatalf("serial Train() error = %v", err)
	}
	m2, err := newTestTrainer(t, parallel).Train(context.Background(), testRatings(), nil, nil)
	if err != nil {
		t.Fatalf("parallel Train() error = %v", err)
	}

	if math.Abs(m1.RMSE-m2.RMSE) > 1e-9 {
		t.Errorf("worker count changed the result: RMSE %v vs %v", m1.RMSE, m2.RMSE)
	}
}

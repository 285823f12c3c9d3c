// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package recommend

import "time"

// Rating is one observed user-item interaction strength. Absent cells mean
// "no observation", never a rating of zero; the trainer only ever iterates
// observed cells.
type Rating struct {
	UserID string  `json:"user_id"`
	ItemID string  `json:"item_id"`
	Value  float64 `json:"value"`
}

// FactorModel is the output of one ALS training run.
//
// predicted(u, i) = GlobalBias + UserBias[u] + ItemBias[i] + X[u]·Y[i]
//
// Models are immutable once produced. Retraining yields a whole new model;
// there is no incremental mutation.
type FactorModel struct {
	// Factors is the latent dimension k.
	Factors int `json:"factors"`

	// X is the user factor matrix (users x k), indexed via userIndex.
	X [][]float64 `json:"-"`

	// Y is the item factor matrix (items x k), indexed via itemIndex.
	Y [][]float64 `json:"-"`

	// UserBias and ItemBias are the per-entity bias terms.
	UserBias []float64 `json:"-"`
	ItemBias []float64 `json:"-"`

	// GlobalBias is the mean of all observed ratings, fixed before iterating.
	GlobalBias float64 `json:"global_bias"`

	// RMSE is the convergence RMSE over observed cells.
	RMSE float64 `json:"rmse"`

	// Iterations is how many ALS iterations actually ran.
	Iterations int `json:"iterations"`

	// Version increments with each training run.
	Version int `json:"version"`

	// RunID uniquely identifies the training run that produced this model,
	// for correlating logs and serving-side provenance.
	RunID string `json:"run_id"`

	// TrainedAt is when this model was produced.
	TrainedAt time.Time `json:"trained_at"`

	userIndex map[string]int
	itemIndex map[string]int
}

// Predict returns the predicted rating for a user-item pair. Unknown users
// or items contribute zero bias and zero factor interaction, so the
// prediction degrades gracefully toward the global bias.
func (m *FactorModel) Predict(userID, itemID string) float64 {
	pred := m.GlobalBias

	ui, hasUser := m.userIndex[userID]
	ii, hasItem := m.itemIndex[itemID]

	if hasUser {
		pred += m.UserBias[ui]
	}
	if hasItem {
		pred += m.ItemBias[ii]
	}
	if hasUser && hasItem {
		for f := 0; f < m.Factors; f++ {
			pred += m.X[ui][f] * m.Y[ii][f]
		}
	}
	return pred
}

// HasUser reports whether the model saw this user during training.
func (m *FactorModel) HasUser(userID string) bool {
	_, ok := m.userIndex[userID]
	return ok
}

// HasItem reports whether the model saw this item during training.
func (m *FactorModel) HasItem(itemID string) bool {
	_, ok := m.itemIndex[itemID]
	return ok
}

// TrainingStatus is a snapshot of the trainer state for observability.
type TrainingStatus struct {
	IsTraining    bool      `json:"is_training"`
	ModelVersion  int       `json:"model_version"`
	LastTrainedAt time.Time `json:"last_trained_at"`
	LastRMSE      float64   `json:"last_rmse"`
	LastIteration int       `json:"last_iterations"`
	RatingCount   int       `json:"rating_count"`
	UserCount     int       `json:"user_count"`
	ItemCount     int       `json:"item_count"`
}

// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package sources

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/streamfinder/internal/availability"
	"github.com/tomtom215/streamfinder/internal/logging"
	"github.com/tomtom215/streamfinder/internal/metrics"
)

// BreakerSource wraps any Source with a circuit breaker so a persistently
// failing provider stops consuming fan-out slots and timeout budget.
//
// The breaker uses real time for its interval and timeout calculations.
// Tests should mock the wrapped source rather than the breaker.
type BreakerSource struct {
	inner availability.Source
	cb    *gobreaker.CircuitBreaker[[]availability.PlatformRecord]
}

// WithBreaker wraps a source with circuit breaker protection:
// 1 minute measurement window, 2 minute open period, and a trip threshold of
// 60% failures over at least 10 requests.
func WithBreaker(inner availability.Source) *BreakerSource {
	name := inner.Name()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]availability.PlatformRecord](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().Str("source", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("source", name).Str("from", fromStr).Str("to", toStr).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &BreakerSource{inner: inner, cb: cb}
}

// Name returns the wrapped source's name.
func (b *BreakerSource) Name() string { return b.inner.Name() }

// Tier returns the wrapped source's reliability tier.
func (b *BreakerSource) Tier() availability.Tier { return b.inner.Tier() }

// Fetch executes the wrapped fetch under circuit breaker protection. An open
// circuit fails fast, which the aggregator treats like any source failure.
func (b *BreakerSource) Fetch(ctx context.Context, req availability.Request) ([]availability.PlatformRecord, error) {
	return b.cb.Execute(func() ([]availability.PlatformRecord, error) {
		return b.inner.Fetch(ctx, req)
	})
}

func stateToString(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

var _ availability.Source = (*BreakerSource)(nil)

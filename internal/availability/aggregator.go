// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/tomtom215/streamfinder/internal/cache"
	"github.com/tomtom215/streamfinder/internal/metrics"
)

// Request identifies one title to look up.
type Request struct {
	TitleID    string `json:"title_id"`
	Title      string `json:"title"`
	MediaType  string `json:"media_type"`
	ExternalID string `json:"external_id,omitempty"`
}

// Source is one external availability catalog. Implementations are stateless
// request/response clients and must be independently substitutable.
type Source interface {
	Name() string
	Tier() Tier
	Fetch(ctx context.Context, req Request) ([]PlatformRecord, error)
}

// Options configures the aggregator.
type Options struct {
	// MaxConcurrency bounds simultaneous outbound source calls system-wide.
	MaxConcurrency int

	// SourceTimeout is the per-source wall-clock budget. A timed-out source
	// is treated identically to a failed source.
	SourceTimeout time.Duration

	// BatchDelay is inserted between batches in BatchLookup to respect
	// external rate limits.
	BatchDelay time.Duration

	// BatchSize overrides the batch size in BatchLookup. Zero means one
	// batch per MaxConcurrency requests.
	BatchSize int

	// CacheTTL is how long an aggregate stays fresh.
	CacheTTL time.Duration
}

// Aggregator fans out to sources, reconciles their records, and caches the
// result per (title id, media type).
type Aggregator struct {
	sources []Source
	cache   *cache.Cache
	gate    *semaphore.Weighted
	opts    Options
	logger  zerolog.Logger
}

// aggregateKey is the cache key payload.
type aggregateKey struct {
	TitleID   string `json:"title_id"`
	MediaType string `json:"media_type"`
}

// sourceResult is one source's contribution to an aggregation.
type sourceResult struct {
	name    string
	records []PlatformRecord
	ok      bool
}

// NewAggregator creates an availability aggregator. The cache is an injected
// collaborator so callers control its lifetime and tests stay isolated.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewAggregator(sources []Source, c *cache.Cache, opts Options, logger zerolog.Logger) *Aggregator {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 5
	}
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 10 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}

	return &Aggregator{
		sources: sources,
		cache:   c,
		gate:    semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		opts:    opts,
		logger:  logger.With().Str("component", "aggregator").Logger(),
	}
}

// Lookup returns the availability aggregate for one title. Cache hits return
// the prior object unchanged and skip fan-out entirely. On a miss every
// enabled source is queried concurrently through the bounded gate; partial
// source failure degrades completeness but never fails the request. A
// cancelled request returns the context error and leaves the cache untouched.
func (a *Aggregator) Lookup(ctx context.Context, req Request) (*Aggregate, error) {
	if req.TitleID == "" {
		return nil, fmt.Errorf("availability: title id is required")
	}
	if req.MediaType == "" {
		req.MediaType = "movie"
	}

	key := cache.GenerateKey("availability", aggregateKey{TitleID: req.TitleID, MediaType: req.MediaType})
	if cached, ok := a.cache.Get(key); ok {
		if agg, ok := cached.(*Aggregate); ok {
			metrics.AvailabilityCacheHits.Inc()
			return agg, nil
		}
	}
	metrics.AvailabilityCacheMisses.Inc()

	start := time.Now()
	results := a.fanOut(ctx, req)

	// A cancelled request makes every source look failed. That is the
	// caller's abort, not the title's availability, and must never be
	// cached or returned as an empty aggregate.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("availability: lookup cancelled: %w", err)
	}

	var all []PlatformRecord
	anyOK := false
	sources := make(map[string]bool, len(results))
	for _, r := range results {
		sources[r.name] = r.ok
		anyOK = anyOK || r.ok
		all = append(all, r.records...)
	}

	platforms := reconcile(all)
	total, affiliate, premium, free := countPlatforms(platforms)

	agg := &Aggregate{
		TitleID:            req.TitleID,
		Title:              req.Title,
		MediaType:          req.MediaType,
		Platforms:          platforms,
		TotalPlatforms:     total,
		AffiliatePlatforms: affiliate,
		PremiumPlatforms:   premium,
		FreePlatforms:      free,
		Sources:            sources,
		FetchedAt:          time.Now(),
	}

	// Only cache when at least one source answered. Caching a zero-success
	// aggregate would pin a transient full outage for the entire TTL.
	if anyOK {
		a.cache.SetWithTTL(key, agg, a.opts.CacheTTL)
	} else {
		a.logger.Warn().Str("title_id", req.TitleID).Msg("no source succeeded, aggregate not cached")
	}

	metrics.AggregationDuration.Observe(time.Since(start).Seconds())
	metrics.PlatformsAggregated.Observe(float64(total))

	a.logger.Debug().
		Str("title_id", req.TitleID).
		Int("platforms", total).
		Dur("elapsed", time.Since(start)).
		Msg("aggregate built")

	return agg, nil
}

// fanOut queries every source concurrently. Each call acquires the shared
// gate, carries its own timeout, and reports failure in-band rather than
// aborting its siblings.
func (a *Aggregator) fanOut(ctx context.Context, req Request) []sourceResult {
	results := make([]sourceResult, len(a.sources))
	var wg sync.WaitGroup

	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			results[i] = a.fetchOne(ctx, src, req)
		}(i, src)
	}

	wg.Wait()
	return results
}

// fetchOne runs a single gated, time-bounded source call.
func (a *Aggregator) fetchOne(ctx context.Context, src Source, req Request) sourceResult {
	res := sourceResult{name: src.Name()}

	if err := a.gate.Acquire(ctx, 1); err != nil {
		a.logger.Warn().Err(err).Str("source", src.Name()).Msg("fan-out cancelled before dispatch")
		metrics.SourceRequests.WithLabelValues(src.Name(), "rejected").Inc()
		return res
	}
	defer a.gate.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, a.opts.SourceTimeout)
	defer cancel()

	start := time.Now()
	records, err := src.Fetch(callCtx, req)
	metrics.SourceDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())

	if err != nil {
		a.logger.Warn().Err(err).
			Str("source", src.Name()).
			Str("title_id", req.TitleID).
			Msg("source failed, continuing without it")
		metrics.SourceRequests.WithLabelValues(src.Name(), "failure").Inc()
		return res
	}

	metrics.SourceRequests.WithLabelValues(src.Name(), "success").Inc()
	res.records = records
	res.ok = true
	return res
}

// BatchLookup aggregates many titles, processing them in batches with an
// optional inter-batch delay to respect external rate limits. Failed titles
// get a nil slot; the batch continues.
func (a *Aggregator) BatchLookup(ctx context.Context, reqs []Request) ([]*Aggregate, error) {
	batchSize := a.opts.BatchSize
	if batchSize <= 0 {
		batchSize = a.opts.MaxConcurrency
	}

	out := make([]*Aggregate, len(reqs))

	for start := 0; start < len(reqs); start += batchSize {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		end := min(start+batchSize, len(reqs))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				agg, err := a.Lookup(ctx, reqs[i])
				if err != nil {
					a.logger.Warn().Err(err).Str("title_id", reqs[i].TitleID).Msg("batch lookup entry failed")
					return
				}
				out[i] = agg
			}(i)
		}
		wg.Wait()

		if end < len(reqs) && a.opts.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(a.opts.BatchDelay):
			}
		}
	}

	return out, nil
}

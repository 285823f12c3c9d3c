// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

// Package availability aggregates streaming platform data from multiple
// external catalog sources into a single deduplicated view per title.
//
// Each source is an isolated failure domain: a source that errors or times
// out contributes zero records and a false entry in the provenance map, and
// never aborts the request. Aggregates are cached with a TTL and replaced
// wholesale, never mutated in place.
package availability

import "time"

// DistributionType classifies how a platform offers a title.
type DistributionType string

// Distribution types.
const (
	DistSubscription DistributionType = "sub"
	DistBuy          DistributionType = "buy"
	DistRent         DistributionType = "rent"
	DistFree         DistributionType = "free"
)

// Tier is a source-reliability class. Primary catalogs outrank secondary,
// which outrank tertiary, when deduplication has to pick a winner.
type Tier int

// Source reliability tiers.
const (
	TierTertiary Tier = iota
	TierSecondary
	TierPrimary
)

// tierBonus converts a tier into a reconciliation score bonus.
func tierBonus(t Tier) float64 {
	switch t {
	case TierPrimary:
		return 3
	case TierSecondary:
		return 2
	default:
		return 1
	}
}

// PlatformRecord is one canonical streaming offer for a title. Records are
// immutable once constructed; multiple records for the same logical platform
// may exist before deduplication.
type PlatformRecord struct {
	ProviderID   int              `json:"provider_id"`
	ProviderName string           `json:"provider_name"`
	Type         DistributionType `json:"type"`
	LogoURL      string           `json:"logo_url,omitempty"`
	WebURL       string           `json:"web_url,omitempty"`
	IOSURL       string           `json:"ios_url,omitempty"`
	AndroidURL   string           `json:"android_url,omitempty"`
	Price        float64          `json:"price,omitempty"`
	Format       string           `json:"format,omitempty"`
	Source       string           `json:"source"`
	SourceTier   Tier             `json:"-"`
	Affiliate    bool             `json:"affiliate"`
	Commission   float64          `json:"commission,omitempty"`
	AffiliateURL string           `json:"affiliate_url,omitempty"`
}

// Aggregate is the reconciled availability view for one title.
type Aggregate struct {
	TitleID   string           `json:"title_id"`
	Title     string           `json:"title"`
	MediaType string           `json:"media_type"`
	Platforms []PlatformRecord `json:"platforms"`

	TotalPlatforms     int `json:"total_platforms"`
	AffiliatePlatforms int `json:"affiliate_platforms"`
	PremiumPlatforms   int `json:"premium_platforms"`
	FreePlatforms      int `json:"free_platforms"`

	// Sources maps source name to whether it responded successfully.
	Sources map[string]bool `json:"sources"`

	// FilteredOut is nonzero only on filtered copies of an aggregate.
	FilteredOut int `json:"filtered_out,omitempty"`

	FetchedAt time.Time `json:"fetched_at"`
}

// countPlatforms recomputes the aggregate counters from a platform list.
func countPlatforms(platforms []PlatformRecord) (total, affiliate, premium, free int) {
	total = len(platforms)
	for _, p := range platforms {
		if p.Affiliate {
			affiliate++
		}
		switch p.Type {
		case DistFree:
			free++
		case DistSubscription, DistBuy, DistRent:
			premium++
		}
	}
	return total, affiliate, premium, free
}

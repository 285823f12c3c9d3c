// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package availability

import "strings"

// Preferences narrows an aggregate to the platforms a user cares about.
// All active constraints must hold for a record to survive.
type Preferences struct {
	// Allow keeps only these providers when non-empty.
	Allow []string `json:"allow,omitempty"`

	// Deny drops these providers.
	Deny []string `json:"deny,omitempty"`

	// Types keeps only these distribution types when non-empty.
	Types []DistributionType `json:"types,omitempty"`

	// AffiliateOnly drops records without affiliate eligibility.
	AffiliateOnly bool `json:"affiliate_only,omitempty"`
}

// Apply returns a new aggregate whose platform list satisfies every active
// constraint, with counts recomputed and FilteredOut recording how many
// records were dropped. The input aggregate is never mutated, so the
// canonical cached object stays intact.
func (p Preferences) Apply(agg *Aggregate) *Aggregate {
	if agg == nil {
		return nil
	}

	allow := canonicalSet(p.Allow)
	deny := canonicalSet(p.Deny)

	types := make(map[DistributionType]bool, len(p.Types))
	for _, t := range p.Types {
		types[t] = true
	}

	kept := make([]PlatformRecord, 0, len(agg.Platforms))
	for _, rec := range agg.Platforms {
		name := strings.ToLower(CanonicalProvider(rec.ProviderName))

		if len(allow) > 0 && !allow[name] {
			continue
		}
		if deny[name] {
			continue
		}
		if len(types) > 0 && !types[rec.Type] {
			continue
		}
		if p.AffiliateOnly && !rec.Affiliate {
			continue
		}
		kept = append(kept, rec)
	}

	total, affiliate, premium, free := countPlatforms(kept)

	filtered := *agg
	filtered.Platforms = kept
	filtered.TotalPlatforms = total
	filtered.AffiliatePlatforms = affiliate
	filtered.PremiumPlatforms = premium
	filtered.FreePlatforms = free
	filtered.FilteredOut = len(agg.Platforms) - len(kept)

	// The provenance map is shared read-only state; copy it so the filtered
	// view cannot alias future mutations back into the cached aggregate.
	filtered.Sources = make(map[string]bool, len(agg.Sources))
	for k, v := range agg.Sources {
		filtered.Sources[k] = v
	}

	return &filtered
}

// canonicalSet lowercases and canonicalizes provider names for matching.
func canonicalSet(names []string) map[string]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(CanonicalProvider(n))] = true
	}
	return set
}

// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package availability

import (
	"sort"
	"strings"
)

// providerAliases maps provider name variants to their canonical form.
// Keys are lowercase. Extend here when a source starts reporting a rebrand.
var providerAliases = map[string]string{
	"disney plus":         "Disney+",
	"disney+":             "Disney+",
	"hbo max":             "Max",
	"hbomax":              "Max",
	"max":                 "Max",
	"amazon prime video":  "Prime Video",
	"prime video":         "Prime Video",
	"amazon video":        "Prime Video",
	"apple tv plus":       "Apple TV+",
	"apple tv+":           "Apple TV+",
	"paramount plus":      "Paramount+",
	"paramount+":          "Paramount+",
	"peacock premium":     "Peacock",
	"peacock":             "Peacock",
	"youtube premium":     "YouTube",
	"youtube":             "YouTube",
	"google play movies":  "Google Play",
	"google play":         "Google Play",
	"crunchyroll premium": "Crunchyroll",
	"crunchyroll":         "Crunchyroll",
}

// CanonicalProvider normalizes a raw provider name via the alias table.
// Unknown names pass through with whitespace trimmed.
func CanonicalProvider(name string) string {
	trimmed := strings.TrimSpace(name)
	if canonical, ok := providerAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// recordScore ranks a record for deduplication. Richer records win: logo,
// deep link, app links, price, format, and affiliate eligibility each add
// weight, and the source tier breaks ties so primary catalogs outrank
// scrapers.
func recordScore(r *PlatformRecord) float64 {
	var score float64
	if r.LogoURL != "" {
		score += 1
	}
	if r.WebURL != "" {
		score += 2
	}
	if r.IOSURL != "" {
		score += 0.5
	}
	if r.AndroidURL != "" {
		score += 0.5
	}
	if r.Price > 0 {
		score += 1
	}
	if r.Format != "" {
		score += 0.5
	}
	if r.Affiliate {
		score += 1.5
	}
	return score + tierBonus(r.SourceTier)
}

// dedupKey identifies one logical offer: the same canonical platform in the
// same distribution type is one offer no matter how many sources report it.
type dedupKey struct {
	provider string
	dist     DistributionType
}

// reconcile normalizes provider names, deduplicates colliding records
// keeping the highest-scoring one, and returns a deterministically ordered
// list. Determinism matters because source completion order is unspecified.
func reconcile(records []PlatformRecord) []PlatformRecord {
	best := make(map[dedupKey]PlatformRecord, len(records))

	for _, r := range records {
		r.ProviderName = CanonicalProvider(r.ProviderName)
		key := dedupKey{provider: strings.ToLower(r.ProviderName), dist: r.Type}

		existing, seen := best[key]
		if !seen || recordScore(&r) > recordScore(&existing) {
			best[key] = r
		}
	}

	out := make([]PlatformRecord, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		si, sj := recordScore(&out[i]), recordScore(&out[j])
		if si != sj {
			return si > sj
		}
		if out[i].ProviderName != out[j].ProviderName {
			return out[i].ProviderName < out[j].ProviderName
		}
		return out[i].Type < out[j].Type
	})

	return out
}

// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

// Package monetize builds affiliate deep links with click attribution
// tracking identifiers.
package monetize

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/streamfinder/internal/availability"
)

// searchFallback is used when a record has no base link at all.
const searchFallback = "https://www.google.com/search?q="

// maxSlugLen truncates provider slugs inside tracking identifiers.
const maxSlugLen = 6

// providerTemplates maps canonical provider names (lowercase) to their
// tracking parameter name. Providers absent here get a generic ref
// parameter.
var providerTemplates = map[string]string{
	"prime video": "tag",
	"apple tv+":   "at",
	"max":         "tracking_id",
	"hulu":        "cmp",
	"peacock":     "orig_ref",
	"google play": "pcampaignid",
}

// Linker generates affiliate URLs. Safe for concurrent use.
type Linker struct {
	partnerID string

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewLinker creates an affiliate link generator. partnerID is this
// deployment's affiliate network identity, blended into every tracking id.
func NewLinker(partnerID string) *Linker {
	return &Linker{
		partnerID: partnerID,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // click attribution, not crypto
		now:       time.Now,
	}
}

// AffiliateURL returns the monetized link for a platform record. Records
// without affiliate eligibility get their base link back unchanged; records
// without any link get a search fallback so the result is never empty.
func (l *Linker) AffiliateURL(rec *availability.PlatformRecord, userID, titleID, title string) string {
	base := rec.WebURL
	if base == "" {
		base = searchFallback + url.QueryEscape(title+" "+rec.ProviderName)
	}

	if !rec.Affiliate {
		return base
	}

	param := "ref"
	if p, ok := providerTemplates[strings.ToLower(availability.CanonicalProvider(rec.ProviderName))]; ok {
		param = p
	}

	tracking := l.TrackingID(userID, titleID, rec.ProviderName)

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + param + "=" + url.QueryEscape(tracking)
}

// TrackingID builds a short click attribution identifier: a base-36 hash of
// the user and title, a truncated provider slug, a timestamp, and some
// randomness. Collision-resistant enough for attribution, not
// cryptographically secure.
func (l *Linker) TrackingID(userID, titleID, provider string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(userID + ":" + titleID + ":" + l.partnerID))
	pairHash := strconv.FormatUint(h.Sum64(), 36)

	l.mu.Lock()
	nonce := l.rng.Int63n(36 * 36 * 36 * 36)
	ts := l.now().Unix()
	l.mu.Unlock()

	return fmt.Sprintf("%s-%s-%s-%s",
		pairHash, providerSlug(provider), strconv.FormatInt(ts, 36), strconv.FormatInt(nonce, 36))
}

// providerSlug lowercases a provider name and strips it to a short
// alphanumeric tag.
func providerSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() >= maxSlugLen {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "prov"
	}
	return b.String()
}

// Monetize returns a copy of an aggregate with AffiliateURL populated on
// every affiliate-eligible record. The input aggregate is not modified.
func (l *Linker) Monetize(agg *availability.Aggregate, userID string) *availability.Aggregate {
	if agg == nil {
		return nil
	}

	out := *agg
	out.Platforms = make([]availability.PlatformRecord, len(agg.Platforms))
	copy(out.Platforms, agg.Platforms)

	for i := range out.Platforms {
		rec := &out.Platforms[i]
		if rec.Affiliate {
			rec.AffiliateURL = l.AffiliateURL(rec, userID, agg.TitleID, agg.Title)
		}
	}
	return &out
}

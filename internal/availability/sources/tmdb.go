// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"

	"github.com/tomtom215/streamfinder/internal/availability"
	"github.com/tomtom215/streamfinder/internal/config"
)

// tmdbLogoBase is the image CDN prefix for provider logos.
const tmdbLogoBase = "https://image.tmdb.org/t/p/original"

// TMDB is the primary-tier catalog source backed by the TMDB watch
// providers endpoint (JustWatch-licensed data).
type TMDB struct {
	cfg     config.SourceConfig
	region  string
	client  *http.Client
	limiter *rate.Limiter
}

// tmdbProvider is one provider entry in a TMDB watch providers response.
type tmdbProvider struct {
	ProviderID   int    `json:"provider_id"`
	ProviderName string `json:"provider_name"`
	LogoPath     string `json:"logo_path"`
}

// tmdbRegion is one region's offers.
type tmdbRegion struct {
	Link     string         `json:"link"`
	Flatrate []tmdbProvider `json:"flatrate"`
	Rent     []tmdbProvider `json:"rent"`
	Buy      []tmdbProvider `json:"buy"`
	Free     []tmdbProvider `json:"free"`
	Ads      []tmdbProvider `json:"ads"`
}

// tmdbResponse is the watch providers payload.
type tmdbResponse struct {
	ID      int                   `json:"id"`
	Results map[string]tmdbRegion `json:"results"`
}

// NewTMDB creates the TMDB source client.
func NewTMDB(cfg config.SourceConfig, region string) *TMDB {
	if region == "" {
		region = "US"
	}
	return &TMDB{cfg: cfg, region: region, client: newHTTPClient(), limiter: newLimiter()}
}

// Name returns the source identifier.
func (t *TMDB) Name() string { return "tmdb" }

// Tier returns the source reliability class.
func (t *TMDB) Tier() availability.Tier { return availability.TierPrimary }

// Fetch queries the watch providers endpoint and maps the configured
// region's offers into canonical records.
func (t *TMDB) Fetch(ctx context.Context, req availability.Request) ([]availability.PlatformRecord, error) {
	id := req.ExternalID
	if id == "" {
		id = req.TitleID
	}
	mediaType := "movie"
	if req.MediaType == "tv" {
		mediaType = "tv"
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("tmdb: %w", err)
	}

	endpoint := fmt.Sprintf("%s/3/%s/%s/watch/providers?api_key=%s",
		t.cfg.URL, mediaType, url.PathEscape(id), url.QueryEscape(t.cfg.APIKey))

	var resp tmdbResponse
	if err := getJSON(ctx, t.client, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("tmdb: %w", err)
	}

	region, ok := resp.Results[t.region]
	if !ok {
		return nil, nil
	}

	var records []availability.PlatformRecord
	appendOffers := func(providers []tmdbProvider, dist availability.DistributionType) {
		for _, p := range providers {
			rec := availability.PlatformRecord{
				ProviderID:   p.ProviderID,
				ProviderName: p.ProviderName,
				Type:         dist,
				WebURL:       region.Link,
				Source:       t.Name(),
				SourceTier:   t.Tier(),
			}
			if p.LogoPath != "" {
				rec.LogoURL = tmdbLogoBase + p.LogoPath
			}
			records = append(records, rec)
		}
	}

	appendOffers(region.Flatrate, availability.DistSubscription)
	appendOffers(region.Rent, availability.DistRent)
	appendOffers(region.Buy, availability.DistBuy)
	appendOffers(region.Free, availability.DistFree)
	appendOffers(region.Ads, availability.DistFree)

	return records, nil
}

var _ availability.Source = (*TMDB)(nil)

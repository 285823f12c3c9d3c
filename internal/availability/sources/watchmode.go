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
	"strings"

	"golang.org/x/time/rate"

	"github.com/tomtom215/streamfinder/internal/availability"
	"github.com/tomtom215/streamfinder/internal/config"
)

// Watchmode is a secondary-tier catalog source. Its records carry price and
// format detail that the primary catalog lacks, plus affiliate eligibility.
type Watchmode struct {
	cfg     config.SourceConfig
	region  string
	client  *http.Client
	limiter *rate.Limiter
}

// watchmodeSource is one offer in a Watchmode title sources response.
type watchmodeSource struct {
	SourceID   int     `json:"source_id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Region     string  `json:"region"`
	IOSURL     string  `json:"ios_url"`
	AndroidURL string  `json:"android_url"`
	WebURL     string  `json:"web_url"`
	Format     string  `json:"format"`
	Price      float64 `json:"price"`
}

// NewWatchmode creates the Watchmode source client.
func NewWatchmode(cfg config.SourceConfig, region string) *Watchmode {
	if region == "" {
		region = "US"
	}
	return &Watchmode{cfg: cfg, region: region, client: newHTTPClient(), limiter: newLimiter()}
}

// Name returns the source identifier.
func (w *Watchmode) Name() string { return "watchmode" }

// Tier returns the source reliability class.
func (w *Watchmode) Tier() availability.Tier { return availability.TierSecondary }

// Fetch queries the title sources endpoint and maps offers in the configured
// region into canonical records.
func (w *Watchmode) Fetch(ctx context.Context, req availability.Request) ([]availability.PlatformRecord, error) {
	id := req.ExternalID
	if id == "" {
		id = req.TitleID
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("watchmode: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/title/%s/sources/?apiKey=%s&regions=%s",
		w.cfg.URL, url.PathEscape(id), url.QueryEscape(w.cfg.APIKey), url.QueryEscape(w.region))

	var offers []watchmodeSource
	if err := getJSON(ctx, w.client, endpoint, nil, &offers); err != nil {
		return nil, fmt.Errorf("watchmode: %w", err)
	}

	records := make([]availability.PlatformRecord, 0, len(offers))
	for _, o := range offers {
		if o.Region != "" && !strings.EqualFold(o.Region, w.region) {
			continue
		}
		records = append(records, availability.PlatformRecord{
			ProviderID:   o.SourceID,
			ProviderName: o.Name,
			Type:         watchmodeDistribution(o.Type),
			WebURL:       o.WebURL,
			IOSURL:       o.IOSURL,
			AndroidURL:   o.AndroidURL,
			Price:        o.Price,
			Format:       o.Format,
			Source:       w.Name(),
			SourceTier:   w.Tier(),
			Affiliate:    true,
		})
	}
	return records, nil
}

// watchmodeDistribution maps Watchmode offer types onto canonical
// distribution types.
func watchmodeDistribution(t string) availability.DistributionType {
	switch strings.ToLower(t) {
	case "sub":
		return availability.DistSubscription
	case "buy", "purchase":
		return availability.DistBuy
	case "rent":
		return availability.DistRent
	case "free", "tve":
		return availability.DistFree
	default:
		return availability.DistSubscription
	}
}

var _ availability.Source = (*Watchmode)(nil)

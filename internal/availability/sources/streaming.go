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

// StreamingAvailability is a secondary-tier source backed by the RapidAPI
// Streaming Availability service. It authenticates via RapidAPI headers
// rather than a query parameter.
type StreamingAvailability struct {
	cfg     config.SourceConfig
	country string
	client  *http.Client
	limiter *rate.Limiter
}

// streamingOption is one offer in a streaming availability response.
type streamingOption struct {
	Service struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		ImageSet struct {
			LightThemeImage string `json:"lightThemeImage"`
		} `json:"imageSet"`
	} `json:"service"`
	Type    string `json:"type"`
	Link    string `json:"link"`
	Quality string `json:"quality"`
	Price   struct {
		Amount string `json:"amount"`
	} `json:"price"`
}

// streamingResponse is a show lookup payload. Offers are grouped by country.
type streamingResponse struct {
	StreamingOptions map[string][]streamingOption `json:"streamingOptions"`
}

// NewStreamingAvailability creates the RapidAPI source client.
func NewStreamingAvailability(cfg config.SourceConfig, country string) *StreamingAvailability {
	if country == "" {
		country = "us"
	}
	return &StreamingAvailability{
		cfg:     cfg,
		country: strings.ToLower(country),
		client:  newHTTPClient(),
		limiter: newLimiter(),
	}
}

// Name returns the source identifier.
func (s *StreamingAvailability) Name() string { return "streaming-availability" }

// Tier returns the source reliability class.
func (s *StreamingAvailability) Tier() availability.Tier { return availability.TierSecondary }

// Fetch queries the show endpoint and maps the configured country's offers
// into canonical records.
func (s *StreamingAvailability) Fetch(ctx context.Context, req availability.Request) ([]availability.PlatformRecord, error) {
	id := req.ExternalID
	if id == "" {
		id = req.TitleID
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("streaming-availability: %w", err)
	}

	endpoint := fmt.Sprintf("%s/shows/%s?country=%s", s.cfg.URL, url.PathEscape(id), url.QueryEscape(s.country))
	headers := map[string]string{
		"X-RapidAPI-Key":  s.cfg.APIKey,
		"X-RapidAPI-Host": "streaming-availability.p.rapidapi.com",
	}

	var resp streamingResponse
	if err := getJSON(ctx, s.client, endpoint, headers, &resp); err != nil {
		return nil, fmt.Errorf("streaming-availability: %w", err)
	}

	options := resp.StreamingOptions[s.country]
	records := make([]availability.PlatformRecord, 0, len(options))
	for _, o := range options {
		rec := availability.PlatformRecord{
			ProviderName: o.Service.Name,
			Type:         streamingDistribution(o.Type),
			LogoURL:      o.Service.ImageSet.LightThemeImage,
			WebURL:       o.Link,
			Format:       o.Quality,
			Source:       s.Name(),
			SourceTier:   s.Tier(),
		}
		if o.Price.Amount != "" {
			rec.Price = parsePrice(o.Price.Amount)
		}
		records = append(records, rec)
	}
	return records, nil
}

// streamingDistribution maps service offer types onto canonical
// distribution types.
func streamingDistribution(t string) availability.DistributionType {
	switch strings.ToLower(t) {
	case "subscription", "addon":
		return availability.DistSubscription
	case "buy":
		return availability.DistBuy
	case "rent":
		return availability.DistRent
	case "free":
		return availability.DistFree
	default:
		return availability.DistSubscription
	}
}

// parsePrice converts a decimal price string to a float, returning 0 on any
// malformed input rather than failing the whole record.
func parsePrice(s string) float64 {
	var v float64
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &v); err != nil {
		return 0
	}
	return v
}

var _ availability.Source = (*StreamingAvailability)(nil)

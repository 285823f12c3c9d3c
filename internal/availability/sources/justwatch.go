// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/tomtom215/streamfinder/internal/availability"
	"github.com/tomtom215/streamfinder/internal/config"
)

// justwatchQuery searches a title and returns its offers in one round trip.
// The public GraphQL endpoint needs no API key but is unofficial, hence the
// tertiary tier.
const justwatchQuery = `
query GetOffers($title: String!, $country: Country!) {
  popularTitles(country: $country, first: 1, filter: {searchQuery: $title}) {
    edges {
      node {
        offers(country: $country, platform: WEB) {
          monetizationType
          retailPrice(language: "en")
          presentationType
          standardWebURL
          package {
            packageId
            clearName
            icon
          }
        }
      }
    }
  }
}`

// JustWatch is a tertiary-tier source backed by the public JustWatch GraphQL
// API. It matches by title search, so results are best-effort.
type JustWatch struct {
	cfg     config.SourceConfig
	country string
	client  *http.Client
	limiter *rate.Limiter
}

// justwatchOffer is one offer node in a GraphQL response.
type justwatchOffer struct {
	MonetizationType string `json:"monetizationType"`
	RetailPrice      string `json:"retailPrice"`
	PresentationType string `json:"presentationType"`
	StandardWebURL   string `json:"standardWebURL"`
	Package          struct {
		PackageID int    `json:"packageId"`
		ClearName string `json:"clearName"`
		Icon      string `json:"icon"`
	} `json:"package"`
}

// justwatchResponse is the GraphQL response envelope.
type justwatchResponse struct {
	Data struct {
		PopularTitles struct {
			Edges []struct {
				Node struct {
					Offers []justwatchOffer `json:"offers"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"popularTitles"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NewJustWatch creates the JustWatch source client.
func NewJustWatch(cfg config.SourceConfig, country string) *JustWatch {
	if country == "" {
		country = "US"
	}
	return &JustWatch{
		cfg:     cfg,
		country: strings.ToUpper(country),
		client:  newHTTPClient(),
		limiter: newLimiter(),
	}
}

// Name returns the source identifier.
func (j *JustWatch) Name() string { return "justwatch" }

// Tier returns the source reliability class.
func (j *JustWatch) Tier() availability.Tier { return availability.TierTertiary }

// Fetch searches the title and maps the best match's offers into canonical
// records. A title with no search hits contributes zero records, not an
// error.
func (j *JustWatch) Fetch(ctx context.Context, req availability.Request) ([]availability.PlatformRecord, error) {
	if req.Title == "" {
		return nil, nil
	}

	if err := j.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("justwatch: %w", err)
	}

	payload := map[string]any{
		"query": justwatchQuery,
		"variables": map[string]any{
			"title":   req.Title,
			"country": j.country,
		},
	}

	var resp justwatchResponse
	if err := postJSON(ctx, j.client, j.cfg.URL+"/graphql", payload, &resp); err != nil {
		return nil, fmt.Errorf("justwatch: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("justwatch: graphql error: %s", resp.Errors[0].Message)
	}

	edges := resp.Data.PopularTitles.Edges
	if len(edges) == 0 {
		return nil, nil
	}

	offers := edges[0].Node.Offers
	records := make([]availability.PlatformRecord, 0, len(offers))
	for _, o := range offers {
		records = append(records, availability.PlatformRecord{
			ProviderID:   o.Package.PackageID,
			ProviderName: o.Package.ClearName,
			Type:         justwatchDistribution(o.MonetizationType),
			LogoURL:      o.Package.Icon,
			WebURL:       o.StandardWebURL,
			Price:        parsePrice(strings.TrimPrefix(o.RetailPrice, "$")),
			Format:       o.PresentationType,
			Source:       j.Name(),
			SourceTier:   j.Tier(),
		})
	}
	return records, nil
}

// justwatchDistribution maps monetization types onto canonical distribution
// types.
func justwatchDistribution(t string) availability.DistributionType {
	switch strings.ToUpper(t) {
	case "FLATRATE":
		return availability.DistSubscription
	case "BUY":
		return availability.DistBuy
	case "RENT":
		return availability.DistRent
	case "FREE", "ADS":
		return availability.DistFree
	default:
		return availability.DistSubscription
	}
}

var _ availability.Source = (*JustWatch)(nil)

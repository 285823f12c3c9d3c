// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/tomtom215/streamfinder/internal/availability"
	"github.com/tomtom215/streamfinder/internal/config"
)

func TestTMDBFetchMapsOffers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/3/movie/603/watch/providers" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Error("api key missing from request")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 603,
			"results": {
				"US": {
					"link": "https://www.themoviedb.org/movie/603/watch",
					"flatrate": [{"provider_id": 8, "provider_name": "Netflix", "logo_path": "/netflix.jpg"}],
					"rent": [{"provider_id": 2, "provider_name": "Apple TV", "logo_path": ""}]
				}
			}
		}`))
	}))
	defer srv.Close()

	client := NewTMDB(config.SourceConfig{URL: srv.URL, APIKey: "test-key"}, "US")

	records, err := client.Fetch(context.Background(), availability.Request{
		TitleID: "t1", ExternalID: "603", MediaType: "movie",
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	sub := records[0]
	if sub.ProviderName != "Netflix" || sub.Type != availability.DistSubscription {
		t.Errorf("first record = %+v, want Netflix subscription", sub)
	}
	if sub.LogoURL != tmdbLogoBase+"/netflix.jpg" {
		t.Errorf("LogoURL = %q, want CDN-prefixed path", sub.LogoURL)
	}
	if sub.SourceTier != availability.TierPrimary {
		t.Errorf("SourceTier = %v, want primary", sub.SourceTier)
	}

	if records[1].Type != availability.DistRent {
		t.Errorf("second record type = %v, want rent", records[1].Type)
	}
}

func TestTMDBFetchNoRegionData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id": 1, "results": {}}`))
	}))
	defer srv.Close()

	client := NewTMDB(config.SourceConfig{URL: srv.URL}, "US")

	records, err := client.Fetch(context.Background(), availability.Request{TitleID: "t1"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0 for absent region", len(records))
	}
}

func TestWatchmodeFetchMapsOffers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "wm-key" {
			t.Error("api key missing from request")
		}
		_, _ = w.Write([]byte(`[
			{"source_id": 203, "name": "Hulu", "type": "sub", "region": "US",
			 "web_url": "https://www.hulu.com/movie/x", "format": "HD"},
			{"source_id": 349, "name": "Amazon Video", "type": "rent", "region": "US",
			 "web_url": "https://www.amazon.com/gp/video/x", "price": 3.99, "format": "4K"},
			{"source_id": 1, "name": "Elsewhere", "type": "sub", "region": "GB"}
		]`))
	}))
	defer srv.Close()

	client := NewWatchmode(config.SourceConfig{URL: srv.URL, APIKey: "wm-key"}, "US")

	records, err := client.Fetch(context.Background(), availability.Request{TitleID: "t1", ExternalID: "12345"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2 (other-region offer dropped)", len(records))
	}
	if !records[0].Affiliate {
		t.Error("watchmode records should be affiliate-eligible")
	}
	if records[1].Type != availability.DistRent || records[1].Price != 3.99 {
		t.Errorf("rental record = %+v, want rent at 3.99", records[1])
	}
}

func TestStreamingAvailabilityFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-RapidAPI-Key") != "ra-key" {
			t.Error("RapidAPI key header missing")
		}
		_, _ = w.Write([]byte(`{
			"streamingOptions": {
				"us": [
					{"service": {"id": "netflix", "name": "Netflix",
					 "imageSet": {"lightThemeImage": "https://img/netflix.svg"}},
					 "type": "subscription", "link": "https://www.netflix.com/title/1",
					 "quality": "uhd"}
				]
			}
		}`))
	}))
	defer srv.Close()

	client := NewStreamingAvailability(config.SourceConfig{URL: srv.URL, APIKey: "ra-key"}, "us")

	records, err := client.Fetch(context.Background(), availability.Request{TitleID: "t1"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].ProviderName != "Netflix" || records[0].Format != "uhd" {
		t.Errorf("record = %+v", records[0])
	}
}

func TestJustWatchFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/graphql" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"data": {"popularTitles": {"edges": [{"node": {"offers": [
				{"monetizationType": "FLATRATE", "standardWebURL": "https://max.com/x",
				 "presentationType": "SD",
				 "package": {"packageId": 384, "clearName": "HBO Max", "icon": "/icon/max"}}
			]}}]}}
		}`))
	}))
	defer srv.Close()

	client := NewJustWatch(config.SourceConfig{URL: srv.URL}, "US")

	records, err := client.Fetch(context.Background(), availability.Request{TitleID: "t1", Title: "Example"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].ProviderName != "HBO Max" || records[0].Type != availability.DistSubscription {
		t.Errorf("record = %+v", records[0])
	}
	if records[0].SourceTier != availability.TierTertiary {
		t.Errorf("SourceTier = %v, want tertiary", records[0].SourceTier)
	}
}

func TestJustWatchFetchEmptyTitle(t *testing.T) {
	client := NewJustWatch(config.SourceConfig{URL: "http://unused"}, "US")

	records, err := client.Fetch(context.Background(), availability.Request{TitleID: "t1"})
	if err != nil || records != nil {
		t.Errorf("Fetch(no title) = %v, %v, want nil, nil", records, err)
	}
}

func TestGetJSONRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	if err := getJSON(context.Background(), srv.Client(), srv.URL, nil, &out); err != nil {
		t.Fatalf("getJSON() error = %v", err)
	}
	if !out.OK || calls.Load() != 2 {
		t.Errorf("ok=%v calls=%d, want retry then success", out.OK, calls.Load())
	}
}

func TestGetJSONErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	var out any
	if err := getJSON(context.Background(), srv.Client(), srv.URL, nil, &out); err == nil {
		t.Error("getJSON() error = nil, want error on 502")
	}
}

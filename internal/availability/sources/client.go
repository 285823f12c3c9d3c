// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

// Package sources implements the external availability catalog clients.
//
// Every client is stateless request/response: it fetches provider data for
// one title and maps the provider-specific response shape into canonical
// PlatformRecord values at its own boundary, so provider quirks never leak
// into shared logic. Clients are independently substitutable and mockable.
package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// maxErrorBodySize limits how much of an error response body is read back
// for diagnostics.
const maxErrorBodySize = 64 * 1024

// maxRateLimitRetries caps retries on HTTP 429 responses.
const maxRateLimitRetries = 5

// defaultTimeout is the HTTP client timeout. The aggregator applies a
// tighter per-call context deadline on top of this.
const defaultTimeout = 30 * time.Second

// newHTTPClient builds the shared client configuration for all sources.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// newLimiter builds the per-client outbound rate limiter. 10 requests per
// second with a burst of 20 stays well under every provider's published
// limits while letting batch lookups proceed briskly.
func newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(10), 20)
}

// readBodyForError reads a bounded amount of the response body for error
// reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// getJSON performs a GET with optional headers, retrying on HTTP 429 with
// exponential backoff (1s, 2s, 4s, 8s, 16s), and decodes the response into
// out.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out any) error {
	backoff := time.Second

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("executing request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			if attempt >= maxRateLimitRetries {
				return fmt.Errorf("rate limited after %d attempts", attempt+1)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body := readBodyForError(resp.Body)
			_ = resp.Body.Close()
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}
}

// postJSON performs a POST with a JSON body and decodes the response into
// out. Used by the GraphQL source.
func postJSON(ctx context.Context, client *http.Client, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Streamfinder - Streaming Availability and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/streamfinder

package cache

import (
	"testing"
	"time"
)

func newFrozenCache(t *testing.T, ttl time.Duration) (*Cache, *time.Time) {
	t.Helper()
	c := New(ttl)
	t.Cleanup(c.Close)

	now := time.Now()
	c.now = func() time.Time { return now }
	return c, &now
}

func TestSetGet(t *testing.T) {
	c, _ := newFrozenCache(t, time.Minute)

	c.Set("k", "v")
	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Errorf("Get(k) = %v, %v, want v, true", got, ok)
	}

	if _, ok := c.Get("absent"); ok {
		t.Error("Get(absent) = true, want miss")
	}
}

func TestExpiry(t *testing.T) {
	c, now := newFrozenCache(t, time.Minute)

	c.Set("k", "v")
	*now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("Get() after TTL = hit, want miss")
	}

	stats := c.GetStats()
	if stats.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", stats.Evictions)
	}
}

func TestSetWithTTLOverridesDefault(t *testing.T) {
	c, now := newFrozenCache(t, time.Minute)

	c.SetWithTTL("k", "v", time.Hour)
	*now = now.Add(30 * time.Minute)

	if _, ok := c.Get("k"); !ok {
		t.Error("entry with custom TTL expired early")
	}
}

func TestSetReplacesWholesale(t *testing.T) {
	c, _ := newFrozenCache(t, time.Minute)

	c.Set("k", []string{"old"})
	c.Set("k", []string{"new"})

	got, _ := c.Get("k")
	values, ok := got.([]string)
	if !ok || len(values) != 1 || values[0] != "new" {
		t.Errorf("Get(k) = %v, want replaced value", got)
	}
}

func TestDeleteAndClear(t *testing.T) {
	c, _ := newFrozenCache(t, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("Get(a) after Delete = hit, want miss")
	}

	c.Clear()
	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) after Clear = hit, want miss")
	}
	if keys := c.GetStats().Keys; keys != 0 {
		t.Errorf("Keys = %d after Clear, want 0", keys)
	}
}

func TestStatsCounters(t *testing.T) {
	c, _ := newFrozenCache(t, time.Minute)

	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("absent")

	stats := c.GetStats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 2 hits and 1 miss", stats)
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	c, now := newFrozenCache(t, time.Minute)

	c.Set("stale", 1)
	c.SetWithTTL("fresh", 2, time.Hour)
	*now = now.Add(2 * time.Minute)

	c.cleanup()

	if _, ok := c.entries["stale"]; ok {
		t.Error("cleanup left the expired entry in place")
	}
	if _, ok := c.entries["fresh"]; !ok {
		t.Error("cleanup removed a live entry")
	}
}

func TestGenerateKeyStable(t *testing.T) {
	type params struct {
		ID      string `json:"id"`
		Version string `json:"version"`
	}

	a := GenerateKey("ns", params{ID: "x", Version: "v1"})
	b := GenerateKey("ns", params{ID: "x", Version: "v1"})
	c := GenerateKey("ns", params{ID: "x", Version: "v2"})
	d := GenerateKey("other", params{ID: "x", Version: "v1"})

	if a != b {
		t.Errorf("identical params produced different keys: %q vs %q", a, b)
	}
	if a == c {
		t.Error("version change did not change the key")
	}
	if a == d {
		t.Error("namespace change did not change the key")
	}
}

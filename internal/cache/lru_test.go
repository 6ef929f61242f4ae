// Insightd - Observability Intelligence Service
// Copyright 2026 Insightd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/insightd/insightd

package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRUPutGet(t *testing.T) {
	c := NewLRU[string](10, 0)

	c.Put("a", "alpha")
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit for key a")
	}
	if got != "alpha" {
		t.Errorf("got %q, want alpha", got)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestLRUOverwrite(t *testing.T) {
	c := NewLRU[int](10, 0)
	c.Put("k", 1)
	c.Put("k", 2)

	got, ok := c.Get("k")
	if !ok || got != 2 {
		t.Errorf("got %d (hit=%v), want 2", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int](3, 0)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	// Touch a so b becomes the eviction candidate.
	c.Get("a")
	c.Put("d", 4)

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %s to survive eviction", key)
		}
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRU[int](10, 10*time.Millisecond)
	c.Put("k", 1)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("expected fresh entry to hit")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestLRUDeleteAndClear(t *testing.T) {
	c := NewLRU[int](10, 0)
	c.Put("a", 1)
	c.Put("b", 2)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be gone after Delete")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", c.Len())
	}
}

func TestLRUStats(t *testing.T) {
	c := NewLRU[int](10, 0)
	c.Put("a", 1)

	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 2 {
		t.Errorf("Hits = %d, want 2", s.Hits)
	}
	if s.Misses != 1 {
		t.Errorf("Misses = %d, want 1", s.Misses)
	}
	if s.Size != 1 {
		t.Errorf("Size = %d, want 1", s.Size)
	}
	want := 2.0 / 3.0
	if diff := s.HitRate - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("HitRate = %g, want %g", s.HitRate, want)
	}
}

func TestLRUCapacityDefault(t *testing.T) {
	c := NewLRU[int](0, 0)
	for i := 0; i < 150; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	if c.Len() != 100 {
		t.Errorf("Len() = %d, want default capacity 100", c.Len())
	}
}

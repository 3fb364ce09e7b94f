package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestPutGet(t *testing.T) {
	c := NewMemory(DefaultConfig())

	c.Put("repo", "k", "v", 0)
	got, ok := c.Get("repo", "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got != "v" {
		t.Errorf("got %v, want v", got)
	}

	// Different category, same key: independent entries.
	if _, ok := c.Get("search", "k"); ok {
		t.Error("categories must not share entries")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	c := NewMemory(DefaultConfig())
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("repo", "k", "v", time.Second)

	// Still visible before the sweep even though expired: tolerance by design.
	now = now.Add(2 * time.Second)
	if _, ok := c.Get("repo", "k"); !ok {
		t.Fatal("unswept entry should still be visible")
	}

	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if _, ok := c.Get("repo", "k"); ok {
		t.Error("expected miss after sweep")
	}
}

func TestSweepKeepsLive(t *testing.T) {
	c := NewMemory(DefaultConfig())
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("repo", "short", 1, time.Second)
	c.Put("repo", "long", 2, time.Hour)

	now = now.Add(2 * time.Second)
	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if _, ok := c.Get("repo", "long"); !ok {
		t.Error("live entry removed by sweep")
	}
}

func TestInvalidateCategory(t *testing.T) {
	c := NewMemory(DefaultConfig())
	c.Put("repo", "a", 1, 0)
	c.Put("repo", "b", 2, 0)
	c.Put("search", "a", 3, 0)

	if removed := c.Invalidate("repo"); removed != 2 {
		t.Fatalf("Invalidate(repo) removed %d, want 2", removed)
	}
	if _, ok := c.Get("search", "a"); !ok {
		t.Error("other category affected by Invalidate")
	}

	if removed := c.Invalidate(""); removed != 1 {
		t.Fatalf("Invalidate() removed %d, want 1", removed)
	}
	if c.Len() != 0 {
		t.Errorf("cache not empty after full invalidation: %d entries", c.Len())
	}
}

func TestInvalidateComponent(t *testing.T) {
	c := NewMemory(DefaultConfig())
	c.Put("search", "e1/search/abc", 1, 0)
	c.Put("content", "e1/get/def", 2, 0)
	c.Put("search", "e2/search/abc", 3, 0)

	if removed := c.InvalidateComponent("e1"); removed != 2 {
		t.Fatalf("InvalidateComponent removed %d, want 2", removed)
	}
	if _, ok := c.Get("search", "e2/search/abc"); !ok {
		t.Error("sibling component entry removed")
	}
}

func TestLRUEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEntriesPerTier = 3
	c := NewMemory(cfg)

	for i := 0; i < 3; i++ {
		c.Put("repo", fmt.Sprintf("k%d", i), i, 0)
	}
	// Touch k0 so k1 is the eviction candidate.
	c.Get("repo", "k0")
	c.Put("repo", "k3", 3, 0)

	if _, ok := c.Get("repo", "k1"); ok {
		t.Error("expected k1 evicted as least recently used")
	}
	if _, ok := c.Get("repo", "k0"); !ok {
		t.Error("recently used k0 should survive")
	}
}

func TestOverwriteRefreshes(t *testing.T) {
	c := NewMemory(DefaultConfig())
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("repo", "k", "old", time.Second)
	now = now.Add(2 * time.Second)
	c.Put("repo", "k", "new", time.Minute)

	if removed := c.Sweep(); removed != 0 {
		t.Fatalf("Sweep removed %d after refresh, want 0", removed)
	}
	got, _ := c.Get("repo", "k")
	if got != "new" {
		t.Errorf("got %v, want new", got)
	}
}

func TestSetTTLsAppliesToNewPuts(t *testing.T) {
	c := NewMemory(DefaultConfig())
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Put("search", "old", "v", 0) // 10m default tier
	c.SetTTLs(map[string]time.Duration{"search": time.Second})
	c.Put("search", "new", "v", 0)

	// Existing entries keep the TTL they were stored with.
	now = now.Add(2 * time.Second)
	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want only the short-TTL entry", removed)
	}
	if _, ok := c.Get("search", "old"); !ok {
		t.Error("entry stored under the previous table should survive")
	}
	if _, ok := c.Get("search", "new"); ok {
		t.Error("entry stored under the updated table should be swept")
	}
}

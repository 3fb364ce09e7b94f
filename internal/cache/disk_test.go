package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestDisk(t *testing.T) *Disk {
	t.Helper()
	d, err := NewDisk(filepath.Join(t.TempDir(), "cache.db"), DefaultConfig())
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestDiskPutGet(t *testing.T) {
	d := newTestDisk(t)

	d.Put("repo", "k", map[string]any{"stars": 42.0}, 0)
	got, ok := d.Get("repo", "k")
	if !ok {
		t.Fatal("expected hit")
	}
	m, ok := got.(map[string]any)
	if !ok || m["stars"] != 42.0 {
		t.Errorf("got %v, want map with stars=42", got)
	}

	if _, ok := d.Get("repo", "missing"); ok {
		t.Error("expected miss for absent key")
	}
}

func TestDiskSweep(t *testing.T) {
	d := newTestDisk(t)
	now := time.Now()
	d.now = func() time.Time { return now }

	d.Put("repo", "k", "v", time.Second)
	now = now.Add(2 * time.Second)

	if removed := d.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if _, ok := d.Get("repo", "k"); ok {
		t.Error("expected miss after sweep")
	}
}

func TestDiskInvalidate(t *testing.T) {
	d := newTestDisk(t)
	d.Put("repo", "e1/get/a", 1, 0)
	d.Put("search", "e1/search/b", 2, 0)
	d.Put("search", "e2/search/b", 3, 0)

	if removed := d.InvalidateComponent("e1"); removed != 2 {
		t.Fatalf("InvalidateComponent removed %d, want 2", removed)
	}
	if removed := d.Invalidate(""); removed != 1 {
		t.Fatalf("Invalidate() removed %d, want 1", removed)
	}
}

func TestDiskSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	d, err := NewDisk(path, DefaultConfig())
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	d.Put("repo", "k", "v", time.Hour)
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	d2, err := NewDisk(path, DefaultConfig())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer d2.Close()

	if _, ok := d2.Get("repo", "k"); !ok {
		t.Error("entry lost across reopen")
	}
}

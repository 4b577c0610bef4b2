package cache

import "testing"

type sample struct {
	Name  string
	Score float64
}

func TestTiered_MemoryOnly(t *testing.T) {
	c, err := NewTiered[sample](DefaultConfig())
	if err != nil {
		t.Fatalf("NewTiered failed: %v", err)
	}
	defer c.Close() //nolint:errcheck

	if err := c.Put("k", sample{"x", 0.5}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || got.Score != 0.5 {
		t.Errorf("Expected cached sample, got %+v (found %v)", got, ok)
	}

	if _, ok := c.Stats()[LevelDisk]; ok {
		t.Error("Disk tier should be disabled without a path")
	}
}

func TestTiered_DiskPromotion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DiskPath = t.TempDir()

	first, err := NewTiered[sample](cfg)
	if err != nil {
		t.Fatalf("NewTiered failed: %v", err)
	}
	if err := first.Put("k", sample{"persisted", 0.25}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := NewTiered[sample](cfg)
	if err != nil {
		t.Fatalf("NewTiered failed: %v", err)
	}
	defer second.Close() //nolint:errcheck

	got, ok := second.Get("k")
	if !ok || got.Name != "persisted" {
		t.Fatalf("Expected value from disk, got %+v (found %v)", got, ok)
	}

	// Second read is served from memory
	second.Get("k")
	if hits := second.Stats()[LevelMemory].Hits; hits != 1 {
		t.Errorf("Expected 1 memory hit after promotion, got %d", hits)
	}
}

package cache

import (
	"encoding/json"
	"fmt"
)

// Config holds configuration for a tiered cache.
type Config struct {
	MemoryEntries    int    // L1 capacity in entries
	DiskPath         string // L2 location, empty disables the disk tier
	DiskCapacity     int64  // L2 capacity in bytes
	CompressionLevel int    // zstd level for L2, 0 disables compression
}

// DefaultConfig returns a memory-only configuration.
func DefaultConfig() Config {
	return Config{
		MemoryEntries:    1024,
		DiskCapacity:     16 << 20,
		CompressionLevel: 3,
	}
}

// Tiered combines an L1 memory cache with an optional L2 disk cache.
// Values are JSON encoded on disk.
type Tiered[V any] struct {
	memory *Memory[V]
	disk   *Disk
}

// NewTiered creates a tiered cache.
func NewTiered[V any](cfg Config) (*Tiered[V], error) {
	t := &Tiered[V]{memory: NewMemory[V](cfg.MemoryEntries)}
	if cfg.DiskPath != "" {
		disk, err := NewDisk(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		t.disk = disk
	}
	return t, nil
}

// Get looks up a value, promoting disk hits to memory.
func (t *Tiered[V]) Get(key string) (V, bool) {
	if v, ok := t.memory.Get(key); ok {
		return v, true
	}

	var zero V
	if t.disk == nil {
		return zero, false
	}

	data, ok := t.disk.Get(key)
	if !ok {
		return zero, false
	}

	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		t.disk.Delete(key)
		return zero, false
	}
	t.memory.Put(key, v)
	return v, true
}

// Put stores a value in every tier.
func (t *Tiered[V]) Put(key string, v V) error {
	t.memory.Put(key, v)
	if t.disk == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	return t.disk.Put(key, data)
}

// Stats returns statistics per level.
func (t *Tiered[V]) Stats() map[Level]Stats {
	stats := map[Level]Stats{LevelMemory: t.memory.Stats()}
	if t.disk != nil {
		stats[LevelDisk] = t.disk.Stats()
	}
	return stats
}

// Close flushes the disk tier.
func (t *Tiered[V]) Close() error {
	if t.disk == nil {
		return nil
	}
	return t.disk.Close()
}

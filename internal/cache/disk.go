package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "index.gob"

// Disk implements an L2 disk-based cache with optional zstd compression.
// It persists values across runs.
type Disk struct {
	basePath string
	capacity int64 // Maximum size in bytes
	size     int64 // Current size in bytes

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	// Index for fast lookups
	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

// diskEntry represents an entry in the disk cache index
type diskEntry struct {
	Key          string
	FilePath     string
	Size         int64 // Size on disk
	OriginalSize int64 // Size before compression
	Timestamp    time.Time
	LastAccess   time.Time
	Hits         int64
	Compressed   bool
}

// NewDisk creates a disk cache at basePath. A compression level of 0
// stores values uncompressed.
func NewDisk(basePath string, capacity int64, compressionLevel int) (*Disk, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &Disk{
		basePath: basePath,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}

	// The decoder is always available so entries written with compression
	// stay readable after the level is set to 0.
	var err error
	dc.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	if err := dc.loadIndex(); err != nil {
		// Non-fatal: start with an empty index
		dc.index = make(map[string]*diskEntry)
	}
	for _, entry := range dc.index {
		dc.size += entry.Size
	}

	return dc, nil
}

// Get retrieves a value from the disk cache.
func (dc *Disk) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.stats.LastAccess = time.Now()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.FilePath)
	if err != nil {
		dc.dropLocked(key, entry)
		dc.stats.Misses++
		return nil, false
	}

	if entry.Compressed {
		decompressed, err := dc.decoder.DecodeAll(data, nil)
		if err != nil {
			dc.dropLocked(key, entry)
			dc.stats.Misses++
			return nil, false
		}
		data = decompressed
	}

	entry.LastAccess = time.Now()
	entry.Hits++
	dc.stats.Hits++

	return data, true
}

// Put stores a value in the disk cache.
func (dc *Disk) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data := value
	compressed := false
	if dc.encoder != nil {
		packed := dc.encoder.EncodeAll(value, nil)
		if len(packed) < len(value) {
			data = packed
			compressed = true
		}
	}

	diskSize := int64(len(data))
	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}

	if existing, ok := dc.index[key]; ok {
		dc.dropLocked(key, existing)
	}

	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	filePath := dc.filePath(key)
	if err := writeFileAtomic(filePath, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		Key:          key,
		FilePath:     filePath,
		Size:         diskSize,
		OriginalSize: int64(len(value)),
		Timestamp:    now,
		LastAccess:   now,
		Compressed:   compressed,
	}
	dc.size += diskSize

	return nil
}

// Delete removes an entry from the disk cache.
func (dc *Disk) Delete(key string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if entry, ok := dc.index[key]; ok {
		dc.dropLocked(key, entry)
	}
}

// Clear removes all entries from the disk cache.
func (dc *Disk) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key, entry := range dc.index {
		dc.dropLocked(key, entry)
	}
	dc.size = 0

	return dc.saveIndex()
}

// Size returns the current cache size in bytes.
func (dc *Disk) Size() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.size
}

// Stats returns cache statistics.
func (dc *Disk) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	stats := dc.stats
	stats.Size = dc.size
	stats.ItemCount = int64(len(dc.index))
	stats.updateHitRate()
	return stats
}

// Close persists the index and releases the codecs.
func (dc *Disk) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	err := dc.saveIndex()
	if dc.encoder != nil {
		_ = dc.encoder.Close()
	}
	dc.decoder.Close()
	return err
}

// evictOldest removes the least recently accessed entry. Callers hold the
// lock.
func (dc *Disk) evictOldest() {
	entries := make([]*diskEntry, 0, len(dc.index))
	for _, entry := range dc.index {
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.Before(entries[j].LastAccess)
	})

	oldest := entries[0]
	dc.dropLocked(oldest.Key, oldest)
	dc.stats.Evictions++
	dc.stats.LastEvict = time.Now()
}

func (dc *Disk) dropLocked(key string, entry *diskEntry) {
	_ = os.Remove(entry.FilePath)
	delete(dc.index, key)
	dc.size -= entry.Size
}

func (dc *Disk) filePath(key string) string {
	prefix := key
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(dc.basePath, prefix, key+".bin")
}

func (dc *Disk) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.basePath, indexFile))
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	index := make(map[string]*diskEntry)
	if err := gob.NewDecoder(f).Decode(&index); err != nil {
		return fmt.Errorf("%w: %w", ErrCacheCorrupted, err)
	}

	// Drop entries whose files went missing
	for key, entry := range index {
		if _, err := os.Stat(entry.FilePath); err != nil {
			delete(index, key)
		}
	}
	dc.index = index
	return nil
}

func (dc *Disk) saveIndex() error {
	path := filepath.Join(dc.basePath, indexFile)
	f, err := os.Create(path + ".tmp")
	if err != nil {
		return fmt.Errorf("failed to save cache index: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(dc.index); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode cache index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to save cache index: %w", err)
	}
	return os.Rename(path+".tmp", path)
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec
		return err
	}
	return os.Rename(tmp, path)
}

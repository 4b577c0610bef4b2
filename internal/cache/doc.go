// Package cache provides a two-level cache for derived values such as text
// analyses. It includes an in-memory LRU cache (L1) and a persistent disk
// cache (L2) with zstd compression, joined by a Tiered front.
package cache

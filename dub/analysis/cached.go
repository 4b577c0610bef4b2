package analysis

import (
	"github.com/charmbracelet/log"

	"github.com/nashdub/dubsync/internal/cache"
)

// Cached memoizes analyses by text. Analyses are pure, so entries never
// go stale for a given namespace.
type Cached struct {
	next      TextAnalyzer
	store     *cache.Tiered[TextAnalysis]
	namespace string
}

// NewCached wraps an analyzer with a cache. The namespace separates entries
// produced by differently configured analyzers.
func NewCached(next TextAnalyzer, store *cache.Tiered[TextAnalysis], namespace string) *Cached {
	return &Cached{next: next, store: store, namespace: namespace}
}

// Analyze implements TextAnalyzer.
func (c *Cached) Analyze(text string) TextAnalysis {
	key := cache.Key("analysis", c.namespace, text)
	if a, ok := c.store.Get(key); ok {
		return a
	}

	a := c.next.Analyze(text)
	if err := c.store.Put(key, a); err != nil {
		log.Debug("Could not cache text analysis", "err", err)
	}
	return a
}

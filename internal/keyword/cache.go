package keyword

import (
	"context"
	"fmt"
	"sync"

	"NoticeHub/internal/domain"
	"NoticeHub/internal/ports"
)

// CachedPhrase is one GLOBAL keyword with its normalized form precomputed.
type CachedPhrase struct {
	ID   int64
	Norm string
}

// GlobalCache holds the normalized GLOBAL phrase list. It is loaded
// lazily and must be invalidated immediately after any GLOBAL keyword
// write; nothing else refreshes it.
type GlobalCache struct {
	mu       sync.Mutex
	keywords ports.KeywordRepository
	loaded   bool
	phrases  []CachedPhrase
}

func NewGlobalCache(keywords ports.KeywordRepository) *GlobalCache {
	return &GlobalCache{keywords: keywords}
}

// Get returns the cached phrase list, loading it from the repository on
// first use or after Invalidate.
func (c *GlobalCache) Get(ctx context.Context) ([]CachedPhrase, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.phrases, nil
	}

	globals, err := c.keywords.FindByScope(ctx, domain.ScopeGlobal)
	if err != nil {
		return nil, fmt.Errorf("load global keywords: %w", err)
	}

	phrases := make([]CachedPhrase, 0, len(globals))
	for _, k := range globals {
		if n := Normalize(k.Phrase); n != "" {
			phrases = append(phrases, CachedPhrase{ID: k.ID, Norm: n})
		}
	}

	c.phrases = phrases
	c.loaded = true
	return c.phrases, nil
}

// Invalidate drops the cached list so the next Get reloads it.
func (c *GlobalCache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.phrases = nil
	c.mu.Unlock()
}

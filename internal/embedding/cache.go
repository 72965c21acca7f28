package embedding

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"

	"github.com/recallstack/recall/internal/models"
	"github.com/recallstack/recall/internal/search"
	"github.com/recallstack/recall/internal/store"
)

// CachedEmbedder wraps a provider with content-hash caching: a ristretto
// in-memory tier in front of the SQLite embedding_cache table. Entries
// cached under a different model are treated as misses.
type CachedEmbedder struct {
	provider Embedder
	hot      *ristretto.Cache
	cache    *store.EmbeddingCacheStore
	model    string
	dim      int
}

func NewCachedEmbedder(provider Embedder, cache *store.EmbeddingCacheStore, model string, dim int, maxEntries int64) (*CachedEmbedder, error) {
	hot, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{
		provider: provider,
		hot:      hot,
		cache:    cache,
		model:    model,
		dim:      dim,
	}, nil
}

// Embed returns the embedding for text, consulting the hot tier, then the
// SQLite tier, then the provider. Cache writes are best-effort.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	hash := ContentHash(text)

	if v, ok := e.hot.Get(hash); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	entry, err := e.cache.Get(hash)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if entry != nil && entry.Model == e.model {
		vec := search.BytesToFloat32(entry.Embedding)
		e.hot.Set(hash, vec, 1)
		return vec, nil
	}

	vec, err := e.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.hot.Set(hash, vec, 1)
	cacheEntry := &models.EmbeddingCacheEntry{
		ContentHash: hash,
		Embedding:   search.Float32ToBytes(vec),
		Dimension:   e.dim,
		Model:       e.model,
	}
	// Non-fatal on failure, the vector is still returned.
	_ = e.cache.Put(cacheEntry)

	return vec, nil
}

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"greencheck/internal/domain"
	"greencheck/internal/port"
)

// QueryCache memoizes retrieval results per (source tag, query, limit).
// Entries are stamped with the corpus generation, so Invalidate also
// discards results computed concurrently with a re-ingest.
type QueryCache struct {
	cache    *gocache.Cache
	indexGen atomic.Uint64
}

func NewQueryCache(ttl time.Duration) *QueryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func cacheKey(gen uint64, sourceTag, query string, limit int) string {
	data := fmt.Sprintf("%d\x00%s\x00%d\x00%s", gen, sourceTag, limit, query)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Generation() uint64 {
	return c.indexGen.Load()
}

func (c *QueryCache) Get(gen uint64, sourceTag, query string, limit int) ([]domain.Chunk, bool) {
	val, found := c.cache.Get(cacheKey(gen, sourceTag, query, limit))
	if !found {
		return nil, false
	}
	return val.([]domain.Chunk), true
}

func (c *QueryCache) Put(gen uint64, sourceTag, query string, limit int, results []domain.Chunk) {
	c.cache.SetDefault(cacheKey(gen, sourceTag, query, limit), results)
}

// Invalidate drops every entry and advances the generation.
func (c *QueryCache) Invalidate() {
	c.indexGen.Add(1)
	c.cache.Flush()
}

func (c *QueryCache) Size() int {
	return c.cache.ItemCount()
}

// CachedRetriever serves repeated retrievals from a QueryCache. Errors and
// empty results are not cached.
type CachedRetriever struct {
	retriever port.Retriever
	cache     *QueryCache
}

func NewCachedRetriever(retriever port.Retriever, cache *QueryCache) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		cache:     cache,
	}
}

func (r *CachedRetriever) Retrieve(ctx context.Context, query, sourceTag string, limit int) ([]domain.Chunk, error) {
	gen := r.cache.Generation()
	if results, hit := r.cache.Get(gen, sourceTag, query, limit); hit {
		return results, nil
	}

	results, err := r.retriever.Retrieve(ctx, query, sourceTag, limit)
	if err != nil {
		return nil, err
	}

	if len(results) > 0 {
		r.cache.Put(gen, sourceTag, query, limit, results)
	}
	return results, nil
}

// Invalidate satisfies the ingestion use case's cache hook.
func (r *CachedRetriever) Invalidate() {
	r.cache.Invalidate()
}

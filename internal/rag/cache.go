package rag

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Cache memoises built indexes by document content hash.
type Cache struct {
	c *cache.Cache
}

// NewCache keeps entries for ttl; zero keeps them until Invalidate.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		return &Cache{c: cache.New(cache.NoExpiration, 0)}
	}
	return &Cache{c: cache.New(ttl, 2*ttl)}
}

func (c *Cache) Get(key string) (*Index, bool) {
	v, ok := c.c.Get(key)
	if !ok {
		return nil, false
	}
	idx, ok := v.(*Index)
	return idx, ok
}

func (c *Cache) Set(key string, idx *Index) {
	c.c.SetDefault(key, idx)
}

func (c *Cache) Len() int { return c.c.ItemCount() }

func (c *Cache) Invalidate() { c.c.Flush() }

package cache

import (
	"errors"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

// Cache holds encoded values under string keys.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Del(key string)
	Clear()
}

var _ Cache = (*FreeCache)(nil)

type FreeCache struct {
	cache *freecache.Cache
	ttl   time.Duration
}

// NewFreeCache creates an in-process cache of sizeBytes (freecache enforces a 512KB minimum).
// A zero ttl keeps entries until they are evicted.
func NewFreeCache(sizeBytes int, ttl time.Duration) *FreeCache {
	return &FreeCache{
		cache: freecache.NewCache(sizeBytes),
		ttl:   ttl,
	}
}

func (c *FreeCache) Get(key string) ([]byte, bool) {
	value, err := c.cache.Get([]byte(key))
	if err != nil {
		if !errors.Is(err, freecache.ErrNotFound) {
			log.Errorf("cache get %s: %s", key, err)
		}
		return nil, false
	}
	return value, true
}

func (c *FreeCache) Set(key string, value []byte) {
	if err := c.cache.Set([]byte(key), value, int(c.ttl.Seconds())); err != nil {
		// values larger than 1/1024 of the cache size are rejected
		log.Warnf("cache set %s [%d bytes]: %s", key, len(value), err)
	}
}

func (c *FreeCache) Del(key string) {
	c.cache.Del([]byte(key))
}

func (c *FreeCache) Clear() {
	c.cache.Clear()
}

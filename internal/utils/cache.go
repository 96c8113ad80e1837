package utils

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheItem[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache 带过期时间的本地 LRU 缓存，可并发使用。
type TTLCache[K comparable, V any] struct {
	lruCache *lru.Cache[K, cacheItem[V]]
	ttl      time.Duration
	now      func() time.Time
}

// NewTTLCache 创建容量为 size 的缓存；ttl <= 0 表示不过期。
func NewTTLCache[K comparable, V any](size int, ttl time.Duration) (*TTLCache[K, V], error) {
	l, err := lru.New[K, cacheItem[V]](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &TTLCache[K, V]{lruCache: l, ttl: ttl, now: time.Now}, nil
}

// Set 写入缓存
func (c *TTLCache[K, V]) Set(key K, value V) {
	item := cacheItem[V]{value: value}
	if c.ttl > 0 {
		item.expiresAt = c.now().Add(c.ttl)
	}
	c.lruCache.Add(key, item)
}

// Get 读取缓存，不存在或已过期时 ok 为 false
func (c *TTLCache[K, V]) Get(key K) (value V, ok bool) {
	item, ok := c.lruCache.Get(key)
	if !ok {
		return value, false
	}
	if !item.expiresAt.IsZero() && c.now().After(item.expiresAt) {
		c.lruCache.Remove(key)
		return value, false
	}
	return item.value, true
}

// Delete 删除指定缓存
func (c *TTLCache[K, V]) Delete(key K) {
	c.lruCache.Remove(key)
}

func (c *TTLCache[K, V]) Len() int {
	return c.lruCache.Len()
}

package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Ключи кэша
const (
	adminCachePrefix = "admin:"
	StatsCacheKey    = adminCachePrefix + "stats"
)

type cached struct {
	value   any
	expires time.Time
}

// CacheService хранит агрегаты админки в памяти с TTL. Одновременные промахи
// по одному ключу вычисляются один раз.
type CacheService struct {
	mu      sync.RWMutex
	entries map[string]cached
	loads   singleflight.Group
	now     func() time.Time
}

// NewCacheService создаёт кэш. Очистку просроченных записей запускает Run.
func NewCacheService() *CacheService {
	return &CacheService{entries: map[string]cached{}, now: time.Now}
}

func (c *CacheService) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return nil, false
	}
	return e.value, true
}

func (c *CacheService) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = cached{value: value, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

// GetOrSet отдаёт живое значение или вызывает load и запоминает результат.
// Ошибка load не кэшируется.
func (c *CacheService) GetOrSet(key string, ttl time.Duration, load func() (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.loads.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	return v, err
}

// InvalidateByPrefix сбрасывает все ключи с префиксом.
func (c *CacheService) InvalidateByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Run раз в every выбрасывает просроченные записи, пока ctx не отменён.
func (c *CacheService) Run(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *CacheService) evictExpired() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, key)
		}
	}
}

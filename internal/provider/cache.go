package provider

import (
	"sync"
	"time"
)

// optionsCache 进程内TTL缓存
// 规格/版本等选项变化极少但每步会话都要查询，缓存1小时以控制API调用量。
// 时钟可注入，测试无需真实等待
type optionsCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

func newOptionsCache(now func() time.Time) *optionsCache {
	if now == nil {
		now = time.Now
	}
	return &optionsCache{
		entries: make(map[string]cacheEntry),
		now:     now,
	}
}

// getOrRefresh 命中且未过期直接返回，否则调用refresh并缓存结果
// refresh失败时不写缓存，错误原样返回
func (c *optionsCache) getOrRefresh(key string, ttl time.Duration, refresh func() (interface{}, error)) (interface{}, error) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.value, nil
	}
	c.mu.Unlock()

	value, err := refresh()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return value, nil
}

// invalidate 移除一个缓存项
func (c *optionsCache) invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

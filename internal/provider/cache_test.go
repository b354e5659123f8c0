package provider

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestOptionsCache TTL内命中缓存，过期后刷新（注入时钟，无真实等待）
func TestOptionsCache(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.Local)
	cache := newOptionsCache(func() time.Time { return now })

	refreshes := 0
	refresh := func() (interface{}, error) {
		refreshes++
		return refreshes, nil
	}

	v, err := cache.getOrRefresh("sizes", time.Hour, refresh)
	require.NoError(t, err)
	require.Equal(t, 1, v)

	// TTL内重复取值不刷新
	now = now.Add(59 * time.Minute)
	v, err = cache.getOrRefresh("sizes", time.Hour, refresh)
	require.NoError(t, err)
	require.Equal(t, 1, v)
	require.Equal(t, 1, refreshes)

	// 过期后刷新
	now = now.Add(2 * time.Minute)
	v, err = cache.getOrRefresh("sizes", time.Hour, refresh)
	require.NoError(t, err)
	require.Equal(t, 2, v)
	require.Equal(t, 2, refreshes)
}

// TestOptionsCacheRefreshError 刷新失败不污染缓存，下次重试
func TestOptionsCacheRefreshError(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.Local)
	cache := newOptionsCache(func() time.Time { return now })

	_, err := cache.getOrRefresh("options", time.Hour, func() (interface{}, error) {
		return nil, errors.New("api down")
	})
	require.Error(t, err)

	v, err := cache.getOrRefresh("options", time.Hour, func() (interface{}, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	require.Equal(t, "fresh", v)
}

// TestOptionsCacheInvalidate 失效后强制刷新
func TestOptionsCacheInvalidate(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.Local)
	cache := newOptionsCache(func() time.Time { return now })

	refreshes := 0
	refresh := func() (interface{}, error) {
		refreshes++
		return refreshes, nil
	}

	_, _ = cache.getOrRefresh("k", time.Hour, refresh)
	cache.invalidate("k")
	v, err := cache.getOrRefresh("k", time.Hour, refresh)
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

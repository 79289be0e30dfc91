// Package cache 首页（全站 feed）渲染结果的短 TTL 缓存
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/postfeed/pkg/logger"
)

// Loader 缓存未命中时计算某一页的渲染结果
type Loader func(ctx context.Context) ([]byte, error)

// IndexCache 按页缓存首页响应体。写操作不做失效，新帖最多延迟一个 TTL 可见
type IndexCache struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
	loads  atomic.Int64
}

func NewIndexCache(rdb redis.UniversalClient, prefix string, ttl time.Duration) *IndexCache {
	return &IndexCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Key 页面对应的缓存键
func (c *IndexCache) Key(page int) string {
	return fmt.Sprintf("%s:page:%d", c.prefix, page)
}

// Fetch 命中时原样返回缓存字节；未命中时调用 loader 并写回。
// page 为请求的页码（越界前），同一页码在 TTL 内总是得到同一份响应
func (c *IndexCache) Fetch(ctx context.Context, page int, load Loader) ([]byte, error) {
	key := c.Key(page)
	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.hits.Add(1)
		return data, nil
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
	default:
		// redis 不可用时退化为直接计算
		c.misses.Add(1)
		logger.Warn("index cache get failed", zap.String("key", key), zap.Error(err))
	}

	c.loads.Add(1)
	data, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("index cache set failed", zap.String("key", key), zap.Error(err))
	}
	return data, nil
}

// Clear 删除前缀下的全部键，返回删除数量
func (c *IndexCache) Clear(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+":*", 100).Result()
		if err != nil {
			return removed, fmt.Errorf("scan %s: %w", c.prefix, err)
		}
		if len(keys) > 0 {
			pipe := c.rdb.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return removed, fmt.Errorf("delete keys: %w", err)
			}
			removed += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	logger.Info("index cache cleared", zap.String("prefix", c.prefix), zap.Int("keys", removed))
	return removed, nil
}

// ResetCounters clears recorded counters.
func (c *IndexCache) ResetCounters() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.loads.Store(0)
}

// Counters reports cache hits, misses and loader calls.
func (c *IndexCache) Counters() Counters {
	return Counters{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Loads:  c.loads.Load(),
	}
}

// Counters summarises cache activity during a run.
type Counters struct {
	Hits   int64
	Misses int64
	Loads  int64
}

package socorro

import (
	"context"
	"time"

	"github.com/golang/groupcache/singleflight"

	"github.com/yeisme/file2crashes/pkg/cache"
	"github.com/yeisme/file2crashes/pkg/internal/storage/kv"
)

// PayloadFetcher 获取 ProcessedCrash 负载.
type PayloadFetcher interface {
	ProcessedCrash(ctx context.Context, crashID string) (*ProcessedCrash, error)
}

// CachedFetcher 在 KV 中缓存 ProcessedCrash 负载；处理后的负载不再变化.
// 同一 crashID 的并发未命中只请求一次远程.
type CachedFetcher struct {
	next   PayloadFetcher
	cache  *cache.Cache
	group  singleflight.Group
	prefix string
	ttl    time.Duration
}

// NewCachedFetcher 创建带缓存的负载获取器.
func NewCachedFetcher(next PayloadFetcher, store kv.KVStore, prefix string, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		next:   next,
		cache:  cache.NewCache(store),
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key 返回 crashID 对应的缓存键.
func (f *CachedFetcher) Key(crashID string) string {
	return f.prefix + "processed." + crashID
}

// ProcessedCrash 先查缓存，未命中时请求远程并写回.
func (f *CachedFetcher) ProcessedCrash(ctx context.Context, crashID string) (*ProcessedCrash, error) {
	key := f.Key(crashID)

	v, err := f.group.Do(key, func() (any, error) {
		return cache.GetOrSet(ctx, f.cache, key, func() (ProcessedCrash, error) {
			p, err := f.next.ProcessedCrash(ctx, crashID)
			if err != nil {
				return ProcessedCrash{}, err
			}

			return *p, nil
		}, f.ttl)
	})
	if err != nil {
		return nil, err
	}

	pc := v.(ProcessedCrash)

	return &pc, nil
}

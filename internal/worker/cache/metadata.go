package cache

import (
	"context"
	"time"

	"web3-sentry/internal/worker/model"
	"web3-sentry/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	META_CACHE_TTL       = 10 * time.Minute // 本地元数据过期时间
	META_CACHE_REDIS_TTL = 1 * time.Hour    // Redis元数据TTL
)

// MetadataProvider 上游元数据源
type MetadataProvider interface {
	FetchTokenMetadata(ctx context.Context, network, tokenAddr string) (*model.TokenMetadata, error)
}

// MetadataCache 两级元数据缓存。元数据抓取后基本不变，
// 定时重分析时省掉重复的上游请求
type MetadataCache struct {
	tl         *zap.Logger
	provider   MetadataProvider
	localCache *cache.Cache
	redis      *redis.Client
}

func NewMetadataCache(tl *zap.Logger, provider MetadataProvider, rdb *redis.Client) *MetadataCache {
	return &MetadataCache{
		tl:         tl,
		provider:   provider,
		localCache: cache.New(META_CACHE_TTL, time.Minute),
		redis:      rdb,
	}
}

// FetchTokenMetadata 逐级查缓存，击穿才打上游。上游失败时错误原样返回
func (c *MetadataCache) FetchTokenMetadata(ctx context.Context, network, tokenAddr string) (*model.TokenMetadata, error) {
	key := utils.TokenMetadataKey(network, tokenAddr)

	if v, ok := c.localCache.Get(key); ok {
		return v.(*model.TokenMetadata), nil
	}

	if c.redis != nil {
		if raw, err := c.redis.Get(ctx, key).Bytes(); err == nil {
			var meta model.TokenMetadata
			if err := sonic.Unmarshal(raw, &meta); err == nil {
				c.localCache.Set(key, &meta, cache.DefaultExpiration)
				return &meta, nil
			}
		}
	}

	meta, err := c.provider.FetchTokenMetadata(ctx, network, tokenAddr)
	if err != nil {
		return nil, err
	}

	c.localCache.Set(key, meta, cache.DefaultExpiration)
	if c.redis != nil {
		if raw, err := sonic.Marshal(meta); err == nil {
			_ = c.redis.Set(ctx, key, raw, META_CACHE_REDIS_TTL).Err()
		}
	}

	return meta, nil
}

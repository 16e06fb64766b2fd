package cache

import (
	"context"
	"time"

	"web3-sentry/pkg/utils"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	PRICE_CACHE_TTL       = 30 * time.Second // 本地缓存过期时间
	PRICE_CACHE_REDIS_TTL = 5 * time.Minute  // Redis价格TTL
)

// PriceProvider 上游价格源
type PriceProvider interface {
	GetTokenPrice(ctx context.Context, network, tokenAddr string) (decimal.Decimal, error)
}

// PriceCache 两级价格缓存：本地 go-cache + Redis，击穿才打上游
type PriceCache struct {
	tl         *zap.Logger
	provider   PriceProvider
	localCache *cache.Cache
	redis      *redis.Client
}

// NewPriceCache 创建价格缓存实例
func NewPriceCache(tl *zap.Logger, provider PriceProvider, rdb *redis.Client) *PriceCache {
	return &PriceCache{
		tl:         tl,
		provider:   provider,
		localCache: cache.New(PRICE_CACHE_TTL, time.Minute),
		redis:      rdb,
	}
}

// GetPrice 查询USD价格。任何一级失效都继续向下，最终查不到返回0（定价缺失不致命）
func (c *PriceCache) GetPrice(ctx context.Context, network, tokenAddr string) decimal.Decimal {
	key := utils.TokenPriceKey(network, tokenAddr)

	if v, ok := c.localCache.Get(key); ok {
		return v.(decimal.Decimal)
	}

	if c.redis != nil {
		if s, err := c.redis.Get(ctx, key).Result(); err == nil {
			if price, err := decimal.NewFromString(s); err == nil {
				c.localCache.Set(key, price, cache.DefaultExpiration)
				return price
			}
		}
	}

	price, err := c.provider.GetTokenPrice(ctx, network, tokenAddr)
	if err != nil {
		c.tl.Warn("price lookup failed, treating as zero",
			zap.String("token", tokenAddr),
			zap.String("network", network),
			zap.Error(err))
		return decimal.Zero
	}

	c.localCache.Set(key, price, cache.DefaultExpiration)
	if c.redis != nil && price.IsPositive() {
		_ = c.redis.Set(ctx, key, price.String(), PRICE_CACHE_REDIS_TTL).Err()
	}

	return price
}

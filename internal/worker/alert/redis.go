package alert

import (
	"context"

	"web3-sentry/internal/worker/model"
	"web3-sentry/pkg/utils"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

const recentAlertsKeep = 100

// RedisSink 维护每个代币最近N条告警的列表，给展示层快速读取
type RedisSink struct {
	rdb *redis.Client
}

func NewRedisSink(rdb *redis.Client) *RedisSink {
	return &RedisSink{rdb: rdb}
}

func (s *RedisSink) Name() string {
	return "redis"
}

func (s *RedisSink) Deliver(ctx context.Context, alert model.SellAlert) error {
	jsonData, err := sonic.Marshal(alert)
	if err != nil {
		return err
	}

	key := utils.RecentAlertsKey(alert.Network, alert.TokenAddress)
	pipe := s.rdb.Pipeline()
	pipe.LPush(ctx, key, jsonData)
	pipe.LTrim(ctx, key, 0, recentAlertsKeep-1)
	_, err = pipe.Exec(ctx)
	return err
}

package repository

import (
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"web3-sentry/pkg/elasticsearch"
)

type RedisClient = *redis.Client
type DBClient = *gorm.DB
type MQClient = *kafka.Writer

type Repository interface {
	GetMainRDB() RedisClient
	GetPriceRDB() RedisClient
	GetDB() DBClient
	GetMQ() MQClient
	GetEvmClient() *ethclient.Client
	GetES() *elasticsearch.Client
	Close() error
}

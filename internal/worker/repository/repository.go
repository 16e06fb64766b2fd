package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/model"
	"web3-sentry/pkg/database"
	"web3-sentry/pkg/elasticsearch"
	"web3-sentry/pkg/evm_client"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var once sync.Once
var r *repositoryImpl

func New(cfg config.Config, logger *zap.Logger) Repository {
	once.Do(func() {
		r = &repositoryImpl{
			cfg:    cfg,
			logger: logger,
		}
		r.init()
	})
	return r
}

type repositoryImpl struct {
	cfg       config.Config
	logger    *zap.Logger
	db        *gorm.DB
	mainRdb   *redis.Client
	priceRdb  *redis.Client
	mq        *kafka.Writer
	evmClient *ethclient.Client
	esClient  *elasticsearch.Client
}

func (r *repositoryImpl) init() {
	var err error
	r.db, err = database.InitPG(r.cfg.Postgres.DSN)
	if err != nil {
		panic(err)
	}

	if err := r.db.AutoMigrate(&model.WatchedWallet{}, &model.SellAlertRecord{}); err != nil {
		r.logger.Warn("auto migrate failed, continue", zap.Error(err))
	}

	// 初始化 Main RDB
	r.mainRdb = redis.NewClient(&redis.Options{
		Addr:     r.cfg.Redis.Address,
		Password: r.cfg.Redis.Password,
		DB:       r.cfg.Redis.DB,
		PoolSize: 20,
	})

	if err := r.mainRdb.Ping(context.Background()).Err(); err != nil {
		r.logger.Warn("failed to connect to redis, continue", zap.Error(err))
	}

	// 初始化 Price RDB
	r.priceRdb = redis.NewClient(&redis.Options{
		Addr:     r.cfg.Redis.Address,
		Password: r.cfg.Redis.Password,
		DB:       r.cfg.Redis.DBPrice,
	})

	if err := r.priceRdb.Ping(context.Background()).Err(); err != nil {
		r.logger.Warn("failed to connect to price redis, continue", zap.Error(err))
	}

	if strings.TrimSpace(r.cfg.Kafka.Brokers) != "" {
		brokers := strings.Split(r.cfg.Kafka.Brokers, ",")
		r.mq = &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    1000,
			BatchBytes:   1024 * 1024, // 1MB
			Async:        true,
			RequiredAcks: kafka.RequireNone,
			Compression:  kafka.Snappy,
			MaxAttempts:  5,
			WriteTimeout: 500 * time.Millisecond,
		}
	} else {
		r.logger.Info("kafka brokers empty, skip kafka initialization")
	}

	if len(r.cfg.Elasticsearch.Addresses) > 0 {
		r.esClient, _ = elasticsearch.NewClient(elasticsearch.Config{
			Addresses: r.cfg.Elasticsearch.Addresses,
			Username:  r.cfg.Elasticsearch.Username,
			Password:  r.cfg.Elasticsearch.Password,
		}, r.logger)
	} else {
		r.logger.Info("elasticsearch addresses empty, skip es initialization")
	}

	// 初始化rpc client
	r.evmClient = evm_client.Init(r.cfg.EvmClientRawUrl)
}

func (r *repositoryImpl) GetMainRDB() *redis.Client {
	return r.mainRdb
}

func (r *repositoryImpl) GetPriceRDB() *redis.Client {
	return r.priceRdb
}

func (r *repositoryImpl) GetDB() *gorm.DB {
	return r.db
}

func (r *repositoryImpl) GetMQ() MQClient {
	return r.mq
}

func (r *repositoryImpl) GetEvmClient() *ethclient.Client {
	return r.evmClient
}

func (r *repositoryImpl) GetES() *elasticsearch.Client {
	return r.esClient
}

func (r *repositoryImpl) Close() error {
	if r.db != nil {
		sqlDB, _ := r.db.DB()
		sqlDB.Close()
	}
	if r.mainRdb != nil {
		r.mainRdb.Close()
	}
	if r.priceRdb != nil {
		r.priceRdb.Close()
	}
	if r.mq != nil {
		r.mq.Close()
	}
	return nil
}

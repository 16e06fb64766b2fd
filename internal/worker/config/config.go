package config

import (
	"fmt"

	"web3-sentry/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config 定义整个配置的结构
type Config struct {
	Log             LogConfig           `mapstructure:"log"`
	Postgres        PostgresConfig      `mapstructure:"postgres"`
	Redis           RedisConfig         `mapstructure:"redis"`
	Kafka           KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch   ElasticsearchConfig `mapstructure:"elasticsearch"`
	Lark            LarkConfig          `mapstructure:"lark"`
	Monitor         MonitorConfig       `mapstructure:"monitor"`
	Moralis         MoralisConfig       `mapstructure:"moralis"`
	Etherscan       EtherscanConfig     `mapstructure:"etherscan"`
	Dexscreener     DexscreenerConfig   `mapstructure:"dexscreener"`
	Analyzer        AnalyzerConfig      `mapstructure:"analyzer"`
	Watcher         WatcherConfig       `mapstructure:"watcher"`
	Watchlist       []WatchlistEntry    `mapstructure:"watchlist"`
	EvmClientRawUrl string              `mapstructure:"evm_client_rawurl"`
}

// LogConfig Log 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	DBPrice  int    `mapstructure:"db_price"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	TopicAlert string `mapstructure:"topic_alert"`
}

type ElasticsearchConfig struct {
	Addresses       []string `mapstructure:"addresses"`
	Username        string   `mapstructure:"username"`
	Password        string   `mapstructure:"password"`
	AlertsIndexName string   `mapstructure:"alerts_index_name"`
}

// LarkConfig Lark 配置
type LarkConfig struct {
	Webhook string `mapstructure:"webhook"`
}

type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

type MoralisConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	RateLimit int    `mapstructure:"rate_limit"`
	Timeout   int    `mapstructure:"timeout"`
}

type EtherscanConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	RateLimit int    `mapstructure:"rate_limit"`
	Timeout   int    `mapstructure:"timeout"`
}

type DexscreenerConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	RateLimit int    `mapstructure:"rate_limit"`
	Timeout   int    `mapstructure:"timeout"`
}

// AnalyzerConfig 分类器阈值
type AnalyzerConfig struct {
	HolderLimit         int     `mapstructure:"holder_limit"`           // 拉取的top持有者数量
	TeamThresholdPct    float64 `mapstructure:"team_threshold_pct"`     // 集中度规则阈值（占供应量百分比）
	TeamHighRiskPct     float64 `mapstructure:"team_high_risk_pct"`     // 超过此值集中度规则判定high
	BundleTxLimit       int     `mapstructure:"bundle_tx_limit"`        // 行为规则中的低交易数界限
	QuickFlipWindowHour int     `mapstructure:"quick_flip_window_hour"` // 快速抛售时间窗（小时）
	TxHistoryLimit      int     `mapstructure:"tx_history_limit"`       // 每个钱包拉取的历史交易数
	ClassifyConcurrency int     `mapstructure:"classify_concurrency"`   // 批量分类并发度
}

// WatcherConfig 实时监控配置
type WatcherConfig struct {
	PollIntervalSec  int     `mapstructure:"poll_interval_sec"`  // 轮询周期
	BatchSize        int     `mapstructure:"batch_size"`         // 每批并发检查的钱包数
	BatchDelaySec    int     `mapstructure:"batch_delay_sec"`    // 批次之间的间隔
	SellThresholdPct float64 `mapstructure:"sell_threshold_pct"` // 卖出判定的余额下降百分比
}

// WatchlistEntry 启动时要分析并监控的代币
type WatchlistEntry struct {
	TokenAddress string `mapstructure:"token_address"`
	Network      string `mapstructure:"network"`
}

func InitConfig() Config {
	var config Config

	viper.SetConfigName("config.worker")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config/")

	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	if err := mapstructure.Decode(viper.AllSettings(), &config); err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	config.ApplyDefaults()
	return config
}

// ApplyDefaults 填充未配置项的默认值
func (c *Config) ApplyDefaults() {
	if c.Analyzer.HolderLimit <= 0 {
		c.Analyzer.HolderLimit = 50
	}
	if c.Analyzer.TeamThresholdPct <= 0 {
		// 刻意偏低的灵敏阈值，生产环境应按代币调参
		c.Analyzer.TeamThresholdPct = 0.1
	}
	if c.Analyzer.TeamHighRiskPct <= 0 {
		c.Analyzer.TeamHighRiskPct = 10
	}
	if c.Analyzer.BundleTxLimit <= 0 {
		c.Analyzer.BundleTxLimit = 10
	}
	if c.Analyzer.QuickFlipWindowHour <= 0 {
		c.Analyzer.QuickFlipWindowHour = 24
	}
	if c.Analyzer.TxHistoryLimit <= 0 {
		c.Analyzer.TxHistoryLimit = 100
	}
	if c.Analyzer.ClassifyConcurrency <= 0 {
		c.Analyzer.ClassifyConcurrency = 5
	}
	if c.Watcher.PollIntervalSec <= 0 {
		c.Watcher.PollIntervalSec = 25
	}
	if c.Watcher.BatchSize <= 0 {
		c.Watcher.BatchSize = 3
	}
	if c.Watcher.BatchDelaySec <= 0 {
		c.Watcher.BatchDelaySec = 2
	}
	if c.Watcher.SellThresholdPct <= 0 {
		c.Watcher.SellThresholdPct = 1
	}
}

func WatchConfig(config *Config) {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := InitConfig()
		*config = newConfig
		logger.SetLogLevel(config.Log.Level)
	})
}

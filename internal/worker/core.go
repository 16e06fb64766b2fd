package worker

import (
	"context"
	"time"

	"web3-sentry/internal/worker/alert"
	"web3-sentry/internal/worker/analyzer"
	"web3-sentry/internal/worker/cache"
	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/job"
	"web3-sentry/internal/worker/monitor"
	"web3-sentry/internal/worker/provider"
	"web3-sentry/internal/worker/repository"
	"web3-sentry/internal/worker/watcher"
	"web3-sentry/pkg/dexscreener"
	"web3-sentry/pkg/etherscan"
	"web3-sentry/pkg/moralis"

	"go.uber.org/zap"
)

type Core struct {
	cfg       config.Config
	tl        *zap.Logger
	repo      repository.Repository
	scheduler *job.Scheduler
	watchlist *job.WatchlistLoad
	dbSink    *alert.DBSink
	metrics   *monitor.MetricsServer
}

func New(cfg config.Config, logger *zap.Logger) *Core {
	// 初始化作业调度器
	scheduler := job.NewScheduler(logger)

	// 初始化repo
	repo := repository.New(cfg, logger)

	// 上游数据源客户端
	moralisProvider := provider.NewMoralisProvider(moralis.NewMoralisClient(cfg.Moralis, logger))
	scanProvider := provider.NewEtherscanProvider(etherscan.NewEtherscanClient(cfg.Etherscan, logger))
	priceCache := cache.NewPriceCache(logger, dexscreener.NewDexscreenerClient(cfg.Dexscreener, logger), repo.GetPriceRDB())
	balanceProvider := provider.NewChainBalanceProvider(repo.GetEvmClient())

	// 分析器。元数据走缓存层，Moralis不可用时兜底到链上读取
	metaCache := cache.NewMetadataCache(logger, moralisProvider, repo.GetPriceRDB())
	chainMeta := provider.NewChainMetadataProvider(repo.GetEvmClient())
	fetcher := analyzer.NewFetcher(metaCache, chainMeta, moralisProvider, scanProvider, logger)
	classifier := analyzer.NewClassifier(cfg.Analyzer, scanProvider, logger)
	tokenAnalyzer := analyzer.NewAnalyzer(cfg.Analyzer, fetcher, scanProvider, classifier, logger)

	// 告警投递端，按配置裁剪
	dbSink := alert.NewDBSink(context.Background(), repo.GetDB(), logger)
	sinks := []alert.Sink{dbSink}
	if cfg.Lark.Webhook != "" {
		sinks = append(sinks, alert.NewLarkSink(cfg.Lark, logger))
	}
	if repo.GetMQ() != nil && cfg.Kafka.TopicAlert != "" {
		sinks = append(sinks, alert.NewKafkaSink(repo.GetMQ(), cfg.Kafka.TopicAlert, logger))
	}
	if repo.GetMainRDB() != nil {
		sinks = append(sinks, alert.NewRedisSink(repo.GetMainRDB()))
	}
	if repo.GetES() != nil && cfg.Elasticsearch.AlertsIndexName != "" {
		sinks = append(sinks, alert.NewESSink(context.Background(), repo.GetES(), cfg.Elasticsearch.AlertsIndexName, logger))
	}
	dispatcher := alert.NewDispatcher(logger, sinks...)

	newWatcher := func() *watcher.Watcher {
		return watcher.New(cfg.Watcher, balanceProvider, priceCache, dispatcher, logger)
	}

	// 启动：分析watchlist并拉起监控
	watchlist := job.NewWatchlistLoad(cfg, repo, tokenAnalyzer, newWatcher, logger)
	scheduler.RegisterOnceJob("watchlist_load", watchlist.Run)

	// 定时清理过期告警 - 每小时执行一次
	alertCleanup := job.NewAlertCleanup(cfg, repo, logger)
	scheduler.RegisterJob("alert_cleanup", 1*time.Hour, alertCleanup.Run)

	// 定時：整體風險重算（每 2 小時）
	riskRefresh := job.NewRiskRefresh(cfg, tokenAnalyzer, logger)
	scheduler.RegisterJob("risk_refresh", 2*time.Hour, riskRefresh.Run)

	core := &Core{
		cfg:       cfg,
		repo:      repo,
		tl:        logger,
		scheduler: scheduler,
		watchlist: watchlist,
		dbSink:    dbSink,
		metrics:   monitor.NewMetricsServer(cfg.Monitor),
	}
	return core
}

func (c *Core) Start(ctx context.Context) {
	c.tl.Info("Starting worker core...")
	// 启动监控服务
	if c.metrics != nil {
		c.metrics.Run()
	}

	// 启动调度器
	c.scheduler.Start(ctx)
	c.tl.Info("Worker started successfully")

	// 等待外部关闭信号
	<-ctx.Done()
	c.tl.Info("Shutting down worker due to context cancellation...")
}

// Stop 优雅关闭 Core 的所有资源
func (c *Core) Stop(ctx context.Context) {
	c.tl.Info("Stopping worker core...")

	// 停掉所有watcher
	c.watchlist.StopAll()

	// 停止调度器
	if c.scheduler != nil {
		c.scheduler.Stop(ctx)
	}

	// 排空告警写入通道
	if c.dbSink != nil {
		c.dbSink.Close()
	}

	// 停止 Prometheus 监控服务
	if c.metrics != nil {
		_ = c.metrics.Stop(ctx)
	}

	c.repo.Close()

	c.tl.Info("Worker core stopped.")
}

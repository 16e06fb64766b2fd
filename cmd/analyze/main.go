package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"
	"web3-sentry/internal/worker/analyzer"
	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/provider"
	"web3-sentry/pkg/etherscan"
	"web3-sentry/pkg/logger"
	"web3-sentry/pkg/moralis"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// 一次性任务：对单个代币跑完整分析并输出JSON结果

func main() {
	network := flag.String("network", "BSC", "network tag (ETH/BSC/POLYGON/BASE)")
	token := flag.String("token", "", "token contract address")
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -network BSC -token 0x...")
		os.Exit(2)
	}

	startTime := time.Now()
	// 初始化配置文件
	cfg := config.InitConfig()

	// 初始化 trace provider
	logger.InitTrace("web3-sentry", "analyze")
	// 启动主 span
	ctx, span := logger.StartSpan(context.Background(), "main", "main")
	defer span.End()

	// 创建 root logger 并注入 trace 上下文
	rootLogger := logger.NewLogger("analyze")
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)

	moralisProvider := provider.NewMoralisProvider(moralis.NewMoralisClient(cfg.Moralis, tl))
	scanProvider := provider.NewEtherscanProvider(etherscan.NewEtherscanClient(cfg.Etherscan, tl))

	// 单次分析不连节点，链上元数据兜底留空
	fetcher := analyzer.NewFetcher(moralisProvider, nil, moralisProvider, scanProvider, tl)
	classifier := analyzer.NewClassifier(cfg.Analyzer, scanProvider, tl)
	a := analyzer.NewAnalyzer(cfg.Analyzer, fetcher, scanProvider, classifier, tl)

	result, err := a.AnalyzeToken(ctx, *token, *network)
	if err != nil {
		tl.Error("Analysis failed", zap.Error(err))
		os.Exit(1)
	}

	out, err := sonic.MarshalIndent(result, "", "  ")
	if err != nil {
		tl.Error("Failed to encode result", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(string(out))
	tl.Info("Task completed successfully", zap.Duration("taken_time", time.Since(startTime)))
}

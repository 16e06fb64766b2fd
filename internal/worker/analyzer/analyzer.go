package analyzer

import (
	"context"

	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/model"

	"go.uber.org/zap"
)

// Analyzer 串起一次完整的代币分析：元数据+持有者 → 部署者 → 分类 → 风险评估
type Analyzer struct {
	cfg        config.AnalyzerConfig
	fetcher    *Fetcher
	deployer   DeployerProvider
	classifier *Classifier
	tl         *zap.Logger
}

func NewAnalyzer(cfg config.AnalyzerConfig, fetcher *Fetcher, deployer DeployerProvider, classifier *Classifier, tl *zap.Logger) *Analyzer {
	return &Analyzer{
		cfg:        cfg,
		fetcher:    fetcher,
		deployer:   deployer,
		classifier: classifier,
		tl:         tl,
	}
}

// AnalyzeToken 分析一个合约。元数据或持有者拉取失败时返回错误；
// 部署者解析失败只降级，不影响分析
func (a *Analyzer) AnalyzeToken(ctx context.Context, tokenAddr, network string) (*model.AnalysisResult, error) {
	meta, err := a.fetcher.FetchMetadata(ctx, network, tokenAddr)
	if err != nil {
		return nil, err
	}

	holders, err := a.fetcher.FetchTopHolders(ctx, network, tokenAddr, a.cfg.HolderLimit, meta)
	if err != nil {
		return nil, err
	}

	deployer, err := a.deployer.FetchContractCreation(ctx, network, tokenAddr)
	if err != nil {
		a.tl.Warn("deployer resolution failed, continuing without it",
			zap.String("token", tokenAddr),
			zap.Error(err))
		deployer = nil
	}

	buckets := a.classifier.ClassifyAll(ctx, holders, deployer, meta, network)
	risk := AssessRisk(buckets.Team, buckets.Bundle)

	a.tl.Info("token analysis done",
		zap.String("token", tokenAddr),
		zap.String("network", network),
		zap.Int("holders", len(holders)),
		zap.Int("team", len(buckets.Team)),
		zap.Int("bundle", len(buckets.Bundle)),
		zap.Int("regular", len(buckets.Regular)),
		zap.String("risk", string(risk.RiskLevel)),
	)

	return &model.AnalysisResult{
		Metadata: meta,
		Holders:  holders,
		Deployer: deployer,
		Buckets:  buckets,
		Risk:     risk,
		Network:  network,
	}, nil
}

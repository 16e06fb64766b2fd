package job

import (
	"context"

	"web3-sentry/internal/worker/analyzer"
	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/monitor"

	"go.uber.org/zap"
)

// RiskRefresh 定时重算watchlist代币的整体风险并更新指标。
// 单个代币失败不影响其余代币
type RiskRefresh struct {
	cfg      config.Config
	analyzer *analyzer.Analyzer
	tl       *zap.Logger

	lastLevel map[string]string
}

func NewRiskRefresh(cfg config.Config, a *analyzer.Analyzer, tl *zap.Logger) *RiskRefresh {
	return &RiskRefresh{
		cfg:       cfg,
		analyzer:  a,
		tl:        tl,
		lastLevel: make(map[string]string),
	}
}

func (j *RiskRefresh) Run(ctx context.Context) error {
	for _, entry := range j.cfg.Watchlist {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := j.analyzer.AnalyzeToken(ctx, entry.TokenAddress, entry.Network)
		if err != nil {
			j.tl.Warn("risk refresh failed for token",
				zap.String("token", entry.TokenAddress),
				zap.Error(err))
			continue
		}

		level := string(result.Risk.RiskLevel)
		monitor.TokenRiskLevel.WithLabelValues(entry.Network, entry.TokenAddress).
			Set(monitor.RiskLevelValue(level))

		if prev, ok := j.lastLevel[entry.TokenAddress]; ok && prev != level {
			j.tl.Warn("token risk level changed",
				zap.String("token", entry.TokenAddress),
				zap.String("from", prev),
				zap.String("to", level),
				zap.String("team_pct", result.Risk.TeamSupplyPct.StringFixed(2)),
				zap.String("bundle_pct", result.Risk.BundleSupplyPct.StringFixed(2)))
		}
		j.lastLevel[entry.TokenAddress] = level
	}
	return nil
}

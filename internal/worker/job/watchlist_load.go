package job

import (
	"context"
	"sync"
	"time"

	"web3-sentry/internal/worker/analyzer"
	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/model"
	"web3-sentry/internal/worker/monitor"
	"web3-sentry/internal/worker/repository"
	"web3-sentry/internal/worker/watcher"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// WatchlistLoad 启动作业：分析配置中的每个代币，落库被标记钱包快照，
// 为每个代币拉起一个watcher。分析失败时回退到上次落库的快照，保证重启可恢复
type WatchlistLoad struct {
	cfg        config.Config
	repo       repository.Repository
	analyzer   *analyzer.Analyzer
	newWatcher func() *watcher.Watcher
	tl         *zap.Logger

	mu       sync.Mutex
	watchers []*watcher.Watcher
}

func NewWatchlistLoad(cfg config.Config, repo repository.Repository, a *analyzer.Analyzer, newWatcher func() *watcher.Watcher, tl *zap.Logger) *WatchlistLoad {
	return &WatchlistLoad{
		cfg:        cfg,
		repo:       repo,
		analyzer:   a,
		newWatcher: newWatcher,
		tl:         tl,
	}
}

func (j *WatchlistLoad) Run(ctx context.Context) error {
	if len(j.cfg.Watchlist) == 0 {
		j.tl.Info("watchlist empty, nothing to monitor")
		return nil
	}

	for _, entry := range j.cfg.Watchlist {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		j.loadToken(ctx, entry)
	}
	return nil
}

func (j *WatchlistLoad) loadToken(ctx context.Context, entry config.WatchlistEntry) {
	result, err := j.analyzer.AnalyzeToken(ctx, entry.TokenAddress, entry.Network)

	var flagged []model.ClassifiedWallet
	symbol := ""
	if err != nil {
		j.tl.Warn("token analysis failed, falling back to stored snapshot",
			zap.String("token", entry.TokenAddress),
			zap.Error(err))
		flagged = j.loadSnapshot(ctx, entry)
		if len(flagged) == 0 {
			j.tl.Error("no stored snapshot either, skipping token",
				zap.String("token", entry.TokenAddress))
			return
		}
	} else {
		flagged = append(flagged, result.Buckets.Team...)
		flagged = append(flagged, result.Buckets.Bundle...)
		symbol = result.Metadata.Symbol
		j.persistSnapshot(ctx, entry, flagged)
		monitor.TokenRiskLevel.WithLabelValues(entry.Network, entry.TokenAddress).
			Set(monitor.RiskLevelValue(string(result.Risk.RiskLevel)))
	}

	w := j.newWatcher()
	if err := w.Initialize(entry.TokenAddress, symbol, entry.Network, flagged); err != nil {
		j.tl.Error("watcher initialize failed", zap.String("token", entry.TokenAddress), zap.Error(err))
		return
	}
	if err := w.Start(); err != nil {
		j.tl.Error("watcher start failed", zap.String("token", entry.TokenAddress), zap.Error(err))
		return
	}

	j.mu.Lock()
	j.watchers = append(j.watchers, w)
	j.mu.Unlock()

	j.tl.Info("watching flagged wallets",
		zap.String("token", entry.TokenAddress),
		zap.String("network", entry.Network),
		zap.Int("wallets", len(flagged)))
}

// persistSnapshot 落库被标记钱包，主键冲突时更新分类字段
func (j *WatchlistLoad) persistSnapshot(ctx context.Context, entry config.WatchlistEntry, flagged []model.ClassifiedWallet) {
	if len(flagged) == 0 {
		return
	}

	records := make([]model.WatchedWallet, 0, len(flagged))
	now := time.Now()
	for _, cw := range flagged {
		records = append(records, model.WatchedWallet{
			WalletAddress: cw.Address,
			TokenAddress:  entry.TokenAddress,
			Network:       entry.Network,
			WalletType:    string(cw.Classification.Type),
			Reason:        cw.Classification.Reason,
			RiskLevel:     string(cw.Classification.RiskLevel),
			Tags:          []string{string(cw.Classification.Type)},
			Percentage:    cw.Percentage.InexactFloat64(),
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	err := j.repo.GetDB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wallet_address"}, {Name: "token_address"}},
			DoUpdates: clause.AssignmentColumns([]string{"wallet_type", "reason", "risk_level", "percentage", "updated_at"}),
		}).
		Create(&records).Error
	if err != nil {
		j.tl.Warn("persist watched wallets failed", zap.String("token", entry.TokenAddress), zap.Error(err))
	}
}

func (j *WatchlistLoad) loadSnapshot(ctx context.Context, entry config.WatchlistEntry) []model.ClassifiedWallet {
	var records []model.WatchedWallet
	err := j.repo.GetDB().WithContext(ctx).
		Where("token_address = ? AND network = ?", entry.TokenAddress, entry.Network).
		Find(&records).Error
	if err != nil {
		j.tl.Warn("load watched wallet snapshot failed", zap.Error(err))
		return nil
	}

	wallets := make([]model.ClassifiedWallet, 0, len(records))
	for _, rec := range records {
		cw := model.ClassifiedWallet{}
		cw.Address = rec.WalletAddress
		cw.Classification = model.WalletClassification{
			Type:      model.WalletType(rec.WalletType),
			Reason:    rec.Reason,
			RiskLevel: model.RiskLevel(rec.RiskLevel),
		}
		wallets = append(wallets, cw)
	}
	return wallets
}

// StopAll 停掉本作业拉起的所有watcher
func (j *WatchlistLoad) StopAll() {
	j.mu.Lock()
	watchers := j.watchers
	j.watchers = nil
	j.mu.Unlock()

	for _, w := range watchers {
		w.Stop()
	}
}

// Watchers 返回当前活跃的watcher列表
func (j *WatchlistLoad) Watchers() []*watcher.Watcher {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]*watcher.Watcher{}, j.watchers...)
}

package analyzer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/model"
	"web3-sentry/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Classifier 按顺序规则给持有者打标：集中度 → 部署者资金关联 → 行为特征 → 普通。
// 首个命中的规则生效。规则2/3需要额外网络请求，上游不可用时按"规则不命中"处理，
// 绝不让单个子检查失败拖垮整个分类
type Classifier struct {
	cfg     config.AnalyzerConfig
	history TxHistoryProvider
	tl      *zap.Logger
}

func NewClassifier(cfg config.AnalyzerConfig, history TxHistoryProvider, tl *zap.Logger) *Classifier {
	return &Classifier{
		cfg:     cfg,
		history: history,
		tl:      tl,
	}
}

// Classify 对单个持有者分类。deployer可为nil（规则2跳过不算失败）
func (c *Classifier) Classify(ctx context.Context, holder model.Holder, deployer *model.Deployer, meta *model.TokenMetadata, network string) model.WalletClassification {
	// 规则1：集中度。用已有数据，先跑省掉大户的逐钱包网络请求
	teamThreshold := decimal.NewFromFloat(c.cfg.TeamThresholdPct)
	if holder.Percentage.GreaterThan(teamThreshold) {
		risk := model.RiskMedium
		if holder.Percentage.GreaterThan(decimal.NewFromFloat(c.cfg.TeamHighRiskPct)) {
			risk = model.RiskHigh
		}
		return model.WalletClassification{
			Type:      model.WalletTypeTeam,
			Reason:    fmt.Sprintf("holds %s%% of supply (threshold %v%%)", holder.Percentage.StringFixed(2), c.cfg.TeamThresholdPct),
			RiskLevel: risk,
		}
	}

	// 规则2/3共用一次交易历史拉取。拉取失败按空历史处理
	txs := c.fetchHistory(ctx, network, holder.Address)

	// 规则2：部署者资金关联。无部署者信息时跳过
	if deployer != nil && deployer.Address != "" {
		deployerAddr := utils.NormalizeAddress(deployer.Address)
		for _, tx := range txs {
			if utils.NormalizeAddress(tx.From) == deployerAddr && utils.NormalizeAddress(tx.To) == holder.Address {
				return model.WalletClassification{
					Type:      model.WalletTypeBundle,
					Reason:    "received funds directly from token deployer",
					RiskLevel: model.RiskHigh,
				}
			}
		}
	}

	// 规则3：行为特征
	if cls, ok := c.bundlePattern(holder.Address, txs); ok {
		return cls
	}

	return model.WalletClassification{
		Type:      model.WalletTypeRegular,
		Reason:    "normal wallet activity",
		RiskLevel: model.RiskLow,
	}
}

func (c *Classifier) fetchHistory(ctx context.Context, network, address string) []model.Transaction {
	txs, err := c.history.FetchTransactions(ctx, network, address, c.cfg.TxHistoryLimit)
	if err != nil {
		c.tl.Warn("tx history fetch failed, treating as empty",
			zap.String("wallet", address),
			zap.Error(err))
		return nil
	}
	return txs
}

// bundlePattern 行为特征：低交易数的单一用途钱包，且出现快速抛售或流出多于流入
func (c *Classifier) bundlePattern(address string, txs []model.Transaction) (model.WalletClassification, bool) {
	if len(txs) == 0 || len(txs) >= c.cfg.BundleTxLimit {
		return model.WalletClassification{}, false
	}

	var outgoing, incoming int
	quickFlip := false
	window := time.Duration(c.cfg.QuickFlipWindowHour) * time.Hour

	for i, tx := range txs {
		if utils.NormalizeAddress(tx.From) == address {
			outgoing++
			// 流出交易与历史中任何其他交易间隔在时间窗内即视为快速抛售
			for j, other := range txs {
				if i == j {
					continue
				}
				gap := tx.Timestamp.Sub(other.Timestamp)
				if gap < 0 {
					gap = -gap
				}
				if gap <= window {
					quickFlip = true
					break
				}
			}
		} else {
			incoming++
		}
	}

	if quickFlip {
		return model.WalletClassification{
			Type:      model.WalletTypeBundle,
			Reason:    fmt.Sprintf("quick flip within %dh in a low-activity wallet (%d txs)", c.cfg.QuickFlipWindowHour, len(txs)),
			RiskLevel: model.RiskMedium,
		}, true
	}
	if outgoing > incoming {
		return model.WalletClassification{
			Type:      model.WalletTypeBundle,
			Reason:    fmt.Sprintf("outgoing txs (%d) exceed incoming (%d) in a low-activity wallet", outgoing, incoming),
			RiskLevel: model.RiskMedium,
		}, true
	}

	return model.WalletClassification{}, false
}

// ClassifyAll 批量分类并分桶。每个持有者独立分类，互不影响；
// 单个钱包panic时兜底为unknown，不中断整批
func (c *Classifier) ClassifyAll(ctx context.Context, holders []model.Holder, deployer *model.Deployer, meta *model.TokenMetadata, network string) model.ClassifiedBuckets {
	results := make([]model.WalletClassification, len(holders))

	var mu sync.Mutex
	worker := pool.New().WithMaxGoroutines(c.cfg.ClassifyConcurrency)
	for i := range holders {
		idx := i
		worker.Go(func() {
			cls := c.classifySafe(ctx, holders[idx], deployer, meta, network)
			mu.Lock()
			results[idx] = cls
			mu.Unlock()
		})
	}
	worker.Wait()

	var buckets model.ClassifiedBuckets
	for i, holder := range holders {
		cw := model.ClassifiedWallet{Holder: holder, Classification: results[i]}
		switch results[i].Type {
		case model.WalletTypeTeam:
			buckets.Team = append(buckets.Team, cw)
		case model.WalletTypeBundle:
			buckets.Bundle = append(buckets.Bundle, cw)
		case model.WalletTypeUnknown:
			buckets.Unknown = append(buckets.Unknown, cw)
		default:
			buckets.Regular = append(buckets.Regular, cw)
		}
	}
	return buckets
}

func (c *Classifier) classifySafe(ctx context.Context, holder model.Holder, deployer *model.Deployer, meta *model.TokenMetadata, network string) (cls model.WalletClassification) {
	defer func() {
		if rec := recover(); rec != nil {
			c.tl.Error("classification panicked",
				zap.String("wallet", holder.Address),
				zap.Any("panic", rec))
			cls = model.WalletClassification{
				Type:      model.WalletTypeUnknown,
				Reason:    "classification failed",
				RiskLevel: model.RiskLow,
			}
		}
	}()
	return c.Classify(ctx, holder, deployer, meta, network)
}

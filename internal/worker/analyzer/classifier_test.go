package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeHistory struct {
	txs      map[string][]model.Transaction
	err      error
	panicFor string
}

func (f *fakeHistory) FetchTransactions(ctx context.Context, network, address string, limit int) ([]model.Transaction, error) {
	if f.panicFor != "" && address == f.panicFor {
		panic("provider exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.txs[address], nil
}

func testAnalyzerConfig() config.AnalyzerConfig {
	return config.AnalyzerConfig{
		HolderLimit:         50,
		TeamThresholdPct:    0.1,
		TeamHighRiskPct:     10,
		BundleTxLimit:       10,
		QuickFlipWindowHour: 24,
		TxHistoryLimit:      100,
		ClassifyConcurrency: 4,
	}
}

func holderWithPct(addr string, pct float64) model.Holder {
	return model.Holder{Address: addr, Percentage: decimal.NewFromFloat(pct)}
}

func TestClassifyConcentrationMedium(t *testing.T) {
	c := NewClassifier(testAnalyzerConfig(), &fakeHistory{}, zap.NewNop())

	cls := c.Classify(context.Background(), holderWithPct("0xaaa", 5), nil, nil, "BSC")
	if cls.Type != model.WalletTypeTeam {
		t.Fatalf("expected team, got %s", cls.Type)
	}
	if cls.RiskLevel != model.RiskMedium {
		t.Fatalf("expected medium, got %s", cls.RiskLevel)
	}
}

func TestClassifyConcentrationHigh(t *testing.T) {
	c := NewClassifier(testAnalyzerConfig(), &fakeHistory{}, zap.NewNop())

	cls := c.Classify(context.Background(), holderWithPct("0xaaa", 15), nil, nil, "BSC")
	if cls.Type != model.WalletTypeTeam || cls.RiskLevel != model.RiskHigh {
		t.Fatalf("expected team/high, got %s/%s", cls.Type, cls.RiskLevel)
	}
}

// 集中度规则先于行为规则，即便交易历史呈现bundle特征也判team
func TestClassifyTeamWinsOverBundle(t *testing.T) {
	wallet := "0xaaa"
	now := time.Now()
	history := &fakeHistory{txs: map[string][]model.Transaction{
		wallet: {
			{From: "0xbbb", To: wallet, Timestamp: now},
			{From: wallet, To: "0xccc", Timestamp: now.Add(time.Hour)},
		},
	}}
	c := NewClassifier(testAnalyzerConfig(), history, zap.NewNop())

	cls := c.Classify(context.Background(), holderWithPct(wallet, 5), nil, nil, "BSC")
	if cls.Type != model.WalletTypeTeam {
		t.Fatalf("concentration rule must win, got %s", cls.Type)
	}
}

func TestClassifyDeployerFunding(t *testing.T) {
	wallet := "0xaaa"
	deployer := &model.Deployer{Address: "0xDEP"}
	history := &fakeHistory{txs: map[string][]model.Transaction{
		wallet: {
			{From: "0xdep", To: wallet, Timestamp: time.Now().Add(-100 * time.Hour)},
		},
	}}
	c := NewClassifier(testAnalyzerConfig(), history, zap.NewNop())

	cls := c.Classify(context.Background(), holderWithPct(wallet, 0.05), deployer, nil, "BSC")
	if cls.Type != model.WalletTypeBundle || cls.RiskLevel != model.RiskHigh {
		t.Fatalf("expected bundle/high, got %s/%s", cls.Type, cls.RiskLevel)
	}
}

func TestClassifyQuickFlip(t *testing.T) {
	wallet := "0xaaa"
	now := time.Now()
	history := &fakeHistory{txs: map[string][]model.Transaction{
		wallet: {
			{From: "0xbbb", To: wallet, Timestamp: now},
			{From: wallet, To: "0xccc", Timestamp: now.Add(2 * time.Hour)},
		},
	}}
	c := NewClassifier(testAnalyzerConfig(), history, zap.NewNop())

	cls := c.Classify(context.Background(), holderWithPct(wallet, 0.05), nil, nil, "BSC")
	if cls.Type != model.WalletTypeBundle || cls.RiskLevel != model.RiskMedium {
		t.Fatalf("expected bundle/medium, got %s/%s", cls.Type, cls.RiskLevel)
	}
}

// 流出多于流入，但所有交易间隔都超出快速抛售时间窗
func TestClassifyOutgoingExceedsIncoming(t *testing.T) {
	wallet := "0xaaa"
	base := time.Now().Add(-300 * time.Hour)
	history := &fakeHistory{txs: map[string][]model.Transaction{
		wallet: {
			{From: "0xbbb", To: wallet, Timestamp: base},
			{From: wallet, To: "0xccc", Timestamp: base.Add(48 * time.Hour)},
			{From: wallet, To: "0xddd", Timestamp: base.Add(96 * time.Hour)},
		},
	}}
	c := NewClassifier(testAnalyzerConfig(), history, zap.NewNop())

	cls := c.Classify(context.Background(), holderWithPct(wallet, 0.05), nil, nil, "BSC")
	if cls.Type != model.WalletTypeBundle {
		t.Fatalf("expected bundle, got %s (%s)", cls.Type, cls.Reason)
	}
}

// 交易数达到上限时行为规则不参与，判regular
func TestClassifyActiveWalletNotBundle(t *testing.T) {
	wallet := "0xaaa"
	now := time.Now()
	var txs []model.Transaction
	for i := 0; i < 10; i++ {
		txs = append(txs, model.Transaction{From: wallet, To: "0xccc", Timestamp: now.Add(time.Duration(i) * time.Hour)})
	}
	history := &fakeHistory{txs: map[string][]model.Transaction{wallet: txs}}
	c := NewClassifier(testAnalyzerConfig(), history, zap.NewNop())

	cls := c.Classify(context.Background(), holderWithPct(wallet, 0.05), nil, nil, "BSC")
	if cls.Type != model.WalletTypeRegular {
		t.Fatalf("expected regular, got %s", cls.Type)
	}
}

func TestClassifyRegularFallback(t *testing.T) {
	c := NewClassifier(testAnalyzerConfig(), &fakeHistory{}, zap.NewNop())

	cls := c.Classify(context.Background(), holderWithPct("0xaaa", 0.01), nil, nil, "BSC")
	if cls.Type != model.WalletTypeRegular || cls.RiskLevel != model.RiskLow {
		t.Fatalf("expected regular/low, got %s/%s", cls.Type, cls.RiskLevel)
	}
}

// 历史拉取失败按空历史处理，不升级为bundle也不报错
func TestClassifyHistoryFailure(t *testing.T) {
	history := &fakeHistory{err: errors.New("rate limited")}
	c := NewClassifier(testAnalyzerConfig(), history, zap.NewNop())

	cls := c.Classify(context.Background(), holderWithPct("0xaaa", 0.05), nil, nil, "BSC")
	if cls.Type != model.WalletTypeRegular {
		t.Fatalf("expected regular on history failure, got %s", cls.Type)
	}
}

func TestClassifyAllIsolatesPanic(t *testing.T) {
	now := time.Now()
	history := &fakeHistory{
		panicFor: "0xbad",
		txs: map[string][]model.Transaction{
			"0xccc": {
				{From: "0xeee", To: "0xccc", Timestamp: now},
				{From: "0xccc", To: "0xfff", Timestamp: now.Add(time.Hour)},
			},
		},
	}
	c := NewClassifier(testAnalyzerConfig(), history, zap.NewNop())

	holders := []model.Holder{
		holderWithPct("0xaaa", 15),
		holderWithPct("0xbad", 0.05),
		holderWithPct("0xccc", 0.05),
	}
	buckets := c.ClassifyAll(context.Background(), holders, nil, nil, "BSC")

	if len(buckets.Team) != 1 || buckets.Team[0].Address != "0xaaa" {
		t.Fatalf("expected 0xaaa in team bucket, got %+v", buckets.Team)
	}
	if len(buckets.Unknown) != 1 || buckets.Unknown[0].Address != "0xbad" {
		t.Fatalf("panicking wallet must land in unknown, got %+v", buckets.Unknown)
	}
	if len(buckets.Bundle) != 1 || buckets.Bundle[0].Address != "0xccc" {
		t.Fatalf("expected 0xccc in bundle bucket, got %+v", buckets.Bundle)
	}
}

// 桶内顺序与输入持有者顺序一致
func TestClassifyAllDeterministicOrder(t *testing.T) {
	c := NewClassifier(testAnalyzerConfig(), &fakeHistory{}, zap.NewNop())

	holders := []model.Holder{
		holderWithPct("0x1", 20),
		holderWithPct("0x2", 0.01),
		holderWithPct("0x3", 12),
		holderWithPct("0x4", 0.01),
	}
	buckets := c.ClassifyAll(context.Background(), holders, nil, nil, "BSC")

	if len(buckets.Team) != 2 || buckets.Team[0].Address != "0x1" || buckets.Team[1].Address != "0x3" {
		t.Fatalf("team bucket order mismatch: %+v", buckets.Team)
	}
	if len(buckets.Regular) != 2 || buckets.Regular[0].Address != "0x2" || buckets.Regular[1].Address != "0x4" {
		t.Fatalf("regular bucket order mismatch: %+v", buckets.Regular)
	}
}

package analyzer

import (
	"web3-sentry/internal/worker/model"

	"github.com/shopspring/decimal"
)

// AssessRisk 代币整体风险：两个桶各自的供应量占比之和决定等级。纯计算，不访问网络
func AssessRisk(team, bundle []model.ClassifiedWallet) model.RiskAssessment {
	teamPct := sumPercentage(team)
	bundlePct := sumPercentage(bundle)

	level := model.RiskLow
	switch {
	case teamPct.GreaterThan(decimal.NewFromInt(20)) || bundlePct.GreaterThan(decimal.NewFromInt(15)):
		level = model.RiskHigh
	case teamPct.GreaterThan(decimal.NewFromInt(10)) || bundlePct.GreaterThan(decimal.NewFromInt(10)):
		level = model.RiskMedium
	}

	return model.RiskAssessment{
		TeamSupplyPct:   teamPct,
		BundleSupplyPct: bundlePct,
		RiskLevel:       level,
	}
}

func sumPercentage(wallets []model.ClassifiedWallet) decimal.Decimal {
	total := decimal.Zero
	for _, w := range wallets {
		total = total.Add(w.Percentage)
	}
	return total
}

package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// WalletType 钱包分类标签
type WalletType string

const (
	WalletTypeTeam    WalletType = "team"
	WalletTypeBundle  WalletType = "bundle"
	WalletTypeRegular WalletType = "regular"
	WalletTypeUnknown WalletType = "unknown"
)

// RiskLevel 风险等级
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// WalletClassification 单个钱包的分类结果
type WalletClassification struct {
	Type      WalletType `json:"type"`
	Reason    string     `json:"reason"`
	RiskLevel RiskLevel  `json:"risk_level"`
}

// ClassifiedWallet 持有者附带分类结果
type ClassifiedWallet struct {
	Holder
	Classification WalletClassification `json:"classification"`
}

// ClassifiedBuckets 分类后的钱包桶。单个钱包分类失败时进入Unknown，不影响其余钱包
type ClassifiedBuckets struct {
	Team    []ClassifiedWallet `json:"team"`
	Bundle  []ClassifiedWallet `json:"bundle"`
	Regular []ClassifiedWallet `json:"regular"`
	Unknown []ClassifiedWallet `json:"unknown,omitempty"`
}

// RiskAssessment 代币整体风险评估，纯聚合计算
type RiskAssessment struct {
	TeamSupplyPct   decimal.Decimal `json:"team_supply_pct"`
	BundleSupplyPct decimal.Decimal `json:"bundle_supply_pct"`
	RiskLevel       RiskLevel       `json:"risk_level"`
}

// AnalysisResult 一次完整代币分析的产出
type AnalysisResult struct {
	Metadata *TokenMetadata    `json:"metadata"`
	Holders  []Holder          `json:"holders"`
	Deployer *Deployer         `json:"deployer,omitempty"`
	Buckets  ClassifiedBuckets `json:"buckets"`
	Risk     RiskAssessment    `json:"risk"`
	Network  string            `json:"network"`
}

// WatchedWallet 落库的被监控钱包快照，worker重启后可恢复监控名单
type WatchedWallet struct {
	ID            int            `gorm:"primaryKey" json:"id"`
	WalletAddress string         `gorm:"column:wallet_address;type:varchar(128);not null;index:idx_watched_token_wallet,unique" json:"wallet_address"`
	TokenAddress  string         `gorm:"column:token_address;type:varchar(128);not null;index:idx_watched_token_wallet,unique" json:"token_address"`
	Network       string         `gorm:"column:network;type:varchar(32);not null" json:"network"`
	WalletType    string         `gorm:"column:wallet_type;type:varchar(16);not null" json:"wallet_type"`
	Reason        string         `gorm:"column:reason;type:text" json:"reason"`
	RiskLevel     string         `gorm:"column:risk_level;type:varchar(16)" json:"risk_level"`
	Tags          pq.StringArray `gorm:"column:tags;type:varchar(50)[]" json:"tags"`
	Percentage    float64        `gorm:"column:percentage;type:decimal(8,4)" json:"percentage"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (WatchedWallet) TableName() string {
	return "sentry_watched_wallet"
}

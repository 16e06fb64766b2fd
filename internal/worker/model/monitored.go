package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonitoredWallet 监控中的钱包状态，由watcher独占持有并修改
type MonitoredWallet struct {
	Address         string           `json:"address"`
	Type            WalletType       `json:"type"`
	TokenAddress    string           `json:"token_address"`
	Network         string           `json:"network"`
	LastBalance     *decimal.Decimal `json:"last_balance"` // nil直到首次成功轮询
	LastChecked     *time.Time       `json:"last_checked"`
	AlertCount      int              `json:"alert_count"`
	TotalVolumeSold decimal.Decimal  `json:"total_volume_sold"` // 累计卖出USD
	IsActive        bool             `json:"is_active"`
}

// WalletUpdate 每轮成功检查一个钱包后推送给订阅者的状态
type WalletUpdate struct {
	Address      string          `json:"address"`
	Type         WalletType      `json:"type"`
	Balance      decimal.Decimal `json:"balance"`
	USDValue     decimal.Decimal `json:"usd_value"`
	SellPressure decimal.Decimal `json:"sell_pressure"` // 累计卖出/(当前持仓USD+累计卖出)
	IsActive     bool            `json:"is_active"`
	CheckedAt    time.Time       `json:"checked_at"`
}

// MonitorStatus watcher状态快照，随时可读且无副作用
type MonitorStatus struct {
	IsMonitoring bool       `json:"is_monitoring"`
	WalletCount  int        `json:"wallet_count"`
	Connected    bool       `json:"connected"`
	LastChecked  *time.Time `json:"last_checked"`
}

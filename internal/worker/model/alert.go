package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SellAlert 卖出告警，构造后不可变
type SellAlert struct {
	ID               string          `json:"id"`
	WalletAddress    string          `json:"wallet_address"`
	WalletType       WalletType      `json:"wallet_type"`
	TokenAddress     string          `json:"token_address"`
	TokenSymbol      string          `json:"token_symbol"`
	Network          string          `json:"network"`
	AmountSold       decimal.Decimal `json:"amount_sold"`
	USDValue         decimal.Decimal `json:"usd_value"`
	PreviousBalance  decimal.Decimal `json:"previous_balance"`
	NewBalance       decimal.Decimal `json:"new_balance"`
	ChangePercentage string          `json:"change_percentage"` // 两位小数字符串
	Timestamp        time.Time       `json:"timestamp"`
	ExplorerLink     string          `json:"explorer_link,omitempty"`
}

// SellAlertRecord 告警落库记录
type SellAlertRecord struct {
	ID               int64          `gorm:"primaryKey" json:"id"`
	AlertID          string         `gorm:"column:alert_id;type:varchar(64);not null;uniqueIndex" json:"alert_id"`
	WalletAddress    string         `gorm:"column:wallet_address;type:varchar(128);not null;index" json:"wallet_address"`
	WalletType       string         `gorm:"column:wallet_type;type:varchar(16)" json:"wallet_type"`
	TokenAddress     string         `gorm:"column:token_address;type:varchar(128);not null;index" json:"token_address"`
	Network          string         `gorm:"column:network;type:varchar(32)" json:"network"`
	AmountSold       float64        `gorm:"column:amount_sold;type:decimal(38,18)" json:"amount_sold"`
	USDValue         float64        `gorm:"column:usd_value;type:decimal(20,8)" json:"usd_value"`
	PreviousBalance  float64        `gorm:"column:previous_balance;type:decimal(38,18)" json:"previous_balance"`
	NewBalance       float64        `gorm:"column:new_balance;type:decimal(38,18)" json:"new_balance"`
	ChangePercentage string         `gorm:"column:change_percentage;type:varchar(16)" json:"change_percentage"`
	AlertTime        int64          `gorm:"column:alert_time;index" json:"alert_time"` // ms
	Payload          datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	CreatedAt        time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (SellAlertRecord) TableName() string {
	return "sentry_sell_alert"
}

// NewSellAlertRecord 由告警构造落库记录
func NewSellAlertRecord(alert SellAlert, payload []byte) SellAlertRecord {
	return SellAlertRecord{
		AlertID:          alert.ID,
		WalletAddress:    alert.WalletAddress,
		WalletType:       string(alert.WalletType),
		TokenAddress:     alert.TokenAddress,
		Network:          alert.Network,
		AmountSold:       alert.AmountSold.InexactFloat64(),
		USDValue:         alert.USDValue.InexactFloat64(),
		PreviousBalance:  alert.PreviousBalance.InexactFloat64(),
		NewBalance:       alert.NewBalance.InexactFloat64(),
		ChangePercentage: alert.ChangePercentage,
		AlertTime:        alert.Timestamp.UnixMilli(),
		Payload:          payload,
	}
}

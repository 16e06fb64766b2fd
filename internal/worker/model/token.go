package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenMetadata 代币元数据，抓取后不可变
type TokenMetadata struct {
	Address     string `json:"address"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Decimals    int    `json:"decimals"`
	TotalSupply string `json:"total_supply"` // 原始整数字符串
}

// TotalSupplyHuman 带精度的总供应量，解析失败返回0
func (m *TokenMetadata) TotalSupplyHuman() decimal.Decimal {
	raw, err := decimal.NewFromString(m.TotalSupply)
	if err != nil {
		return decimal.Zero
	}
	return raw.Div(decimal.New(1, int32(m.Decimals)))
}

// Holder 代币持有者，地址统一小写
type Holder struct {
	Address    string          `json:"address"`
	BalanceRaw string          `json:"balance_raw"`
	Balance    decimal.Decimal `json:"balance"`    // 带精度余额
	Percentage decimal.Decimal `json:"percentage"` // 占总供应量百分比 0-100
	IsContract bool            `json:"is_contract"`
}

// Deployer 合约部署者信息，查不到是正常状态
type Deployer struct {
	Address         string `json:"address"`
	DeploymentTx    string `json:"deployment_tx"`
	DeploymentBlock uint64 `json:"deployment_block"`
}

// Transaction 归一化后的链上交易
type Transaction struct {
	Hash      string          `json:"hash"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Value     decimal.Decimal `json:"value"`
	Timestamp time.Time       `json:"timestamp"`
}

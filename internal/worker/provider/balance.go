package provider

import (
	"context"
	"sync"
	"time"

	"web3-sentry/internal/worker/monitor"
	"web3-sentry/pkg/evm_client"
	"web3-sentry/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// ChainBalanceProvider 直连RPC查询ERC20余额，watcher轮询的主数据源。
// 每个代币的decimals只查一次后缓存
type ChainBalanceProvider struct {
	client *ethclient.Client

	mu       sync.Mutex
	decimals map[string]uint8
}

func NewChainBalanceProvider(client *ethclient.Client) *ChainBalanceProvider {
	return &ChainBalanceProvider{
		client:   client,
		decimals: make(map[string]uint8),
	}
}

// FetchBalance 查询钱包的代币余额（带精度）
func (p *ChainBalanceProvider) FetchBalance(ctx context.Context, network, tokenAddr, wallet string) (decimal.Decimal, error) {
	start := time.Now()
	defer func() {
		monitor.ProviderRequestDuration.WithLabelValues("rpc", "balance_of").Observe(time.Since(start).Seconds())
	}()

	token := common.HexToAddress(tokenAddr)

	dec, err := p.tokenDecimals(ctx, tokenAddr, token)
	if err != nil {
		return decimal.Zero, err
	}

	raw, err := evm_client.BalanceOf(ctx, p.client, token, common.HexToAddress(wallet))
	if err != nil {
		return decimal.Zero, err
	}

	return utils.AdjustDecimals(raw, dec), nil
}

func (p *ChainBalanceProvider) tokenDecimals(ctx context.Context, key string, token common.Address) (uint8, error) {
	p.mu.Lock()
	if dec, ok := p.decimals[key]; ok {
		p.mu.Unlock()
		return dec, nil
	}
	p.mu.Unlock()

	dec, err := evm_client.Decimals(ctx, p.client, token)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	p.decimals[key] = dec
	p.mu.Unlock()
	return dec, nil
}

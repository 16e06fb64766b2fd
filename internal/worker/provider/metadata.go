package provider

import (
	"context"
	"time"

	"web3-sentry/internal/worker/model"
	"web3-sentry/internal/worker/monitor"
	"web3-sentry/pkg/evm_client"
	"web3-sentry/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainMetadataProvider 直连RPC读取代币精度与总供应量，Moralis不可用时的元数据兜底。
// 链上拿不到名称和符号，这两个字段留空
type ChainMetadataProvider struct {
	client *ethclient.Client
}

func NewChainMetadataProvider(client *ethclient.Client) *ChainMetadataProvider {
	return &ChainMetadataProvider{client: client}
}

func (p *ChainMetadataProvider) FetchTokenMetadata(ctx context.Context, network, tokenAddr string) (*model.TokenMetadata, error) {
	start := time.Now()
	defer func() {
		monitor.ProviderRequestDuration.WithLabelValues("rpc", "token_metadata").Observe(time.Since(start).Seconds())
	}()

	token := common.HexToAddress(tokenAddr)

	dec, err := evm_client.Decimals(ctx, p.client, token)
	if err != nil {
		return nil, err
	}
	supply, err := evm_client.TotalSupply(ctx, p.client, token)
	if err != nil {
		return nil, err
	}

	return &model.TokenMetadata{
		Address:     utils.NormalizeAddress(tokenAddr),
		Decimals:    int(dec),
		TotalSupply: supply.String(),
	}, nil
}

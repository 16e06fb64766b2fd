package dexscreener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"web3-sentry/internal/worker/config"
	"web3-sentry/pkg/httpclient"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DexscreenerClient 价格聚合器客户端
type DexscreenerClient struct {
	baseURL    string
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
}

type pairsResp struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	PriceUsd    string `json:"priceUsd"`
	Liquidity   struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
}

var chainSlugs = map[string]string{
	"ETH":     "ethereum",
	"BSC":     "bsc",
	"POLYGON": "polygon",
	"BASE":    "base",
}

func NewDexscreenerClient(cfg config.DexscreenerConfig, logger *zap.Logger) *DexscreenerClient {
	httpCfg := httpclient.HTTPClientConfig{
		Timeout:   time.Duration(cfg.Timeout) * time.Second,
		RateLimit: cfg.RateLimit,
	}

	return &DexscreenerClient{
		baseURL:    cfg.BaseURL,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		logger:     logger,
	}
}

// GetTokenPrice 查询代币USD价格，取流动性最高的交易对。查不到时返回0
func (d *DexscreenerClient) GetTokenPrice(ctx context.Context, network, tokenAddr string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", d.baseURL, tokenAddr)

	var resp pairsResp
	if err := d.httpClient.Get(ctx, url, nil, nil, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("fetch token price failed for %s: %w", tokenAddr, err)
	}

	slug := chainSlugs[strings.ToUpper(network)]
	var best *pair
	for i := range resp.Pairs {
		p := &resp.Pairs[i]
		if slug != "" && p.ChainID != slug {
			continue
		}
		if best == nil || p.Liquidity.Usd > best.Liquidity.Usd {
			best = p
		}
	}
	if best == nil || best.PriceUsd == "" {
		return decimal.Zero, nil
	}

	price, err := decimal.NewFromString(best.PriceUsd)
	if err != nil {
		d.logger.Warn("invalid priceUsd in response", zap.String("token", tokenAddr), zap.String("price", best.PriceUsd))
		return decimal.Zero, nil
	}
	return price, nil
}

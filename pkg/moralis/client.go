package moralis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"web3-sentry/internal/worker/config"
	"web3-sentry/pkg/httpclient"

	"go.uber.org/zap"
)

type MoralisClient struct {
	baseURL    string
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
}

func NewMoralisClient(cfg config.MoralisConfig, logger *zap.Logger) *MoralisClient {
	httpCfg := httpclient.HTTPClientConfig{
		Timeout:      time.Duration(cfg.Timeout) * time.Second,
		RateLimit:    cfg.RateLimit,
		MaxRetries:   3,
		APIKeyHeader: "X-API-Key",
		APIKey:       cfg.APIKey,
	}

	httpClient := httpclient.NewHTTPClient(httpCfg, logger)

	return &MoralisClient{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// GetEvmTokenMetadata 获取ERC20代币元数据（名称、符号、精度、总供应量）
func (m *MoralisClient) GetEvmTokenMetadata(ctx context.Context, network string, tokenAddr string) (*TokenMetadataResp, error) {
	url := fmt.Sprintf("%s/api/v2.2/erc20/metadata?chain=%s&addresses[]=%s", m.baseURL, strings.ToLower(network), tokenAddr)

	var metas []TokenMetadataResp
	var err error
	for range 3 {
		err = m.httpClient.Get(ctx, url, nil, nil, &metas)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch evm token metadata failed, url: %s, error: %v", url, err)
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("empty metadata response for token %s on %s", tokenAddr, network)
	}

	return &metas[0], nil
}

// GetEvmTokenHolders 按余额降序获取ERC20代币持有者列表
func (m *MoralisClient) GetEvmTokenHolders(ctx context.Context, network string, tokenAddr string, limit int) ([]TokenHold, error) {
	var err error
	resp := []TokenHold{}
	url := fmt.Sprintf("%s/api/v2.2/erc20/%s/owners?chain=%s&limit=100&order=DESC", m.baseURL, tokenAddr, strings.ToLower(network))
	cursor := ""
	for {
		var tokenHolders TokenHoldersResp
		urlCopy := url
		if cursor != "" {
			urlCopy = fmt.Sprintf("%s&cursor=%s", url, cursor)
		}
		for range 5 {
			err = m.httpClient.Get(ctx, urlCopy, nil, nil, &tokenHolders)
			if err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		if err != nil {
			return nil, fmt.Errorf("fetch evm token holders failed, url: %s, error: %v", url, err)
		}
		cursor = tokenHolders.Cursor
		resp = append(resp, tokenHolders.Result...)
		if limit > 0 && len(resp) >= limit {
			resp = resp[:limit]
			break
		}
		if cursor == "" || (tokenHolders.Page != 0 && tokenHolders.PageSize == 0) || tokenHolders.PageSize < 100 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	return resp, nil
}

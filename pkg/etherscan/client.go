package etherscan

import (
	"context"
	"fmt"
	"strings"
	"time"

	"web3-sentry/internal/worker/config"
	"web3-sentry/pkg/httpclient"

	"go.uber.org/zap"
)

// EtherscanClient 区块浏览器API客户端（Etherscan系，兼容BscScan等）
type EtherscanClient struct {
	baseURL    string
	apiKey     string
	httpClient *httpclient.HTTPClient
	logger     *zap.Logger
}

// EVM网络与Etherscan V2统一接口的chainid映射
var chainIDs = map[string]string{
	"ETH":     "1",
	"BSC":     "56",
	"POLYGON": "137",
	"BASE":    "8453",
}

func NewEtherscanClient(cfg config.EtherscanConfig, logger *zap.Logger) *EtherscanClient {
	httpCfg := httpclient.HTTPClientConfig{
		Timeout:    time.Duration(cfg.Timeout) * time.Second,
		RateLimit:  cfg.RateLimit,
		MaxRetries: 3,
	}

	return &EtherscanClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		logger:     logger,
	}
}

func (e *EtherscanClient) chainID(network string) string {
	if id, ok := chainIDs[strings.ToUpper(network)]; ok {
		return id
	}
	return "1"
}

// GetContractCreation 查询合约创建信息（部署者地址、部署交易）
func (e *EtherscanClient) GetContractCreation(ctx context.Context, network, contractAddr string) (*ContractCreation, error) {
	params := map[string]string{
		"chainid":           e.chainID(network),
		"module":            "contract",
		"action":            "getcontractcreation",
		"contractaddresses": contractAddr,
		"apikey":            e.apiKey,
	}

	var resp envelope[[]ContractCreation]
	if err := e.httpClient.Get(ctx, e.baseURL, params, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch contract creation failed for %s: %w", contractAddr, err)
	}
	if resp.Status != "1" || len(resp.Result) == 0 {
		return nil, fmt.Errorf("contract creation not found for %s: %s", contractAddr, resp.Message)
	}

	return &resp.Result[0], nil
}

// GetTransactions 查询地址的普通交易列表（按时间升序）
func (e *EtherscanClient) GetTransactions(ctx context.Context, network, address string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	params := map[string]string{
		"chainid": e.chainID(network),
		"module":  "account",
		"action":  "txlist",
		"address": address,
		"page":    "1",
		"offset":  fmt.Sprintf("%d", limit),
		"sort":    "asc",
		"apikey":  e.apiKey,
	}

	var resp envelope[[]Transaction]
	if err := e.httpClient.Get(ctx, e.baseURL, params, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch transactions failed for %s: %w", address, err)
	}
	// status=0 且 result 为空代表无记录，不视为错误
	return resp.Result, nil
}

// GetTokenTransfers 查询ERC20转账记录。address与contractAddr至少传一个
func (e *EtherscanClient) GetTokenTransfers(ctx context.Context, network, address, contractAddr string, limit int) ([]TokenTransfer, error) {
	if limit <= 0 {
		limit = 100
	}
	params := map[string]string{
		"chainid": e.chainID(network),
		"module":  "account",
		"action":  "tokentx",
		"page":    "1",
		"offset":  fmt.Sprintf("%d", limit),
		"sort":    "desc",
		"apikey":  e.apiKey,
	}
	if address != "" {
		params["address"] = address
	}
	if contractAddr != "" {
		params["contractaddress"] = contractAddr
	}

	var resp envelope[[]TokenTransfer]
	if err := e.httpClient.Get(ctx, e.baseURL, params, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch token transfers failed: %w", err)
	}
	return resp.Result, nil
}

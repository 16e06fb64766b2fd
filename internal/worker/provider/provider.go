package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"web3-sentry/internal/worker/model"
	"web3-sentry/internal/worker/monitor"
	"web3-sentry/pkg/etherscan"
	"web3-sentry/pkg/moralis"
	"web3-sentry/pkg/utils"

	"github.com/shopspring/decimal"
)

// MoralisProvider 将Moralis客户端适配为分析器的数据源接口
type MoralisProvider struct {
	client *moralis.MoralisClient
}

func NewMoralisProvider(client *moralis.MoralisClient) *MoralisProvider {
	return &MoralisProvider{client: client}
}

func (p *MoralisProvider) FetchTokenMetadata(ctx context.Context, network, tokenAddr string) (*model.TokenMetadata, error) {
	start := time.Now()
	defer func() {
		monitor.ProviderRequestDuration.WithLabelValues("moralis", "token_metadata").Observe(time.Since(start).Seconds())
	}()

	resp, err := p.client.GetEvmTokenMetadata(ctx, network, tokenAddr)
	if err != nil {
		return nil, err
	}

	// 精度解析不出来时元数据不可用，余额与占比都无从换算
	decimals, err := parseDecimals(resp.Decimals)
	if err != nil {
		return nil, fmt.Errorf("unusable decimals for token %s: %w", tokenAddr, err)
	}

	return &model.TokenMetadata{
		Address:     resp.Address,
		Name:        resp.Name,
		Symbol:      resp.Symbol,
		Decimals:    decimals,
		TotalSupply: resp.TotalSupply,
	}, nil
}

func (p *MoralisProvider) FetchTopHolders(ctx context.Context, network, tokenAddr string, limit int) ([]model.Holder, error) {
	start := time.Now()
	defer func() {
		monitor.ProviderRequestDuration.WithLabelValues("moralis", "token_holders").Observe(time.Since(start).Seconds())
	}()

	holds, err := p.client.GetEvmTokenHolders(ctx, network, tokenAddr, limit)
	if err != nil {
		return nil, err
	}

	holders := make([]model.Holder, 0, len(holds))
	for _, h := range holds {
		holders = append(holders, model.Holder{
			Address:    h.OwnerAddress,
			BalanceRaw: h.Balance,
			IsContract: h.IsContract,
		})
	}
	return holders, nil
}

// EtherscanProvider 将浏览器API适配为部署者/交易历史/转账事件数据源
type EtherscanProvider struct {
	client *etherscan.EtherscanClient
}

func NewEtherscanProvider(client *etherscan.EtherscanClient) *EtherscanProvider {
	return &EtherscanProvider{client: client}
}

func (p *EtherscanProvider) FetchContractCreation(ctx context.Context, network, contractAddr string) (*model.Deployer, error) {
	start := time.Now()
	defer func() {
		monitor.ProviderRequestDuration.WithLabelValues("etherscan", "contract_creation").Observe(time.Since(start).Seconds())
	}()

	creation, err := p.client.GetContractCreation(ctx, network, contractAddr)
	if err != nil {
		return nil, err
	}

	block, _ := strconv.ParseUint(creation.BlockNumber, 10, 64)
	return &model.Deployer{
		Address:         utils.NormalizeAddress(creation.ContractCreator),
		DeploymentTx:    creation.TxHash,
		DeploymentBlock: block,
	}, nil
}

func (p *EtherscanProvider) FetchTransactions(ctx context.Context, network, address string, limit int) ([]model.Transaction, error) {
	start := time.Now()
	defer func() {
		monitor.ProviderRequestDuration.WithLabelValues("etherscan", "tx_list").Observe(time.Since(start).Seconds())
	}()

	txs, err := p.client.GetTransactions(ctx, network, address, limit)
	if err != nil {
		return nil, err
	}

	out := make([]model.Transaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, normalizeTx(tx.Hash, tx.From, tx.To, tx.Value, tx.TimeStamp))
	}
	return out, nil
}

// FetchTokenTransfers 转账事件。Value保持原始整数单位，精度换算交给调用方
func (p *EtherscanProvider) FetchTokenTransfers(ctx context.Context, network, tokenAddr string, limit int) ([]model.Transaction, error) {
	start := time.Now()
	defer func() {
		monitor.ProviderRequestDuration.WithLabelValues("etherscan", "token_transfers").Observe(time.Since(start).Seconds())
	}()

	transfers, err := p.client.GetTokenTransfers(ctx, network, "", tokenAddr, limit)
	if err != nil {
		return nil, err
	}

	out := make([]model.Transaction, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, normalizeTx(t.Hash, t.From, t.To, t.Value, t.TimeStamp))
	}
	return out, nil
}

func parseDecimals(s string) (int, error) {
	decimals, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if decimals < 0 || decimals > 77 {
		return 0, fmt.Errorf("decimals out of range: %d", decimals)
	}
	return decimals, nil
}

func normalizeTx(hash, from, to, value, ts string) model.Transaction {
	v, err := decimal.NewFromString(value)
	if err != nil {
		v = decimal.Zero
	}
	sec, _ := strconv.ParseInt(ts, 10, 64)
	// 个别数据源返回毫秒级时间戳
	if sec > 0 && !utils.IsUnixSeconds(sec) {
		sec /= 1000
	}
	return model.Transaction{
		Hash:      hash,
		From:      from,
		To:        to,
		Value:     v,
		Timestamp: time.Unix(sec, 0),
	}
}

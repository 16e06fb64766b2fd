package analyzer

import (
	"context"
	"fmt"
	"sort"

	"web3-sentry/internal/worker/model"
	"web3-sentry/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Fetcher 拉取代币元数据与top持有者并归一化
type Fetcher struct {
	metadata  MetadataProvider
	chainMeta MetadataProvider // 链上兜底元数据源，可为nil
	holders   HolderProvider
	transfers TransferProvider
	tl        *zap.Logger
}

func NewFetcher(metadata, chainMeta MetadataProvider, holders HolderProvider, transfers TransferProvider, tl *zap.Logger) *Fetcher {
	return &Fetcher{
		metadata:  metadata,
		chainMeta: chainMeta,
		holders:   holders,
		transfers: transfers,
		tl:        tl,
	}
}

// FetchMetadata 拉取元数据。主路径失败时走链上兜底，两者都失败才致命
func (f *Fetcher) FetchMetadata(ctx context.Context, network, tokenAddr string) (*model.TokenMetadata, error) {
	meta, err := f.metadata.FetchTokenMetadata(ctx, network, tokenAddr)
	if err != nil && f.chainMeta != nil {
		f.tl.Warn("metadata provider failed, falling back to chain lookup",
			zap.String("token", tokenAddr),
			zap.String("network", network),
			zap.Error(err))
		meta, err = f.chainMeta.FetchTokenMetadata(ctx, network, tokenAddr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	meta.Address = utils.NormalizeAddress(meta.Address)
	return meta, nil
}

// FetchTopHolders 拉取top持有者。主路径失败时走转账事件兜底。
// 余额与百分比一律基于传入的同一份元数据快照重算
func (f *Fetcher) FetchTopHolders(ctx context.Context, network, tokenAddr string, limit int, meta *model.TokenMetadata) ([]model.Holder, error) {
	holders, err := f.holders.FetchTopHolders(ctx, network, tokenAddr, limit)
	if err != nil {
		f.tl.Warn("holder provider failed, falling back to transfer scan",
			zap.String("token", tokenAddr),
			zap.String("network", network),
			zap.Error(err))
		holders, err = f.holdersFromTransfers(ctx, network, tokenAddr, limit)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHoldersUnavailable, err)
		}
	}

	for i := range holders {
		h := &holders[i]
		h.Address = utils.NormalizeAddress(h.Address)
		h.Balance, h.Percentage = Normalize(h.BalanceRaw, meta)
	}
	return holders, nil
}

// Normalize 原始余额转为可读余额与占供应量百分比。供应量为0或未知时百分比为0，避免除零
func Normalize(balanceRaw string, meta *model.TokenMetadata) (decimal.Decimal, decimal.Decimal) {
	raw, err := decimal.NewFromString(balanceRaw)
	if err != nil {
		return decimal.Zero, decimal.Zero
	}

	balance := raw.Div(decimal.New(1, int32(meta.Decimals)))

	supply := meta.TotalSupplyHuman()
	if supply.IsZero() {
		return balance, decimal.Zero
	}

	return balance, balance.Div(supply).Mul(decimal.NewFromInt(100))
}

// holdersFromTransfers 兜底：扫描近期转账事件，按接收方累加入账金额后排序截断。
// 只累加流入、不扣减流出，是已知的近似口径，不是校验过的真实余额
func (f *Fetcher) holdersFromTransfers(ctx context.Context, network, tokenAddr string, limit int) ([]model.Holder, error) {
	transfers, err := f.transfers.FetchTokenTransfers(ctx, network, tokenAddr, 0)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for _, t := range transfers {
		to := utils.NormalizeAddress(t.To)
		if to == "" || to == utils.NormalizeAddress(tokenAddr) {
			continue
		}
		totals[to] = totals[to].Add(t.Value)
	}

	holders := make([]model.Holder, 0, len(totals))
	for addr, total := range totals {
		holders = append(holders, model.Holder{
			Address:    addr,
			BalanceRaw: total.String(),
		})
	}

	sort.Slice(holders, func(i, j int) bool {
		bi, _ := decimal.NewFromString(holders[i].BalanceRaw)
		bj, _ := decimal.NewFromString(holders[j].BalanceRaw)
		return bi.GreaterThan(bj)
	})

	if limit > 0 && len(holders) > limit {
		holders = holders[:limit]
	}
	return holders, nil
}

package analyzer

import (
	"context"

	"web3-sentry/internal/worker/model"
)

// MetadataProvider 代币元数据源。失败是致命的：没有decimals/supply后续什么都算不了
type MetadataProvider interface {
	FetchTokenMetadata(ctx context.Context, network, tokenAddr string) (*model.TokenMetadata, error)
}

// HolderProvider top持有者数据源，按余额降序。只保证BalanceRaw有效，
// 带精度余额与百分比由Fetcher基于同一份元数据快照重算
type HolderProvider interface {
	FetchTopHolders(ctx context.Context, network, tokenAddr string, limit int) ([]model.Holder, error)
}

// DeployerProvider 合约创建信息源。查不到返回(nil, nil)，永不致命
type DeployerProvider interface {
	FetchContractCreation(ctx context.Context, network, contractAddr string) (*model.Deployer, error)
}

// TxHistoryProvider 钱包交易历史源。失败时调用方按空历史处理
type TxHistoryProvider interface {
	FetchTransactions(ctx context.Context, network, address string, limit int) ([]model.Transaction, error)
}

// TransferProvider 代币转账事件源，持有者兜底路径使用
type TransferProvider interface {
	FetchTokenTransfers(ctx context.Context, network, tokenAddr string, limit int) ([]model.Transaction, error)
}

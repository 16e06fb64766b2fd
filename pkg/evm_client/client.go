package evm_client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Init evm client
func Init(rawurl string) *ethclient.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		panic(fmt.Sprintf("Init evm client error: %v", err))
	}

	return client
}

// ERC20 函数选择器
var (
	balanceOfSelector   = []byte{0x70, 0xa0, 0x82, 0x31} // balanceOf(address)
	decimalsSelector    = []byte{0x31, 0x3c, 0xe5, 0x67} // decimals()
	totalSupplySelector = []byte{0x18, 0x16, 0x0d, 0xdd} // totalSupply()
)

// BalanceOf 查询钱包持有的ERC20代币原始余额
func BalanceOf(ctx context.Context, client *ethclient.Client, token, wallet common.Address) (*big.Int, error) {
	callData := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(wallet.Bytes(), 32)...)

	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf failed for %s: %w", token.Hex(), err)
	}

	return parseUint256(result)
}

// Decimals 查询ERC20代币精度
func Decimals(ctx context.Context, client *ethclient.Client, token common.Address) (uint8, error) {
	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: append([]byte{}, decimalsSelector...),
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("call decimals failed for %s: %w", token.Hex(), err)
	}

	v, err := parseUint256(result)
	if err != nil {
		return 0, err
	}
	return uint8(v.Uint64()), nil
}

// TotalSupply 查询ERC20代币总供应量（原始值）
func TotalSupply(ctx context.Context, client *ethclient.Client, token common.Address) (*big.Int, error) {
	result, err := client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: append([]byte{}, totalSupplySelector...),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("call totalSupply failed for %s: %w", token.Hex(), err)
	}

	return parseUint256(result)
}

// parseUint256 解析合约调用返回的32字节整数
func parseUint256(data []byte) (*big.Int, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("invalid result data length: %d", len(data))
	}
	return new(big.Int).SetBytes(data[len(data)-32:]), nil
}

package utils

import (
	"math/big"
	"math/rand"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// NormalizeAddress EVM 地址统一小写，作为map键使用
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// ChecksumAddress 将 EVM 地址转换为 EIP-55 Checksum 格式
func ChecksumAddress(addr string, network string) string {
	if addr == "" {
		return ""
	}

	network = strings.ToUpper(strings.TrimSpace(network))
	addr = strings.TrimSpace(addr)

	if network == "BSC" || network == "ETH" || network == "POLYGON" || network == "BASE" {
		addr = strings.TrimPrefix(strings.ToLower(addr), "0x")
		return common.HexToAddress("0x" + addr).Hex()
	}

	// 非 EVM 网络，直接返回原始地址
	return addr
}

// AdjustDecimals 原始余额转为带精度的可读数值
func AdjustDecimals(value *big.Int, decimals uint8) decimal.Decimal {
	decimalValue := decimal.NewFromBigInt(value, 0)
	divisor := decimal.New(1, int32(decimals))
	return decimalValue.Div(divisor)
}

// IsUnixSeconds 检查时间戳是否为秒级
func IsUnixSeconds(ts int64) bool {
	const maxUnix = 4_102_444_800 // 2100-01-01 00:00:00 UTC
	return ts >= 0 && ts < maxUnix
}

// AlertID 生成告警ID：毫秒时间戳 + 随机后缀，避免同毫秒碰撞。
// 并发调用安全，走包级rand
func AlertID() string {
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = chars[rand.Intn(len(chars))]
	}
	return "alert_" + decimal.NewFromInt(time.Now().UnixMilli()).String() + "_" + string(suffix)
}

// ExplorerAddressLink 拼接区块浏览器的地址链接
func ExplorerAddressLink(network, addr string) string {
	switch strings.ToUpper(network) {
	case "ETH":
		return "https://etherscan.io/address/" + addr
	case "BSC":
		return "https://bscscan.com/address/" + addr
	case "POLYGON":
		return "https://polygonscan.com/address/" + addr
	case "BASE":
		return "https://basescan.org/address/" + addr
	}
	return ""
}

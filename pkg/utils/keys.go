package utils

import "fmt"

func TokenPriceKey(network, tokenAddress string) string {
	return fmt.Sprintf("sentry:price:%s:%s", network, tokenAddress)
}

func RecentAlertsKey(network, tokenAddress string) string {
	return fmt.Sprintf("sentry:alerts:%s:%s", network, tokenAddress)
}

func TokenMetadataKey(network, tokenAddress string) string {
	return fmt.Sprintf("sentry:token_info:%s:%s", network, tokenAddress)
}

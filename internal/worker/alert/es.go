package alert

import (
	"context"

	"web3-sentry/internal/worker/model"
	"web3-sentry/pkg/elasticsearch"

	"go.uber.org/zap"
)

// ESSink 告警历史写入Elasticsearch，供检索与聚合
type ESSink struct {
	esClient *elasticsearch.Client
	index    string
	tl       *zap.Logger
}

func NewESSink(ctx context.Context, esClient *elasticsearch.Client, index string, tl *zap.Logger) *ESSink {
	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"wallet_address":    map[string]interface{}{"type": "keyword"},
				"wallet_type":       map[string]interface{}{"type": "keyword"},
				"token_address":     map[string]interface{}{"type": "keyword"},
				"network":           map[string]interface{}{"type": "keyword"},
				"amount_sold":       map[string]interface{}{"type": "double"},
				"usd_value":         map[string]interface{}{"type": "double"},
				"change_percentage": map[string]interface{}{"type": "keyword"},
				"timestamp":         map[string]interface{}{"type": "date"},
			},
		},
	}
	if err := esClient.CreateIndex(ctx, index, mapping); err != nil {
		tl.Warn("failed to ensure alerts index", zap.Error(err))
	}

	return &ESSink{
		esClient: esClient,
		index:    index,
		tl:       tl,
	}
}

func (s *ESSink) Name() string {
	return "elasticsearch"
}

func (s *ESSink) Deliver(ctx context.Context, alert model.SellAlert) error {
	op := elasticsearch.BulkOperation{
		Action: "index",
		Index:  s.index,
		ID:     alert.ID,
		Document: map[string]interface{}{
			"alert_id":          alert.ID,
			"wallet_address":    alert.WalletAddress,
			"wallet_type":       string(alert.WalletType),
			"token_address":     alert.TokenAddress,
			"token_symbol":      alert.TokenSymbol,
			"network":           alert.Network,
			"amount_sold":       alert.AmountSold.InexactFloat64(),
			"usd_value":         alert.USDValue.InexactFloat64(),
			"previous_balance":  alert.PreviousBalance.InexactFloat64(),
			"new_balance":       alert.NewBalance.InexactFloat64(),
			"change_percentage": alert.ChangePercentage,
			"timestamp":         alert.Timestamp.UnixMilli(),
			"explorer_link":     alert.ExplorerLink,
		},
	}

	return s.esClient.BulkWrite(ctx, []elasticsearch.BulkOperation{op})
}

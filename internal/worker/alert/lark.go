package alert

import (
	"context"
	"time"

	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/model"
	"web3-sentry/pkg/httpclient"

	"go.uber.org/zap"
)

// LarkSink 通过Lark群机器人webhook推送告警
type LarkSink struct {
	webhook    string
	httpClient *httpclient.HTTPClient
	tl         *zap.Logger
}

type larkMessage struct {
	MsgType string      `json:"msg_type"`
	Content larkContent `json:"content"`
}

type larkContent struct {
	Text string `json:"text"`
}

type larkResp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func NewLarkSink(cfg config.LarkConfig, tl *zap.Logger) *LarkSink {
	return &LarkSink{
		webhook: cfg.Webhook,
		httpClient: httpclient.NewHTTPClient(httpclient.HTTPClientConfig{
			Timeout: 10 * time.Second,
		}, tl),
		tl: tl,
	}
}

func (s *LarkSink) Name() string {
	return "lark"
}

func (s *LarkSink) Deliver(ctx context.Context, alert model.SellAlert) error {
	msg := larkMessage{
		MsgType: "text",
		Content: larkContent{Text: FormatAlertText(alert)},
	}

	var resp larkResp
	return s.httpClient.PostJSON(ctx, s.webhook, msg, nil, &resp)
}

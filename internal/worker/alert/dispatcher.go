package alert

import (
	"context"
	"fmt"

	"web3-sentry/internal/worker/model"
	"web3-sentry/internal/worker/monitor"

	"go.uber.org/zap"
)

// Sink 告警投递端
type Sink interface {
	Name() string
	Deliver(ctx context.Context, alert model.SellAlert) error
}

// Dispatcher 把告警扇出到所有投递端。任何一个端失败只记日志和指标，
// 不影响其他端，更不影响检测路径
type Dispatcher struct {
	sinks []Sink
	tl    *zap.Logger
}

func NewDispatcher(tl *zap.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks: sinks,
		tl:    tl,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, alert model.SellAlert) {
	for _, sink := range d.sinks {
		if err := d.deliverSafe(ctx, sink, alert); err != nil {
			monitor.AlertSinkFailures.WithLabelValues(sink.Name()).Inc()
			d.tl.Warn("alert delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("alert_id", alert.ID),
				zap.Error(err))
		}
	}
}

func (d *Dispatcher) deliverSafe(ctx context.Context, sink Sink, alert model.SellAlert) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("sink panicked: %v", rec)
		}
	}()
	return sink.Deliver(ctx, alert)
}

// FormatAlertText 拼出人类可读的告警文本
func FormatAlertText(alert model.SellAlert) string {
	text := fmt.Sprintf(
		"🚨 Sell detected [%s]\ntoken: %s (%s)\nwallet: %s (%s)\nsold: %s (%s%%)\nbalance: %s -> %s",
		alert.Network,
		alert.TokenSymbol,
		alert.TokenAddress,
		alert.WalletAddress,
		alert.WalletType,
		alert.AmountSold.String(),
		alert.ChangePercentage,
		alert.PreviousBalance.String(),
		alert.NewBalance.String(),
	)
	if alert.USDValue.IsPositive() {
		text += fmt.Sprintf("\nusd value: $%s", alert.USDValue.StringFixed(2))
	}
	if alert.ExplorerLink != "" {
		text += "\n" + alert.ExplorerLink
	}
	return text
}

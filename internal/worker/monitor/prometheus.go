package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	// PollCyclesTotal 轮询周期相关
	PollCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentry_poll_cycles_total",
			Help: "Total number of completed poll cycles.",
		},
	)
	PollCyclesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentry_poll_cycles_skipped_total",
			Help: "Number of poll ticks skipped because the previous cycle was still running.",
		},
	)
	PollCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentry_poll_cycle_duration_seconds",
			Help:    "Time taken to complete a full poll cycle.",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
	)
	WalletChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_wallet_checks_total",
			Help: "Total number of per-wallet balance checks.",
		},
		[]string{"result"}, // ok / skipped / failed
	)

	// SellAlertsEmitted 告警相关
	SellAlertsEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_sell_alerts_emitted_total",
			Help: "Total number of sell alerts emitted.",
		},
		[]string{"wallet_type"},
	)
	AlertSinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_alert_sink_failures_total",
			Help: "Total number of alert delivery failures per sink.",
		},
		[]string{"sink"},
	)
	TokenRiskLevel = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sentry_token_risk_level",
			Help: "Current aggregate risk level per monitored token (0=low 1=medium 2=high).",
		},
		[]string{"network", "token"},
	)

	// ProviderRequestDuration 上游数据源相关
	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentry_provider_request_duration_seconds",
			Help:    "Time taken by upstream data provider calls.",
			Buckets: []float64{0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0, 10.0},
		},
		[]string{"provider", "operation"},
	)

	// AsyncWriterMessagesQueued AsyncWriter 指标
	AsyncWriterMessagesQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_async_writer_messages_queued_total",
			Help: "Total number of messages queued to async writer.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterMessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentry_async_writer_messages_dropped_total",
			Help: "Total number of messages dropped due to full queue.",
		},
		[]string{"writer_id"},
	)
	AsyncWriterBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentry_async_writer_batch_size",
			Help:    "Number of items in each batch submitted to the writer.",
			Buckets: []float64{1, 5, 10, 50, 100, 200, 500},
		},
		[]string{"writer_id"},
	)
	AsyncWriterFlushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentry_async_writer_flush_duration_seconds",
			Help:    "Time taken to flush a batch.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"writer_id"},
	)
)

func init() {
	prometheus.MustRegister(
		// 轮询指标
		PollCyclesTotal,
		PollCyclesSkipped,
		PollCycleDuration,
		WalletChecksTotal,

		// 告警指标
		SellAlertsEmitted,
		AlertSinkFailures,
		TokenRiskLevel,

		// 上游数据源指标
		ProviderRequestDuration,

		// async 写入指标
		AsyncWriterMessagesQueued,
		AsyncWriterMessagesDropped,
		AsyncWriterBatchSize,
		AsyncWriterFlushDuration,
	)
}

// RiskLevelValue 风险等级转指标值
func RiskLevelValue(level string) float64 {
	switch level {
	case "high":
		return 2
	case "medium":
		return 1
	}
	return 0
}

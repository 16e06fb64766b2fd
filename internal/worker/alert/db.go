package alert

import (
	"context"
	"time"

	"web3-sentry/internal/worker/model"
	"web3-sentry/internal/worker/writer"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBSink 告警落库。写入走异步批量通道，Deliver只负责入队
type DBSink struct {
	asyncWriter *writer.AsyncBatchWriter[model.SellAlertRecord]
}

// pgAlertWriter 告警记录批量写入PG
type pgAlertWriter struct {
	db *gorm.DB
	tl *zap.Logger
}

func (w *pgAlertWriter) BWrite(ctx context.Context, records []model.SellAlertRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := w.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "alert_id"}},
			DoNothing: true,
		}).
		Create(&records).Error
	if err != nil {
		w.tl.Warn("alert batch insert failed", zap.Int("count", len(records)), zap.Error(err))
		return err
	}
	return nil
}

func (w *pgAlertWriter) Close() error {
	return nil
}

func NewDBSink(ctx context.Context, db *gorm.DB, tl *zap.Logger) *DBSink {
	aw := writer.NewAsyncBatchWriter[model.SellAlertRecord](
		tl,
		&pgAlertWriter{db: db, tl: tl},
		50,
		2*time.Second,
		"alert_pg_writer",
		1,
	)
	aw.Start(ctx)

	return &DBSink{asyncWriter: aw}
}

func (s *DBSink) Name() string {
	return "postgres"
}

func (s *DBSink) Deliver(ctx context.Context, alert model.SellAlert) error {
	payload, _ := sonic.Marshal(alert)
	s.asyncWriter.Submit(model.NewSellAlertRecord(alert, payload))
	return nil
}

func (s *DBSink) Close() {
	s.asyncWriter.Close()
}

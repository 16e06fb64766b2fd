package job

import (
	"context"
	"time"

	"web3-sentry/internal/worker/config"
	"web3-sentry/internal/worker/model"
	"web3-sentry/internal/worker/repository"

	"go.uber.org/zap"
)

// AlertCleanup 定时清理过期告警记录
type AlertCleanup struct {
	cfg  config.Config
	repo repository.Repository
	tl   *zap.Logger
}

// NewAlertCleanup 创建告警清理任务
func NewAlertCleanup(cfg config.Config, repo repository.Repository, logger *zap.Logger) *AlertCleanup {
	return &AlertCleanup{
		repo: repo,
		tl:   logger,
		cfg:  cfg,
	}
}

// Run 执行清理任务
func (j *AlertCleanup) Run(ctx context.Context) error {
	j.tl.Info("Starting alert cleanup job")

	// 保留7天，计算截断时间戳（ms级）
	cutoff := time.Now().AddDate(0, 0, -7).UnixMilli()

	result := j.repo.GetDB().WithContext(ctx).
		Where("alert_time < ?", cutoff).
		Delete(&model.SellAlertRecord{})

	if result.Error != nil {
		j.tl.Warn("Failed to cleanup old alerts",
			zap.Error(result.Error),
			zap.Int64("cutoff_timestamp", cutoff))
		return result.Error
	}

	j.tl.Info("Alert cleanup completed successfully",
		zap.Int64("deleted_rows", result.RowsAffected),
		zap.Int64("cutoff_timestamp", cutoff))

	return nil
}

package writer

import (
	"context"
)

// BatchWriter 批量落库接口，告警记录异步持久化路径的底层写入端
type BatchWriter[T any] interface {
	// BWrite 写入一批记录
	BWrite(ctx context.Context, batch []T) error
	// Close 释放底层资源
	Close() error
}

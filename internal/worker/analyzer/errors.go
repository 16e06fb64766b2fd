package analyzer

import "errors"

var (
	// ErrMetadataUnavailable 元数据拉取失败，分析中止
	ErrMetadataUnavailable = errors.New("token metadata unavailable")
	// ErrHoldersUnavailable 持有者列表与兜底路径都失败
	ErrHoldersUnavailable = errors.New("token holders unavailable")
)

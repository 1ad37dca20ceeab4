package types

import (
	"time"
)

// CleanupResult 一次清理操作的结果记录
type CleanupResult struct {
	UUID         string         `json:"uuid"`
	Timestamp    time.Time      `json:"timestamp"`
	Options      CleanupOptions `json:"options_used"`
	Before       MemorySnapshot `json:"before"`
	After        MemorySnapshot `json:"after"`
	FreedBytes   int64          `json:"freed_bytes"`
	Succeeded    bool           `json:"succeeded"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// Status returns the result state as a string
func (r *CleanupResult) Status() string {
	if r.Succeeded {
		return "succeeded"
	}
	return "failed"
}

// HistoryDocument 历史文件的持久化格式
type HistoryDocument struct {
	Records []CleanupResult `json:"records"`
}

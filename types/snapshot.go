package types

import (
	"time"
)

// MemorySnapshot 系统内存快照
type MemorySnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	TotalBytes  uint64    `json:"total_bytes"`
	FreeBytes   uint64    `json:"free_bytes"`
	CachedBytes uint64    `json:"cached_bytes"`
	UsedBytes   uint64    `json:"used_bytes"`
}

// UsedPercent returns the used memory ratio as a percentage
func (s *MemorySnapshot) UsedPercent() float64 {
	if s.TotalBytes == 0 {
		return 0
	}
	return (float64(s.UsedBytes) / float64(s.TotalBytes)) * 100
}

// IsZero returns true if the snapshot carries no data
func (s *MemorySnapshot) IsZero() bool {
	return s.TotalBytes == 0 && s.Timestamp.IsZero()
}

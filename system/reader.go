package system

import (
	"context"
	"fmt"
	"time"

	"github.com/dreamsxin/memory-cleaner/types"
)

// QueryError 内存查询失败
type QueryError struct {
	Reason string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("memory query failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("memory query failed: %s", e.Reason)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Reader 内存读取器接口
type Reader interface {
	Snapshot(ctx context.Context) (*types.MemorySnapshot, error)
}

// MemoryReader reads memory statistics from the operating system
type MemoryReader struct{}

// NewMemoryReader creates a memory reader for the current platform
func NewMemoryReader() *MemoryReader {
	return &MemoryReader{}
}

// Snapshot 获取当前内存快照
func (r *MemoryReader) Snapshot(ctx context.Context) (*types.MemorySnapshot, error) {
	snapshot, err := collectMemory(ctx)
	if err != nil {
		return nil, &QueryError{Reason: "os query", Err: err}
	}

	snapshot.Timestamp = time.Now()

	// 校验操作系统返回的数据
	if snapshot.TotalBytes == 0 {
		return nil, &QueryError{Reason: "total memory reported as zero"}
	}
	if snapshot.UsedBytes > snapshot.TotalBytes {
		return nil, &QueryError{Reason: fmt.Sprintf("used memory %d exceeds total %d", snapshot.UsedBytes, snapshot.TotalBytes)}
	}

	return snapshot, nil
}

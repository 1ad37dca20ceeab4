//go:build !windows

package system

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dreamsxin/memory-cleaner/types"
)

// collectMemory 收集Unix系统内存信息
func collectMemory(ctx context.Context) (*types.MemorySnapshot, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	return &types.MemorySnapshot{
		TotalBytes:  vm.Total,
		FreeBytes:   vm.Available,
		CachedBytes: vm.Cached,
		UsedBytes:   vm.Used,
	}, nil
}

//go:build windows

package system

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dreamsxin/memory-cleaner/types"
)

// collectMemory 收集Windows系统内存信息
func collectMemory(ctx context.Context) (*types.MemorySnapshot, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	// Windows上standby list计入Available，gopsutil不单独报告缓存，
	// 这里用Available与Free的差值近似缓存大小
	var cached uint64
	if vm.Available > vm.Free {
		cached = vm.Available - vm.Free
	}

	return &types.MemorySnapshot{
		TotalBytes:  vm.Total,
		FreeBytes:   vm.Available,
		CachedBytes: cached,
		UsedBytes:   vm.Used,
	}, nil
}

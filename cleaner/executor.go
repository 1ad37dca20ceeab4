package cleaner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dreamsxin/memory-cleaner/system"
	"github.com/dreamsxin/memory-cleaner/types"
	"github.com/dreamsxin/memory-cleaner/util"
)

// Recorder persists cleanup results
type Recorder interface {
	Append(result types.CleanupResult) error
}

// Executor invokes the external cleanup tool and records before/after memory readings
type Executor struct {
	toolPath string
	timeout  time.Duration
	reader   system.Reader
	recorder Recorder
	logger   *slog.Logger
}

// NewExecutor creates a cleanup executor.
// recorder may be nil, in which case results are not persisted.
func NewExecutor(toolPath string, timeout time.Duration, reader system.Reader, recorder Recorder, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		toolPath: toolPath,
		timeout:  timeout,
		reader:   reader,
		recorder: recorder,
		logger:   logger,
	}
}

// Run 执行一次清理操作。
// 外部工具的失败（超时、非零退出）记录在返回的结果里而不作为错误返回；
// 错误只在选项为空或工具缺失时返回，此时不会产生任何外部调用。
func (e *Executor) Run(ctx context.Context, options types.CleanupOptions) (*types.CleanupResult, error) {
	if options.None() {
		return nil, ErrNoOptions
	}

	if _, err := os.Stat(e.toolPath); err != nil {
		if os.IsNotExist(err) {
			return nil, &ToolMissingError{Path: e.toolPath}
		}
		return nil, err
	}

	if options.All() {
		e.logger.Warn("all cleanup flags selected, system may stall briefly during cleanup")
	}

	result := &types.CleanupResult{
		UUID:      util.GenerateUUID(),
		Timestamp: time.Now(),
		Options:   options,
	}

	result.Before = e.takeSnapshot(ctx, "before")

	args := options.Args()
	e.logger.Info("executing cleanup tool", "path", e.toolPath, "args", strings.Join(args, " "))

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := newToolCommand(runCtx, e.toolPath, args)
	output, runErr := cmd.CombinedOutput()

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		result.Succeeded = false
		result.ErrorMessage = (&ToolTimeoutError{Timeout: e.timeout}).Error()
		e.logger.Error("cleanup tool timed out", "timeout", e.timeout)
	case runErr != nil:
		result.Succeeded = false
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ErrorMessage = (&ToolExecError{
				ExitCode: exitErr.ExitCode(),
				Output:   strings.TrimSpace(string(output)),
			}).Error()
		} else {
			result.ErrorMessage = runErr.Error()
		}
		e.logger.Error("cleanup tool failed", "error", result.ErrorMessage)
	default:
		result.Succeeded = true
	}

	// 即使失败也采集after快照，内存可能已经部分改变
	result.After = e.takeSnapshot(ctx, "after")
	result.FreedBytes = int64(result.Before.UsedBytes) - int64(result.After.UsedBytes)

	if result.Succeeded {
		e.logger.Info("cleanup complete",
			"before_used", result.Before.UsedBytes,
			"after_used", result.After.UsedBytes,
			"freed", util.FormatBytes(result.FreedBytes))
	}

	if e.recorder != nil {
		if err := e.recorder.Append(*result); err != nil {
			// 持久化失败不影响本次清理结果
			e.logger.Warn("failed to record cleanup result", "error", err)
		}
	}

	return result, nil
}

// takeSnapshot 尽力而为地读取内存快照，失败时返回空快照
func (e *Executor) takeSnapshot(ctx context.Context, stage string) types.MemorySnapshot {
	snapshot, err := e.reader.Snapshot(ctx)
	if err != nil {
		e.logger.Warn("memory snapshot failed", "stage", stage, "error", err)
		return types.MemorySnapshot{}
	}
	return *snapshot
}

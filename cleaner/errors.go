package cleaner

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoOptions 未选择任何清理标志
var ErrNoOptions = errors.New("no cleanup options selected")

// ToolMissingError 外部清理工具不存在，属于安装/下载问题而非运行时清理失败
type ToolMissingError struct {
	Path string
}

func (e *ToolMissingError) Error() string {
	return fmt.Sprintf("cleanup tool not found at %s", e.Path)
}

// ToolTimeoutError 外部工具执行超时
type ToolTimeoutError struct {
	Timeout time.Duration
}

func (e *ToolTimeoutError) Error() string {
	return fmt.Sprintf("cleanup tool timed out after %s", e.Timeout)
}

// ToolExecError 外部工具以非零状态退出
type ToolExecError struct {
	ExitCode int
	Output   string
}

func (e *ToolExecError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("cleanup tool exited with code %d: %s", e.ExitCode, e.Output)
	}
	return fmt.Sprintf("cleanup tool exited with code %d", e.ExitCode)
}

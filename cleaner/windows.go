//go:build windows

package cleaner

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// newToolCommand creates a Windows-specific command for the cleanup tool
func newToolCommand(ctx context.Context, name string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
	cmd.Cancel = func() error {
		return killProcessTree(cmd)
	}
	return cmd
}

// killProcessTree terminates the tool and its children on Windows
func killProcessTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	pid := cmd.Process.Pid

	// 方法1: 使用taskkill (最可靠的方法)
	killCmd := exec.Command("taskkill", "/F", "/T", "/PID", fmt.Sprintf("%d", pid))
	if err := killCmd.Run(); err == nil {
		return nil
	}

	// 方法2: 直接使用TerminateProcess API
	return terminateProcess(pid)
}

// terminateProcess 使用Windows API直接终止进程
func terminateProcess(pid int) error {
	handle, err := windows.OpenProcess(windows.PROCESS_TERMINATE|windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		// 如果进程已经不存在，我们认为终止成功
		if err == windows.ERROR_INVALID_PARAMETER || err == windows.ERROR_ACCESS_DENIED {
			return nil
		}
		return fmt.Errorf("failed to open process %d: %v", pid, err)
	}
	defer windows.CloseHandle(handle)

	if err := windows.TerminateProcess(handle, 1); err != nil {
		// 如果进程已经终止，忽略错误
		if err == windows.ERROR_ACCESS_DENIED {
			return nil
		}
		return fmt.Errorf("failed to terminate process %d: %v", pid, err)
	}

	return nil
}

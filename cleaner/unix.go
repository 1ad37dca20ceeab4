//go:build !windows

package cleaner

import (
	"context"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// newToolCommand creates a Unix-specific command for the cleanup tool
func newToolCommand(ctx context.Context, name string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true, // Create process group for Unix systems
	}
	cmd.Cancel = func() error {
		return killProcessTree(cmd)
	}
	return cmd
}

// killProcessTree terminates the tool and its children on Unix systems
func killProcessTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	// Use process group to kill all child processes
	// Negative PID means kill the process group
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if err != nil {
		// 如果进程已经不存在，忽略错误
		if err == unix.ESRCH {
			return nil
		}
		return err
	}
	return nil
}

//go:build !windows

package bot

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr sets platform-specific attributes for Unix-like systems.
// If spec.Detached is true, we create a new session (setsid) so the child is
// detached from the controlling terminal and survives parent exit cleanly.
// Otherwise, we place it in a new process group for signal handling.
func configureSysProcAttr(cmd *exec.Cmd, spec Spec) {
	attrs := &syscall.SysProcAttr{}
	if spec.Detached {
		attrs.Setsid = true // start the process in a new session
	} else {
		attrs.Setpgid = true // create a new process group for group signaling
	}
	cmd.SysProcAttr = attrs
}

// processExists checks if a process exists.
func processExists(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// terminateGroup sends SIGTERM to the bot's process group.
func terminateGroup(pid int) error {
	if pid <= 0 {
		return nil
	}
	return syscall.Kill(-pid, syscall.SIGTERM)
}

// killGroup sends SIGKILL to the bot's process group.
func killGroup(pid int) error {
	if pid <= 0 {
		return nil
	}
	return syscall.Kill(-pid, syscall.SIGKILL)
}

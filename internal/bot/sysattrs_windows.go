//go:build windows

package bot

import (
	"os"
	"os/exec"
	"syscall"
)

// Windows creation flags
const (
	CREATE_NEW_PROCESS_GROUP = 0x00000200
	DETACHED_PROCESS         = 0x00000008
)

// configureSysProcAttr sets platform-specific attributes for Windows.
// For signal handling, we create a new process group. When Detached is true,
// we additionally set DETACHED_PROCESS so the child does not inherit the
// parent's console and is fully detached.
func configureSysProcAttr(cmd *exec.Cmd, spec Spec) {
	attrs := &syscall.SysProcAttr{}
	flags := uint32(CREATE_NEW_PROCESS_GROUP)
	if spec.Detached {
		flags |= DETACHED_PROCESS
	}
	attrs.CreationFlags = flags
	cmd.SysProcAttr = attrs
}

// processExists checks if a process exists.
func processExists(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// FindProcess always succeeds on Windows; Signal(0) probes liveness.
	return p.Signal(syscall.Signal(0)) == nil
}

// terminateGroup ends the process on Windows; there is no group SIGTERM.
func terminateGroup(pid int) error {
	return killGroup(pid)
}

// killGroup forcibly ends the process.
func killGroup(pid int) error {
	if pid <= 0 {
		return nil
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return p.Kill()
}

//go:build windows

package process

import (
	"os/exec"
	"syscall"
)

func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// Windows has no polite signal for a console group we do not share; closing stdin is the request.
func interrupt(pid int) error { return nil }

func killGroup(pid int) {}

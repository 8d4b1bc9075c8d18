//go:build windows

package lighthouse

import (
	"os/exec"
)

func configureProcess(*exec.Cmd) {}

func interruptProcessGroup(cmd *exec.Cmd) error {
	return killProcessGroup(cmd)
}

func killProcessGroup(cmd *exec.Cmd) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	_ = cmd.Process.Kill()
	return nil
}

//go:build unix

package integration

import (
	"os/exec"
	"syscall"
)

// killProcessGroup runs the generator in its own process group and makes
// cancellation kill the whole group, so helpers it spawned stop writing too.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}

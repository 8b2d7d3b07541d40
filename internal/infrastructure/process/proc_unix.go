//go:build unix

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureCommand puts the child in its own process group so signals reach
// any helpers it spawns.
func configureCommand(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateGroup(proc *os.Process) error {
	if err := unix.Kill(-proc.Pid, unix.SIGTERM); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return proc.Signal(unix.SIGTERM)
	}
	return nil
}

func killGroup(proc *os.Process) {
	if err := unix.Kill(-proc.Pid, unix.SIGKILL); err != nil {
		_ = proc.Kill()
	}
}

// Alive reports whether pid refers to a live (or unreaped) process. It is
// only built on unix; other platforms have no signal-0 probe.
func Alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

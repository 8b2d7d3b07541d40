//go:build !unix

package process

import (
	"os"
	"os/exec"
)

func configureCommand(*exec.Cmd) {}

func terminateGroup(proc *os.Process) error {
	return proc.Kill()
}

func killGroup(proc *os.Process) {
	_ = proc.Kill()
}

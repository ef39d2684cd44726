//go:build unix

package executor

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// sysProcAttr puts the player in its own process group so a Ctrl-C aimed at
// the supervisor's terminal does not take the player down with it
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// terminate sends SIGTERM
func terminate(p *os.Process) error {
	return p.Signal(unix.SIGTERM)
}

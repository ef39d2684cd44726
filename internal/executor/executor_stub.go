//go:build !unix

package executor

import (
	"os"
	"syscall"
)

// sysProcAttr returns no special attributes on platforms without process groups
func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

// terminate kills the process outright; there is no polite signal here
func terminate(p *os.Process) error {
	return p.Kill()
}

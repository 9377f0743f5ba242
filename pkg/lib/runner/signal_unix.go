//go:build !windows

package runner

import (
	"os"

	"golang.org/x/sys/unix"
)

// terminateGroup asks the whole process group to exit.
// A negative pid addresses the group led by the child.
func terminateGroup(p *os.Process) error {
	return unix.Kill(-p.Pid, unix.SIGTERM)
}

func killGroup(p *os.Process) error {
	return unix.Kill(-p.Pid, unix.SIGKILL)
}

//go:build windows

package runner

import (
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

func defaultSysProcAttr() *SysProcAttr {
	return &SysProcAttr{
		Raw: &syscall.SysProcAttr{
			HideWindow:    true,
			CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
		},
	}
}

func getSysProcAttr(string, bool) (*SysProcAttr, error) {
	return defaultSysProcAttr(), nil
}

func cgroupsSupported() bool {
	return false
}

func killCgroup(string) (bool, error) {
	return false, nil
}

func cleanupCgroup(string) error {
	return nil
}

// exitedUnreaped has no non-reaping wait here; the exit status decides instead.
func exitedUnreaped(int) bool {
	return false
}

// Console tools cannot receive a catchable signal from a detached parent, so
// termination is immediate.
func terminateGroup(p *os.Process) error {
	return p.Kill()
}

func killGroup(p *os.Process) error {
	return p.Kill()
}

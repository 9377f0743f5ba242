//go:build !linux && !windows

package runner

import (
	"syscall"
)

func defaultSysProcAttr() *SysProcAttr {
	return &SysProcAttr{
		Raw: &syscall.SysProcAttr{
			// New process group to manage children as a unit
			Setpgid: true,
		}}
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

//go:build linux

package runner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

const (
	cgroupRoot = "/sys/fs/cgroup/netdiag"

	// Limits for one diagnostic process tree.
	cgroupMemoryHigh = int64(128) * 1024 * 1024
	cgroupPidsMax    = 32
)

var (
	cgroupInitOnce sync.Once
	cgroupInitErr  error
)

// initCgroups prepares the cgroup root. Real work happens only once.
func initCgroups() error {
	cgroupInitOnce.Do(func() {
		cgroupInitErr = initCgroupsImpl()
	})
	return cgroupInitErr
}

func initCgroupsImpl() error {
	if err := os.MkdirAll(cgroupRoot, 0755); err != nil {
		return err
	}

	// Determine which controllers are available and already enabled on this cgroup
	available, err := readControllerSet(filepath.Join(cgroupRoot, "cgroup.controllers"))
	if err != nil {
		return err
	}
	enabled, err := readControllerSet(filepath.Join(cgroupRoot, "cgroup.subtree_control"))
	if err != nil {
		return err
	}

	desired := []string{"memory", "pids"}
	var toAdd []string
	for _, ctrl := range desired {
		if available[ctrl] && !enabled[ctrl] {
			toAdd = append(toAdd, "+"+ctrl)
		}
	}
	if len(toAdd) > 0 {
		if err := writeString(filepath.Join(cgroupRoot, "cgroup.subtree_control"), strings.Join(toAdd, " ")); err != nil {
			return err
		}
	}
	return nil
}

func readControllerSet(path string) (map[string]bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, f := range strings.Fields(string(data)) {
		set[strings.TrimPrefix(f, "+")] = true
	}
	return set, nil
}

func cgroupsSupported() bool {
	return os.Geteuid() == 0
}

func defaultSysProcAttr() *SysProcAttr {
	return &SysProcAttr{
		Raw: &syscall.SysProcAttr{
			// New process group to manage children as a unit
			Setpgid: true,
		},
	}
}

func getSysProcAttr(id string, useCgroups bool) (*SysProcAttr, error) {
	if !useCgroups || !cgroupsSupported() {
		return defaultSysProcAttr(), nil
	}

	if err := initCgroups(); err != nil {
		return nil, err
	}

	cgPath, err := setupCgroupFor(id)
	if err != nil {
		return nil, err
	}

	cGroupFile, err := os.Open(cgPath)
	if err != nil {
		return nil, err
	}

	return &SysProcAttr{
		File: cGroupFile,
		Raw: &syscall.SysProcAttr{
			Setpgid:     true,
			UseCgroupFD: true,
			CgroupFD:    int(cGroupFile.Fd()),
		},
	}, nil
}

// killCgroup kills every process in the invocation's cgroup. It reports false
// when the process was not placed in a cgroup.
func killCgroup(id string) (bool, error) {
	cgDir := filepath.Join(cgroupRoot, id)
	if _, err := os.Stat(cgDir); err != nil {
		return false, nil
	}
	err := writeString(filepath.Join(cgDir, "cgroup.kill"), "1")

	return err == nil, err
}

func cleanupCgroup(id string) error {
	cgDir := filepath.Join(cgroupRoot, id)
	if _, err := os.Stat(cgDir); err != nil {
		return nil
	}
	return os.Remove(cgDir)
}

func setupCgroupFor(processId string) (string, error) {
	processRoot := filepath.Join(cgroupRoot, processId)
	if err := os.MkdirAll(processRoot, 0755); err != nil {
		return "", err
	}

	// Only write controller-specific files if controllers are enabled
	if controllerEnabled(cgroupRoot, "memory") {
		if err := writeString(filepath.Join(processRoot, "memory.high"), fmt.Sprint(cgroupMemoryHigh)); err != nil {
			return "", err
		}
	}
	if controllerEnabled(cgroupRoot, "pids") {
		if err := writeString(filepath.Join(processRoot, "pids.max"), fmt.Sprint(cgroupPidsMax)); err != nil {
			return "", err
		}
	}

	return processRoot, nil
}

func controllerEnabled(cgPath, controller string) bool {
	enabled, err := readControllerSet(filepath.Join(cgPath, "cgroup.subtree_control"))
	if err != nil {
		return false
	}
	return enabled[controller]
}

func writeString(path, val string) error {
	return os.WriteFile(path, []byte(val), 0644)
}

// exitedUnreaped reports whether the child already exited but has not been
// waited for yet. WNOWAIT leaves it for the waiter goroutine to reap.
func exitedUnreaped(pid int) bool {
	if pid <= 0 {
		return false
	}
	var info unix.Siginfo
	err := unix.Waitid(unix.P_PID, pid, &info, unix.WEXITED|unix.WNOHANG|unix.WNOWAIT, nil)
	if errors.Is(err, unix.ECHILD) {
		// Already reaped.
		return true
	}
	return err == nil && info.Signo == int32(unix.SIGCHLD)
}

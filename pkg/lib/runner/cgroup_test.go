//go:build linux

package runner

import (
	"fmt"
	"os"
	"strings"
	"testing"
)

// Runs only as root on linux
func TestCgroup(t *testing.T) {
	if !cgroupsSupported() {
		t.Skip("Skipping: not running as root")
	}

	runner, err := NewRunner(WithCgroups(true))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res, err := runner.Start(shCommand("sleep 60"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() { _, _ = runner.Stop(res.ID) }()

	processId := res.ID
	procsData, err := os.ReadFile(fmt.Sprintf("%s/%s/cgroup.procs", cgroupRoot, processId))
	if err != nil {
		t.Skipf("Skipping: cgroup v2 not available: %v", err)
	}

	// Check that pid was attached to cgroup
	procsStr := strings.TrimSpace(string(procsData))
	if procsStr != fmt.Sprint(res.Status.Pid) {
		t.Fatalf("cgroup fail: %s. Expected: %d", procsStr, res.Status.Pid)
	}

	if controllerEnabled(cgroupRoot, "pids") {
		pidsMax, err := os.ReadFile(fmt.Sprintf("%s/%s/pids.max", cgroupRoot, processId))
		if err != nil {
			t.Fatalf("read pids.max: %v", err)
		}
		if got := strings.TrimSpace(string(pidsMax)); got != fmt.Sprint(cgroupPidsMax) {
			t.Fatalf("cgroup fail pids max: %s", got)
		}
	}

	if controllerEnabled(cgroupRoot, "memory") {
		memoryHigh, err := os.ReadFile(fmt.Sprintf("%s/%s/memory.high", cgroupRoot, processId))
		if err != nil {
			t.Fatalf("read memory.high: %v", err)
		}
		if got := strings.TrimSpace(string(memoryHigh)); got != fmt.Sprint(cgroupMemoryHigh) {
			t.Fatalf("cgroup fail memory high: %s", got)
		}
	}
}

func TestCgroupDisabledByDefault(t *testing.T) {
	attr, err := getSysProcAttr("unused", false)
	if err != nil {
		t.Fatalf("getSysProcAttr failed: %v", err)
	}
	if attr.File != nil || attr.Raw.UseCgroupFD || !attr.Raw.Setpgid {
		t.Fatalf("unexpected attributes without cgroups: %+v", attr.Raw)
	}
}

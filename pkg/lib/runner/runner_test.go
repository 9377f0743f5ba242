//go:build !windows

package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

func shCommand(script string) lib.Command {
	return lib.NewCommand(lib.ToolPing, "sh", "-c", script)
}

func readLines(t *testing.T, ch <-chan lib.RawLine) []string {
	t.Helper()
	var lines []string
	for line := range ch {
		lines = append(lines, line.Text)
	}
	return lines
}

func waitStopped(t *testing.T, r *Runner, id string) *lib.ProcessStatus {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		statusResult, err := r.Status(id)
		if err != nil {
			t.Fatalf("Status error: %v", err)
		}
		if statusResult.Status.State == lib.ProcessStateStopped {
			return statusResult.Status
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("process did not stop in time")
	return nil
}

func TestStartAndOutput(t *testing.T) {
	runner, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res, err := runner.Start(shCommand("echo out; echo err 1>&2"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	st := res.Status
	if st.State != lib.ProcessStateRunning {
		t.Fatalf("expected initial state Running, got %v", st.State)
	}
	if st.ExitCode != nil {
		t.Fatalf("expected no exit code at start")
	}
	if st.EndTime != nil {
		t.Fatalf("expected no end time at start")
	}
	if st.Pid <= 0 {
		t.Fatalf("expected pid at start, got %d", st.Pid)
	}

	out, err := runner.Output(res.ID)
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	lines := readLines(t, out)
	if fmt.Sprint(lines) != fmt.Sprint([]string{"out", "err"}) {
		t.Fatalf("unexpected merged output: %q", lines)
	}

	// The stream closes only after the final status is recorded.
	statusResult, err := runner.Status(res.ID)
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if statusResult.Status.State != lib.ProcessStateStopped {
		t.Fatalf("expected state Stopped, got %v", statusResult.Status.State)
	}
	if statusResult.Status.ExitCode == nil || *statusResult.Status.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %v", statusResult.Status.ExitCode)
	}
	if statusResult.Status.Killed {
		t.Fatalf("natural exit must not be marked killed")
	}
}

func TestExitCodeRecorded(t *testing.T) {
	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res, err := r.Start(shCommand("echo bye; exit 3"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	st := waitStopped(t, r, res.ID)
	if st.ExitCode == nil || *st.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %v", st.ExitCode)
	}
}

func TestTrailingPartialLineFlushed(t *testing.T) {
	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res, err := r.Start(shCommand(`printf 'a\r\nb'`))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	out, err := r.Output(res.ID)
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if lines := readLines(t, out); fmt.Sprint(lines) != fmt.Sprint([]string{"a", "b"}) {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestOutputDecodedWithCodePage(t *testing.T) {
	r, err := NewRunner(WithEncoding("cp866"))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res, err := r.Start(shCommand(`printf '\216\342\242\245\342\n'`))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	out, err := r.Output(res.ID)
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if lines := readLines(t, out); len(lines) != 1 || lines[0] != "Ответ" {
		t.Fatalf("unexpected decoded output: %q", lines)
	}
}

func TestNewRunnerUnknownEncoding(t *testing.T) {
	if _, err := NewRunner(WithEncoding("no-such-encoding")); err == nil {
		t.Fatalf("expected error for unknown encoding")
	}
}

func TestStopKillsProcess(t *testing.T) {
	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res, err := r.Start(shCommand("sleep 10"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if res.Status.State != lib.ProcessStateRunning {
		t.Fatalf("expected Running, got %v", res.Status.State)
	}

	stopResult, err := r.Stop(res.ID)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	st := stopResult.Status
	if st.State != lib.ProcessStateStopped || st.EndTime == nil {
		t.Fatalf("Stop returned before the process was reaped: %+v", st)
	}
	if !st.Killed {
		t.Fatalf("expected Killed after Stop")
	}
	if err := unix.Kill(res.Status.Pid, 0); !errors.Is(err, unix.ESRCH) {
		t.Fatalf("process %d still exists after Stop: %v", res.Status.Pid, err)
	}
}

func TestStopEscalatesToKill(t *testing.T) {
	r, err := NewRunner(WithGracePeriod(200 * time.Millisecond))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res, err := r.Start(shCommand(`trap "" TERM; echo ready; while :; do sleep 0.05; done`))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	out, err := r.Output(res.ID)
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}
	if line, ok := <-out; !ok || line.Text != "ready" {
		t.Fatalf("expected ready line, got %+v", line)
	}

	started := time.Now()
	stopResult, err := r.Stop(res.ID)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if elapsed := time.Since(started); elapsed < 200*time.Millisecond {
		t.Fatalf("SIGTERM-ignoring process stopped too early: %v", elapsed)
	}
	if stopResult.Status.State != lib.ProcessStateStopped || !stopResult.Status.Killed {
		t.Fatalf("unexpected status after escalation: %+v", stopResult.Status)
	}
	for range out {
	}
}

func TestStopAlreadyStoppedIsNoop(t *testing.T) {
	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res, err := r.Start(shCommand("exit 0"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStopped(t, r, res.ID)

	stopResult, err := r.Stop(res.ID)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if stopResult.Status.Killed {
		t.Fatalf("Stop after exit must not mark the process killed")
	}
	if stopResult.Status.ExitCode == nil || *stopResult.Status.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %v", stopResult.Status.ExitCode)
	}
}

func TestStopRacingNaturalExit(t *testing.T) {
	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	for i := 0; i < 200; i++ {
		res, err := r.Start(lib.NewCommand(lib.ToolPing, "true"))
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		time.Sleep(time.Duration(i%5) * 500 * time.Microsecond)

		stopResult, err := r.Stop(res.ID)
		if err != nil {
			t.Fatalf("iteration %d: Stop failed: %v", i, err)
		}
		st := stopResult.Status
		if st.State != lib.ProcessStateStopped {
			t.Fatalf("iteration %d: expected state Stopped, got %v", i, st.State)
		}
		if st.Killed && st.ExitCode != nil && *st.ExitCode == 0 {
			t.Fatalf("iteration %d: clean exit reported as killed", i)
		}
		if !st.Killed && (st.ExitCode == nil || *st.ExitCode != 0) {
			t.Fatalf("iteration %d: unexpected status %+v", i, st)
		}
		if err := r.Release(res.ID); err != nil {
			t.Fatalf("iteration %d: Release failed: %v", i, err)
		}
	}
}

func TestStartInvalidCommand(t *testing.T) {
	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	if _, err = r.Start(lib.Command{Tool: lib.ToolPing}); !errors.Is(err, lib.ErrEmptyExecutable) {
		t.Fatalf("expected ErrEmptyExecutable, got %v", err)
	}

	_, err = r.Start(lib.NewCommand(lib.ToolPing, "definitely-not-a-real-binary-xyz"))
	var spawnErr *lib.SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected SpawnError, got %v", err)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected the OS error to be wrapped, got %v", err)
	}
}

func TestStatusAndRelease(t *testing.T) {
	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	if _, err := r.Status("missing"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}

	res, err := r.Start(shCommand("sleep 10"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Release(res.ID); !errors.Is(err, lib.ErrInvalidArgument) {
		t.Fatalf("expected running process to refuse release, got %v", err)
	}
	if _, err := r.Stop(res.ID); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := r.Release(res.ID); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := r.Output(res.ID); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected released process to be gone, got %v", err)
	}
}

package runner

import (
	"errors"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/output_storage"
)

type StartResult struct {
	ID     string
	Status *lib.ProcessStatus
}

// Start launches command.Executable with command.Args as a direct argv, never
// through a shell. stdout and stderr are merged into one line stream.
// A failure to launch is returned as *lib.SpawnError.
func (runner *Runner) Start(command lib.Command) (*StartResult, error) {
	if strings.TrimSpace(command.Executable) == "" {
		return nil, lib.ErrEmptyExecutable
	}
	processId := lib.NewID()
	log := runner.logger.With(zap.String("invocation_id", processId), zap.Stringer("tool", command.Tool))

	cmd := exec.Command(command.Executable, command.Args...)

	sysProcAttr, err := getSysProcAttr(processId, runner.cgroups)
	if err != nil {
		log.Warn("cgroup setup failed, starting without it", zap.Error(err))
		_ = cleanupCgroup(processId)
		sysProcAttr = defaultSysProcAttr()
	}
	cmd.SysProcAttr = sysProcAttr.Raw

	output := output_storage.RunNewOutputStorage(runner.logger)
	writer := output_storage.NewLineWriter(output, runner.decoder)

	// cmd.Stdin is left nil, so it will use the null device. The same writer on
	// both streams makes exec share one pipe, which keeps their interleaving.
	cmd.Stdout = writer
	cmd.Stderr = writer
	cmd.WaitDelay = runner.gracePeriod

	pe := &processEntry{
		id:      processId,
		command: lib.NewCommand(command.Tool, command.Executable, command.Args...),
		cmd:     cmd,
		state:   lib.ProcessStateRunning,
		start:   time.Now(),
		output:  output,
		done:    make(chan struct{}),
	}

	log.Debug("starting process", zap.Stringer("command", command))
	if err := cmd.Start(); err != nil {
		log.Info("failed to start process", zap.Error(err))
		if sysProcAttr.File != nil {
			_ = sysProcAttr.File.Close()
		}
		output.Stop()
		_ = cleanupCgroup(processId)
		return nil, &lib.SpawnError{Executable: command.Executable, Err: err}
	}

	if sysProcAttr.File != nil {
		_ = sysProcAttr.File.Close()
	}

	pe.pid = cmd.Process.Pid
	log = log.With(zap.Int("pid", pe.pid))

	// Waiter
	go func() {
		err := cmd.Wait()
		writer.Flush()

		pe.mu.Lock()
		if cmd.ProcessState != nil {
			code := cmd.ProcessState.ExitCode()
			pe.exitCode = &code
		} else {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				code := exitErr.ExitCode()
				pe.exitCode = &code
			}
		}
		pe.killed = pe.stopping && !exitedCleanly(cmd.ProcessState)
		now := time.Now()
		pe.end = &now
		pe.state = lib.ProcessStateStopped
		exitCode, killed := pe.exitCode, pe.killed
		pe.mu.Unlock()

		if err != nil && !errors.Is(err, exec.ErrWaitDelay) {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				log.Warn("wait failed", zap.Error(err))
			}
		}
		fields := []zap.Field{zap.Bool("killed", killed), zap.Int("lines", output.Len())}
		if exitCode != nil {
			fields = append(fields, zap.Int("exit_code", *exitCode))
		}
		log.Debug("process finished", fields...)

		close(pe.done)
		output.Stop()

		// Cleanup platform-specific resources
		_ = cleanupCgroup(processId)
	}()

	runner.mu.Lock()
	runner.processes[processId] = pe
	runner.mu.Unlock()

	status := pe.lockAndGetStatus()

	return &StartResult{ID: processId, Status: &status}, nil
}

// exitedCleanly reports a zero exit that was not caused by a signal. A process
// that exits 0 while Stop is signalling it finished on its own.
func exitedCleanly(ps *os.ProcessState) bool {
	if ps == nil || ps.ExitCode() != 0 {
		return false
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return false
	}
	return true
}

package runner

import (
	"fmt"
	"os"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

type StatusResult struct {
	Command *lib.Command
	Status  *lib.ProcessStatus
}

// Status returns the current process and status by identifier.
func (runner *Runner) Status(id string) (*StatusResult, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return nil, err
	}

	status := pe.lockAndGetStatus()
	result := StatusResult{
		Command: &pe.command,
		Status:  &status,
	}

	return &result, nil
}

// Release forgets a stopped process. Its output can no longer be replayed.
func (runner *Runner) Release(id string) error {
	pe, err := runner.getProcess(id)
	if err != nil {
		return err
	}
	if pe.lockAndGetStatus().State != lib.ProcessStateStopped {
		return fmt.Errorf("%w: process %s is still running", lib.ErrInvalidArgument, id)
	}

	runner.mu.Lock()
	delete(runner.processes, id)
	runner.mu.Unlock()
	return nil
}

func (runner *Runner) getProcess(id string) (*processEntry, error) {
	runner.mu.RLock()
	pe := runner.processes[id]
	runner.mu.RUnlock()
	if pe == nil {
		return nil, os.ErrNotExist
	}
	return pe, nil
}

func (processEntry *processEntry) lockAndGetStatus() lib.ProcessStatus {
	processEntry.mu.RLock()
	defer processEntry.mu.RUnlock()

	st := lib.ProcessStatus{
		State:     processEntry.state,
		Pid:       processEntry.pid,
		Killed:    processEntry.killed,
		StartTime: processEntry.start,
	}
	if processEntry.exitCode != nil {
		st.ExitCode = lib.IntPtr(*processEntry.exitCode)
	}
	if processEntry.end != nil {
		t := *processEntry.end
		st.EndTime = &t
	}
	return st
}

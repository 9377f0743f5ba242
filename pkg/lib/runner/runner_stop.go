package runner

import (
	"time"

	"go.uber.org/zap"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

// StopResult returns process info and its final status after Stop.
type StopResult struct {
	Command *lib.Command
	Status  *lib.ProcessStatus
}

// Stop tears the process down: SIGTERM to its group, then SIGKILL once the grace
// period runs out. It returns after the process is reaped and its output
// stream is closed, or with lib.ErrTeardownTimeout if that never happens.
// Stopping a process that already exited returns its final status and does
// not mark it killed.
func (runner *Runner) Stop(id string) (*StopResult, error) {
	pe, err := runner.getProcess(id)
	if err != nil {
		return nil, err
	}
	res := StopResult{Command: &pe.command}

	pe.mu.Lock()
	alreadyStopped := pe.state == lib.ProcessStateStopped || exitedUnreaped(pe.pid)
	if !alreadyStopped {
		pe.stopping = true
	}
	pe.mu.Unlock()
	if alreadyStopped {
		// The exit may not be recorded yet; the reaper is at most a pipe drain away.
		waitDone(pe.done, runner.gracePeriod+killWaitMargin)
		st := pe.lockAndGetStatus()
		res.Status = &st
		return &res, nil
	}

	log := runner.logger.With(zap.String("invocation_id", id), zap.Int("pid", pe.pid))
	log.Debug("terminating process group")
	if err := terminateGroup(pe.cmd.Process); err != nil {
		log.Debug("terminate signal failed", zap.Error(err))
	}

	if !waitDone(pe.done, runner.gracePeriod) {
		log.Info("process ignored termination, killing", zap.Duration("grace_period", runner.gracePeriod))
		// Prefer cgroup kill so forked children cannot escape.
		succeeded, _ := killCgroup(id)
		if !succeeded {
			if err := killGroup(pe.cmd.Process); err != nil {
				log.Debug("kill signal failed", zap.Error(err))
			}
		}
		// Wait covers the reap plus at most WaitDelay of pipe draining.
		if !waitDone(pe.done, runner.gracePeriod+killWaitMargin) {
			log.Error("process teardown timed out")
			st := pe.lockAndGetStatus()
			res.Status = &st
			return &res, lib.ErrTeardownTimeout
		}
	}

	st := pe.lockAndGetStatus()
	res.Status = &st

	return &res, nil
}

func waitDone(done <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

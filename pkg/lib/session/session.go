// Package session runs one diagnostic command at a time and turns its output
// into sink callbacks.
//
// A Session moves through Idle, Running and one terminal state (Finished,
// Cancelled or Failed) per invocation. Starting a new command while one is
// running cancels the old one first and waits until its completion has been
// delivered, so two invocations never share a parser or interleave lines.
package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/metrics"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/parser"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/runner"
)

const DefaultTeardownTimeout = 10 * time.Second

// ProcessRunner is the part of runner.Runner a session drives.
type ProcessRunner interface {
	Start(cmd lib.Command) (*runner.StartResult, error)
	Output(id string) (<-chan lib.RawLine, error)
	Status(id string) (*runner.StatusResult, error)
	Stop(id string) (*runner.StopResult, error)
	Release(id string) error
}

// Session owns at most one running process. Sink callbacks run on the
// session's delivery goroutine and must not call back into the session.
type Session struct {
	runner          ProcessRunner
	sink            lib.RecordSink
	logger          *zap.Logger
	metrics         *metrics.Metrics
	teardownTimeout time.Duration

	// opMu serializes Start and Cancel.
	opMu sync.Mutex

	mu    sync.Mutex
	state lib.SessionState
	inv   *invocation
}

type invocation struct {
	id      string
	command lib.Command
	parser  parser.LineParser
	started time.Time

	// cancelled stops line forwarding once a teardown was requested.
	cancelled  atomic.Bool
	completion lib.Completion
	done       chan struct{}
}

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithTeardownTimeout bounds how long Cancel waits for the old invocation to
// deliver its completion.
func WithTeardownTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.teardownTimeout = d
		}
	}
}

// New returns an idle session that reports to sink.
func New(r ProcessRunner, sink lib.RecordSink, opts ...Option) *Session {
	s := &Session{
		runner:          r,
		sink:            sink,
		logger:          zap.NewNop(),
		teardownTimeout: DefaultTeardownTimeout,
		state:           lib.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("session")
	return s
}

// Start runs cmd. A running invocation is cancelled first and Start blocks
// until its Cancelled completion was delivered. When the executable cannot be
// launched the session ends Failed, the sink gets the completion and the
// *lib.SpawnError is returned.
func (s *Session) Start(cmd lib.Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.cancelLocked(); err != nil {
		return err
	}

	inv := &invocation{
		command: lib.NewCommand(cmd.Tool, cmd.Executable, cmd.Args...),
		parser:  parser.New(cmd),
		started: time.Now(),
		done:    make(chan struct{}),
	}
	s.setState(lib.StateIdle, nil)

	log := s.logger.With(zap.Stringer("tool", cmd.Tool))
	res, err := s.runner.Start(inv.command)
	if err != nil {
		log.Info("invocation failed to start", zap.Stringer("command", cmd), zap.Error(err))
		inv.completion = lib.Completion{Status: lib.StateFailed, Detail: err.Error(), Err: err}
		s.setState(lib.StateFailed, inv)
		s.metrics.SpawnFailed(cmd.Tool)
		s.sink.OnComplete(inv.completion)
		close(inv.done)
		return err
	}
	inv.id = res.ID

	lines, err := s.runner.Output(res.ID)
	if err != nil {
		// The process exists but cannot be observed; do not leave it running.
		_, _ = s.runner.Stop(res.ID)
		_ = s.runner.Release(res.ID)
		inv.completion = lib.Completion{Status: lib.StateFailed, Detail: err.Error(), Err: err}
		s.setState(lib.StateFailed, inv)
		s.sink.OnComplete(inv.completion)
		close(inv.done)
		return err
	}

	s.setState(lib.StateRunning, inv)
	s.metrics.InvocationStarted(cmd.Tool)
	log.Debug("invocation started", zap.String("invocation_id", inv.id), zap.Int("pid", res.Status.Pid))

	go s.deliver(inv, lines)
	return nil
}

// Cancel tears the running process down and returns after the Cancelled
// completion was delivered. It is a no-op when nothing is running, including
// when the process already exited on its own.
func (s *Session) Cancel() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.cancelLocked()
}

func (s *Session) cancelLocked() error {
	s.mu.Lock()
	inv, state := s.inv, s.state
	s.mu.Unlock()
	if inv == nil || state != lib.StateRunning {
		return nil
	}

	if st, err := s.runner.Status(inv.id); err == nil && st.Status.State == lib.ProcessStateRunning {
		inv.cancelled.Store(true)
		if _, err := s.runner.Stop(inv.id); err != nil {
			s.logger.Error("cancel failed", zap.String("invocation_id", inv.id), zap.Error(err))
			if errors.Is(err, lib.ErrTeardownTimeout) {
				return err
			}
		}
	}

	timer := time.NewTimer(s.teardownTimeout)
	defer timer.Stop()
	select {
	case <-inv.done:
		return nil
	case <-timer.C:
		return lib.ErrTeardownTimeout
	}
}

// Wait blocks until the current invocation reaches a terminal state.
func (s *Session) Wait(ctx context.Context) (lib.Completion, error) {
	s.mu.Lock()
	inv := s.inv
	s.mu.Unlock()
	if inv == nil {
		return lib.Completion{}, lib.ErrNoInvocation
	}

	select {
	case <-inv.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return inv.completion, nil
	case <-ctx.Done():
		return lib.Completion{}, ctx.Err()
	}
}

func (s *Session) State() lib.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// InvocationID returns the id of the current or last invocation, or "".
func (s *Session) InvocationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inv == nil {
		return ""
	}
	return s.inv.id
}

// Command returns the command of the current or last invocation.
func (s *Session) Command() (lib.Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inv == nil {
		return lib.Command{}, false
	}
	return s.inv.command, true
}

func (s *Session) setState(state lib.SessionState, inv *invocation) {
	s.mu.Lock()
	s.state = state
	s.inv = inv
	s.mu.Unlock()
}

// deliver forwards every line in order, then finalizes the invocation once the
// runner closed the stream.
func (s *Session) deliver(inv *invocation, lines <-chan lib.RawLine) {
	tool := inv.command.Tool
	for line := range lines {
		if inv.cancelled.Load() {
			continue
		}
		s.sink.OnLine(line.Text)
		s.metrics.LineForwarded(tool)
		s.emit(tool, inv.parser.Feed(line))
	}

	st, err := s.runner.Status(inv.id)
	var completion lib.Completion
	if err != nil {
		completion = lib.Completion{Status: lib.StateFailed, Detail: err.Error(), Err: err}
	} else {
		completion = classify(st.Status)
	}

	s.emit(tool, inv.parser.Flush())

	s.mu.Lock()
	inv.completion = completion
	if s.inv == inv {
		s.state = completion.Status
	}
	s.mu.Unlock()

	fields := []zap.Field{
		zap.String("invocation_id", inv.id),
		zap.Stringer("tool", tool),
		zap.Stringer("status", completion.Status),
	}
	if completion.ExitCode != nil {
		fields = append(fields, zap.Int("exit_code", *completion.ExitCode))
	}
	s.logger.Debug("invocation finished", fields...)
	s.metrics.InvocationCompleted(tool, completion.Status, time.Since(inv.started))

	s.sink.OnComplete(completion)
	_ = s.runner.Release(inv.id)
	close(inv.done)
}

func (s *Session) emit(tool lib.Tool, records []lib.Record) {
	for _, rec := range records {
		s.sink.OnRecord(rec)
		s.metrics.RecordEmitted(tool, rec.Kind())
	}
}

// classify maps the final process status to a terminal session state.
func classify(st *lib.ProcessStatus) lib.Completion {
	switch {
	case st.Killed:
		return lib.Completion{Status: lib.StateCancelled, Detail: "cancelled", Err: lib.ErrSessionCancelled}
	case st.ExitCode == nil:
		return lib.Completion{Status: lib.StateFailed, Detail: "process exited without a status"}
	case *st.ExitCode == 0:
		return lib.Completion{Status: lib.StateFinished, ExitCode: lib.IntPtr(0)}
	default:
		code := *st.ExitCode
		return lib.Completion{
			Status:   lib.StateFailed,
			Detail:   strconv.Itoa(code),
			ExitCode: lib.IntPtr(code),
			Err:      &lib.ProcessError{ExitCode: code},
		}
	}
}

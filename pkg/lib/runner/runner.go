package runner

import (
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/output_storage"
)

const (
	DefaultGracePeriod    = 2 * time.Second
	DefaultOutputCapacity = 64

	// killWaitMargin is how long Stop waits for the reaper after SIGKILL, on
	// top of the pipe drain bound.
	killWaitMargin = time.Second
)

// SysProcAttr carries the platform process attributes for one start. File is an
// open cgroup directory that must be closed once the child is running.
type SysProcAttr struct {
	File *os.File
	Raw  *syscall.SysProcAttr
}

// Runner manages the diagnostic processes it starts. Every process gets its own
// process group so teardown reaches the whole tree.
type Runner struct {
	mu        sync.RWMutex
	processes map[string]*processEntry

	gracePeriod    time.Duration
	encoding       string
	decoder        output_storage.Decoder
	cgroups        bool
	outputCapacity int
	logger         *zap.Logger
}

type processEntry struct {
	id      string
	command lib.Command
	cmd     *exec.Cmd

	// status fields
	mu       sync.RWMutex
	state    lib.ProcessState
	exitCode *int
	// stopping is set by Stop; killed is decided from how the process ended.
	stopping bool
	killed   bool
	start    time.Time
	end      *time.Time
	pid      int

	// output buffer (full replay)
	output *output_storage.OutputStorage
	// closed once the final status is recorded
	done chan struct{}
}

// Option configures a Runner.
type Option func(*Runner)

// WithGracePeriod sets how long Stop waits after SIGTERM before SIGKILL. It also
// bounds how long output pipes are drained after the process exits.
func WithGracePeriod(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.gracePeriod = d
		}
	}
}

// WithEncoding selects the console code page used to decode output.
func WithEncoding(name string) Option {
	return func(r *Runner) { r.encoding = name }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithCgroups places every process in its own cgroup v2 leaf. It only has an
// effect on linux when running as root.
func WithCgroups(enabled bool) Option {
	return func(r *Runner) { r.cgroups = enabled }
}

// WithOutputCapacity sets the buffer size of channels returned by Output.
func WithOutputCapacity(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.outputCapacity = n
		}
	}
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) (*Runner, error) {
	r := &Runner{
		processes:      make(map[string]*processEntry),
		gracePeriod:    DefaultGracePeriod,
		encoding:       "utf-8",
		outputCapacity: DefaultOutputCapacity,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	decoder, err := output_storage.NewDecoder(r.encoding)
	if err != nil {
		return nil, err
	}
	r.decoder = decoder
	r.logger = r.logger.Named("runner")

	return r, nil
}

// GracePeriod returns the SIGTERM to SIGKILL delay.
func (runner *Runner) GracePeriod() time.Duration {
	return runner.gracePeriod
}

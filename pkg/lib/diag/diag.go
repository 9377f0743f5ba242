// Package diag is the invocation surface of netdiag: it turns requests such
// as "ping this host" into argument vectors for the configured executables and
// runs each tool in its own session.
package diag

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/arptable"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/config"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/metrics"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/session"
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib/sink"
)

// DefaultTarget is pinged or traced when no target is given.
const DefaultTarget = "8.8.8.8"

// Toolkit owns one session per tool. Sessions of different tools run
// concurrently and share nothing but the runner.
type Toolkit struct {
	tools    config.ToolsConfig
	sessions map[lib.Tool]*session.Session
	arp      *arptable.Table
	validate *validator.Validate
	logger   *zap.Logger
}

type options struct {
	logger          *zap.Logger
	metrics         *metrics.Metrics
	teardownTimeout time.Duration
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithTeardownTimeout(d time.Duration) Option {
	return func(o *options) { o.teardownTimeout = d }
}

// New builds a toolkit. sinkFor is asked once per tool for the sink of that
// tool's session; it may return nil. ARP records always reach the ARP mirror.
func New(r session.ProcessRunner, tools config.ToolsConfig, sinkFor func(lib.Tool) lib.RecordSink, opts ...Option) *Toolkit {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	t := &Toolkit{
		tools:    tools,
		sessions: make(map[lib.Tool]*session.Session),
		arp:      arptable.New(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   o.logger.Named("diag"),
	}
	for _, tool := range lib.Tools() {
		var s lib.RecordSink = sink.Discard
		if sinkFor != nil {
			if custom := sinkFor(tool); custom != nil {
				s = custom
			}
		}
		if tool == lib.ToolArp {
			s = sink.Multi(t.arp, s)
		}
		t.sessions[tool] = session.New(r, s,
			session.WithLogger(o.logger),
			session.WithMetrics(o.metrics),
			session.WithTeardownTimeout(o.teardownTimeout),
		)
	}
	return t
}

// Session returns the session that runs tool.
func (t *Toolkit) Session(tool lib.Tool) *session.Session {
	return t.sessions[tool]
}

// ArpTable returns the mirror of the OS ARP table.
func (t *Toolkit) ArpTable() *arptable.Table {
	return t.arp
}

// RunPing pings target, 8.8.8.8 when empty. Outside windows a bare run is
// limited to four echo requests like the windows default.
func (t *Toolkit) RunPing(target string, args []string) error {
	target, err := t.checkTarget(target)
	if err != nil {
		return err
	}
	if len(args) == 0 && runtime.GOOS != "windows" {
		args = []string{"-c", "4"}
	}
	return t.run(lib.ToolPing, append(clone(args), target)...)
}

// RunTracert traces the route to target, 8.8.8.8 when empty.
func (t *Toolkit) RunTracert(target string, args []string) error {
	target, err := t.checkTarget(target)
	if err != nil {
		return err
	}
	return t.run(lib.ToolTracert, append(clone(args), target)...)
}

// RunIpconfig lists adapters, with "/all" when no arguments are given.
func (t *Toolkit) RunIpconfig(args []string) error {
	if len(args) == 0 {
		args = []string{"/all"}
	}
	return t.run(lib.ToolIpconfig, args...)
}

// RunArp runs arp, "-a" when no arguments are given. A listing starts from an
// empty mirror.
func (t *Toolkit) RunArp(args []string) error {
	if len(args) == 0 {
		args = []string{"-a"}
	}
	if isArpListing(args) {
		if err := t.sessions[lib.ToolArp].Cancel(); err != nil {
			return err
		}
		t.arp.Reset()
	}
	return t.run(lib.ToolArp, args...)
}

// arpEntryFields are the user supplied parts of a static ARP entry.
type arpEntryFields struct {
	Address  string `validate:"required,ipv4"`
	Physical string `validate:"required,mac"`
}

// AddArpEntry runs "arp -s ip mac" and shows the entry as static right away.
// The mirror is not corrected if the command later fails.
func (t *Toolkit) AddArpEntry(ip, mac string) error {
	fields := arpEntryFields{Address: strings.TrimSpace(ip), Physical: strings.TrimSpace(mac)}
	if err := t.validate.Struct(fields); err != nil {
		return invalid(err)
	}
	if err := t.run(lib.ToolArp, "-s", fields.Address, fields.Physical); err != nil {
		return err
	}
	t.arp.Upsert(lib.ArpEntry{Address: fields.Address, Physical: fields.Physical, Type: "static"})
	return nil
}

// RemoveArpEntry runs "arp -d ip" and drops the entry from the mirror right away.
func (t *Toolkit) RemoveArpEntry(ip string) error {
	ip = strings.TrimSpace(ip)
	if err := t.validate.Var(ip, "required,ipv4"); err != nil {
		return invalid(err)
	}
	if err := t.run(lib.ToolArp, "-d", ip); err != nil {
		return err
	}
	t.arp.Remove(ip)
	return nil
}

// Cancel stops the running invocation of tool, if any.
func (t *Toolkit) Cancel(tool lib.Tool) error {
	s, ok := t.sessions[tool]
	if !ok {
		return fmt.Errorf("%w: %s", lib.ErrUnknownTool, tool)
	}
	return s.Cancel()
}

// Shutdown cancels every running invocation.
func (t *Toolkit) Shutdown() error {
	var errs []error
	for _, tool := range lib.Tools() {
		if err := t.sessions[tool].Cancel(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tool, err))
		}
	}
	return errors.Join(errs...)
}

// SplitParams splits a free text parameter field on whitespace.
func SplitParams(params string) []string {
	return strings.Fields(params)
}

func (t *Toolkit) run(tool lib.Tool, args ...string) error {
	exe, err := t.tools.Executable(tool)
	if err != nil {
		return err
	}
	cmd := lib.NewCommand(tool, exe, args...)
	t.logger.Debug("running", zap.Stringer("tool", tool), zap.Strings("argv", append([]string{exe}, args...)))
	return t.sessions[tool].Start(cmd)
}

// checkTarget applies the default and refuses anything that is not a host
// name or address, including values that would be read as options.
func (t *Toolkit) checkTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return DefaultTarget, nil
	}
	if strings.HasPrefix(target, "-") {
		return "", fmt.Errorf("%w: target %q looks like an option", lib.ErrInvalidArgument, target)
	}
	if err := t.validate.Var(target, "ip|hostname_rfc1123"); err != nil {
		return "", fmt.Errorf("%w: target %q is not a host name or address", lib.ErrInvalidArgument, target)
	}
	return target, nil
}

func isArpListing(args []string) bool {
	switch args[0] {
	case "-s", "-d":
		return false
	}
	return true
}

func invalid(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s %q fails %s", strings.ToLower(fe.Field()), fe.Value(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", lib.ErrInvalidArgument, strings.Join(msgs, ", "))
	}
	return fmt.Errorf("%w: %v", lib.ErrInvalidArgument, err)
}

func clone(args []string) []string {
	return append([]string(nil), args...)
}

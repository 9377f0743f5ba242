package lib

import (
	"fmt"
	"strings"
	"time"
)

// ProcessState mirrors the lifecycle of one OS process owned by the runner.
type ProcessState int

const (
	ProcessStateUnspecified ProcessState = iota
	ProcessStateRunning
	ProcessStateStopped
)

// Tool identifies which diagnostic utility a Command runs. The tool kind selects
// the output parser once per invocation.
type Tool int

const (
	ToolUnknown Tool = iota
	ToolPing
	ToolTracert
	ToolIpconfig
	ToolRoute
	ToolArp
)

var toolNames = map[Tool]string{
	ToolPing:     "ping",
	ToolTracert:  "tracert",
	ToolIpconfig: "ipconfig",
	ToolRoute:    "route",
	ToolArp:      "arp",
}

// Tools lists every known tool kind in display order.
func Tools() []Tool {
	return []Tool{ToolPing, ToolTracert, ToolIpconfig, ToolRoute, ToolArp}
}

func (t Tool) String() string {
	if name, ok := toolNames[t]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether t is one of the known diagnostic tools.
func (t Tool) Valid() bool {
	_, ok := toolNames[t]
	return ok
}

// ParseTool maps a tool name to its kind. "traceroute" is accepted as tracert.
func ParseTool(name string) (Tool, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "traceroute" {
		return ToolTracert, nil
	}
	for tool, toolName := range toolNames {
		if toolName == n {
			return tool, nil
		}
	}
	return ToolUnknown, fmt.Errorf("%w: %q", ErrUnknownTool, name)
}

// Command captures command metadata used to start a process.
// Build it with NewCommand so the argument slice is not shared with the caller.
type Command struct {
	Tool       Tool
	Executable string
	Args       []string
}

// NewCommand copies args so later changes by the caller do not leak into the command.
func NewCommand(tool Tool, executable string, args ...string) Command {
	return Command{Tool: tool, Executable: executable, Args: append([]string(nil), args...)}
}

// Validate checks that the command names a known tool and an executable.
func (c Command) Validate() error {
	if !c.Tool.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownTool, int(c.Tool))
	}
	if strings.TrimSpace(c.Executable) == "" {
		return ErrEmptyExecutable
	}
	return nil
}

// String renders the argv joined by spaces, for logs and display only.
func (c Command) String() string {
	return strings.TrimSpace(strings.Join(append([]string{c.Executable}, c.Args...), " "))
}

// ProcessStatus captures runtime state and timestamps.
type ProcessStatus struct {
	State    ProcessState
	Pid      int
	ExitCode *int
	// Killed is set when the process was torn down by Stop while still running.
	Killed    bool
	StartTime time.Time
	EndTime   *time.Time
}

// RawLine is one decoded output line and its position within the invocation.
type RawLine struct {
	Seq  uint64
	Text string
}

// SessionState is the lifecycle state of a command session.
type SessionState int

const (
	StateIdle SessionState = iota
	StateRunning
	StateFinished
	StateCancelled
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends an invocation.
func (s SessionState) Terminal() bool {
	return s == StateFinished || s == StateCancelled || s == StateFailed
}

// Completion is delivered once per invocation when it reaches a terminal state.
// ExitCode is nil for spawn failures and for cancelled runs.
type Completion struct {
	Status   SessionState
	Detail   string
	ExitCode *int
	Err      error
}

// RecordSink receives everything an invocation produces. Callbacks run on the
// invocation's delivery goroutine and must not block indefinitely.
type RecordSink interface {
	OnRecord(record Record)
	OnLine(text string)
	OnComplete(completion Completion)
}

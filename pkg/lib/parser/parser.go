// Package parser turns the decoded output lines of a diagnostic tool into
// structured records. A parser is chosen once per invocation from the tool
// kind and is fed every line in order.
package parser

import (
	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

// LineParser consumes one invocation's lines. Feed may return records at once
// (ping, arp) or buffer until Flush (route, ipconfig). Flush is called when the
// invocation ends; calling it again returns nothing.
type LineParser interface {
	Feed(line lib.RawLine) []lib.Record
	Flush() []lib.Record
}

// New returns a fresh parser for cmd. Unknown tools get the pass-through parser.
func New(cmd lib.Command) LineParser {
	switch cmd.Tool {
	case lib.ToolPing:
		return &PingParser{}
	case lib.ToolRoute:
		return NewRouteParser(cmd.Args)
	case lib.ToolIpconfig:
		return &IpconfigParser{}
	case lib.ToolArp:
		return &ArpParser{}
	default:
		return Passthrough{}
	}
}

// Passthrough produces no records. Tracert output is only shown verbatim.
type Passthrough struct{}

func (Passthrough) Feed(lib.RawLine) []lib.Record { return nil }

func (Passthrough) Flush() []lib.Record { return nil }

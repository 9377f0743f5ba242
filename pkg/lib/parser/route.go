package parser

import (
	"regexp"
	"strings"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

// routeRow matches an IPv4 row of "route print": destination, mask, gateway,
// interface and metric. The gateway may be a word such as "On-link".
var routeRow = regexp.MustCompile(`^\s+(\d+\.\d+\.\d+\.\d+)\s+(\d+\.\d+\.\d+\.\d+)\s+(\S+)\s+(\d+\.\d+\.\d+\.\d+)\s+(\d+)`)

// RouteParser buffers the listing of "route print" and extracts rows on Flush.
// Mutating subcommands (add, change, delete) produce no records.
type RouteParser struct {
	listing bool
	lines   []string
	flushed bool
}

// NewRouteParser decides from the arguments whether the run is a listing.
func NewRouteParser(args []string) *RouteParser {
	return &RouteParser{listing: len(args) > 0 && strings.EqualFold(args[0], "print")}
}

func (p *RouteParser) Feed(line lib.RawLine) []lib.Record {
	if p.listing && !p.flushed {
		p.lines = append(p.lines, line.Text)
	}
	return nil
}

func (p *RouteParser) Flush() []lib.Record {
	if p.flushed {
		return nil
	}
	p.flushed = true

	var records []lib.Record
	for _, text := range p.lines {
		if rec, ok := ParseRouteRow(text); ok {
			records = append(records, rec)
		}
	}
	p.lines = nil
	return records
}

// ParseRouteRow extracts one route table row. Headers and separators do not match.
func ParseRouteRow(text string) (lib.RouteRecord, bool) {
	m := routeRow.FindStringSubmatch(text)
	if m == nil {
		return lib.RouteRecord{}, false
	}
	return lib.RouteRecord{
		Destination: m[1],
		Mask:        m[2],
		Gateway:     m[3],
		Interface:   m[4],
		Metric:      atoi(m[5]),
	}, true
}

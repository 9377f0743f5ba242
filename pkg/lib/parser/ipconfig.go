package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

var adapterLabel = regexp.MustCompile(`(?i)(?:адаптер|adapter)\s+(.*?):`)

// IpconfigParser groups lines into adapter blocks. A header line closes the
// open block and starts the next one; blank lines stay inside a block.
type IpconfigParser struct {
	open    *lib.AdapterBlock
	flushed bool
}

func (p *IpconfigParser) Feed(line lib.RawLine) []lib.Record {
	if p.flushed {
		return nil
	}
	if !IsAdapterHeader(line.Text) {
		if p.open != nil {
			p.open.Lines = append(p.open.Lines, line.Text)
		}
		return nil
	}

	var out []lib.Record
	if p.open != nil {
		out = append(out, *p.open)
	}
	p.open = &lib.AdapterBlock{Name: AdapterName(line.Text), Lines: []string{line.Text}}
	return out
}

func (p *IpconfigParser) Flush() []lib.Record {
	if p.flushed {
		return nil
	}
	p.flushed = true
	if p.open == nil {
		return nil
	}
	block := *p.open
	p.open = nil
	return []lib.Record{block}
}

// IsAdapterHeader reports whether text opens an adapter section. Headers start
// at column zero; indented body lines such as "Description . . : Virtual
// Adapter" do not count.
func IsAdapterHeader(text string) bool {
	if text == "" {
		return false
	}
	if r, _ := utf8.DecodeRuneInString(text); unicode.IsSpace(r) {
		return false
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, "адаптер") || strings.Contains(lower, "adapter")
}

// AdapterName returns the label of a header line, for example "Ethernet0" from
// "Ethernet adapter Ethernet0:".
func AdapterName(header string) string {
	if m := adapterLabel.FindStringSubmatch(header); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSuffix(strings.TrimSpace(header), ":")
}

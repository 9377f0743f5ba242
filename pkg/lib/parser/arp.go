package parser

import (
	"regexp"
	"strings"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

// arpUnixRow matches the net-tools and BSD layout:
// "? (192.168.1.1) at aa:bb:cc:dd:ee:ff [ether] on eth0".
var arpUnixRow = regexp.MustCompile(`^\S+ \((\d+\.\d+\.\d+\.\d+)\) at (\S+)(?: \[(\w+)\])?`)

// ArpParser classifies the whitespace separated columns of "arp -a".
type ArpParser struct{}

func (p *ArpParser) Feed(line lib.RawLine) []lib.Record {
	if entry, ok := ParseArpLine(line.Text); ok {
		return []lib.Record{entry}
	}
	return nil
}

func (p *ArpParser) Flush() []lib.Record { return nil }

// ParseArpLine returns the entry described by one line. Interface headers,
// column titles and blank lines yield nothing.
func ParseArpLine(text string) (lib.ArpEntry, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, "Интерфейс:") || strings.HasPrefix(trimmed, "Interface:") {
		return lib.ArpEntry{}, false
	}

	if m := arpUnixRow.FindStringSubmatch(trimmed); m != nil {
		entry := lib.ArpEntry{Address: m[1], Type: m[3]}
		if IsPhysicalAddress(m[2]) {
			entry.Physical = m[2]
		}
		return entry, true
	}

	parts := strings.Fields(trimmed)
	var entry lib.ArpEntry
	if IsInternetAddress(parts[0]) {
		entry.Address = parts[0]
	}
	if len(parts) > 1 {
		if IsPhysicalAddress(parts[1]) {
			entry.Physical = parts[1]
			if len(parts) > 2 {
				entry.Type = parts[2]
			}
		} else {
			entry.Type = parts[1]
		}
	}
	if entry.Address == "" && entry.Physical == "" {
		return lib.ArpEntry{}, false
	}
	return entry, true
}

// IsInternetAddress reports whether s is dotted and every segment is digits.
func IsInternetAddress(s string) bool {
	if !strings.Contains(s, ".") {
		return false
	}
	for _, seg := range strings.Split(s, ".") {
		if seg == "" || strings.Trim(seg, "0123456789") != "" {
			return false
		}
	}
	return true
}

// IsPhysicalAddress reports whether s consists of hex digits and '-' or ':'.
func IsPhysicalAddress(s string) bool {
	return s != "" && strings.Trim(s, "0123456789abcdefABCDEF:-") == ""
}

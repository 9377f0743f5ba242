package parser

import (
	"regexp"
	"strconv"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

// Reply line layouts, tried in order. Windows prints the time with a
// comparator ("время<1мс", "time=14ms"); iputils prints "time=14.2 ms".
var (
	pingReplyRu = regexp.MustCompile(`Ответ от (\d+\.\d+\.\d+\.\d+): число байт=(\d+) время([<>=])(\S+?) TTL=(\d+)`)
	pingReplyEn = regexp.MustCompile(`Reply from (\d+\.\d+\.\d+\.\d+): bytes=(\d+) time([<>=])(\S+?) TTL=(\d+)`)
	pingReplyIP = regexp.MustCompile(`(\d+) bytes from (?:\S+ \()?(\d+\.\d+\.\d+\.\d+)\)?: icmp_seq=\d+ ttl=(\d+) time([<>=])(\S+(?: ms)?)`)
)

// PingParser matches each line on its own; there is no state between lines.
type PingParser struct{}

func (p *PingParser) Feed(line lib.RawLine) []lib.Record {
	if rec, ok := ParsePingReply(line.Text); ok {
		return []lib.Record{rec}
	}
	return nil
}

func (p *PingParser) Flush() []lib.Record { return nil }

// ParsePingReply extracts a reply record from one line of ping output.
// A "less than" or "greater than" comparator is kept in the time text so a
// threshold reply is never shown as an exact measurement.
func ParsePingReply(text string) (lib.PingRecord, bool) {
	for _, re := range []*regexp.Regexp{pingReplyRu, pingReplyEn} {
		if m := re.FindStringSubmatch(text); m != nil {
			return lib.PingRecord{
				Source: m[1],
				Bytes:  atoi(m[2]),
				Time:   replyTime(m[3], m[4]),
				TTL:    atoi(m[5]),
			}, true
		}
	}
	if m := pingReplyIP.FindStringSubmatch(text); m != nil {
		return lib.PingRecord{
			Source: m[2],
			Bytes:  atoi(m[1]),
			Time:   replyTime(m[4], m[5]),
			TTL:    atoi(m[3]),
		}, true
	}
	return lib.PingRecord{}, false
}

func replyTime(comparator, value string) string {
	if comparator == "=" {
		return value
	}
	return comparator + value
}

// atoi is only used on \d+ captures.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

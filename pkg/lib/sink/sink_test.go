package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

func TestCollector(t *testing.T) {
	c := NewCollector()
	c.OnLine("Reply from 8.8.8.8: bytes=32 time=23ms TTL=117")
	c.OnRecord(lib.PingRecord{Source: "8.8.8.8", Bytes: 32, Time: "23ms", TTL: 117})
	c.OnComplete(lib.Completion{Status: lib.StateFinished, ExitCode: lib.IntPtr(0)})

	assert.Equal(t, []string{"Reply from 8.8.8.8: bytes=32 time=23ms TTL=117"}, c.Lines())
	assert.Equal(t, []lib.Record{lib.PingRecord{Source: "8.8.8.8", Bytes: 32, Time: "23ms", TTL: 117}}, c.Records())
	if assert.Len(t, c.Completions(), 1) {
		assert.Equal(t, lib.StateFinished, c.Completions()[0].Status)
	}

	c.Reset()
	assert.Empty(t, c.Lines())
	assert.Empty(t, c.Records())
	assert.Empty(t, c.Completions())
}

func TestMulti(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	m := Multi(a, nil, b, Discard)

	m.OnLine("x")
	m.OnRecord(lib.ArpEntry{Address: "10.0.0.1"})
	m.OnComplete(lib.Completion{Status: lib.StateCancelled})

	for _, c := range []*Collector{a, b} {
		assert.Equal(t, []string{"x"}, c.Lines())
		assert.Len(t, c.Records(), 1)
		assert.Len(t, c.Completions(), 1)
	}
}

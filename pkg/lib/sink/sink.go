// Package sink holds reusable lib.RecordSink implementations.
package sink

import (
	"sync"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

// Collector keeps everything it receives. It is safe to read while an
// invocation is still delivering.
type Collector struct {
	mu          sync.Mutex
	records     []lib.Record
	lines       []string
	completions []lib.Completion
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) OnRecord(record lib.Record) {
	c.mu.Lock()
	c.records = append(c.records, record)
	c.mu.Unlock()
}

func (c *Collector) OnLine(text string) {
	c.mu.Lock()
	c.lines = append(c.lines, text)
	c.mu.Unlock()
}

func (c *Collector) OnComplete(completion lib.Completion) {
	c.mu.Lock()
	c.completions = append(c.completions, completion)
	c.mu.Unlock()
}

func (c *Collector) Records() []lib.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]lib.Record(nil), c.records...)
}

func (c *Collector) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func (c *Collector) Completions() []lib.Completion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]lib.Completion(nil), c.completions...)
}

// Reset forgets everything collected so far.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records, c.lines, c.completions = nil, nil, nil
}

type multi []lib.RecordSink

// Multi delivers every callback to each non-nil sink in order.
func Multi(sinks ...lib.RecordSink) lib.RecordSink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

func (m multi) OnRecord(record lib.Record) {
	for _, s := range m {
		s.OnRecord(record)
	}
}

func (m multi) OnLine(text string) {
	for _, s := range m {
		s.OnLine(text)
	}
}

func (m multi) OnComplete(completion lib.Completion) {
	for _, s := range m {
		s.OnComplete(completion)
	}
}

// Discard drops everything.
var Discard lib.RecordSink = discard{}

type discard struct{}

func (discard) OnRecord(lib.Record)       {}
func (discard) OnLine(string)             {}
func (discard) OnComplete(lib.Completion) {}

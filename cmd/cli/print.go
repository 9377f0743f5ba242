package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return fmt.Errorf("unsupported output format %q (want text, json or yaml)", format)
}

// printer is the RecordSink of the CLI. Text mode streams the tool output as
// it arrives and renders the parsed records as a table at the end; json
// streams one record per line; yaml prints everything at completion.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	format  string
	records []lib.Record
	err     error
}

func newPrinter(out io.Writer, format string) *printer {
	return &printer{out: out, format: format}
}

type jsonRecord struct {
	Kind   lib.RecordKind `json:"kind"`
	Record lib.Record     `json:"record"`
}

type yamlReport struct {
	Status   string       `yaml:"status"`
	Detail   string       `yaml:"detail,omitempty"`
	ExitCode *int         `yaml:"exit_code,omitempty"`
	Records  []lib.Record `yaml:"records"`
}

func (p *printer) OnLine(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.format == outputText {
		p.write(func() error { _, err := fmt.Fprintln(p.out, text); return err })
	}
}

func (p *printer) OnRecord(record lib.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.format == outputJSON {
		p.write(func() error {
			return json.NewEncoder(p.out).Encode(jsonRecord{Kind: record.Kind(), Record: record})
		})
		return
	}
	p.records = append(p.records, record)
}

func (p *printer) OnComplete(c lib.Completion) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.format {
	case outputText:
		p.write(func() error { return renderRecords(p.out, p.records) })
		p.write(func() error { _, err := fmt.Fprintln(p.out, completionLine(c)); return err })
	case outputYAML:
		report := yamlReport{Status: c.Status.String(), ExitCode: c.ExitCode, Records: p.records}
		if c.Status != lib.StateFinished {
			report.Detail = c.Detail
		}
		p.write(func() error {
			enc := yaml.NewEncoder(p.out)
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return err
			}
			return enc.Close()
		})
	}
	p.records = nil
}

// Err returns the first write error.
func (p *printer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *printer) write(fn func() error) {
	if p.err != nil {
		return
	}
	p.err = fn()
}

func completionLine(c lib.Completion) string {
	switch c.Status {
	case lib.StateFinished:
		return "-- finished"
	case lib.StateCancelled:
		return "-- cancelled"
	default:
		return "-- failed: " + c.Detail
	}
}

// renderRecords prints one table per record kind, in order of first appearance.
func renderRecords(w io.Writer, records []lib.Record) error {
	if len(records) == 0 {
		return nil
	}
	var kinds []lib.RecordKind
	byKind := make(map[lib.RecordKind][]lib.Record)
	for _, r := range records {
		if _, ok := byKind[r.Kind()]; !ok {
			kinds = append(kinds, r.Kind())
		}
		byKind[r.Kind()] = append(byKind[r.Kind()], r)
	}

	for _, kind := range kinds {
		if kind == lib.KindAdapter {
			if err := renderAdapters(w, byKind[kind]); err != nil {
				return err
			}
			continue
		}
		table := tablewriter.NewWriter(w)
		table.Header(headerFor(kind)...)
		for _, r := range byKind[kind] {
			if err := table.Append(rowFor(r)); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	return nil
}

func headerFor(kind lib.RecordKind) []any {
	switch kind {
	case lib.KindPing:
		return []any{"Source", "Bytes", "Time", "TTL"}
	case lib.KindRoute:
		return []any{"Destination", "Mask", "Gateway", "Interface", "Metric"}
	case lib.KindArp:
		return []any{"Internet Address", "Physical Address", "Type"}
	}
	return []any{string(kind)}
}

func rowFor(r lib.Record) []string {
	switch v := r.(type) {
	case lib.PingRecord:
		return []string{v.Source, strconv.Itoa(v.Bytes), v.Time, strconv.Itoa(v.TTL)}
	case lib.RouteRecord:
		return []string{v.Destination, v.Mask, v.Gateway, v.Interface, strconv.Itoa(v.Metric)}
	case lib.ArpEntry:
		return []string{v.Address, v.Physical, v.Type}
	}
	return []string{fmt.Sprint(r)}
}

// renderAdapters prints a summary of adapter blocks; their lines were already
// streamed verbatim.
func renderAdapters(w io.Writer, records []lib.Record) error {
	table := tablewriter.NewWriter(w)
	table.Header("Adapter", "Lines", "First Detail")
	for _, r := range records {
		block, ok := r.(lib.AdapterBlock)
		if !ok {
			continue
		}
		detail := ""
		for _, line := range block.Lines[min(1, len(block.Lines)):] {
			if strings.TrimSpace(line) != "" {
				detail = strings.TrimSpace(line)
				break
			}
		}
		if err := table.Append([]string{block.Name, strconv.Itoa(len(block.Lines)), detail}); err != nil {
			return err
		}
	}
	return table.Render()
}

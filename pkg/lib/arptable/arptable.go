// Package arptable mirrors the operating system ARP cache as the user sees it.
// Entries come from "arp -a" listings and from add/remove requests, which are
// applied immediately without waiting for the OS to confirm them. The mirror
// never reconciles itself against the OS table; the next listing does.
package arptable

import (
	"sync"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

// Table is an insertion ordered set of entries keyed by internet address.
// It is safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]lib.ArpEntry
}

func New() *Table {
	return &Table{entries: make(map[string]lib.ArpEntry)}
}

// Upsert adds e, or overwrites the entry with the same address in place.
// Entries without an address are keyed by their physical address.
func (t *Table) Upsert(e lib.ArpEntry) {
	key := entryKey(e)
	if key == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[key]; !ok {
		t.order = append(t.order, key)
	}
	t.entries[key] = e
}

// Remove deletes the entry for address and reports whether it existed.
func (t *Table) Remove(address string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[address]; !ok {
		return false
	}
	delete(t.entries, address)
	for i, key := range t.order {
		if key == address {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *Table) Get(address string) (lib.ArpEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[address]
	return e, ok
}

// Entries returns a snapshot in insertion order.
func (t *Table) Entries() []lib.ArpEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]lib.ArpEntry, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.entries[key])
	}
	return out
}

// Reset drops every entry, before a fresh listing is mirrored.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.order = nil
	t.entries = make(map[string]lib.ArpEntry)
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// OnRecord mirrors ArpEntry records; other kinds are ignored.
func (t *Table) OnRecord(record lib.Record) {
	if e, ok := record.(lib.ArpEntry); ok {
		t.Upsert(e)
	}
}

func (t *Table) OnLine(string) {}

func (t *Table) OnComplete(lib.Completion) {}

func entryKey(e lib.ArpEntry) string {
	if e.Address != "" {
		return e.Address
	}
	return e.Physical
}

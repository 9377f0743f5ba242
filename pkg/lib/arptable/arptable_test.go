package arptable

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

func TestTable_UpsertKeepsPosition(t *testing.T) {
	table := New()
	table.Upsert(lib.ArpEntry{Address: "10.0.0.1", Physical: "aa-aa-aa-aa-aa-aa", Type: "dynamic"})
	table.Upsert(lib.ArpEntry{Address: "10.0.0.2", Physical: "bb-bb-bb-bb-bb-bb", Type: "dynamic"})
	table.Upsert(lib.ArpEntry{Address: "10.0.0.1", Physical: "cc-cc-cc-cc-cc-cc", Type: "static"})

	entries := table.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "10.0.0.1", entries[0].Address)
	assert.Equal(t, "cc-cc-cc-cc-cc-cc", entries[0].Physical)
	assert.Equal(t, "static", entries[0].Type)
	assert.Equal(t, "10.0.0.2", entries[1].Address)
}

func TestTable_RemoveAndReset(t *testing.T) {
	table := New()
	table.Upsert(lib.ArpEntry{Address: "10.0.0.1"})
	table.Upsert(lib.ArpEntry{Address: "10.0.0.2"})
	table.Upsert(lib.ArpEntry{Address: "10.0.0.3"})

	assert.True(t, table.Remove("10.0.0.2"))
	assert.False(t, table.Remove("10.0.0.2"))
	_, ok := table.Get("10.0.0.2")
	assert.False(t, ok)
	assert.Equal(t, []lib.ArpEntry{{Address: "10.0.0.1"}, {Address: "10.0.0.3"}}, table.Entries())

	table.Reset()
	assert.Zero(t, table.Len())
	assert.Empty(t, table.Entries())
}

func TestTable_EntryWithoutAddressKeyedByPhysical(t *testing.T) {
	table := New()
	table.Upsert(lib.ArpEntry{Physical: "aa-bb-cc-dd-ee-ff"})
	table.Upsert(lib.ArpEntry{})

	e, ok := table.Get("aa-bb-cc-dd-ee-ff")
	require.True(t, ok)
	assert.Equal(t, "aa-bb-cc-dd-ee-ff", e.Physical)
	assert.Equal(t, 1, table.Len())
}

func TestTable_SinkMirrorsArpRecordsOnly(t *testing.T) {
	table := New()
	var sink lib.RecordSink = table

	sink.OnLine("Интерфейс: 192.168.1.5 --- 0xb")
	sink.OnRecord(lib.PingRecord{Source: "8.8.8.8"})
	sink.OnRecord(lib.ArpEntry{Address: "192.168.1.1", Physical: "aa-bb-cc-dd-ee-ff", Type: "динамический"})
	sink.OnComplete(lib.Completion{Status: lib.StateFinished})

	assert.Equal(t, []lib.ArpEntry{{Address: "192.168.1.1", Physical: "aa-bb-cc-dd-ee-ff", Type: "динамический"}}, table.Entries())
}

func TestTable_ConcurrentUse(t *testing.T) {
	table := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				table.Upsert(lib.ArpEntry{Address: "10.0.0.1"})
				_ = table.Entries()
				table.Remove("10.0.0.1")
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, table.Len(), 1)
}

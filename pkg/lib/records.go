package lib

// RecordKind tags the concrete type behind a Record.
type RecordKind string

const (
	KindPing    RecordKind = "ping"
	KindRoute   RecordKind = "route"
	KindAdapter RecordKind = "adapter"
	KindArp     RecordKind = "arp"
)

// Record is a structured value extracted from tool output. Records are
// immutable once emitted.
type Record interface {
	Kind() RecordKind
}

// PingRecord is one echo reply. Time stays textual so threshold replies
// such as "<1ms" are not mistaken for exact measurements.
type PingRecord struct {
	Source string `json:"source" yaml:"source"`
	Bytes  int    `json:"bytes" yaml:"bytes"`
	Time   string `json:"time" yaml:"time"`
	TTL    int    `json:"ttl" yaml:"ttl"`
}

func (PingRecord) Kind() RecordKind { return KindPing }

// RouteRecord is one row of the routing table listing.
type RouteRecord struct {
	Destination string `json:"destination" yaml:"destination"`
	Mask        string `json:"mask" yaml:"mask"`
	Gateway     string `json:"gateway" yaml:"gateway"`
	Interface   string `json:"interface" yaml:"interface"`
	Metric      int    `json:"metric" yaml:"metric"`
}

func (RouteRecord) Kind() RecordKind { return KindRoute }

// AdapterBlock groups the ipconfig lines that belong to one adapter, header included.
type AdapterBlock struct {
	Name  string   `json:"name" yaml:"name"`
	Lines []string `json:"lines" yaml:"lines"`
}

func (AdapterBlock) Kind() RecordKind { return KindAdapter }

// ArpEntry is one internet/physical address pair, keyed by Address.
type ArpEntry struct {
	Address  string `json:"address" yaml:"address"`
	Physical string `json:"physical" yaml:"physical"`
	Type     string `json:"type" yaml:"type"`
}

func (ArpEntry) Kind() RecordKind { return KindArp }

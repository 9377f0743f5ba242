package output_storage

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

// node represents an element in the singly linked list.
// The list uses a sentinel head node for simpler lock-free append logic.
type node struct {
	line lib.RawLine
	next atomic.Pointer[node]
}

// OutputStorage is an append-only list of the decoded lines of one invocation.
// Append must be called from a single writer; reads and subscriptions may run
// concurrently with it. Every subscriber replays the list from the first line.
type OutputStorage struct {
	head *node // sentinel head, immutable
	tail *node // last element in the list (or sentinel if empty)
	seq  uint64
	size atomic.Int64

	broadcaster *Broadcaster[struct{}]
	logger      *zap.Logger
}

// RunNewOutputStorage creates a new, empty OutputStorage. A nil logger
// discards everything.
func RunNewOutputStorage(logger *zap.Logger) *OutputStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("output_storage")
	sentinel := &node{}
	return &OutputStorage{
		head:        sentinel,
		tail:        sentinel,
		broadcaster: RunNewBroadcaster[struct{}](logger),
		logger:      logger,
	}
}

// Stop marks the end of the stream. Subscriptions close after draining.
func (s *OutputStorage) Stop() {
	if s == nil {
		return
	}

	s.broadcaster.Stop()
}

// Append stores text as the next line and wakes subscribers.
func (s *OutputStorage) Append(text string) lib.RawLine {
	if s == nil {
		return lib.RawLine{}
	}

	s.seq++
	line := lib.RawLine{Seq: s.seq, Text: text}
	newTail := &node{line: line}

	s.tail.next.Store(newTail)
	s.tail = newTail
	s.size.Add(1)

	s.broadcaster.Publish(struct{}{})
	return line
}

// Len returns the number of stored lines.
func (s *OutputStorage) Len() int {
	if s == nil {
		return 0
	}
	return int(s.size.Load())
}

func (s *OutputStorage) subscribeRunningProcess(notifier chan struct{}, ch chan lib.RawLine) {
	prev := s.head

	for {
		current := prev.next.Load()
		if current == nil {
			if _, ok := <-notifier; !ok {
				// The writer is done; pick up anything appended before Stop.
				for current = prev.next.Load(); current != nil; current = current.next.Load() {
					ch <- current.line
				}
				close(ch)
				return
			}
			continue
		}
		prev = current

		ch <- current.line
	}
}

func (s *OutputStorage) subscribeStoppedProcess(ch chan lib.RawLine) {
	s.ForEach(func(line lib.RawLine) bool {
		ch <- line
		return true
	})
	close(ch)
}

// Subscribe returns a channel that yields every line from the first one and
// closes once the storage is stopped and fully delivered. The caller must
// drain it.
func (s *OutputStorage) Subscribe(capacity int) <-chan lib.RawLine {
	ch := make(chan lib.RawLine, capacity)
	notifier, err := s.broadcaster.Subscribe()
	if err == nil {
		go s.subscribeRunningProcess(notifier, ch)
	} else {
		s.logger.Debug("subscribing to stopped output", zap.Int("lines", s.Len()))
		go s.subscribeStoppedProcess(ch)
	}

	return ch
}

// ForEach iterates over all stored lines in insertion order.
// If iter returns false, iteration stops early.
func (s *OutputStorage) ForEach(iter func(lib.RawLine) bool) {
	if s == nil || iter == nil {
		return
	}
	cur := s.head.next.Load() // skip sentinel
	for cur != nil {
		if !iter(cur.line) {
			return
		}
		cur = cur.next.Load()
	}
}

// Lines returns the text of every stored line.
func (s *OutputStorage) Lines() []string {
	out := make([]string, 0, s.Len())
	s.ForEach(func(line lib.RawLine) bool {
		out = append(out, line.Text)
		return true
	})
	return out
}

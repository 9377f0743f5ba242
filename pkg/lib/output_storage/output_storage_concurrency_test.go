package output_storage

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/UlstuUniversityOrganization/NaT-Lab1/pkg/lib"
)

// helper: receive all until channel closes
func recvAllText(t *testing.T, ch <-chan lib.RawLine) string {
	t.Helper()
	var out strings.Builder
	var last uint64
	for line := range ch {
		if line.Seq != last+1 {
			t.Errorf("sequence gap: got %d after %d", line.Seq, last)
		}
		last = line.Seq
		out.WriteString(line.Text)
		out.WriteByte('\n')
	}
	return out.String()
}

func TestSubscribe_ConcurrentSubscribersWhileAppending(t *testing.T) {
	s := RunNewOutputStorage(nil)

	const N = 300
	var expected strings.Builder
	for i := 1; i <= N; i++ {
		fmt.Fprintf(&expected, "%d\n", i)
	}

	// Start subscribers before appending
	const subs = 10
	chs := make([]<-chan lib.RawLine, 0, subs)
	for i := 0; i < subs; i++ {
		chs = append(chs, s.Subscribe(32))
	}

	go func() {
		for i := 1; i <= N; i++ {
			s.Append(fmt.Sprintf("%d", i))
			// small jitter to exercise scheduling
			time.Sleep(time.Microsecond * 200)
		}
		s.Stop()
	}()

	var wg sync.WaitGroup
	wg.Add(subs)
	outs := make([]string, subs)
	for i := 0; i < subs; i++ {
		go func() { defer wg.Done(); outs[i] = recvAllText(t, chs[i]) }()
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout waiting for subscribers to finish")
	}

	for i := 0; i < subs; i++ {
		if outs[i] != expected.String() {
			t.Fatalf("subscriber %d mismatch: got %d bytes, want %d", i, len(outs[i]), expected.Len())
		}
	}
}

func TestSubscribe_LateSubscriberSeesFullHistory(t *testing.T) {
	s := RunNewOutputStorage(nil)

	const N = 100
	for i := 1; i <= N/2; i++ {
		s.Append(fmt.Sprintf("%d", i))
	}
	ch := s.Subscribe(4)
	go func() {
		for i := N/2 + 1; i <= N; i++ {
			s.Append(fmt.Sprintf("%d", i))
		}
		s.Stop()
	}()

	count := 0
	for line := range ch {
		count++
		if line.Text != fmt.Sprintf("%d", count) {
			t.Fatalf("line %d out of order: %q", count, line.Text)
		}
	}
	if count != N {
		t.Fatalf("expected %d lines, got %d", N, count)
	}
}

func TestSubscribe_ManySubscribersCloseOnStop(t *testing.T) {
	s := RunNewOutputStorage(nil)

	const subs = 50
	chs := make([]<-chan lib.RawLine, 0, subs)
	for i := 0; i < subs; i++ {
		chs = append(chs, s.Subscribe(1))
	}

	var wg sync.WaitGroup
	wg.Add(subs)
	for i := 0; i < subs; i++ {
		ch := chs[i]
		go func() {
			for range ch {
			}
			wg.Done()
		}()
	}

	s.Stop()

	c := make(chan struct{})
	go func() { wg.Wait(); close(c) }()

	select {
	case <-c:
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("subscribers did not close on stop in time")
	}
}

// Each storage logs through its own logger, so storages created for later
// invocations never touch state read by goroutines of earlier ones.
func TestStorageLoggersAreIndependent(t *testing.T) {
	const storages = 8
	logs := make([]*observer.ObservedLogs, storages)

	var wg sync.WaitGroup
	for i := 0; i < storages; i++ {
		core, observed := observer.New(zapcore.DebugLevel)
		logs[i] = observed
		wg.Add(1)
		go func(l *zap.Logger) {
			defer wg.Done()
			s := RunNewOutputStorage(l)
			s.Append("line")
			s.Stop()
			// Subscribing after Stop replays without a running broadcaster.
			for range s.Subscribe(1) {
			}
		}(zap.New(core))
	}
	wg.Wait()

	for i, observed := range logs {
		deadline := time.Now().Add(2 * time.Second)
		for observed.FilterMessage("broadcaster stopped").Len() == 0 {
			if time.Now().After(deadline) {
				t.Fatalf("storage %d: broadcaster stop was not logged", i)
			}
			time.Sleep(5 * time.Millisecond)
		}
		for _, entry := range observed.All() {
			if entry.LoggerName != "output_storage" {
				t.Fatalf("storage %d: unexpected logger name %q", i, entry.LoggerName)
			}
		}
	}
}

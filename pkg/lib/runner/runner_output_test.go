//go:build !windows

package runner

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestOutput_MultipleSubscribers(t *testing.T) {
	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	// Emit a few lines with small delays to allow subscribers to attach and stream
	res, err := r.Start(shCommand("for i in 1 2 3 4 5; do echo $i; sleep 0.03; done"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ch1, err := r.Output(res.ID)
	if err != nil {
		t.Fatalf("Output#1 failed: %v", err)
	}
	ch2, err := r.Output(res.ID)
	if err != nil {
		t.Fatalf("Output#2 failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	var s1, s2 []string
	go func() { defer wg.Done(); s1 = readLines(t, ch1) }()
	go func() { defer wg.Done(); s2 = readLines(t, ch2) }()
	wg.Wait()

	expected := []string{"1", "2", "3", "4", "5"}
	if fmt.Sprint(s1) != fmt.Sprint(expected) || fmt.Sprint(s2) != fmt.Sprint(expected) {
		t.Fatalf("subscribers mismatch:\nch1=%q\nch2=%q\nwant=%q", s1, s2, expected)
	}
}

func TestOutput_LateSubscriberReceivesBacklog(t *testing.T) {
	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res, err := r.Start(shCommand("for i in 1 2 3 4; do echo $i; sleep 0.05; done"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ch1, err := r.Output(res.ID)
	if err != nil {
		t.Fatalf("Output#1 failed: %v", err)
	}

	// Wait until at least two lines are likely produced
	time.Sleep(120 * time.Millisecond)

	ch2, err := r.Output(res.ID)
	if err != nil {
		t.Fatalf("Output#2 failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	var s1, s2 []string
	go func() { defer wg.Done(); s1 = readLines(t, ch1) }()
	go func() { defer wg.Done(); s2 = readLines(t, ch2) }()
	wg.Wait()

	expected := []string{"1", "2", "3", "4"}
	if fmt.Sprint(s1) != fmt.Sprint(expected) || fmt.Sprint(s2) != fmt.Sprint(expected) {
		t.Fatalf("late subscriber mismatch:\nch1=%q\nch2=%q\nwant=%q", s1, s2, expected)
	}
}

func TestOutput_ConcurrentSubscribersSeeEveryLine(t *testing.T) {
	r, err := NewRunner(WithOutputCapacity(1))
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	// Print 100 lines rapidly
	res, err := r.Start(shCommand("i=1; while [ $i -le 100 ]; do echo $i; i=$((i+1)); done;"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	const subs = 5
	outs := make([][]string, subs)
	var wg sync.WaitGroup
	wg.Add(subs)
	for i := 0; i < subs; i++ {
		ch, err := r.Output(res.ID)
		if err != nil {
			t.Fatalf("Output(%d) failed: %v", i, err)
		}
		go func() { defer wg.Done(); outs[i] = readLines(t, ch) }()
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
		if len(outs[i]) != 100 {
			t.Fatalf("subscriber %d got %d lines", i, len(outs[i]))
		}
		if strings.Join(outs[i], ",") != strings.Join(outs[0], ",") {
			t.Fatalf("subscriber outputs differ")
		}
	}
	if last := outs[0][99]; last != "100" {
		t.Fatalf("unexpected last line %q", last)
	}
}

func TestOutput_NoOutputChannelCloses(t *testing.T) {
	r, err := NewRunner()
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}

	res, err := r.Start(shCommand(":"))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	out, err := r.Output(res.ID)
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}

	done := make(chan struct{})
	var lines []string
	go func() {
		lines = readLines(t, out)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("channel did not close for no-output process")
	}

	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %q", lines)
	}
}

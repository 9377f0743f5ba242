package output_storage

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Broadcaster fans every published value out to all current subscribers.
// Delivery never blocks the publisher: a subscriber whose buffer is full loses
// its oldest pending value, so it is meant for "something changed" signals
// rather than for data.
type Broadcaster[T any] struct {
	messageReceiver chan T
	mu              sync.Mutex
	subscribers     map[chan T]struct{}
	stopped         bool
	stopOnce        sync.Once
	logger          *zap.Logger
}

func RunNewBroadcaster[T any](logger *zap.Logger) *Broadcaster[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	broadcaster := &Broadcaster[T]{
		messageReceiver: make(chan T, 1),
		subscribers:     make(map[chan T]struct{}),
		logger:          logger,
	}

	go broadcaster.start()

	return broadcaster
}

func (broadcaster *Broadcaster[T]) start() {
	for msg := range broadcaster.messageReceiver {
		// Deliver under the lock so Unsubscribe cannot close a channel mid-send.
		broadcaster.mu.Lock()
		for s := range broadcaster.subscribers {
			pushLatest(s, msg)
		}
		broadcaster.mu.Unlock()
	}

	broadcaster.mu.Lock()
	for subscriber := range broadcaster.subscribers {
		close(subscriber)
	}
	broadcaster.subscribers = make(map[chan T]struct{})
	broadcaster.stopped = true
	broadcaster.mu.Unlock()
	broadcaster.logger.Debug("broadcaster stopped")
}

// pushLatest sends msg to ch, evicting the oldest buffered value when ch is full.
func pushLatest[T any](ch chan T, msg T) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Stop closes every subscriber channel once pending values are delivered.
// Calling it more than once is safe.
func (broadcaster *Broadcaster[T]) Stop() {
	broadcaster.stopOnce.Do(func() {
		close(broadcaster.messageReceiver)
	})
}

func (broadcaster *Broadcaster[T]) Subscribe() (chan T, error) {
	// Buffer of 1 so stale notifications can be dropped without blocking.
	ch := make(chan T, 1)
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	if broadcaster.stopped {
		return nil, fmt.Errorf("failed to subscribe: broadcaster is stopped")
	}
	broadcaster.subscribers[ch] = struct{}{}
	return ch, nil
}

func (broadcaster *Broadcaster[T]) Unsubscribe(subscriber chan T) {
	broadcaster.mu.Lock()
	_, found := broadcaster.subscribers[subscriber]
	delete(broadcaster.subscribers, subscriber)
	broadcaster.mu.Unlock()
	if found {
		close(subscriber)
	}
}

// Publish must not be called after Stop.
func (broadcaster *Broadcaster[T]) Publish(msg T) {
	pushLatest(broadcaster.messageReceiver, msg)
}

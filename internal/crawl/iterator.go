package crawl

import (
	"context"
	"sync"
)

// resultBuffer is the channel capacity between a producer and its consumer.
// Small on purpose: crawl results should be consumed incrementally, not
// batched up in memory.
const resultBuffer = 4

// ProduceFunc generates discovered files, sending each through yield. It
// returns when the source is exhausted or yield reports the consumer is gone.
type ProduceFunc func(ctx context.Context, yield func(*DiscoveredFile) bool)

// Iterator is a pull-based stream of crawl results backed by a producer
// goroutine and a bounded channel. The producer's cleanup runs exactly once
// whether the stream is exhausted, errored, or abandoned early.
type Iterator struct {
	items  chan *DiscoveredFile
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

// NewIterator starts a producer goroutine for produce and returns the
// consumer handle. cleanup may be nil; otherwise it runs once when the
// producer exits, before Close returns.
func NewIterator(ctx context.Context, produce ProduceFunc, cleanup func()) *Iterator {
	ctx, cancel := context.WithCancel(ctx)
	it := &Iterator{
		items:  make(chan *DiscoveredFile, resultBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(it.done)
		defer func() {
			if cleanup != nil {
				cleanup()
			}
		}()
		defer close(it.items)

		produce(ctx, func(file *DiscoveredFile) bool {
			select {
			case it.items <- file:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	return it
}

// Next returns the next discovered file. ok is false when the stream is
// exhausted or ctx is cancelled.
func (it *Iterator) Next(ctx context.Context) (file *DiscoveredFile, ok bool) {
	select {
	case file, ok = <-it.items:
		return file, ok
	case <-ctx.Done():
		return nil, false
	}
}

// Close abandons the stream and blocks until the producer has run its
// cleanup. Safe to call multiple times and after exhaustion.
func (it *Iterator) Close() {
	it.closeOnce.Do(func() {
		it.cancel()
		// Unblock a producer waiting on a full channel.
		for range it.items {
		}
	})
	<-it.done
}

// Package counter holds the message-count buffer that sits between the
// gateway event path and the persistent store.
package counter

import "sync"

// Counter is the injectable tally abstraction. Increment happens on the event
// path, FlushAll on the scheduled path; the backing implementation can be
// swapped without touching either call site.
type Counter interface {
	// Increment adds one observed message for the channel.
	Increment(channelID string)
	// FlushAll returns the buffered counts and resets them to zero.
	FlushAll() map[string]int
	// Pending returns the number of channels with unflushed counts.
	Pending() int
}

// Buffer is the single-process implementation: a mutex-guarded map. A
// multi-process deployment would need a store-backed Counter instead.
type Buffer struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{counts: make(map[string]int)}
}

var _ Counter = (*Buffer)(nil)

// Increment adds one observed message for the channel.
func (b *Buffer) Increment(channelID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[channelID]++
}

// FlushAll returns the buffered counts and resets them to zero.
func (b *Buffer) FlushAll() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.counts
	b.counts = make(map[string]int)
	return out
}

// Pending returns the number of channels with unflushed counts.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.counts)
}

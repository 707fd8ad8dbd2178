// Package buffer keeps a bounded window of chat entries ordered by logical
// timestamp, most recent first.
//
// Entries may arrive out of timestamp order. Insert places each one after
// every entry with a greater or equal timestamp, so entries sharing a
// timestamp stay adjacent in arrival order. When the window is full one entry
// is evicted before the new one is placed; which one depends on the
// EvictionPolicy.
package buffer

import (
	"fmt"
	"slices"
	"sync"

	"github.com/omochice/toy-chat-display/pkg/protocol"
)

// DefaultCapacity is the window size used when none is configured.
const DefaultCapacity = 64

// EvictionPolicy selects the entry removed from a full buffer.
type EvictionPolicy int

const (
	// EvictFront removes the entry at index 0, whatever its timestamp.
	EvictFront EvictionPolicy = iota
	// EvictOldest removes the entry with the smallest timestamp (the tail).
	EvictOldest
)

// String returns the configuration name of the policy.
func (p EvictionPolicy) String() string {
	switch p {
	case EvictFront:
		return "front"
	case EvictOldest:
		return "oldest"
	default:
		return "unknown"
	}
}

// ParseEvictionPolicy parses a configuration name. The empty string selects EvictFront.
func ParseEvictionPolicy(s string) (EvictionPolicy, error) {
	switch s {
	case "", "front":
		return EvictFront, nil
	case "oldest":
		return EvictOldest, nil
	default:
		return EvictFront, fmt.Errorf("unknown eviction policy %q", s)
	}
}

// Buffer is a capacity-bounded sequence of entries in descending timestamp
// order. It is safe for concurrent use; snapshots handed out are copies and
// never change after they are returned.
type Buffer struct {
	capacity int
	policy   EvictionPolicy

	mu      sync.RWMutex
	entries []protocol.Entry
	subs    map[*subscriber]struct{}
}

type subscriber struct {
	ch   chan []protocol.Entry
	once sync.Once
}

// New creates an empty Buffer. A capacity below 1 selects DefaultCapacity.
func New(capacity int, policy EvictionPolicy) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		policy:   policy,
		entries:  make([]protocol.Entry, 0, capacity),
		subs:     make(map[*subscriber]struct{}),
	}
}

// Insert places e by timestamp, evicting one entry first when the buffer is
// already full. It reports the evicted entry, if any.
func (b *Buffer) Insert(e protocol.Entry) (evicted protocol.Entry, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.entries) >= b.capacity {
		evicted, ok = b.evictLocked()
	}

	b.entries = slices.Insert(b.entries, b.positionLocked(e.Timestamp), e)
	b.publishLocked()
	return evicted, ok
}

// Snapshot returns a copy of the current entries in buffer order.
func (b *Buffer) Snapshot() []protocol.Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.entries)
}

// Len returns the number of entries held.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Cap returns the configured capacity.
func (b *Buffer) Cap() int {
	return b.capacity
}

// Policy returns the configured eviction policy.
func (b *Buffer) Policy() EvictionPolicy {
	return b.policy
}

// Front returns the entry at index 0.
func (b *Buffer) Front() (protocol.Entry, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.entries) == 0 {
		return protocol.Entry{}, false
	}
	return b.entries[0], true
}

// Subscribe returns a channel that receives a snapshot after every Insert,
// starting with the current one. A subscriber that falls behind only sees
// the latest snapshot. The returned function unsubscribes and closes the
// channel; it is safe to call more than once.
func (b *Buffer) Subscribe() (<-chan []protocol.Entry, func()) {
	s := &subscriber{ch: make(chan []protocol.Entry, 1)}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	s.ch <- slices.Clone(b.entries)
	b.mu.Unlock()

	unsubscribe := func() {
		s.once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s)
			close(s.ch)
			b.mu.Unlock()
		})
	}
	return s.ch, unsubscribe
}

// positionLocked returns the index of the first entry strictly older than ts,
// or len(entries) when there is none.
func (b *Buffer) positionLocked(ts int64) int {
	for i := range b.entries {
		if b.entries[i].Timestamp < ts {
			return i
		}
	}
	return len(b.entries)
}

func (b *Buffer) evictLocked() (protocol.Entry, bool) {
	if len(b.entries) == 0 {
		return protocol.Entry{}, false
	}
	i := 0
	if b.policy == EvictOldest {
		i = len(b.entries) - 1
	}
	evicted := b.entries[i]
	b.entries = slices.Delete(b.entries, i, i+1)
	return evicted, true
}

// publishLocked runs with b.mu held, so subscribers see snapshots in insert order.
func (b *Buffer) publishLocked() {
	if len(b.subs) == 0 {
		return
	}
	snap := slices.Clone(b.entries)
	for s := range b.subs {
		select {
		case s.ch <- snap:
		default:
			select {
			case <-s.ch:
			default:
			}
			s.ch <- snap
		}
	}
}

// Package dedupe tracks recently accepted job ids so repeats can be dropped.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultMaxSize is the number of job ids remembered before eviction starts.
const DefaultMaxSize = 1000

// Deduper records accepted job ids to suppress repeated drops.
type Deduper interface {
	// Accept atomically checks id and records it when new.
	// Returns false if id is already a member, true if it was just recorded.
	Accept(ctx context.Context, id string) bool

	// Contains reports membership without recording.
	Contains(ctx context.Context, id string) bool

	// Forget reverts the most recent Accept if it recorded id, restoring any
	// id that Accept evicted. It returns false and changes nothing otherwise.
	Forget(ctx context.Context, id string) bool

	Size() int64
}

// inMemoryDeduper implements Deduper with a map for membership and a ring
// buffer holding insertion order for strict FIFO eviction.
// For bounded mode (maxSize > 0) the ring has exactly maxSize slots.
// For unbounded mode (maxSize <= 0) only the map is used.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string     // insertion order, oldest at head
	head    int          // index of the oldest entry
	maxSize int          // 0 or negative = UNBOUNDED
	size    atomic.Int64 // mirrors len(seen) for lock-free reads
	last    lastAccept   // undo record for Forget
}

// lastAccept remembers what the latest Accept changed.
type lastAccept struct {
	id       string
	evicted  string
	didEvict bool
	valid    bool
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: DefaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.maxSize > 0 {
		d.seen = make(map[string]struct{}, d.maxSize)
		d.ring = make([]string, 0, d.maxSize)
	} else {
		d.seen = make(map[string]struct{})
	}

	return d
}

// Accept records id unless it is already a member.
func (d *inMemoryDeduper) Accept(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return false
	}
	d.seen[id] = struct{}{}
	d.last = lastAccept{id: id, valid: true}

	if d.maxSize > 0 {
		if len(d.ring) < d.maxSize {
			d.ring = append(d.ring, id)
		} else {
			// Size would exceed maxSize: overwrite the oldest slot.
			d.last.evicted, d.last.didEvict = d.ring[d.head], true
			delete(d.seen, d.ring[d.head])
			d.ring[d.head] = id
			d.head = (d.head + 1) % d.maxSize
		}
	}

	d.size.Store(int64(len(d.seen)))
	return true
}

// Forget undoes the latest Accept when it recorded id.
func (d *inMemoryDeduper) Forget(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.last.valid || d.last.id != id {
		return false
	}
	delete(d.seen, id)

	if d.maxSize > 0 {
		if d.last.didEvict {
			// The newest slot sits just behind head; put the evicted id back
			// there and make it the oldest again.
			d.head = (d.head - 1 + d.maxSize) % d.maxSize
			d.ring[d.head] = d.last.evicted
			d.seen[d.last.evicted] = struct{}{}
		} else {
			d.ring = d.ring[:len(d.ring)-1]
		}
	}

	d.last = lastAccept{}
	d.size.Store(int64(len(d.seen)))
	return true
}

// Contains reports whether id is currently remembered.
func (d *inMemoryDeduper) Contains(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[id]
	return ok
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

package router

import (
	"sync"
)

// GrowableBuffer is an unbounded FIFO queue between the router and one relay
// worker. It never drops: when it reaches 70% of capacity it doubles.
type GrowableBuffer[T any] struct {
	mu     sync.Mutex
	ready  *sync.Cond
	ring   []T
	head   int // next read
	count  int
	closed bool

	received int64
	sent     int64
	resizes  int
}

// NewGrowableBuffer creates a buffer with the given initial capacity.
func NewGrowableBuffer[T any](initialCapacity int) *GrowableBuffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &GrowableBuffer[T]{ring: make([]T, initialCapacity)}
	b.ready = sync.NewCond(&b.mu)
	return b
}

// Send appends an item. Returns false if the buffer is closed.
func (b *GrowableBuffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	if threshold := max(len(b.ring)*70/100, 1); b.count+1 >= threshold {
		b.growLocked()
	}

	b.ring[(b.head+b.count)%len(b.ring)] = item
	b.count++
	b.received++

	b.ready.Signal()
	return true
}

// Receive blocks until an item is available and removes it. After Close it
// keeps returning queued items, then the zero value and false.
func (b *GrowableBuffer[T]) Receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.ready.Wait()
	}
	return b.popLocked()
}

// TryReceive removes an item without blocking.
func (b *GrowableBuffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.popLocked()
}

func (b *GrowableBuffer[T]) popLocked() (T, bool) {
	var zero T
	if b.count == 0 {
		return zero, false
	}

	item := b.ring[b.head]
	b.ring[b.head] = zero
	b.head = (b.head + 1) % len(b.ring)
	b.count--
	b.sent++

	return item, true
}

// Close stops accepting items and wakes all receivers.
func (b *GrowableBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.ready.Broadcast()
}

// Len returns the number of queued items.
func (b *GrowableBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// BufferStats contains buffer statistics.
type BufferStats struct {
	Queued   int   `json:"queued"`
	Capacity int   `json:"capacity"`
	Received int64 `json:"received"`
	Sent     int64 `json:"sent"`
	Resizes  int   `json:"resizes"`
}

// Stats returns buffer statistics.
func (b *GrowableBuffer[T]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Queued:   b.count,
		Capacity: len(b.ring),
		Received: b.received,
		Sent:     b.sent,
		Resizes:  b.resizes,
	}
}

// growLocked doubles the capacity and unwraps the ring (caller must hold lock).
func (b *GrowableBuffer[T]) growLocked() {
	next := make([]T, len(b.ring)*2)
	n := copy(next, b.ring[b.head:])
	if n < b.count {
		copy(next[n:], b.ring[:b.count-n])
	}

	b.ring = next
	b.head = 0
	b.resizes++
}

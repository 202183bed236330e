// Package series provides the fixed-capacity rolling buffer backing
// every time-ordered sequence in the read model: telemetry samples,
// water-quality trend points, alerts and chat suggestions.
package series

// Buffer holds at most cap items in insertion order. Push appends and
// evicts from the front on overflow; it never fails. A Buffer is not
// goroutine-safe on its own: all writes funnel through the read-model
// store, which serializes mutations.
type Buffer[T any] struct {
	items []T
	cap   int
}

// NewBuffer returns a buffer holding at most capacity items. Capacity
// values below 1 are treated as 1.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		items: make([]T, 0, capacity),
		cap:   capacity,
	}
}

// Push appends item, evicting the oldest entry when full.
func (b *Buffer[T]) Push(item T) {
	if len(b.items) == b.cap {
		copy(b.items, b.items[1:])
		b.items[len(b.items)-1] = item
		return
	}
	b.items = append(b.items, item)
}

// PushFront prepends item, evicting the newest-first tail when full.
// Used by the alert buffers, which the consumer reads newest-first.
func (b *Buffer[T]) PushFront(item T) {
	if len(b.items) == b.cap {
		copy(b.items[1:], b.items)
		b.items[0] = item
		return
	}
	b.items = append(b.items, item)
	copy(b.items[1:], b.items)
	b.items[0] = item
}

// Len reports the number of buffered items.
func (b *Buffer[T]) Len() int {
	return len(b.items)
}

// Cap reports the fixed capacity.
func (b *Buffer[T]) Cap() int {
	return b.cap
}

// First returns the oldest item in insertion order.
func (b *Buffer[T]) First() (T, bool) {
	var zero T
	if len(b.items) == 0 {
		return zero, false
	}
	return b.items[0], true
}

// Last returns the most recently pushed end of the buffer.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if len(b.items) == 0 {
		return zero, false
	}
	return b.items[len(b.items)-1], true
}

// Items returns a copy of the buffered items so snapshot consumers never
// alias live memory.
func (b *Buffer[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

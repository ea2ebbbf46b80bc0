package configsync

import (
	"sync"
	"time"
)

// batchDebouncer collects keys and emits them as one batch after a quiet period
type batchDebouncer[T comparable] struct {
	delay   time.Duration
	timer   *time.Timer
	mu      sync.Mutex
	pending []T
	seen    map[T]bool
	emit    func([]T)
}

func newBatchDebouncer[T comparable](delay time.Duration, emit func([]T)) *batchDebouncer[T] {
	return &batchDebouncer[T]{
		delay: delay,
		seen:  make(map[T]bool),
		emit:  emit,
	}
}

// Add queues keys and restarts the quiet-period timer
func (b *batchDebouncer[T]) Add(keys ...T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range keys {
		if !b.seen[k] {
			b.seen[k] = true
			b.pending = append(b.pending, k)
		}
	}

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

func (b *batchDebouncer[T]) flush() {
	b.mu.Lock()
	keys := b.pending
	b.pending = nil
	b.seen = make(map[T]bool)
	b.timer = nil
	b.mu.Unlock()

	if len(keys) > 0 && b.emit != nil {
		b.emit(keys)
	}
}

// Flush emits pending keys immediately
func (b *batchDebouncer[T]) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.flush()
}

// Cancel drops pending keys
func (b *batchDebouncer[T]) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.pending = nil
	b.seen = make(map[T]bool)
}

// Len returns the number of pending keys
func (b *batchDebouncer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

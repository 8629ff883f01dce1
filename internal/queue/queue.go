package queue

import (
	"context"
	"sync/atomic"
)

// Stats counts what happened at a queue's producer side.
type Stats struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Length   int    `json:"length"`
	Accepted uint64 `json:"accepted"`
	Dropped  uint64 `json:"dropped"`
}

// Bounded is a fixed-capacity FIFO shared by producers and a worker pool.
// Offer never blocks: once the queue holds Capacity items new ones are
// dropped. Take blocks until an item arrives or ctx is done.
type Bounded[T any] struct {
	name  string
	items chan T

	accepted atomic.Uint64
	dropped  atomic.Uint64
}

func NewBounded[T any](name string, capacity int) *Bounded[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Bounded[T]{
		name:  name,
		items: make(chan T, capacity),
	}
}

// Offer enqueues item and reports whether it was accepted.
func (q *Bounded[T]) Offer(item T) bool {
	select {
	case q.items <- item:
		q.accepted.Add(1)
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

func (q *Bounded[T]) Take(ctx context.Context) (T, error) {
	select {
	case item := <-q.items:
		return item, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (q *Bounded[T]) Len() int { return len(q.items) }

func (q *Bounded[T]) Cap() int { return cap(q.items) }

func (q *Bounded[T]) Name() string { return q.name }

func (q *Bounded[T]) Stats() Stats {
	return Stats{
		Name:     q.name,
		Capacity: q.Cap(),
		Length:   q.Len(),
		Accepted: q.accepted.Load(),
		Dropped:  q.dropped.Load(),
	}
}

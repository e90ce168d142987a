package internal

import (
	"container/heap"
	"sort"
	"time"
)

// Deadline is an entry of a DeadlineQueue.
type Deadline[T any] struct {
	When  time.Time
	Value T

	seq   uint64
	index int
}

// DeadlineQueue orders values by an absolute instant. Entries with the same
// instant come out in insertion order.
type DeadlineQueue[T any] struct {
	h   deadlineHeap[T]
	seq uint64
}

func NewDeadlineQueue[T any]() *DeadlineQueue[T] {
	return &DeadlineQueue[T]{}
}

func (q *DeadlineQueue[T]) Len() int {
	return len(q.h)
}

// Push inserts v due at when. The returned handle can be passed to Remove.
func (q *DeadlineQueue[T]) Push(when time.Time, v T) *Deadline[T] {
	d := &Deadline[T]{
		When:  when,
		Value: v,
		seq:   q.seq,
	}
	q.seq++
	heap.Push(&q.h, d)
	return d
}

// Peek returns the earliest entry without removing it.
func (q *DeadlineQueue[T]) Peek() (*Deadline[T], bool) {
	if len(q.h) == 0 {
		return nil, false
	}
	return q.h[0], true
}

func (q *DeadlineQueue[T]) Pop() (*Deadline[T], bool) {
	if len(q.h) == 0 {
		return nil, false
	}
	return heap.Pop(&q.h).(*Deadline[T]), true
}

// PopExpired removes and returns, earliest first, every entry due at or
// before now.
func (q *DeadlineQueue[T]) PopExpired(now time.Time) (expired []*Deadline[T]) {
	for len(q.h) > 0 && !q.h[0].When.After(now) {
		expired = append(expired, heap.Pop(&q.h).(*Deadline[T]))
	}
	return expired
}

// Remove deletes d from the queue. Removing an entry which was already popped
// or removed is a no-op.
func (q *DeadlineQueue[T]) Remove(d *Deadline[T]) {
	if d == nil || d.index < 0 || d.index >= len(q.h) || q.h[d.index] != d {
		return
	}
	heap.Remove(&q.h, d.index)
}

// Values returns the queued values, earliest first.
func (q *DeadlineQueue[T]) Values() []T {
	sorted := make(deadlineHeap[T], len(q.h))
	copy(sorted, q.h)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].When.Equal(sorted[j].When) {
			return sorted[i].seq < sorted[j].seq
		}
		return sorted[i].When.Before(sorted[j].When)
	})

	xs := make([]T, 0, len(sorted))
	for _, d := range sorted {
		xs = append(xs, d.Value)
	}
	return xs
}

type deadlineHeap[T any] []*Deadline[T]

func (h deadlineHeap[T]) Len() int { return len(h) }

func (h deadlineHeap[T]) Less(i, j int) bool {
	if h[i].When.Equal(h[j].When) {
		return h[i].seq < h[j].seq
	}
	return h[i].When.Before(h[j].When)
}

func (h deadlineHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap[T]) Push(x any) {
	d := x.(*Deadline[T])
	d.index = len(*h)
	*h = append(*h, d)
}

func (h *deadlineHeap[T]) Pop() any {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	d.index = -1
	*h = old[:n-1]
	return d
}

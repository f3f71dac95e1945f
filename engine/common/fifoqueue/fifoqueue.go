package fifoqueue

import (
	"fmt"
	mathbits "math/bits"
	"sync"

	"github.com/ef-ds/deque"
)

// FifoQueue is a bounded FIFO queue handing work from producers to a single worker routine.
// Elements pushed beyond the queue's capacity are rejected. Every successful push raises a
// notification, which the worker receives from Notifications() and then drains the queue.
// Notifications are coalesced: any number of pushes between two receives raise one notification.
//
// Each time the queue's length changes, the length observer is called with the new length.
// The observer must be non-blocking.
type FifoQueue[T any] struct {
	mu             sync.Mutex
	queue          deque.Deque
	capacity       int
	lengthObserver func(int)
	notifications  chan struct{}
}

type options struct {
	capacity       int
	lengthObserver func(int)
}

// Option configures a FifoQueue at construction.
type Option func(*options) error

// WithCapacity sets the max number of elements the queue holds. By default, the capacity is
// the largest `int` value (platform dependent).
func WithCapacity(capacity int) Option {
	return func(o *options) error {
		if capacity < 1 {
			return fmt.Errorf("capacity for fifo queue must be positive, got %d", capacity)
		}
		o.capacity = capacity
		return nil
	}
}

// WithLengthObserver sets the callback the queue calls with its new length whenever the
// length changes.
func WithLengthObserver(callback func(int)) Option {
	return func(o *options) error {
		if callback == nil {
			return fmt.Errorf("nil is not a valid length observer")
		}
		o.lengthObserver = callback
		return nil
	}
}

// NewFifoQueue creates an empty queue.
func NewFifoQueue[T any](opts ...Option) (*FifoQueue[T], error) {
	o := options{
		capacity:       1<<(mathbits.UintSize-1) - 1,
		lengthObserver: func(int) {},
	}
	for _, apply := range opts {
		err := apply(&o)
		if err != nil {
			return nil, fmt.Errorf("failed to apply option to fifo queue: %w", err)
		}
	}

	return &FifoQueue[T]{
		capacity:       o.capacity,
		lengthObserver: o.lengthObserver,
		notifications:  make(chan struct{}, 1),
	}, nil
}

// Push appends the element to the tail of the queue and notifies the worker.
// Returns false, without notifying, if the queue is full.
func (q *FifoQueue[T]) Push(element T) bool {
	length, pushed := q.push(element)
	if !pushed {
		return false
	}

	q.lengthObserver(length)
	select {
	case q.notifications <- struct{}{}:
	default:
	}
	return true
}

func (q *FifoQueue[T]) push(element T) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	length := q.queue.Len()
	if length >= q.capacity {
		return length, false
	}
	q.queue.PushBack(element)
	return length + 1, true
}

// Pop removes and returns the head of the queue.
// If the queue is empty, the zero value and false are returned.
func (q *FifoQueue[T]) Pop() (T, bool) {
	element, length, ok := q.pop()
	if !ok {
		var zero T
		return zero, false
	}

	q.lengthObserver(length)
	return element.(T), true
}

func (q *FifoQueue[T]) pop() (interface{}, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	element, ok := q.queue.PopFront()
	return element, q.queue.Len(), ok
}

// Len returns the current length of the queue.
func (q *FifoQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.queue.Len()
}

// Notifications returns the channel signaling that elements were pushed.
func (q *FifoQueue[T]) Notifications() <-chan struct{} {
	return q.notifications
}

// Package channel provides the point-to-point conduits used to connect
// Intcode processors to each other and to their orchestrator.
//
// A Conduit is a FIFO queue with exactly one producer and one consumer.
// Receive blocks while the queue is empty, Send blocks while a bounded
// queue is full. Closing a conduit is the producer's way of signalling
// that no more values will arrive: the consumer drains what remains and
// then observes ErrClosed.
package channel

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
)

// Conduit is a single-producer, single-consumer FIFO of values.
// The zero value is an open, unbounded conduit.
type Conduit[T any] struct {
	capacity int // Maximum queued values, 0 for unbounded.

	mu      sync.Mutex
	queue   []T
	closed  bool
	changed chan struct{} // Closed and replaced on every state change.

	transfers atomic.Int64
}

// New creates a conduit. A capacity of 0 makes the conduit unbounded.
func New[T any](capacity int) (conduit *Conduit[T]) {
	if capacity < 0 {
		capacity = 0
	}

	conduit = &Conduit[T]{
		capacity: capacity,
		changed:  make(chan struct{}),
	}

	return
}

// Capacity returns the bound of the conduit, 0 if unbounded.
func (c *Conduit[T]) Capacity() int {
	return c.capacity
}

// waiter returns the channel closed by the next state change.
// Must be called with c.mu held.
func (c *Conduit[T]) waiter() chan struct{} {
	if c.changed == nil {
		c.changed = make(chan struct{})
	}
	return c.changed
}

// broadcast wakes everyone blocked on the conduit.
// Must be called with c.mu held.
func (c *Conduit[T]) broadcast() {
	close(c.waiter())
	c.changed = make(chan struct{})
}

// Send queues a value, blocking while a bounded conduit is full.
// Returns ErrClosed if the conduit has been closed, or the cause of the
// context cancellation if ctx is done while blocked.
func (c *Conduit[T]) Send(ctx context.Context, value T) (err error) {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			err = ErrClosed
			return
		}
		if c.capacity == 0 || len(c.queue) < c.capacity {
			c.queue = append(c.queue, value)
			c.transfers.Add(1)
			c.broadcast()
			c.mu.Unlock()
			return
		}
		wait := c.waiter()
		c.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			err = context.Cause(ctx)
			return
		}
	}
}

// Receive dequeues the oldest value, blocking while the conduit is empty.
// Once the conduit is closed and drained, ErrClosed is returned.
func (c *Conduit[T]) Receive(ctx context.Context) (value T, err error) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			value = c.queue[0]
			var zero T
			c.queue[0] = zero
			c.queue = c.queue[1:]
			c.transfers.Add(1)
			c.broadcast()
			c.mu.Unlock()
			return
		}
		if c.closed {
			c.mu.Unlock()
			err = ErrClosed
			return
		}
		wait := c.waiter()
		c.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			err = context.Cause(ctx)
			return
		}
	}
}

// Close marks the end of the stream. Queued values remain receivable.
// Closing an already closed conduit is a no-op.
func (c *Conduit[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.broadcast()
}

// Closed returns true once Close has been called.
func (c *Conduit[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closed
}

// Len returns the number of queued values.
func (c *Conduit[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.queue)
}

// Transfers returns the count of completed sends and receives.
func (c *Conduit[T]) Transfers() int64 {
	return c.transfers.Load()
}

// Feed sends each value in order.
func Feed[T any](ctx context.Context, c *Conduit[T], values ...T) (err error) {
	for _, value := range values {
		err = c.Send(ctx, value)
		if err != nil {
			return
		}
	}
	return
}

// Values iterates over received values until the conduit is closed and
// drained, or ctx is done.
func Values[T any](ctx context.Context, c *Conduit[T]) iter.Seq[T] {
	return func(yield func(value T) bool) {
		for {
			value, err := c.Receive(ctx)
			if err != nil {
				return
			}
			if !yield(value) {
				return
			}
		}
	}
}

// Collect receives every value until the conduit is closed.
// A closed conduit is not an error; context cancellation is.
func Collect[T any](ctx context.Context, c *Conduit[T]) (values []T, err error) {
	for {
		var value T
		value, err = c.Receive(ctx)
		if err == ErrClosed {
			err = nil
			return
		}
		if err != nil {
			return
		}
		values = append(values, value)
	}
}

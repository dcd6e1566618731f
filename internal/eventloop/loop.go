// Package eventloop runs all compositor work on one goroutine. Other
// goroutines hand work to it through a Sender; work that must wait for the
// loop to go idle is queued with InsertIdle.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned once the loop has been stopped.
var ErrClosed = errors.New("event loop closed")

// Loop is a single-consumer event loop whose callbacks receive a T.
type Loop[T any] struct {
	mu      sync.Mutex
	pending []func(T)
	wake    chan struct{}

	// idle is only touched from the loop goroutine.
	idle []func(T)

	done     chan struct{}
	stopOnce sync.Once
	err      error
}

func New[T any]() *Loop[T] {
	return &Loop[T]{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Sender is the goroutine-safe side of a Loop.
type Sender[T any] struct {
	loop *Loop[T]
}

func (l *Loop[T]) Sender() Sender[T] {
	return Sender[T]{loop: l}
}

// Send queues fn to run on the loop goroutine. It reports false when the
// loop has already stopped, in which case fn never runs.
func (s Sender[T]) Send(fn func(T)) bool {
	l := s.loop
	select {
	case <-l.done:
		return false
	default:
	}

	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// InsertIdle queues fn for the next idle pass. It must only be called from
// the loop goroutine. Callbacks inserted while an idle pass runs are
// deferred to the following pass.
func (l *Loop[T]) InsertIdle(fn func(T)) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	l.idle = append(l.idle, fn)
	return nil
}

// Stop ends Run, which returns err. Only the first call has any effect.
func (l *Loop[T]) Stop(err error) {
	l.stopOnce.Do(func() {
		l.err = err
		close(l.done)
	})
}

// Done is closed once the loop is stopped.
func (l *Loop[T]) Done() <-chan struct{} {
	return l.done
}

// Dispatch runs one turn of the loop: wait for sent work (no longer than
// timeout, or forever if timeout is negative, and not at all while idle
// work is queued), run everything sent so far, then run one idle pass.
// A stopped loop or a done ctx returns before any work runs.
func (l *Loop[T]) Dispatch(ctx context.Context, data T, timeout time.Duration) error {
	if l.stopped() {
		return l.stopErr()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(l.idle) == 0 && timeout != 0 {
		var timer <-chan time.Time
		if timeout > 0 {
			t := time.NewTimer(timeout)
			defer t.Stop()
			timer = t.C
		}
		select {
		case <-l.wake:
		case <-timer:
		case <-l.done:
			return l.stopErr()
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, fn := range batch {
		fn(data)
		if l.stopped() {
			return l.stopErr()
		}
	}

	idle := l.idle
	l.idle = nil
	for _, fn := range idle {
		fn(data)
		if l.stopped() {
			return l.stopErr()
		}
	}
	return nil
}

// Run dispatches until ctx is cancelled or Stop is called.
func (l *Loop[T]) Run(ctx context.Context, data T) error {
	for {
		if err := l.Dispatch(ctx, data, -1); err != nil {
			if errors.Is(err, ErrClosed) && l.stopped() {
				return l.err
			}
			return err
		}
	}
}

func (l *Loop[T]) stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *Loop[T]) stopErr() error {
	if l.err != nil {
		return l.err
	}
	return ErrClosed
}

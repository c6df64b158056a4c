package unwind

import (
	"errors"
	"sync"
)

// ErrPending is returned by Future.Result before the future settles.
var ErrPending = errors.New("unwind: future not settled")

// Future is a deferred value that settles exactly once, with a value or an
// error.
//
// Thread-safety: Resolve, Reject and Then may be called from any goroutine.
// Continuations registered with Then run on the goroutine that settles the
// future (or immediately when it already settled); Normalize hops them back
// onto its Dispatcher.
type Future struct {
	mu      sync.Mutex
	settled bool
	value   any
	err     error
	waiters []func(any, error)
	done    chan struct{}
}

// NewFuture creates a pending future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Settled creates a future already resolved with v.
func Settled(v any) *Future {
	f := NewFuture()
	f.Resolve(v)
	return f
}

// Failed creates a future already rejected with err.
func Failed(err error) *Future {
	f := NewFuture()
	f.Reject(err)
	return f
}

// Resolve settles the future with v. Returns false if it had already settled.
func (f *Future) Resolve(v any) bool {
	return f.settle(v, nil)
}

// Reject settles the future with err. Returns false if it had already settled.
func (f *Future) Reject(err error) bool {
	if err == nil {
		err = errors.New("unwind: rejected with nil error")
	}
	return f.settle(nil, err)
}

func (f *Future) settle(v any, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value = v
	f.err = err
	waiters := f.waiters
	f.waiters = nil
	close(f.done)
	f.mu.Unlock()

	for _, w := range waiters {
		w(v, err)
	}
	return true
}

// Then registers fn to run once the future settles.
func (f *Future) Then(fn func(any, error)) {
	if fn == nil {
		return
	}
	f.mu.Lock()
	if !f.settled {
		f.waiters = append(f.waiters, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	fn(v, err)
}

// Settled reports whether the future has settled.
func (f *Future) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Done returns a channel closed when the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result returns the settled value and error, or ErrPending.
func (f *Future) Result() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.settled {
		return nil, ErrPending
	}
	return f.value, f.err
}

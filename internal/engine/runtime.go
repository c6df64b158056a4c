package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/strata/internal/unwind"
)

// Runtime owns the resolve stack and the continuation queue shared by a tree
// of layers.
//
// Thread-safety model:
//   - Dispatch(): safe from any goroutine
//   - everything else (Resolve, Update, store access, Run, Drain, Await): must
//     be called from the single goroutine driving the runtime
type Runtime struct {
	stack       []*Layer // innermost at the end
	queue       *taskQueue
	logger      *slog.Logger
	ids         IDGenerator
	clock       Sequencer
	maxAttempts int
	journal     Journal
	metrics     *Metrics
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithIDGenerator sets the layer ID generator. Defaults to UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(rt *Runtime) {
		if gen != nil {
			rt.ids = gen
		}
	}
}

// WithClock sets the sequencer stamping journal entries.
func WithClock(clock Sequencer) Option {
	return func(rt *Runtime) {
		if clock != nil {
			rt.clock = clock
		}
	}
}

// WithMaxAttempts sets the render attempt quota per Resolve call.
//
// Default: 100 attempts (DefaultMaxAttempts)
// Use WithMaxAttempts(3) for testing quota enforcement.
func WithMaxAttempts(n int) Option {
	return func(rt *Runtime) {
		rt.maxAttempts = n
	}
}

// WithJournal records runtime activity to j.
func WithJournal(j Journal) Option {
	return func(rt *Runtime) {
		rt.journal = j
	}
}

// WithMetrics publishes runtime counters through m.
func WithMetrics(m *Metrics) Option {
	return func(rt *Runtime) {
		rt.metrics = m
	}
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		queue:       newTaskQueue(),
		logger:      slog.Default(),
		ids:         UUIDv7Generator{},
		clock:       NewClock(),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Current returns the innermost resolving layer, or nil.
func (rt *Runtime) Current() *Layer {
	return rt.top()
}

// Stack returns the resolving layers, innermost first.
func (rt *Runtime) Stack() []*Layer {
	out := make([]*Layer, len(rt.stack))
	for i, l := range rt.stack {
		out[len(rt.stack)-1-i] = l
	}
	return out
}

func (rt *Runtime) top() *Layer {
	if len(rt.stack) == 0 {
		return nil
	}
	return rt.stack[len(rt.stack)-1]
}

func (rt *Runtime) onStack(l *Layer) bool {
	for _, x := range rt.stack {
		if x == l {
			return true
		}
	}
	return false
}

// push adds l to the stack unless it is already there.
func (rt *Runtime) push(l *Layer) bool {
	if rt.onStack(l) {
		return false
	}
	rt.stack = append(rt.stack, l)
	return true
}

func (rt *Runtime) pop(l *Layer) {
	n := len(rt.stack)
	if n > 0 && rt.stack[n-1] == l {
		rt.stack[n-1] = nil
		rt.stack = rt.stack[:n-1]
		return
	}
	for i, x := range rt.stack {
		if x == l {
			rt.logger.Warn("layer popped out of order", "layer", l.id, "depth", i)
			rt.stack = append(rt.stack[:i], rt.stack[i+1:]...)
			return
		}
	}
}

func (rt *Runtime) mustCurrent(op string) *Layer {
	l := rt.top()
	if l == nil {
		panic(misuse(op, "no layer is resolving"))
	}
	return l
}

// Dispatch schedules fn on the runtime's loop. Safe from any goroutine; fn is
// dropped once the runtime is stopped.
func (rt *Runtime) Dispatch(fn func()) {
	if !rt.queue.Enqueue(fn) {
		rt.logger.Debug("dispatch after stop dropped")
	}
}

var _ unwind.Dispatcher = (*Runtime)(nil)

// Drain runs queued continuations until the queue is empty, including those
// enqueued while draining. Returns the number of tasks run.
func (rt *Runtime) Drain() int {
	n := 0
	for {
		fn, ok := rt.queue.TryDequeue()
		if !ok {
			return n
		}
		fn()
		n++
	}
}

// Run processes continuations until ctx is cancelled or Stop is called.
//
// Run must be called from exactly one goroutine, which then becomes the only
// goroutine allowed to touch layers.
func (rt *Runtime) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if fn, ok := rt.queue.TryDequeue(); ok {
			fn()
			continue
		}
		if rt.queue.Closed() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-rt.queue.Wait():
		}
	}
}

// Await drives the loop until f settles, then returns its outcome.
func (rt *Runtime) Await(ctx context.Context, f *unwind.Future) (any, error) {
	if f == nil {
		return nil, nil
	}
	for {
		if fn, ok := rt.queue.TryDequeue(); ok {
			fn()
			continue
		}
		if f.Settled() {
			return f.Result()
		}
		if rt.queue.Closed() {
			return nil, ErrStopped
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-rt.queue.Wait():
		case <-f.Done():
		}
	}
}

// Stop closes the continuation queue. Pending continuations are still run
// by Drain; new ones are dropped.
func (rt *Runtime) Stop() {
	rt.queue.Close()
}

// Pending returns the number of queued continuations.
func (rt *Runtime) Pending() int {
	return rt.queue.Len()
}

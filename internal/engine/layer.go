package engine

import (
	"fmt"

	"github.com/roach88/strata/internal/state"
	"github.com/roach88/strata/internal/unwind"
)

// outcome tags a render attempt. The zero value means the attempt ran to
// completion; a non-zero value recorded on a layer mid-render is the signal
// that attempt must honour.
type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeInterrupted
	outcomeCancelled
)

func (o outcome) String() string {
	switch o {
	case outcomeCompleted:
		return "completed"
	case outcomeInterrupted:
		return "interrupted"
	case outcomeCancelled:
		return "cancelled"
	}
	return "unknown"
}

func (o outcome) err() error {
	switch o {
	case outcomeInterrupted:
		return ErrInterrupted
	case outcomeCancelled:
		return ErrCancelled
	}
	return nil
}

// Outcome is delivered to update callbacks when an update-driven resolve
// settles.
type Outcome struct {
	Value any
	Err   error
}

// UpdateFunc observes the results of update-driven resolves.
type UpdateFunc func(o Outcome)

// Layer is one resolving unit in the tree: a component, its arguments and a
// store chained to its parent's.
type Layer struct {
	rt        *Runtime
	id        string
	key       any
	component *Component
	args      []any
	store     *state.Store
	ancestors []*Layer // resolving layers at construction, innermost first

	changes   changeSet
	children  childSet
	rendered  []*Layer
	pool      pool
	listeners registry

	fresh     bool
	resolving bool
	rendering bool
	queued    bool
	signal    outcome
	attempts  int
}

// ID returns the layer's identifier.
func (l *Layer) ID() string { return l.id }

// Key returns the layer's key among its siblings (nil for roots without an
// explicit key).
func (l *Layer) Key() any { return l.key }

// Component returns the layer's component.
func (l *Layer) Component() *Component { return l.component }

// Store returns the layer's store.
func (l *Layer) Store() *state.Store { return l.store }

// Args returns a copy of the layer's arguments.
func (l *Layer) Args() []any {
	out := make([]any, len(l.args))
	copy(out, l.args)
	return out
}

// Ancestors returns the layers that were resolving when this one was
// constructed, innermost first.
func (l *Layer) Ancestors() []*Layer {
	out := make([]*Layer, len(l.ancestors))
	copy(out, l.ancestors)
	return out
}

// Parent returns the innermost ancestor, or nil for a root.
func (l *Layer) Parent() *Layer {
	if len(l.ancestors) == 0 {
		return nil
	}
	return l.ancestors[0]
}

// Children returns the children produced by the last finished resolve, in
// construction order.
func (l *Layer) Children() []*Layer {
	out := make([]*Layer, len(l.rendered))
	copy(out, l.rendered)
	return out
}

// Fresh reports whether the layer has never finished a resolve.
func (l *Layer) Fresh() bool { return l.fresh }

// Resolving reports whether a resolve of this layer is in progress.
func (l *Layer) Resolving() bool { return l.resolving }

// Pending returns the keys changed so far in the current cycle.
func (l *Layer) Pending() []state.Key { return l.changes.list() }

func (l *Layer) String() string {
	return fmt.Sprintf("%s(%s)", l.component.Name(), l.id)
}

func (l *Layer) descendsFrom(a *Layer) bool {
	for _, x := range l.ancestors {
		if x == a {
			return true
		}
	}
	return false
}

// Assign replaces the layer's arguments and merges ext into its own store.
// It does not mark changes or trigger a resolve.
func (l *Layer) Assign(ext map[state.Key]any, args []any) {
	l.args = append([]any(nil), args...)
	if len(ext) > 0 {
		l.store.Merge(ext)
	}
}

// Resolve runs a resolve cycle and returns the eventual result.
//
// The cycle flushes pending changes to listeners, renders until an attempt
// completes without being interrupted or re-queued, and flushes again. The
// returned future settles immediately unless the render produced a deferred
// value.
//
// Calling Resolve on a layer that is already resolving queues a re-render
// of the running cycle and returns a settled nil future. A cancelled cycle
// also settles to nil. onUpdate callbacks stay subscribed and observe every
// later update-driven resolve. A deferred result is delivered to them as
// well once it settles; a synchronous result is only returned.
//
// The only errors returned are those of the render function and an
// ATTEMPT_LIMIT RuntimeError.
func (l *Layer) Resolve(onUpdate ...UpdateFunc) (*unwind.Future, error) {
	for _, fn := range onUpdate {
		l.onResolved(fn)
	}
	if l.resolving {
		l.queued = true
		l.rt.record(KindQueued, l, "", "re-entrant resolve")
		l.rt.logger.Debug("resolve queued", "layer", l.id, "component", l.component.Name())
		return unwind.Settled(nil), nil
	}

	pushed := l.rt.push(l)
	l.resolving = true
	defer l.finish(pushed)

	l.rt.metrics.resolve()
	l.rt.record(KindResolve, l, "", "")
	l.rt.logger.Debug("resolve started",
		"layer", l.id,
		"component", l.component.Name(),
		"depth", len(l.rt.stack))

	quota := NewAttemptQuota(l.rt.maxAttempts)
	l.flush()
	for {
		fut, o, err := l.render(quota)
		if err != nil {
			l.rt.record(KindFailed, l, "", err.Error())
			return nil, err
		}
		l.flush()
		if o == outcomeCancelled {
			return unwind.Settled(nil), nil
		}
		if !l.queued {
			l.rt.record(KindComplete, l, "", settledness(fut))
			if !fut.Settled() {
				l.deliver(fut, nil)
			}
			return fut, nil
		}
	}
}

// render runs attempts until one completes without a pending re-render, or
// the attempt is cancelled.
func (l *Layer) render(quota *AttemptQuota) (*unwind.Future, outcome, error) {
	l.rendering = true
	defer func() { l.rendering = false }()

	for {
		l.queued = false
		if err := quota.Check(l); err != nil {
			return nil, outcomeCompleted, err
		}

		fut, o, err := l.attempt(quota.Current())
		if err != nil {
			return nil, o, err
		}
		l.rt.metrics.attempt(o)

		switch o {
		case outcomeInterrupted:
			l.rt.record(KindInterrupt, l, "", "")
			l.rt.logger.Debug("render interrupted", "layer", l.id, "attempt", quota.Current())
			continue
		case outcomeCancelled:
			l.rt.record(KindCancel, l, "", "")
			l.rt.logger.Debug("render cancelled", "layer", l.id, "attempt", quota.Current())
			return nil, o, nil
		}
		if l.queued {
			continue
		}
		return fut, o, nil
	}
}

// attempt runs the render function once. A signal raised by a setter during
// the attempt takes precedence over whatever the render function returned.
func (l *Layer) attempt(n int) (*unwind.Future, outcome, error) {
	l.signal = outcomeCompleted
	l.attempts = n
	if n > 1 {
		// Children of a discarded attempt stay reusable by the retry.
		l.pool.absorb(&l.children)
		l.children.reset()
	}
	l.rt.record(KindAttempt, l, "", fmt.Sprintf("n=%d", n))

	res, err := l.component.render(&Frame{rt: l.rt, layer: l})
	if l.signal != outcomeCompleted {
		return nil, l.signal, nil
	}
	if err != nil {
		if IsSignal(err) {
			// A signal raised against another layer; this render cannot
			// continue on it either.
			return nil, outcomeCancelled, nil
		}
		return nil, outcomeCompleted, err
	}

	fut := unwind.Normalize(res, l.rt)
	if l.signal != outcomeCompleted {
		return nil, l.signal, nil
	}
	return fut, outcomeCompleted, nil
}

func (l *Layer) raise(o outcome) error {
	if o > l.signal {
		l.signal = o
	}
	return l.signal.err()
}

// flush emits every pending change to this layer's listeners. Pending
// changes survive until the cycle finishes, so a listener registered during
// the render hears the changes that triggered it.
func (l *Layer) flush() {
	for _, key := range l.changes.list() {
		var v any
		if key != state.Wildcard {
			v, _ = l.store.Get(key)
		}
		l.Emit(key, v)
	}
}

func (l *Layer) finish(pushed bool) {
	l.rendered = append(l.rendered[:0:0], l.children.order...)
	l.pool.fill(&l.children)
	l.children.reset()
	l.changes.clear()
	l.fresh = false
	l.resolving = false
	l.queued = false
	l.signal = outcomeCompleted
	if pushed {
		l.rt.pop(l)
	}
}

func (l *Layer) onResolved(fn UpdateFunc) {
	if fn == nil {
		return
	}
	var persist Listener
	persist = func(c Change) Listener {
		if o, ok := c.Value.(Outcome); ok {
			fn(o)
		}
		return persist
	}
	l.Subscribe(state.Resolved, persist)
}

// deliver emits the outcome of a resolve under the reserved resolved key
// once it settles.
func (l *Layer) deliver(fut *unwind.Future, err error) {
	if err != nil {
		l.rt.logger.Error("update resolve failed",
			"layer", l.id,
			"component", l.component.Name(),
			"error", err)
		l.Emit(state.Resolved, Outcome{Err: err}, ExactOnly())
		return
	}
	if fut == nil {
		return
	}
	fut.Then(func(v any, err error) {
		l.Emit(state.Resolved, Outcome{Value: v, Err: err}, ExactOnly())
	})
}

// changeSet is an insertion-ordered set of changed keys.
type changeSet struct {
	keys []state.Key
	seen map[state.Key]struct{}
}

func (c *changeSet) add(key state.Key) {
	if c.seen == nil {
		c.seen = make(map[state.Key]struct{})
	}
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.keys = append(c.keys, key)
}

func (c *changeSet) list() []state.Key {
	out := make([]state.Key, len(c.keys))
	copy(out, c.keys)
	return out
}

func (c *changeSet) clear() {
	c.keys = nil
	c.seen = nil
}

func settledness(f *unwind.Future) string {
	if f.Settled() {
		return "settled"
	}
	return "pending"
}

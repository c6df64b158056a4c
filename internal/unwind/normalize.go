package unwind

// Dispatcher schedules continuations onto the owning event loop.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(fn func())

// Dispatch implements Dispatcher.
func (d DispatchFunc) Dispatch(fn func()) {
	if d != nil {
		d(fn)
	}
}

// Immediate runs continuations inline on the settling goroutine. Useful for
// tests and for callers without an event loop.
var Immediate Dispatcher = DispatchFunc(func(fn func()) { fn() })

// Normalize reduces r to a single eventual value.
//
// Plain values, and sequences whose yields are all synchronous, settle the
// returned future before Normalize returns. Whenever a deferred value is
// reached the remaining work continues on a later turn of d: the sequence is
// resumed with the resolved value (or thrown the rejection) and the final
// result is itself normalized.
func Normalize(r Result, d Dispatcher) *Future {
	if d == nil {
		d = Immediate
	}
	out := NewFuture()
	n := normalizer{d: d}
	n.run(r, out.settle)
	return out
}

type normalizer struct {
	d Dispatcher
}

type settleFunc func(v any, err error) bool

func (n normalizer) run(r Result, settle settleFunc) {
	switch x := r.(type) {
	case nil:
		settle(nil, nil)
	case value:
		settle(x.v, nil)
	case deferred:
		n.await(x.f, func(v any, err error) {
			if err != nil {
				settle(nil, err)
				return
			}
			n.run(Lift(v), settle)
		})
	case resumable:
		n.step(x.r, func() (Result, bool, error) { return x.r.Resume(nil) }, settle)
	}
}

// step drives seq until it finishes or yields something that cannot settle
// synchronously.
func (n normalizer) step(seq Resumable, advance func() (Result, bool, error), settle settleFunc) {
	for {
		out, done, err := advance()
		if err != nil {
			settle(nil, err)
			return
		}
		if done {
			n.run(out, settle)
			return
		}

		yielded := Normalize(out, n.d)
		if v, err := yielded.Result(); err != ErrPending {
			advance = resumeWith(seq, v, err)
			continue
		}
		n.await(yielded, func(v any, err error) {
			n.step(seq, resumeWith(seq, v, err), settle)
		})
		return
	}
}

func resumeWith(seq Resumable, v any, err error) func() (Result, bool, error) {
	if err != nil {
		return func() (Result, bool, error) { return seq.Throw(err) }
	}
	return func() (Result, bool, error) { return seq.Resume(v) }
}

// await continues k on a later dispatcher turn, even if f already settled.
func (n normalizer) await(f *Future, k func(any, error)) {
	f.Then(func(v any, err error) {
		n.d.Dispatch(func() { k(v, err) })
	})
}

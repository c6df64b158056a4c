package unwind

// Result is the closed set of values a component may return: a plain value,
// a deferred value (Future) or a resumable sequence.
//
// The interface is sealed; construct results with Value, Defer and Sequence.
type Result interface {
	result()
}

type value struct {
	v any
}

type deferred struct {
	f *Future
}

type resumable struct {
	r Resumable
}

func (value) result()     {}
func (deferred) result()  {}
func (resumable) result() {}

// Value wraps a plain value.
func Value(v any) Result {
	return value{v: v}
}

// Defer wraps a deferred value. A nil future normalizes to a nil value.
func Defer(f *Future) Result {
	if f == nil {
		return value{}
	}
	return deferred{f: f}
}

// Sequence wraps a resumable sequence. A nil sequence normalizes to a nil value.
func Sequence(r Resumable) Result {
	if r == nil {
		return value{}
	}
	return resumable{r: r}
}

// Lift turns an arbitrary value into a Result: Results pass through, futures
// and resumables are wrapped, anything else becomes a Value.
func Lift(v any) Result {
	switch x := v.(type) {
	case nil:
		return value{}
	case Result:
		return x
	case *Future:
		return Defer(x)
	case Resumable:
		return Sequence(x)
	default:
		return Value(x)
	}
}

// Now reports the value of r when it is available without normalization.
func Now(r Result) (any, bool) {
	switch x := r.(type) {
	case nil:
		return nil, true
	case value:
		return x.v, true
	case deferred:
		if v, err := x.f.Result(); err == nil {
			return v, true
		}
	}
	return nil, false
}

// Kind names the variant of r, for logs and journals.
func Kind(r Result) string {
	switch r.(type) {
	case nil, value:
		return "value"
	case deferred:
		return "deferred"
	case resumable:
		return "resumable"
	default:
		return "unknown"
	}
}

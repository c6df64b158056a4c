package engine

import "github.com/roach88/strata/internal/state"

// Change describes the store change delivered to a listener.
type Change struct {
	// Key is the key that changed.
	Key state.Key

	// Value is the key's current value when the listener was subscribed to
	// Key itself; nil for wildcard deliveries.
	Value any

	// Any is set when the listener matched through the wildcard, or when the
	// change itself was a wildcard (a whole-store merge).
	Any bool
}

// Listener reacts to a change. Listeners are one-shot: the registration is
// removed before the call, and a non-nil return value is registered in its
// place on the key that matched. Returning the listener itself keeps it
// subscribed; returning a different function chains a cleanup.
type Listener func(c Change) Listener

type subscription struct {
	key state.Key
	fn  Listener
}

// registry holds a layer's listeners in subscription order.
type registry struct {
	subs []*subscription
}

func (r *registry) add(key state.Key, fn Listener) *subscription {
	s := &subscription{key: key, fn: fn}
	r.subs = append(r.subs, s)
	return s
}

func (r *registry) remove(s *subscription) bool {
	for i, x := range r.subs {
		if x == s {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return true
		}
	}
	return false
}

// match returns the subscriptions that should hear key, in subscription
// order. Wildcard subscriptions are included when wildcard is set.
func (r *registry) match(key state.Key, wildcard bool) []*subscription {
	var out []*subscription
	for _, s := range r.subs {
		if s.key == key || (wildcard && s.key == state.Wildcard) {
			out = append(out, s)
		}
	}
	return out
}

func (r *registry) len() int {
	return len(r.subs)
}

// EmitOption configures Emit.
type EmitOption func(*emitConfig)

type emitConfig struct {
	wildcard bool
}

// ExactOnly skips wildcard listeners.
func ExactOnly() EmitOption {
	return func(c *emitConfig) {
		c.wildcard = false
	}
}

// Subscribe registers fn for key on this layer. Use state.Wildcard to hear
// every key.
func (l *Layer) Subscribe(key state.Key, fn Listener) {
	if fn == nil {
		return
	}
	l.listeners.add(key, fn)
}

// Listeners returns the number of registered listeners.
func (l *Layer) Listeners() int {
	return l.listeners.len()
}

// Emit notifies the listeners of key, then wildcard listeners unless
// ExactOnly is given. Each matched registration is removed before its
// listener runs; a returned listener is registered on the key that matched.
// Listeners registered during the emission are not called by it.
func (l *Layer) Emit(key state.Key, value any, opts ...EmitOption) {
	cfg := emitConfig{wildcard: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	for _, s := range l.listeners.match(key, cfg.wildcard) {
		if !l.listeners.remove(s) {
			// Removed by an earlier listener in this emission.
			continue
		}
		c := Change{Key: key}
		if s.key == key && key != state.Wildcard {
			c.Value = value
		} else {
			c.Any = true
		}

		l.rt.metrics.emit()
		l.rt.record(KindEmit, l, key, "")
		if next := s.fn(c); next != nil {
			l.listeners.add(s.key, next)
		}
	}
}

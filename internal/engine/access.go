package engine

import (
	"github.com/roach88/strata/internal/state"
)

// ReadStore reads key from the innermost resolving layer.
//
// A "$"-prefixed key reads the bare key from that layer's own store only;
// other keys fall through to ancestors. When the key is absent and initial
// is given, initial is assigned to the layer's own store and recorded as a
// change. The returned setter writes to the layer that owns the key.
//
// Panics with a *MisuseError when no layer is resolving.
func (rt *Runtime) ReadStore(key state.Key, initial ...any) (any, Setter) {
	l := rt.mustCurrent("read store")

	if state.IsLocal(key) {
		bare := state.Bare(key)
		if !l.store.HasOwn(bare) && len(initial) > 0 {
			l.store.Set(bare, initial[0])
			l.changes.add(bare)
		}
		v, _ := l.store.Own(bare)
		return v, l.setter(key)
	}

	if !l.store.Has(key) && len(initial) > 0 {
		l.store.Set(key, initial[0])
		l.changes.add(key)
	}
	v, _ := l.store.Get(key)
	return v, l.owner(key).setter(key)
}

// ReadStoreAll returns the innermost resolving layer's store and a setter
// merging into it.
func (rt *Runtime) ReadStoreAll() (*state.Store, MergeSetter) {
	l := rt.mustCurrent("read store")
	return l.store, l.Merge
}

// Watch subscribes fn to key on the nearest resolving layer, starting with
// the innermost, that owns it. A "$"-prefixed key only considers the
// innermost layer. If the owning layer has never finished a resolve, key is
// marked changed so fn fires at the end of the current cycle.
//
// Watching a key nobody owns registers nothing.
func (rt *Runtime) Watch(key state.Key, fn Listener) {
	l := rt.mustCurrent("watch")
	if fn == nil {
		return
	}

	target, key := rt.watchTarget(l, key)
	if target == nil {
		rt.logger.Debug("watch on unowned key ignored", "layer", l.id, "key", key)
		return
	}

	target.Subscribe(key, fn)
	if target.fresh {
		target.changes.add(key)
	}
}

// watchTarget finds the layer a watch on key subscribes to, and the key as
// stored there.
func (rt *Runtime) watchTarget(l *Layer, key state.Key) (*Layer, state.Key) {
	if state.IsLocal(key) {
		key = state.Bare(key)
		if l.store.HasOwn(key) {
			return l, key
		}
		return nil, key
	}
	for _, x := range rt.Stack() {
		if x.store.HasOwn(key) {
			return x, key
		}
	}
	return nil, key
}

// WatchAll subscribes fn to every change on every resolving layer.
func (rt *Runtime) WatchAll(fn Listener) {
	rt.mustCurrent("watch")
	if fn == nil {
		return
	}
	for _, l := range rt.stack {
		l.Subscribe(state.Wildcard, fn)
	}
}

// WatchKeys subscribes to each of keys. Whenever one changes, fn receives
// the current values of all keys, each read from the layer that owned it
// when WatchKeys was called, and its return value becomes the next listener
// for that key.
func (rt *Runtime) WatchKeys(keys []state.Key, fn func(values []any) Listener) {
	l := rt.mustCurrent("watch")
	if fn == nil {
		return
	}
	keys = append([]state.Key(nil), keys...)
	owners := make([]*Layer, len(keys))
	bare := make([]state.Key, len(keys))
	for i, k := range keys {
		owners[i], bare[i] = rt.watchTarget(l, k)
	}
	read := func() []any {
		values := make([]any, len(keys))
		for i, o := range owners {
			if o != nil {
				values[i], _ = o.store.Own(bare[i])
			}
		}
		return values
	}
	for _, k := range keys {
		rt.Watch(k, func(Change) Listener {
			return fn(read())
		})
	}
}

// Use returns a layer for component c.
//
// With no layer resolving, Use constructs a root layer whose store holds
// ext. Inside a render it returns a child of the innermost layer, keyed by
// ext["key"] or by its position among the siblings rendered from c. A child
// with the same component and key from the previous cycle is reused and
// given args and ext; otherwise a new child is constructed with a store
// chained to the parent's.
//
// Panics with a *MisuseError when c is nil or the key is not comparable.
func (rt *Runtime) Use(c *Component, ext map[state.Key]any, args ...any) *Layer {
	if c == nil {
		panic(misuse("use", "component is nil"))
	}
	key, explicit := ext["key"]
	comparableKey(key)

	parent := rt.top()
	if parent == nil {
		return rt.newLayer(c, key, nil, ext, args)
	}

	if !explicit {
		key = parent.children.count(c)
	}
	if child := parent.pool.take(c, key); child != nil {
		child.Assign(ext, args)
		parent.children.add(child)
		return child
	}

	child := rt.newLayer(c, key, parent, ext, args)
	parent.children.add(child)
	return child
}

func (rt *Runtime) newLayer(c *Component, key any, parent *Layer, ext map[state.Key]any, args []any) *Layer {
	var parentStore *state.Store
	if parent != nil {
		parentStore = parent.store
	}
	l := &Layer{
		rt:        rt,
		id:        rt.ids.Generate(),
		key:       key,
		component: c,
		args:      append([]any(nil), args...),
		store:     state.FromMap(parentStore, ext),
		ancestors: rt.Stack(),
		fresh:     true,
	}
	rt.metrics.layer()
	rt.logger.Debug("layer created",
		"layer", l.id,
		"component", c.Name(),
		"key", key,
		"depth", len(l.ancestors))
	return l
}

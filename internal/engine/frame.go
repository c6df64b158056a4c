package engine

import "github.com/roach88/strata/internal/state"

// Frame is the handle a render function uses to reach its layer. Its
// methods are only valid while that layer is the innermost resolving layer;
// calling them at any other time panics with a *MisuseError.
type Frame struct {
	rt    *Runtime
	layer *Layer
}

// Layer returns the layer being rendered.
func (f *Frame) Layer() *Layer {
	return f.layer
}

// Runtime returns the owning runtime.
func (f *Frame) Runtime() *Runtime {
	return f.rt
}

// Key returns the layer's key among its siblings.
func (f *Frame) Key() any {
	return f.layer.key
}

// Args returns the layer's current arguments.
func (f *Frame) Args() []any {
	return f.layer.Args()
}

// Arg returns argument i, or nil when out of range.
func (f *Frame) Arg(i int) any {
	if i < 0 || i >= len(f.layer.args) {
		return nil
	}
	return f.layer.args[i]
}

// Attempt returns the 1-based render attempt within the current resolve.
func (f *Frame) Attempt() int {
	return f.layer.attempts
}

func (f *Frame) check(op string) {
	if f.rt.top() != f.layer {
		panic(misuse(op, "frame of layer "+f.layer.id+" used outside its render"))
	}
}

// Store reads key, assigning initial if the key is absent.
// See Runtime.ReadStore.
func (f *Frame) Store(key state.Key, initial ...any) (any, Setter) {
	f.check("read store")
	return f.rt.ReadStore(key, initial...)
}

// StoreAll returns the layer's store and a merging setter.
func (f *Frame) StoreAll() (*state.Store, MergeSetter) {
	f.check("read store")
	return f.rt.ReadStoreAll()
}

// Watch subscribes fn to changes of key on its owning layer.
func (f *Frame) Watch(key state.Key, fn Listener) {
	f.check("watch")
	f.rt.Watch(key, fn)
}

// WatchAll subscribes fn to every change on every resolving layer.
func (f *Frame) WatchAll(fn Listener) {
	f.check("watch")
	f.rt.WatchAll(fn)
}

// WatchKeys subscribes fn to changes of any of keys.
func (f *Frame) WatchKeys(keys []state.Key, fn func(values []any) Listener) {
	f.check("watch")
	f.rt.WatchKeys(keys, fn)
}

// Use constructs or reuses a child layer. See Runtime.Use.
func (f *Frame) Use(c *Component, ext map[state.Key]any, args ...any) *Layer {
	f.check("use")
	return f.rt.Use(c, ext, args...)
}

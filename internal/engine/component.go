package engine

import "github.com/roach88/strata/internal/unwind"

// RenderFunc computes a layer's result. It may read and write the layer's
// store, register watchers and construct children through the frame.
type RenderFunc func(f *Frame) (unwind.Result, error)

// Component is a named render function. The *Component pointer is the
// identity used to pool child layers across cycles, so define components
// once (typically as package variables) rather than per render.
type Component struct {
	name   string
	render RenderFunc
}

// Define creates a component. Panics if render is nil.
func Define(name string, render RenderFunc) *Component {
	if render == nil {
		panic(misuse("define", "render function is nil"))
	}
	if name == "" {
		name = "anonymous"
	}
	return &Component{name: name, render: render}
}

// DefineValue creates a component whose render returns a plain value, or a
// *unwind.Future / unwind.Resumable which is lifted into the matching result.
func DefineValue(name string, render func(f *Frame) (any, error)) *Component {
	if render == nil {
		panic(misuse("define", "render function is nil"))
	}
	return Define(name, func(f *Frame) (unwind.Result, error) {
		v, err := render(f)
		if err != nil {
			return nil, err
		}
		return unwind.Lift(v), nil
	})
}

// Name returns the component's name.
func (c *Component) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Package demo provides reference components exercising the runtime: watched
// state, keyed lists, self-updating counters, ancestor cancellation and
// deferred sequences. Scenarios and the CLI look them up by name.
package demo

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/strata/internal/engine"
	"github.com/roach88/strata/internal/unwind"
)

// Log collects side effects of demo watchers in order.
type Log struct {
	mu     sync.Mutex
	events []string
}

func (l *Log) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

// Events returns a copy of the logged events.
func (l *Log) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

// Catalog holds one instance of every demo component. Components are pooled
// by identity, so a scenario must look them up from a single catalog.
type Catalog struct {
	log        *Log
	components map[string]*engine.Component
}

// NewCatalog builds the demo components.
func NewCatalog() *Catalog {
	c := &Catalog{log: &Log{}}
	item := c.item()
	swatch := c.swatch()
	c.components = map[string]*engine.Component{
		"mood":    c.mood(),
		"item":    item,
		"list":    c.list(item),
		"counter": c.counter(),
		"swatch":  swatch,
		"theme":   c.theme(swatch),
		"later":   c.later(),
	}
	return c
}

// Lookup returns the named component.
func (c *Catalog) Lookup(name string) (*engine.Component, bool) {
	comp, ok := c.components[name]
	return comp, ok
}

// Names lists the component names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.components))
	for name := range c.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Log returns the catalog's watcher log.
func (c *Catalog) Log() *Log {
	return c.log
}

// mood keeps "mood" (default "sad") and logs every change through a watcher
// whose cleanup runs before the next handler.
func (c *Catalog) mood() *engine.Component {
	return engine.DefineValue("mood", func(f *engine.Frame) (any, error) {
		m, _ := f.Store("mood", "sad")
		f.Watch("mood", func(ch engine.Change) engine.Listener {
			seen := ch.Value
			c.log.add("mood:%v", seen)
			return func(engine.Change) engine.Listener {
				c.log.add("cleanup:%v", seen)
				return nil
			}
		})
		return m, nil
	})
}

// item keeps a local label seeded from its key.
func (c *Catalog) item() *engine.Component {
	return engine.DefineValue("item", func(f *engine.Frame) (any, error) {
		label, _ := f.Store("$label", fmt.Sprintf("item-%v", f.Key()))
		return label, nil
	})
}

// list renders one keyed item per entry of "items".
func (c *Catalog) list(item *engine.Component) *engine.Component {
	return engine.DefineValue("list", func(f *engine.Frame) (any, error) {
		raw, _ := f.Store("items", []any{})
		keys, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("list: items must be a list, got %T", raw)
		}
		labels := make([]any, 0, len(keys))
		for _, k := range keys {
			fut, err := f.Use(item, map[string]any{"key": k}).Resolve()
			if err != nil {
				return nil, err
			}
			v, err := fut.Result()
			if err != nil {
				return nil, err
			}
			labels = append(labels, v)
		}
		return labels, nil
	})
}

// counter increments its local "count" until it reaches "target", one
// interrupted render per step.
func (c *Catalog) counter() *engine.Component {
	return engine.DefineValue("counter", func(f *engine.Frame) (any, error) {
		target, _ := f.Store("target", 0)
		count, set := f.Store("$count", 0)
		n, limit := toInt(count), toInt(target)
		if n < limit {
			return nil, set(n + 1)
		}
		return n, nil
	})
}

// swatch forces an inherited "light" theme to "dark", cancelling its own
// render in favour of the owner's.
func (c *Catalog) swatch() *engine.Component {
	return engine.DefineValue("swatch", func(f *engine.Frame) (any, error) {
		theme, setTheme := f.Store("theme")
		if theme == "light" {
			if err := setTheme("dark"); err != nil {
				return nil, err
			}
		}
		return fmt.Sprintf("swatch:%v", theme), nil
	})
}

// theme owns "theme" and renders a swatch.
func (c *Catalog) theme(swatch *engine.Component) *engine.Component {
	return engine.DefineValue("theme", func(f *engine.Frame) (any, error) {
		theme, _ := f.Store("theme", "light")
		fut, err := f.Use(swatch, nil).Resolve()
		if err != nil {
			return nil, err
		}
		v, err := fut.Result()
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("%v/%v", theme, v), nil
	})
}

// later yields its "message" through a deferred value before returning it.
func (c *Catalog) later() *engine.Component {
	return engine.Define("later", func(f *engine.Frame) (unwind.Result, error) {
		msg, _ := f.Store("message", "hello")
		return unwind.Sequence(unwind.Steps(
			func(any, error) (unwind.Result, error) {
				return unwind.Defer(unwind.Settled(msg)), nil
			},
			func(in any, err error) (unwind.Result, error) {
				if err != nil {
					return nil, err
				}
				return unwind.Value(fmt.Sprintf("later:%v", in)), nil
			},
		)), nil
	})
}

// toInt accepts the integer shapes YAML and JSON decoding produce.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

package engine

import (
	"fmt"
	"reflect"
)

// poolKey identifies a child across cycles: the component that produced it
// and its key among that component's siblings.
type poolKey struct {
	component *Component
	key       any
}

// pool holds the children produced by a layer's previous cycle.
type pool struct {
	entries map[poolKey]*Layer
}

func (p *pool) take(c *Component, key any) *Layer {
	k := poolKey{component: c, key: key}
	l, ok := p.entries[k]
	if !ok {
		return nil
	}
	delete(p.entries, k)
	return l
}

// fill replaces the pool with children.
func (p *pool) fill(children *childSet) {
	p.entries = make(map[poolKey]*Layer, len(children.order))
	p.absorb(children)
}

// absorb adds children to the pool, keeping any entries not yet taken.
func (p *pool) absorb(children *childSet) {
	if p.entries == nil {
		p.entries = make(map[poolKey]*Layer, len(children.order))
	}
	for _, c := range children.order {
		p.entries[poolKey{component: c.component, key: c.key}] = c
	}
}

// childSet records the children constructed during one render attempt, in
// order, with a per-component count used for positional keys.
type childSet struct {
	order  []*Layer
	counts map[*Component]int
}

func (s *childSet) add(l *Layer) {
	if s.counts == nil {
		s.counts = make(map[*Component]int)
	}
	s.order = append(s.order, l)
	s.counts[l.component]++
}

func (s *childSet) count(c *Component) int {
	return s.counts[c]
}

func (s *childSet) reset() {
	s.order = nil
	s.counts = nil
}

// comparableKey panics if key cannot be used as a map key.
func comparableKey(key any) {
	if key == nil {
		return
	}
	if !reflect.TypeOf(key).Comparable() {
		panic(misuse("use", fmt.Sprintf("key of type %T is not comparable", key)))
	}
}

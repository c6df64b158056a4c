package state

import (
	"sort"
	"strings"
)

// Key names a store entry.
//
// Keys beginning with a NUL byte are reserved for engine markers (see
// Wildcard and Resolved) and never collide with caller keys.
type Key = string

const (
	// Wildcard is the "any change" marker used in subscriptions and change sets.
	Wildcard Key = "\x00*"

	// Resolved is the completion signal emitted after an asynchronous re-resolve.
	Resolved Key = "\x00resolved"

	// LocalSigil prefixes a key to force local-only access: lookups and writes
	// bypass the parent chain and operate on the owning store only.
	LocalSigil = "$"
)

// IsReserved reports whether key is an engine marker.
func IsReserved(key Key) bool {
	return strings.HasPrefix(key, "\x00")
}

// IsLocal reports whether key carries the local-only sigil.
func IsLocal(key Key) bool {
	return len(key) > len(LocalSigil) && strings.HasPrefix(key, LocalSigil)
}

// Bare strips the local-only sigil, if present.
func Bare(key Key) Key {
	if IsLocal(key) {
		return key[len(LocalSigil):]
	}
	return key
}

// Store is a mutable key/value container whose failed lookups fall through to
// a parent store.
//
// INVARIANTS:
//   - Own keys shadow inherited keys permanently; Get never consults the parent
//     for a key present in own.
//   - A Store never writes to its parent. Set, Merge and Delete touch own only.
//
// Store is not safe for concurrent use; the engine accesses stores from its
// single runtime goroutine.
type Store struct {
	parent *Store
	own    map[Key]any
	order  []Key
}

// New creates a store chained to parent. A nil parent creates a root store.
func New(parent *Store) *Store {
	return &Store{
		parent: parent,
		own:    make(map[Key]any),
	}
}

// FromMap creates a store chained to parent seeded with the entries of values.
func FromMap(parent *Store, values map[Key]any) *Store {
	s := New(parent)
	s.Merge(values)
	return s
}

// Parent returns the store this one inherits from, or nil for a root store.
func (s *Store) Parent() *Store {
	if s == nil {
		return nil
	}
	return s.parent
}

// Get looks key up in own entries, then along the parent chain.
func (s *Store) Get(key Key) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.own[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Own looks key up in own entries only.
func (s *Store) Own(key Key) (any, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.own[key]
	return v, ok
}

// Has reports whether key resolves anywhere in the chain.
func (s *Store) Has(key Key) bool {
	_, ok := s.Get(key)
	return ok
}

// HasOwn reports whether key is an own entry.
func (s *Store) HasOwn(key Key) bool {
	if s == nil {
		return false
	}
	_, ok := s.own[key]
	return ok
}

// Owner returns the nearest store in the chain (starting at s) that owns key.
func (s *Store) Owner(key Key) *Store {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.own[key]; ok {
			return cur
		}
	}
	return nil
}

// Set writes key as an own entry.
func (s *Store) Set(key Key, value any) {
	if _, ok := s.own[key]; !ok {
		s.order = append(s.order, key)
	}
	s.own[key] = value
}

// Merge writes every entry of values as an own entry. Keys are applied in
// sorted order so insertion order stays deterministic.
func (s *Store) Merge(values map[Key]any) {
	if len(values) == 0 {
		return
	}
	keys := make([]Key, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Set(k, values[k])
	}
}

// Delete removes an own entry, uncovering any inherited value.
func (s *Store) Delete(key Key) {
	if _, ok := s.own[key]; !ok {
		return
	}
	delete(s.own, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Keys returns own keys in insertion order.
func (s *Store) Keys() []Key {
	if s == nil {
		return nil
	}
	out := make([]Key, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of own entries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.own)
}

// OwnMap returns a copy of the own entries.
func (s *Store) OwnMap() map[Key]any {
	out := make(map[Key]any, s.Len())
	if s == nil {
		return out
	}
	for k, v := range s.own {
		out[k] = v
	}
	return out
}

// Flatten returns the effective view of the chain: every key visible from s,
// with own entries shadowing inherited ones.
func (s *Store) Flatten() map[Key]any {
	var chain []*Store
	for cur := s; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}
	out := make(map[Key]any)
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].own {
			out[k] = v
		}
	}
	return out
}

// Depth returns the number of stores above s in its chain.
func (s *Store) Depth() int {
	n := 0
	for cur := s.Parent(); cur != nil; cur = cur.parent {
		n++
	}
	return n
}

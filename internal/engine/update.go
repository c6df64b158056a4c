package engine

import (
	"fmt"
	"sort"

	"github.com/roach88/strata/internal/state"
)

// Setter writes a value. It returns ErrInterrupted or ErrCancelled when the
// write lands on a render in flight; render functions should return that
// error unchanged.
type Setter func(value any) error

// MergeSetter merges values into a store as a single wildcard change.
type MergeSetter func(values map[state.Key]any) error

// Update writes key and schedules the consequences.
//
// A "$"-prefixed key always writes the bare key into this layer's own store.
// Otherwise the write goes to the nearest layer (this one, then its
// ancestors) that owns key, or to this layer when none does.
//
// When the target layer is idle it is resolved in full before Update
// returns. When it is rendering the render is interrupted or re-queued, and
// any rendering descendant is cancelled.
func (l *Layer) Update(key state.Key, value any) error {
	if state.IsLocal(key) {
		l.rt.metrics.update("local")
		return l.write(state.Bare(key), value)
	}
	owner := l.owner(key)
	if owner != l {
		l.rt.metrics.update("ancestor")
	} else {
		l.rt.metrics.update("own")
	}
	return owner.write(key, value)
}

// Merge writes every entry of values into this layer's own store and records
// a single wildcard change.
func (l *Layer) Merge(values map[state.Key]any) error {
	l.store.Merge(values)
	l.changes.add(state.Wildcard)
	l.rt.metrics.update("merge")
	l.rt.record(KindUpdate, l, state.Wildcard, fmt.Sprintf("keys=%v", sortedKeys(values)))
	return l.propagate()
}

func (l *Layer) setter(key state.Key) Setter {
	return func(value any) error {
		return l.Update(key, value)
	}
}

// owner returns the nearest layer owning key, or l itself.
func (l *Layer) owner(key state.Key) *Layer {
	if l.store.HasOwn(key) {
		return l
	}
	for _, a := range l.ancestors {
		if a.store.HasOwn(key) {
			return a
		}
	}
	return l
}

func (l *Layer) write(key state.Key, value any) error {
	l.store.Set(key, value)
	l.changes.add(key)
	l.rt.record(KindUpdate, l, key, "")
	return l.propagate()
}

// propagate schedules the consequences of a change to l's store.
func (l *Layer) propagate() error {
	top := l.rt.top()

	if l.resolving {
		if l.rendering && top == l {
			return l.raise(outcomeInterrupted)
		}
		l.queued = true
		l.rt.record(KindQueued, l, "", "")
		if top != nil && top != l && top.rendering && top.descendsFrom(l) {
			return top.raise(outcomeCancelled)
		}
		return nil
	}

	fut, err := l.Resolve()
	if err != nil || fut.Settled() {
		// Pending results are delivered by Resolve when they settle.
		l.deliver(fut, err)
	}
	if top != nil && top.rendering && top.descendsFrom(l) {
		return top.raise(outcomeCancelled)
	}
	return err
}

func sortedKeys(values map[state.Key]any) []state.Key {
	keys := make([]state.Key, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

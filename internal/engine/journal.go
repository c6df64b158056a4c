package engine

import (
	"fmt"

	"github.com/roach88/strata/internal/state"
)

// EntryKind classifies journal entries.
type EntryKind string

const (
	KindResolve   EntryKind = "resolve"
	KindAttempt   EntryKind = "attempt"
	KindInterrupt EntryKind = "interrupt"
	KindCancel    EntryKind = "cancel"
	KindQueued    EntryKind = "queued"
	KindComplete  EntryKind = "complete"
	KindFailed    EntryKind = "failed"
	KindUpdate    EntryKind = "update"
	KindEmit      EntryKind = "emit"
)

// Entry is one step of runtime activity, stamped with a logical sequence
// number.
type Entry struct {
	Seq       int64     `json:"seq"`
	Kind      EntryKind `json:"kind"`
	LayerID   string    `json:"layer_id"`
	Component string    `json:"component"`
	Key       string    `json:"key,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// String renders the entry on one line for trace output.
func (e Entry) String() string {
	s := fmt.Sprintf("%04d %-9s %s(%s)", e.Seq, e.Kind, e.Component, e.LayerID)
	if e.Key != "" {
		s += " key=" + e.Key
	}
	if e.Detail != "" {
		s += " " + e.Detail
	}
	return s
}

// Journal receives runtime activity. Record is called on the runtime
// goroutine; errors are logged and otherwise ignored.
type Journal interface {
	Record(e Entry) error
}

// JournalFunc adapts a function to Journal.
type JournalFunc func(e Entry) error

// Record implements Journal.
func (f JournalFunc) Record(e Entry) error {
	return f(e)
}

// MemoryJournal keeps entries in memory. Not safe for concurrent use; the
// runtime only records from its own goroutine.
type MemoryJournal struct {
	entries []Entry
}

// Record implements Journal.
func (m *MemoryJournal) Record(e Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

// Entries returns a copy of the recorded entries.
func (m *MemoryJournal) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Count returns the number of recorded entries of the given kind.
func (m *MemoryJournal) Count(kind EntryKind) int {
	n := 0
	for _, e := range m.entries {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// keyLabel renders reserved keys readably.
func keyLabel(key state.Key) string {
	switch key {
	case state.Wildcard:
		return "*"
	case state.Resolved:
		return "resolved"
	}
	return key
}

func (rt *Runtime) record(kind EntryKind, l *Layer, key state.Key, detail string) {
	if rt.journal == nil {
		return
	}
	e := Entry{
		Seq:       rt.clock.Next(),
		Kind:      kind,
		LayerID:   l.id,
		Component: l.component.Name(),
		Key:       keyLabel(key),
		Detail:    detail,
	}
	if err := rt.journal.Record(e); err != nil {
		rt.logger.Warn("journal record failed",
			"kind", kind,
			"layer", l.id,
			"error", err)
	}
}

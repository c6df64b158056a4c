package engine

// Snapshot is a plain-data view of a layer tree, suitable for canonical
// encoding and golden comparison. Layer IDs are omitted so snapshots are
// stable across runs.
type Snapshot struct {
	Component string         `json:"component"`
	Key       any            `json:"key,omitempty"`
	Store     map[string]any `json:"store,omitempty"`
	Children  []Snapshot     `json:"children,omitempty"`
}

// Snap captures l and the children of its last finished resolve.
func Snap(l *Layer) Snapshot {
	s := Snapshot{
		Component: l.component.Name(),
		Key:       l.key,
	}
	if own := l.store.OwnMap(); len(own) > 0 {
		s.Store = make(map[string]any, len(own))
		for k, v := range own {
			s.Store[k] = v
		}
	}
	for _, c := range l.rendered {
		s.Children = append(s.Children, Snap(c))
	}
	return s
}

// Map converts the snapshot to nested maps and slices.
func (s Snapshot) Map() map[string]any {
	m := map[string]any{"component": s.Component}
	if s.Key != nil {
		m["key"] = s.Key
	}
	if len(s.Store) > 0 {
		m["store"] = s.Store
	}
	if len(s.Children) > 0 {
		children := make([]any, len(s.Children))
		for i, c := range s.Children {
			children[i] = c.Map()
		}
		m["children"] = children
	}
	return m
}

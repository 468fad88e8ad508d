package leaflet

// Snapshot is the serializable form of an entity subtree. It is what the
// remote side receives to construct entities and what the store persists.
// Parent links are never part of it.
type Snapshot struct {
	ID       string     `json:"id" yaml:"id"`
	Kind     string     `json:"kind" yaml:"kind"`
	State    any        `json:"state,omitempty" yaml:"state,omitempty"`
	Events   []string   `json:"events,omitempty" yaml:"events,omitempty"`
	Popup    *Snapshot  `json:"popup,omitempty" yaml:"popup,omitempty"`
	Tooltip  *Snapshot  `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
	Children []Snapshot `json:"children,omitempty" yaml:"children,omitempty"`
	Controls []Snapshot `json:"controls,omitempty" yaml:"controls,omitempty"`
}

// Count returns the number of entities in the snapshot, itself included.
func (s Snapshot) Count() int {
	n := 1
	if s.Popup != nil {
		n += s.Popup.Count()
	}
	if s.Tooltip != nil {
		n += s.Tooltip.Count()
	}
	for _, c := range s.Children {
		n += c.Count()
	}
	for _, c := range s.Controls {
		n += c.Count()
	}
	return n
}

// Find returns the snapshot of the entity with id, searching depth-first.
func (s *Snapshot) Find(id string) (*Snapshot, bool) {
	if s.ID == id {
		return s, true
	}
	for _, sub := range []*Snapshot{s.Popup, s.Tooltip} {
		if sub != nil {
			if found, ok := sub.Find(id); ok {
				return found, true
			}
		}
	}
	for i := range s.Children {
		if found, ok := s.Children[i].Find(id); ok {
			return found, true
		}
	}
	for i := range s.Controls {
		if found, ok := s.Controls[i].Find(id); ok {
			return found, true
		}
	}
	return nil, false
}

// Kinds counts the entities of each kind in the snapshot.
func (s Snapshot) Kinds() map[string]int {
	out := map[string]int{}
	s.walk(func(n *Snapshot) { out[n.Kind]++ })
	return out
}

func (s *Snapshot) walk(fn func(*Snapshot)) {
	fn(s)
	if s.Popup != nil {
		s.Popup.walk(fn)
	}
	if s.Tooltip != nil {
		s.Tooltip.walk(fn)
	}
	for i := range s.Children {
		s.Children[i].walk(fn)
	}
	for i := range s.Controls {
		s.Controls[i].walk(fn)
	}
}

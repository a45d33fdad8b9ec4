package marker

import (
	"sort"
)

// Set maps marker IDs to markers within one category
type Set map[string]*Marker

// NewSet creates an empty set
func NewSet() Set {
	return make(Set)
}

// Add stores a marker under its ID, replacing any previous marker with that ID
func (s Set) Add(m *Marker) {
	s[m.ID] = m
}

// Merge copies all markers from other into s. Markers from other win on ID collision.
func (s Set) Merge(other Set) {
	for id, m := range other {
		s[id] = m
	}
}

// IDs returns the marker IDs in sorted order
func (s Set) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sorted returns the markers ordered by ID
func (s Set) Sorted() []*Marker {
	out := make([]*Marker, 0, len(s))
	for _, id := range s.IDs() {
		out = append(out, s[id])
	}
	return out
}

// Clone returns a shallow copy of the set. Markers are shared; they are not mutated
// after construction.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for id, m := range s {
		c[id] = m
	}
	return c
}

// Delta contains the map operations needed to move from one set to the next
type Delta struct {
	Removed []string // IDs present before and gone now
	Updated Set      // markers that are new or changed, under their published IDs
}

// Empty reports whether the delta carries no operations
func (d *Delta) Empty() bool {
	return len(d.Removed) == 0 && len(d.Updated) == 0
}

// Diff compares the previously published set against the current one
func Diff(previous, current Set) *Delta {
	delta := &Delta{
		Removed: make([]string, 0),
		Updated: NewSet(),
	}

	for _, id := range previous.IDs() {
		if _, exists := current[id]; !exists {
			delta.Removed = append(delta.Removed, id)
		}
	}

	for _, id := range current.IDs() {
		m := current[id]
		if prev, exists := previous[id]; exists && prev.Equal(m) {
			continue
		}
		delta.Updated[id] = m
	}

	return delta
}

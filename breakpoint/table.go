package breakpoint

import (
	"sort"

	"github.com/brentp/clipsv/clip"
)

// Handle indexes a breakpoint in a Table.
type Handle int

type slot struct {
	pos  int
	side clip.Side
}

// Table stores the resolved breakpoints of one chromosome. Clusters and the
// pairing code refer to entries by Handle.
type Table struct {
	Reference string
	items     []Resolved
	index     map[slot]Handle
}

// NewTable returns an empty table for reference.
func NewTable(reference string) *Table {
	return &Table{Reference: reference, index: make(map[slot]Handle)}
}

// Add stores a copy of r. Adding the same (position, side) again replaces the
// stored value and returns the existing handle.
func (t *Table) Add(r *Resolved) Handle {
	k := slot{r.Position, r.Side}
	if h, ok := t.index[k]; ok {
		t.items[h] = *r
		return h
	}
	h := Handle(len(t.items))
	t.items = append(t.items, *r)
	t.index[k] = h
	return h
}

// Get returns a copy of the breakpoint at h.
func (t *Table) Get(h Handle) Resolved { return t.items[h] }

// Lookup finds the breakpoint at pos and side.
func (t *Table) Lookup(pos int, side clip.Side) (Handle, bool) {
	h, ok := t.index[slot{pos, side}]
	return h, ok
}

func (t *Table) Len() int { return len(t.items) }

// Handles returns every handle ordered by position then side.
func (t *Table) Handles() []Handle {
	hs := make([]Handle, len(t.items))
	for i := range hs {
		hs[i] = Handle(i)
	}
	sort.Slice(hs, func(i, j int) bool {
		a, b := t.items[hs[i]], t.items[hs[j]]
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.Side < b.Side
	})
	return hs
}

// Package cluster joins resolved breakpoints into typed structural variant
// candidates.
package cluster

import (
	"github.com/brentp/clipsv/breakpoint"
	"github.com/brentp/clipsv/clip"
)

// Type is the mutation type of a cluster.
type Type string

const (
	Deletion      Type = "DEL/ITX"
	Duplication   Type = "DUP/INS/ITX"
	Inversion     Type = "INV/ITX"
	Translocation Type = "CTX"
	Intra         Type = "ITX"
)

// Orientation records how the flanks of a two sided event are arranged. It
// decides which flank is reverse complemented or swapped when looking for
// microhomology and non-template bases.
type Orientation uint8

const (
	OrientNone Orientation = iota
	OrientDeletion
	OrientDuplication
	OrientInversionLeft
	OrientInversionRight
)

func (o Orientation) String() string {
	switch o {
	case OrientDeletion:
		return "deletion"
	case OrientDuplication:
		return "duplication"
	case OrientInversionLeft:
		return "inversion-left"
	case OrientInversionRight:
		return "inversion-right"
	}
	return "none"
}

// Untested is returned for sequences that cannot be derived from a single
// breakpoint.
const Untested = "not tested"

// Cluster is one or two resolved breakpoints. All exported fields are derived
// from the wrapped breakpoints when the cluster is built.
type Cluster struct {
	bps [2]breakpoint.Resolved
	// orphan clusters have one breakpoint; swapped puts its own fields on the
	// right.
	orphan  bool
	swapped bool

	HasMatchingBreakpoints bool

	LeftReference   string
	LeftBreakpoint  int
	LeftStrand      clip.Strand
	RightReference  string
	RightBreakpoint int
	RightStrand     clip.Strand

	Type        Type
	Orientation Orientation
}

// NewOrphan wraps a single breakpoint. The left side is the breakpoint, the
// right side is its mate.
func NewOrphan(bp breakpoint.Resolved) Cluster {
	c := Cluster{orphan: true}
	c.bps[0] = bp
	c.derive()
	return c
}

// NewPair wraps two breakpoints whose mates point at each other.
func NewPair(left, right breakpoint.Resolved) Cluster {
	c := Cluster{HasMatchingBreakpoints: true}
	c.bps[0], c.bps[1] = left, right
	c.derive()
	return c
}

// Orphan is true for single breakpoint clusters.
func (c Cluster) Orphan() bool { return c.orphan }

// Breakpoints returns the wrapped breakpoints, left first.
func (c Cluster) Breakpoints() []breakpoint.Resolved {
	if c.orphan {
		return []breakpoint.Resolved{c.bps[0]}
	}
	return []breakpoint.Resolved{c.bps[0], c.bps[1]}
}

// Clips is the number of tumour clips over all breakpoints.
func (c Cluster) Clips() int {
	n := 0
	for _, b := range c.Breakpoints() {
		n += b.Clips
	}
	return n
}

// Germline is true if any breakpoint has normal evidence.
func (c Cluster) Germline() bool {
	for _, b := range c.Breakpoints() {
		if b.Germline {
			return true
		}
	}
	return false
}

// Rescued always reports false.
func (c Cluster) Rescued() bool { return false }

func (c *Cluster) derive() {
	if c.orphan {
		b := c.bps[0]
		own := side{b.Reference, b.Position, b.Strand}
		mate := side{b.MateReference, b.MatePosition, b.MateStrand}
		if c.swapped {
			own, mate = mate, own
		}
		c.setSides(own, mate)
		c.Type, c.Orientation = classifyOrphan(b), OrientNone
		return
	}
	l, r := c.bps[0], c.bps[1]
	c.setSides(side{l.Reference, l.Position, l.Strand}, side{r.Reference, r.Position, r.Strand})
	c.Type, c.Orientation = classifyPair(l, r)
}

type side struct {
	ref    string
	pos    int
	strand clip.Strand
}

func (c *Cluster) setSides(l, r side) {
	c.LeftReference, c.LeftBreakpoint, c.LeftStrand = l.ref, l.pos, l.strand
	c.RightReference, c.RightBreakpoint, c.RightStrand = r.ref, r.pos, r.strand
}

func agrees(b breakpoint.Resolved) bool { return b.Strand == b.MateStrand }

func classifyPair(l, r breakpoint.Resolved) (Type, Orientation) {
	sameRef := l.Reference == r.Reference
	agree := agrees(l) && agrees(r)
	lLeft, rLeft := l.Side == clip.Left, r.Side == clip.Left

	typed := func(t Type, o Orientation) (Type, Orientation) {
		if !sameRef {
			return Translocation, OrientNone
		}
		return t, o
	}
	switch {
	case agree && !lLeft && rLeft:
		return typed(Deletion, OrientDeletion)
	case agree && lLeft && !rLeft:
		return typed(Duplication, OrientDuplication)
	case !agree && lLeft == rLeft:
		if lLeft {
			return typed(Inversion, OrientInversionLeft)
		}
		return typed(Inversion, OrientInversionRight)
	}
	return Intra, OrientNone
}

func classifyOrphan(b breakpoint.Resolved) Type {
	if b.Reference != b.MateReference {
		return Translocation
	}
	if !agrees(b) {
		return Intra
	}
	if b.Side == clip.Left {
		if b.Position < b.MatePosition {
			return Duplication
		}
		return Deletion
	}
	if b.Position > b.MatePosition {
		return Duplication
	}
	return Deletion
}

func (c Cluster) outOfOrder() bool {
	if c.LeftReference != c.RightReference {
		return c.LeftReference > c.RightReference
	}
	return c.LeftBreakpoint > c.RightBreakpoint
}

// Normalize returns c with its sides ordered by reference name, then
// position. An ordered cluster is returned unchanged.
func (c Cluster) Normalize() Cluster {
	if !c.outOfOrder() {
		return c
	}
	if c.orphan {
		c.swapped = !c.swapped
	} else {
		c.bps[0], c.bps[1] = c.bps[1], c.bps[0]
	}
	c.derive()
	return c
}

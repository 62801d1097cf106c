package cluster

import (
	"github.com/brentp/clipsv/breakpoint"
	"github.com/brentp/clipsv/clip"
)

// flanks returns the reference side consensus of each breakpoint arranged in
// the order they are joined in the rearranged sequence.
func (c Cluster) flanks() (string, string) {
	l, r := c.bps[0].RefConsensus, c.bps[1].RefConsensus
	switch c.Orientation {
	case OrientDuplication:
		return r, l
	case OrientInversionLeft:
		return breakpoint.ReverseComplement(l), r
	case OrientInversionRight:
		return l, breakpoint.ReverseComplement(r)
	}
	return l, r
}

// Microhomology is the longest suffix of the left flank that is also a prefix
// of the right flank.
func (c Cluster) Microhomology() string {
	if !c.HasMatchingBreakpoints {
		return Untested
	}
	left, right := c.flanks()
	max := len(left)
	if len(right) < max {
		max = len(right)
	}
	for k := max; k > 0; k-- {
		if left[len(left)-k:] == right[:k] {
			return left[len(left)-k:]
		}
	}
	return ""
}

// junctionBases are the k clip consensus bases next to the junction.
func junctionBases(b breakpoint.Resolved, k int) string {
	s := b.ClipConsensus
	if k > len(s) {
		k = len(s)
	}
	if b.Side == clip.Left {
		return s[len(s)-k:]
	}
	return s[:k]
}

// NonTemplate is the sequence inserted at the junction when both
// breakpoints agree on its length.
func (c Cluster) NonTemplate() string {
	if !c.HasMatchingBreakpoints {
		return Untested
	}
	l, r := c.bps[0], c.bps[1]
	if l.NonTemplate != r.NonTemplate {
		return Untested
	}
	if l.NonTemplate == 0 {
		return ""
	}
	s := junctionBases(l, l.NonTemplate)
	if c.Orientation == OrientInversionLeft {
		return breakpoint.ReverseComplement(s)
	}
	return s
}

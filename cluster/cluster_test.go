package cluster

import (
	"testing"

	"github.com/brentp/clipsv/breakpoint"
	"github.com/brentp/clipsv/clip"
	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

type ClusterTest struct{}

var _ = Suite(&ClusterTest{})

func res(ref string, pos int, side clip.Side, strand clip.Strand, mateRef string, matePos int, mateStrand clip.Strand) breakpoint.Resolved {
	return breakpoint.Resolved{
		Defined: breakpoint.Defined{
			Key:    clip.Key{Reference: ref, Position: pos, Side: side},
			Strand: strand,
			Clips:  10,
		},
		MateReference: mateRef,
		MatePosition:  matePos,
		MateStrand:    mateStrand,
	}
}

const (
	L = clip.Left
	R = clip.Right
	P = clip.Plus
	M = clip.Minus
)

func (s *ClusterTest) TestClassifyPairs(c *C) {
	for i, tc := range []struct {
		l, r   breakpoint.Resolved
		want   Type
		orient Orientation
	}{
		{res("chr1", 1000, R, P, "chr1", 2000, P), res("chr1", 2000, L, P, "chr1", 1000, P), Deletion, OrientDeletion},
		{res("chr1", 1000, R, P, "chr2", 2000, P), res("chr2", 2000, L, P, "chr1", 1000, P), Translocation, OrientNone},
		{res("chr1", 1000, L, P, "chr1", 2000, P), res("chr1", 2000, R, M, "chr1", 1000, M), Duplication, OrientDuplication},
		{res("chr1", 1000, L, P, "chr3", 2000, P), res("chr3", 2000, R, P, "chr1", 1000, P), Translocation, OrientNone},
		{res("chr1", 1000, L, P, "chr1", 2000, M), res("chr1", 2000, L, M, "chr1", 1000, P), Inversion, OrientInversionLeft},
		{res("chr1", 1000, R, P, "chr1", 2000, M), res("chr1", 2000, R, P, "chr1", 1000, M), Inversion, OrientInversionRight},
		{res("chr1", 1000, R, P, "chr4", 2000, M), res("chr4", 2000, R, P, "chr1", 1000, M), Translocation, OrientNone},
		{res("chr1", 1000, R, P, "chr1", 2000, M), res("chr1", 2000, L, P, "chr1", 1000, P), Intra, OrientNone},
		{res("chr1", 1000, L, P, "chr1", 2000, P), res("chr1", 2000, L, P, "chr1", 1000, P), Intra, OrientNone},
		{res("chr1", 1000, R, P, "chr2", 2000, P), res("chr2", 2000, R, P, "chr1", 1000, P), Intra, OrientNone},
	} {
		cl := NewPair(tc.l, tc.r)
		c.Assert(cl.Type, Equals, tc.want, Commentf("row %d", i))
		c.Assert(cl.Orientation, Equals, tc.orient, Commentf("row %d", i))
		c.Assert(cl.HasMatchingBreakpoints, Equals, true)
	}
}

func (s *ClusterTest) TestClassifyOrphans(c *C) {
	for i, tc := range []struct {
		bp   breakpoint.Resolved
		want Type
	}{
		{res("chr1", 1000, L, P, "chr1", 5000, P), Duplication},
		{res("chr1", 1000, L, P, "chr1", 500, P), Deletion},
		{res("chr1", 1000, R, M, "chr1", 500, M), Duplication},
		{res("chr1", 1000, R, P, "chr1", 5000, P), Deletion},
		{res("chr1", 1000, L, P, "chr1", 5000, M), Intra},
		{res("chr1", 1000, R, M, "chr1", 5000, P), Intra},
		{res("chr1", 1000, R, M, "chr9", 5000, P), Translocation},
		{res("chr1", 1000, L, P, "chr9", 5000, P), Translocation},
	} {
		cl := NewOrphan(tc.bp)
		c.Assert(cl.Type, Equals, tc.want, Commentf("row %d", i))
		c.Assert(cl.Orientation, Equals, OrientNone)
		c.Assert(cl.HasMatchingBreakpoints, Equals, false)
		c.Assert(cl.LeftBreakpoint, Equals, 1000)
		c.Assert(cl.RightBreakpoint, Equals, tc.bp.MatePosition)
	}
}

func (s *ClusterTest) TestNormalize(c *C) {
	// a left clip at 2000 and a right clip at 1000 are a deletion once the
	// lower position is on the left.
	cl := NewPair(res("chr1", 2000, L, P, "chr1", 1000, P), res("chr1", 1000, R, P, "chr1", 2000, P))
	c.Assert(cl.Type, Equals, Duplication)
	n := cl.Normalize()
	c.Assert(n.LeftBreakpoint, Equals, 1000)
	c.Assert(n.RightBreakpoint, Equals, 2000)
	c.Assert(n.Type, Equals, Deletion)
	c.Assert(n.Breakpoints()[0].Side, Equals, R)
	c.Assert(n.Normalize(), DeepEquals, n)

	cl = NewPair(res("chr2", 10, R, P, "chr1", 99, P), res("chr1", 99, L, P, "chr2", 10, P))
	n = cl.Normalize()
	c.Assert(n.LeftReference, Equals, "chr1")
	c.Assert(n.RightReference, Equals, "chr2")
	c.Assert(n.Normalize(), DeepEquals, n)

	o := NewOrphan(res("chr1", 5000, L, P, "chr1", 1000, P))
	n = o.Normalize()
	c.Assert(n.LeftBreakpoint, Equals, 1000)
	c.Assert(n.RightBreakpoint, Equals, 5000)
	c.Assert(n.Type, Equals, o.Type)
	c.Assert(n.Normalize(), DeepEquals, n)
	c.Assert(n.Breakpoints()[0].Position, Equals, 5000)
}

func withSeq(b breakpoint.Resolved, clipCons, refCons string, nt int) breakpoint.Resolved {
	b.ClipConsensus, b.RefConsensus, b.NonTemplate = clipCons, refCons, nt
	return b
}

func (s *ClusterTest) TestMicrohomology(c *C) {
	del := NewPair(withSeq(res("chr1", 1000, R, P, "chr1", 2000, P), "", "AAAACGT", 0),
		withSeq(res("chr1", 2000, L, P, "chr1", 1000, P), "", "CGTTTTT", 0))
	c.Assert(del.Microhomology(), Equals, "CGT")

	dup := NewPair(withSeq(res("chr1", 1000, L, P, "chr1", 2000, P), "", "GGTTTT", 0),
		withSeq(res("chr1", 2000, R, P, "chr1", 1000, P), "", "CCCAAGG", 0))
	c.Assert(dup.Orientation, Equals, OrientDuplication)
	c.Assert(dup.Microhomology(), Equals, "GG")

	inv := NewPair(withSeq(res("chr1", 1000, L, P, "chr1", 2000, M), "", "ACCCC", 0),
		withSeq(res("chr1", 2000, L, M, "chr1", 1000, P), "", "GTAAA", 0))
	c.Assert(inv.Orientation, Equals, OrientInversionLeft)
	c.Assert(inv.Microhomology(), Equals, "GT")

	none := NewPair(withSeq(res("chr1", 1000, R, P, "chr1", 2000, P), "", "AAAA", 0),
		withSeq(res("chr1", 2000, L, P, "chr1", 1000, P), "", "CCCC", 0))
	c.Assert(none.Microhomology(), Equals, "")

	c.Assert(NewOrphan(res("chr1", 1000, L, P, "chr1", 500, P)).Microhomology(), Equals, Untested)
}

func (s *ClusterTest) TestNonTemplate(c *C) {
	del := NewPair(withSeq(res("chr1", 1000, R, P, "chr1", 2000, P), "ACGTTTT", "", 3),
		withSeq(res("chr1", 2000, L, P, "chr1", 1000, P), "GGGGACG", "", 3))
	c.Assert(del.NonTemplate(), Equals, "ACG")

	uneven := NewPair(withSeq(res("chr1", 1000, R, P, "chr1", 2000, P), "ACGTTTT", "", 3),
		withSeq(res("chr1", 2000, L, P, "chr1", 1000, P), "GGGGACG", "", 2))
	c.Assert(uneven.NonTemplate(), Equals, Untested)

	zero := NewPair(withSeq(res("chr1", 1000, R, P, "chr1", 2000, P), "ACGTTTT", "", 0),
		withSeq(res("chr1", 2000, L, P, "chr1", 1000, P), "GGGGACG", "", 0))
	c.Assert(zero.NonTemplate(), Equals, "")

	inv := NewPair(withSeq(res("chr1", 1000, L, P, "chr1", 2000, M), "TTTTACG", "", 3),
		withSeq(res("chr1", 2000, L, M, "chr1", 1000, P), "TTTTCGT", "", 3))
	c.Assert(inv.NonTemplate(), Equals, "CGT")

	c.Assert(NewOrphan(res("chr1", 1000, L, P, "chr1", 500, P)).NonTemplate(), Equals, Untested)
}

func (s *ClusterTest) TestSupport(c *C) {
	b := res("chr1", 2000, L, P, "chr1", 1000, P)
	b.Germline = true
	cl := NewPair(res("chr1", 1000, R, P, "chr1", 2000, P), b)
	c.Assert(cl.Clips(), Equals, 20)
	c.Assert(cl.Germline(), Equals, true)
	c.Assert(cl.Rescued(), Equals, false)
	c.Assert(NewOrphan(res("chr1", 1000, R, P, "chr1", 2000, P)).Germline(), Equals, false)
}

package breakpoint

import (
	"strings"

	"github.com/brentp/clipsv/clip"
	"github.com/brentp/clipsv/psl"
)

// Resolved is a Defined breakpoint with the location its clip consensus
// aligns to.
type Resolved struct {
	Defined
	MateReference string
	MatePosition  int
	MateStrand    clip.Strand
	// BelowMinInsert is set when the mate is on the same reference within
	// Params.MinInsertSize. Such a breakpoint is not resolved.
	BelowMinInsert bool
}

// SameReference is true when the mate is on this breakpoint's reference.
func (r *Resolved) SameReference() bool { return r.MateReference == r.Reference }

// blockCandidate is the edge of block i that would be this breakpoint if
// the block held the reference side of the query.
func blockCandidate(rec psl.Record, i int, isLeft, sameStrand bool) int {
	if isLeft == sameStrand {
		return rec.TargetStarts[i]
	}
	return rec.TargetStarts[i] + rec.BlockSizes[i]
}

// mateEdge picks the start or end of an aligned span as the mate position.
func mateEdge(start, end int, isLeft, sameStrand bool) int {
	strandsDiffer := !sameStrand
	if isLeft != strandsDiffer {
		return end
	}
	return start
}

// nonTemplate is the unaligned flank of a single block alignment. Left clips
// on the breakpoint strand and right clips on the opposite strand count the
// bases after QueryEnd. The other two count those before QueryStart.
func nonTemplate(rec psl.Record, isLeft, sameStrand bool) int {
	var nt int
	if isLeft == sameStrand {
		nt = rec.QuerySize - rec.QueryEnd
	} else {
		nt = rec.QueryStart - 1
	}
	if nt < 0 {
		return 0
	}
	return nt
}

func compatibleReference(a, b, prefix string) bool {
	return a == b || (strings.HasPrefix(a, prefix) && strings.HasPrefix(b, prefix))
}

// ResolveMate uses the best alignment of d.Query() to place the mate. The
// result depends only on d, rec and p, so the same record always gives the
// same mate.
func (d *Defined) ResolveMate(rec psl.Record, p Params) (*Resolved, bool) {
	if !compatibleReference(d.Reference, rec.Target, p.ChromPrefix) {
		return nil, false
	}
	isLeft := d.Side == clip.Left
	sameStrand := clip.Strand(rec.Strand) == d.Strand

	r := &Resolved{Defined: *d, MateReference: rec.Target, MateStrand: clip.Strand(rec.Strand)}
	matched := false
	if rec.BlockCount == 2 && len(rec.TargetStarts) == 2 && len(rec.BlockSizes) == 2 {
		for i := 0; i < 2; i++ {
			if abs(blockCandidate(rec, i, isLeft, sameStrand)-d.Position) > p.BlockTolerance {
				continue
			}
			o := 1 - i
			r.MatePosition = mateEdge(rec.TargetStarts[o], rec.BlockEnd(o), isLeft, sameStrand)
			r.NonTemplate = 0
			matched = true
			break
		}
	}
	if !matched {
		r.MatePosition = mateEdge(rec.TargetStart, rec.TargetEnd, isLeft, sameStrand)
		r.NonTemplate = nonTemplate(rec, isLeft, sameStrand)
	}

	if r.SameReference() && abs(r.MatePosition-d.Position) <= p.MinInsertSize {
		r.BelowMinInsert = true
		return r, false
	}
	return r, true
}

package clip

import (
	"github.com/biogo/hts/sam"
)

const MinMapQuality = byte(20)

// Filter decides which alignments may contribute clips.
type Filter struct {
	MinMapQ byte
	// MinClip is the shortest soft clip that is reported.
	MinClip int
	// Splits, if set, drops split reads whose parts disagree.
	Splits *SplitCheck
}

var DefaultFilter = Filter{MinMapQ: MinMapQuality, MinClip: 1}

// Skip reports whether rec should not be used as clip evidence.
func (f Filter) Skip(rec *sam.Record) bool {
	if rec.Flags&(sam.Unmapped|sam.Secondary|sam.Supplementary|sam.Duplicate|sam.QCFail) != 0 {
		return true
	}
	if rec.MapQ < f.MinMapQ {
		return true
	}
	return f.Splits != nil && f.Splits.Bad(rec)
}

// edgeClips returns the soft clip lengths at the start and end of the
// alignment. Hard clips on the outside are ignored.
func edgeClips(cig sam.Cigar) (lead, trail int) {
	i, j := 0, len(cig)-1
	for i <= j && cig[i].Type() == sam.CigarHardClipped {
		i++
	}
	for j >= i && cig[j].Type() == sam.CigarHardClipped {
		j--
	}
	if i > j {
		return 0, 0
	}
	if cig[i].Type() == sam.CigarSoftClipped {
		lead = cig[i].Len()
	}
	if j > i && cig[j].Type() == sam.CigarSoftClipped {
		trail = cig[j].Len()
	}
	return lead, trail
}

// FromRecord extracts the clip carried by rec. Reads clipped at both ends and
// reads whose clip is shorter than f.MinClip give false.
func (f Filter) FromRecord(rec *sam.Record) (Clip, bool) {
	if f.Skip(rec) {
		return Clip{}, false
	}
	lead, trail := edgeClips(rec.Cigar)
	if (lead > 0 && trail > 0) || (lead == 0 && trail == 0) {
		return Clip{}, false
	}
	seq := string(rec.Seq.Expand())
	if lead+trail > len(seq) {
		return Clip{}, false
	}
	c := Clip{
		Reference: rec.Ref.Name(),
		Strand:    Plus,
		Read:      seq,
		ReadID:    rec.Name,
	}
	if rec.Flags&sam.Reverse != 0 {
		c.Strand = Minus
	}
	if lead > 0 {
		if lead < f.MinClip {
			return Clip{}, false
		}
		c.Side = Left
		c.Position = rec.Start() + 1
		c.Clipped, c.Aligned = seq[:lead], seq[lead:]
		return c, true
	}
	if trail < f.MinClip {
		return Clip{}, false
	}
	c.Side = Right
	// End is 0-based exclusive, so it is the 1-based last aligned base.
	c.Position = rec.End()
	c.Clipped, c.Aligned = seq[len(seq)-trail:], seq[:len(seq)-trail]
	return c, true
}

// UnmappedFromRecord returns an Unmapped when rec is unaligned but placed by a
// mapped mate.
func UnmappedFromRecord(rec *sam.Record) (Unmapped, bool) {
	if rec.Flags&sam.Unmapped == 0 || rec.Flags&sam.MateUnmapped != 0 || rec.Ref == nil {
		return Unmapped{}, false
	}
	if rec.Flags&(sam.Secondary|sam.Supplementary|sam.Duplicate|sam.QCFail) != 0 {
		return Unmapped{}, false
	}
	return Unmapped{
		Reference: rec.Ref.Name(),
		Position:  rec.Pos + 1,
		ReadID:    rec.Name,
		Sequence:  string(rec.Seq.Expand()),
	}, true
}

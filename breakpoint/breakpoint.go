// Package breakpoint aggregates soft-clip evidence at a genomic position,
// builds a consensus of the clipped bases and resolves where that consensus
// aligns.
//
// A Breakpoint only accumulates evidence. Define turns it into a *Defined,
// the only value that can be resolved, and ResolveMate returns a new
// *Resolved. Neither step changes its receiver.
package breakpoint

import (
	"sort"
	"strings"

	"github.com/brentp/clipsv/assemble"
	"github.com/brentp/clipsv/clip"
	"github.com/pkg/errors"
)

// Assembler extends a seed sequence using candidate reads.
type Assembler interface {
	Assemble(seed string, reads []assemble.Read) (assemble.Contig, bool)
}

// Params are the thresholds used by Define and ResolveMate.
type Params struct {
	// ClipCount must be exceeded by the number of tumour clips.
	ClipCount int
	// MinConsensusLength is the shortest accepted clip consensus.
	MinConsensusLength int
	// MaxNFraction is the largest accepted share of 'N' in the clip consensus.
	MaxNFraction float64
	// BlockTolerance is how far a block edge may be from the position and
	// still be taken as this breakpoint's side of a split alignment.
	BlockTolerance int
	// MinInsertSize rejects same-reference mates this close or closer.
	MinInsertSize int
	// ChromPrefix lets mates land on a different reference when both names
	// start with it.
	ChromPrefix string
	// UnmappedWindow is the distance around the position from which unmapped
	// reads are offered to the Assembler.
	UnmappedWindow int
	// Assembler, if set, extends the clip consensus.
	Assembler Assembler
}

// DefaultParams are used when no configuration is given.
var DefaultParams = Params{
	ClipCount:          3,
	MinConsensusLength: 20,
	MaxNFraction:       0.10,
	BlockTolerance:     5,
	MinInsertSize:      50,
	ChromPrefix:        "chr",
	UnmappedWindow:     500,
}

// Breakpoint collects clips sharing a reference, position and side.
type Breakpoint struct {
	clip.Key
	evidence map[clip.Class][]clip.Clip
	unmapped []clip.Unmapped
}

// New returns an empty Breakpoint for k.
func New(k clip.Key) *Breakpoint {
	return &Breakpoint{Key: k, evidence: make(map[clip.Class][]clip.Clip, 2)}
}

// AddEvidence appends c to the class bucket.
func (b *Breakpoint) AddEvidence(class clip.Class, c clip.Clip) error {
	if c.Key() != b.Key {
		return errors.Errorf("breakpoint: clip at %s added to %s", c.Key(), b.Key)
	}
	b.evidence[class] = append(b.evidence[class], c)
	return nil
}

// AddUnmapped stores an unmapped read that may extend the consensus.
func (b *Breakpoint) AddUnmapped(u clip.Unmapped) {
	b.unmapped = append(b.unmapped, u)
}

// Count is the number of clips in the class bucket.
func (b *Breakpoint) Count(class clip.Class) int {
	return len(b.evidence[class])
}

// Germline is true when any normal evidence exists.
func (b *Breakpoint) Germline() bool {
	return len(b.evidence[clip.Normal]) > 0
}

func (b *Breakpoint) Name() string { return b.Key.String() }

// contributing returns the clips that count towards strand tallies and
// consensus: every bucket for germline breakpoints, tumour otherwise.
func (b *Breakpoint) contributing() []clip.Clip {
	if !b.Germline() {
		return b.evidence[clip.Tumour]
	}
	classes := make([]string, 0, len(b.evidence))
	for c := range b.evidence {
		classes = append(classes, string(c))
	}
	sort.Strings(classes)
	var all []clip.Clip
	for _, c := range classes {
		all = append(all, b.evidence[clip.Class(c)]...)
	}
	return all
}

// Defined is a breakpoint that passed the evidence and consensus filters.
type Defined struct {
	clip.Key
	// Strand is the majority strand of the contributing clips.
	Strand   clip.Strand
	PosCount int
	NegCount int
	// Clips is the number of tumour clips.
	Clips    int
	Germline bool
	// ClipConsensus is the clip-side consensus. For a Left breakpoint it ends
	// at the junction, for a Right one it starts there.
	ClipConsensus string
	// RefConsensus is the consensus of the aligned bases. It may be empty.
	RefConsensus string
	// NonTemplate is the count of junction bases that align to neither side.
	NonTemplate int
	// Contig lists the reads that extended the clip consensus.
	Contig []string
}

// Define checks b against p and builds its consensus. With rescue set the
// clip count threshold is not applied.
func (b *Breakpoint) Define(p Params, rescue bool) (*Defined, bool) {
	tumour := len(b.evidence[clip.Tumour])
	if !rescue && tumour <= p.ClipCount {
		return nil, false
	}
	clips := b.contributing()
	if len(clips) == 0 {
		return nil, false
	}
	d := &Defined{Key: b.Key, Clips: tumour, Germline: b.Germline()}
	for _, c := range clips {
		if c.Strand == clip.Minus {
			d.NegCount++
		} else {
			d.PosCount++
		}
	}
	d.Strand = clip.Plus
	if d.NegCount > d.PosCount {
		d.Strand = clip.Minus
	}

	clipped := make([]string, 0, len(clips))
	aligned := make([]string, 0, len(clips))
	for _, c := range clips {
		if c.Strand != d.Strand {
			continue
		}
		clipped = append(clipped, c.Clipped)
		if len(c.Aligned) > 0 {
			aligned = append(aligned, c.Aligned)
		}
	}
	clipAlign, refAlign := AlignLeft, AlignRight
	if b.Side == clip.Left {
		clipAlign, refAlign = AlignRight, AlignLeft
	}
	d.ClipConsensus = Consensus(clipped, clipAlign)
	if len(aligned) > 0 {
		d.RefConsensus = Consensus(aligned, refAlign)
	}
	if p.Assembler != nil {
		d.extend(p, clips, b.unmapped)
	}

	if len(d.ClipConsensus) < p.MinConsensusLength {
		return nil, false
	}
	if float64(countN(d.ClipConsensus)) > p.MaxNFraction*float64(len(d.ClipConsensus)) {
		return nil, false
	}
	return d, true
}

// extend lengthens the clip consensus away from the junction with an
// assembly seeded by the current consensus.
func (d *Defined) extend(p Params, clips []clip.Clip, unmapped []clip.Unmapped) {
	reads := make([]assemble.Read, 0, len(clips)+len(unmapped))
	for _, c := range clips {
		reads = append(reads, assemble.Read{Name: c.ReadID, Sequence: c.Read})
	}
	for _, u := range unmapped {
		if u.Reference != d.Reference || abs(u.Position-d.Position) > p.UnmappedWindow {
			continue
		}
		reads = append(reads, assemble.Read{Name: u.ReadID, Sequence: u.Sequence})
		reads = append(reads, assemble.Read{Name: u.ReadID + "/rc", Sequence: ReverseComplement(u.Sequence)})
	}
	contig, ok := p.Assembler.Assemble(d.ClipConsensus, reads)
	if !ok {
		return
	}
	seed := d.ClipConsensus
	if d.Side == clip.Left {
		// keep the last occurrence so the junction stays at the end.
		i := strings.LastIndex(contig.Sequence, seed)
		if i < 0 {
			return
		}
		d.ClipConsensus = contig.Sequence[:i+len(seed)]
	} else {
		i := strings.Index(contig.Sequence, seed)
		if i < 0 {
			return
		}
		d.ClipConsensus = contig.Sequence[i:]
	}
	if len(d.ClipConsensus) > len(seed) {
		d.Contig = contig.Names
	}
}

// Name is used as the aligner query name.
func (d *Defined) Name() string { return d.Key.String() }

// Consensus is the clip and reference consensus joined in genome order.
func (d *Defined) Consensus() string {
	if d.Side == clip.Left {
		return d.ClipConsensus + d.RefConsensus
	}
	return d.RefConsensus + d.ClipConsensus
}

// Query is the sequence sent to the aligner: Consensus on the majority
// strand.
func (d *Defined) Query() string {
	q := d.Consensus()
	if d.Strand == clip.Minus {
		return ReverseComplement(q)
	}
	return q
}

// Rescued always reports false.
func (d *Defined) Rescued() bool { return false }

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

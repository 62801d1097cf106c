// Package vcfout writes clustered events as VCF.
package vcfout

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/biogo/biogo/io/seqio/fai"
	"github.com/brentp/clipsv/cluster"
	"github.com/brentp/clipsv/engine"
	"github.com/brentp/faidx"
	"github.com/brentp/vcfgo"
	"github.com/pkg/errors"
)

const header = `##fileformat=VCFv4.2
##source=clipsv
##ALT=<ID=DEL,Description="Deletion">
##ALT=<ID=DUP,Description="Duplication">
##ALT=<ID=INV,Description="Inversion">
##ALT=<ID=BND,Description="Breakend">
##INFO=<ID=SVTYPE,Number=1,Type=String,Description="Type of structural variant">
##INFO=<ID=END,Number=1,Type=Integer,Description="End position of the variant">
##INFO=<ID=CHR2,Number=1,Type=String,Description="Chromosome of the second breakpoint">
##INFO=<ID=MATEPOS,Number=1,Type=Integer,Description="Position of the second breakpoint">
##INFO=<ID=CTYPE,Number=1,Type=String,Description="Soft-clip cluster type">
##INFO=<ID=HOMSEQ,Number=1,Type=String,Description="Microhomology at the junction">
##INFO=<ID=NTSEQ,Number=1,Type=String,Description="Non-templated bases at the junction">
##INFO=<ID=SR,Number=1,Type=Integer,Description="Tumour soft-clipped reads supporting the event">
##INFO=<ID=PE,Number=1,Type=Integer,Description="Discordant read pairs supporting the event">
##INFO=<ID=GERMLINE,Number=0,Type=Flag,Description="Clipped reads were also seen in the normal">
##INFO=<ID=ONESIDED,Number=0,Type=Flag,Description="Only one breakpoint had clipped reads">
##INFO=<ID=SECONDPASS,Number=0,Type=Flag,Description="Found by the rescue pass">
##INFO=<ID=DISCORDANT,Number=0,Type=Flag,Description="Found only by discordant read pairs">
`

// Writer writes events as VCF records.
type Writer struct {
	w   *vcfgo.Writer
	h   *vcfgo.Header
	ref *faidx.Faidx
}

// contigs lists the reference sequences in file order.
func contigs(fa *faidx.Faidx) []fai.Record {
	recs := make([]fai.Record, 0, len(fa.Index))
	for _, r := range fa.Index {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Start < recs[j].Start })
	return recs
}

// NewWriter writes the header to w. ref may be nil, in which case REF is
// written as N and no contigs are declared.
func NewWriter(w io.Writer, ref *faidx.Faidx, sample string) (*Writer, error) {
	var b strings.Builder
	b.WriteString(header)
	if ref != nil {
		for _, r := range contigs(ref) {
			fmt.Fprintf(&b, "##contig=<ID=%s,length=%d>\n", r.Name, r.Length)
		}
	}
	if sample != "" {
		fmt.Fprintf(&b, "##sample=<ID=%s>\n", sample)
	}
	b.WriteString("#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n")
	rdr, err := vcfgo.NewReader(strings.NewReader(b.String()), false)
	if err != nil {
		return nil, errors.Wrap(err, "vcfout: building header")
	}
	vw, err := vcfgo.NewWriter(w, rdr.Header)
	if err != nil {
		return nil, errors.Wrap(err, "vcfout: writing header")
	}
	return &Writer{w: vw, h: rdr.Header, ref: ref}, nil
}

// svType maps a clip cluster type to a VCF SVTYPE.
func svType(t cluster.Type) string {
	switch t {
	case cluster.Deletion:
		return "DEL"
	case cluster.Duplication:
		return "DUP"
	case cluster.Inversion:
		return "INV"
	}
	return "BND"
}

// discordantType uses the read-pair strands the way paired-end callers do.
func discordantType(leftRef, rightRef string, leftStrand, rightStrand byte) string {
	switch {
	case leftRef != rightRef:
		return "BND"
	case leftStrand == rightStrand:
		return "INV"
	case leftStrand == '+':
		return "DEL"
	}
	return "DUP"
}

func (w *Writer) refBase(chrom string, pos int) string {
	if w.ref == nil {
		return "N"
	}
	b, err := w.ref.At(chrom, pos-1)
	if err != nil {
		return "N"
	}
	return strings.ToUpper(string(b))
}

type info struct {
	k string
	v interface{}
}

// Variant converts ev. It is exported for callers that filter before writing.
func (w *Writer) Variant(ev engine.Event) (*vcfgo.Variant, error) {
	var (
		chrom, chr2 string
		pos, mate   int
		svtype      string
		sr          int
	)
	if c := ev.Clip; c != nil {
		chrom, pos, chr2, mate = c.LeftReference, c.LeftBreakpoint, c.RightReference, c.RightBreakpoint
		svtype = svType(c.Type)
		sr = c.Clips()
	} else {
		d := ev.Discordant[0]
		chrom, pos, chr2, mate = d.LeftRef, d.LeftStart, d.RightRef, d.RightEnd
		svtype = discordantType(d.LeftRef, d.RightRef, byte(d.LeftStrand), byte(d.RightStrand))
	}
	pe := ev.PairedReads()

	v := &vcfgo.Variant{
		Chromosome: chrom,
		Pos:        uint64(pos),
		Id_:        ev.ID,
		Reference:  w.refBase(chrom, pos),
		Alternate:  []string{"<" + svtype + ">"},
		Quality:    float32(sr + pe),
		Filter:     "PASS",
		Header:     w.h,
	}
	v.Info_ = vcfgo.NewInfoByte([]byte("SVTYPE="+svtype), w.h)

	end := mate
	if svtype == "BND" {
		end = pos
	}
	sets := []info{
		{"END", end},
		{"CHR2", chr2},
		{"MATEPOS", mate},
		{"SR", sr},
		{"PE", pe},
	}
	if c := ev.Clip; c != nil {
		sets = append(sets, info{"CTYPE", string(c.Type)})
		if h := c.Microhomology(); h != "" && h != cluster.Untested {
			sets = append(sets, info{"HOMSEQ", h})
		}
		if nt := c.NonTemplate(); nt != "" && nt != cluster.Untested {
			sets = append(sets, info{"NTSEQ", nt})
		}
		if c.Germline() {
			sets = append(sets, info{"GERMLINE", true})
		}
		if c.Orphan() {
			sets = append(sets, info{"ONESIDED", true})
		}
	} else {
		sets = append(sets, info{"DISCORDANT", true})
	}
	if ev.SecondPass {
		sets = append(sets, info{"SECONDPASS", true})
	}
	for _, s := range sets {
		if err := v.Info().Set(s.k, s.v); err != nil {
			return nil, errors.Wrapf(err, "vcfout: setting %s for %s", s.k, ev.ID)
		}
	}
	return v, nil
}

// Write writes every event in order.
func (w *Writer) Write(events []engine.Event) error {
	for _, ev := range events {
		v, err := w.Variant(ev)
		if err != nil {
			return err
		}
		w.w.WriteVariant(v)
	}
	return nil
}

package clip

import (
	"bytes"

	"github.com/biogo/hts/sam"
	"github.com/pkg/errors"
)

// SplitCheck rejects clipped reads whose supplementary alignments disagree
// with the clip. e.g. for a 150 base read:
// good: 110M40S 110S40M
// bad: 110M40S 90M60S
// The outer Edge bases at each end must be covered exactly once, allowing
// MaxEdge exceptions, and no more than MaxConflict bases overall may be
// covered zero or several times.
type SplitCheck struct {
	Edge        int
	MaxEdge     int
	MaxConflict int
}

var DefaultSplitCheck = SplitCheck{Edge: 25, MaxEdge: 5, MaxConflict: 40}

func reverseCigar(s sam.Cigar) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// readCoverage counts, for each read base, the alignments that place it.
func readCoverage(cigs []sam.Cigar, n int) []int8 {
	counts := make([]int8, n)
	for _, cig := range cigs {
		off := 0
		for _, op := range cig {
			t := op.Type()
			if t == sam.CigarMatch || t == sam.CigarEqual || t == sam.CigarMismatch || t == sam.CigarInsertion {
				for i := 0; i < op.Len() && off+i < n; i++ {
					counts[off+i]++
				}
			}
			off += op.Len() * t.Consumes().Query
			if t == sam.CigarHardClipped {
				off += op.Len()
			}
		}
	}
	return counts
}

// splitCigars returns the primary cigar followed by each SA cigar in the
// primary's orientation, and the longest read length any of them implies.
func splitCigars(rec *sam.Record, sa []byte) ([]sam.Cigar, int, error) {
	strand := byte('+')
	if rec.Flags&sam.Reverse != 0 {
		strand = '-'
	}
	cigs := []sam.Cigar{rec.Cigar}
	_, n := rec.Cigar.Lengths()
	for _, part := range bytes.Split(bytes.TrimRight(sa, ";"), []byte{';'}) {
		toks := bytes.Split(part, []byte{','})
		if len(toks) < 4 || len(toks[2]) == 0 {
			return nil, 0, errors.Errorf("clip: malformed SA entry %q for %s", part, rec.Name)
		}
		cig, err := sam.ParseCigar(toks[3])
		if err != nil {
			return nil, 0, errors.Wrapf(err, "clip: SA cigar for %s", rec.Name)
		}
		if toks[2][0] != strand {
			reverseCigar(cig)
		}
		if _, read := cig.Lengths(); read > n {
			n = read
		}
		cigs = append(cigs, cig)
	}
	return cigs, n, nil
}

// conflicting applies the edge and total limits to per-base coverage.
func (s SplitCheck) conflicting(counts []int8) bool {
	if len(counts) < 2*s.Edge {
		return false
	}
	edge, total := 0, 0
	hi := len(counts) - s.Edge - 1
	for i, c := range counts {
		if c == 1 {
			continue
		}
		total++
		if i <= s.Edge || i >= hi {
			edge++
		}
	}
	return edge > s.MaxEdge || total > s.MaxConflict
}

// Bad reports whether rec is a split read whose parts disagree. Reads without
// an SA tag are never bad.
func (s SplitCheck) Bad(rec *sam.Record) bool {
	aux, ok := rec.Tag([]byte{'S', 'A'})
	if !ok {
		return false
	}
	sa, ok := aux.Value().(string)
	if !ok {
		return false
	}
	cigs, n, err := splitCigars(rec, []byte(sa))
	if err != nil {
		return true
	}
	return s.conflicting(readCoverage(cigs, n))
}

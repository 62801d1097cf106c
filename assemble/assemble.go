// Package assemble extends a seed sequence with reads that overlap its ends.
package assemble

import (
	"sort"
	"strings"
)

// Read is a named candidate sequence.
type Read struct {
	Name     string
	Sequence string
}

// Contig is an assembled sequence and the reads that extended it.
type Contig struct {
	Sequence string
	Names    []string
}

// Greedy repeatedly extends the seed with the read having the longest exact
// overlap with either end.
type Greedy struct {
	// MinOverlap is the shortest end overlap accepted.
	MinOverlap int
	// MaxLength stops extension once the contig is this long. 0 is unlimited.
	MaxLength int
}

// overlap is the longest k >= min such that a ends with the first k bases of b
// and b is longer than k.
func overlap(a, b string, min int) int {
	max := len(a)
	if len(b)-1 < max {
		max = len(b) - 1
	}
	for k := max; k >= min && k > 0; k-- {
		if a[len(a)-k:] == b[:k] {
			return k
		}
	}
	return 0
}

type extension struct {
	read    int
	k       int
	right   bool
	replace bool
}

// Assemble returns false when no read extends the seed.
func (g Greedy) Assemble(seed string, reads []Read) (Contig, bool) {
	min := g.MinOverlap
	if min < 1 {
		min = 1
	}
	contig := seed
	used := make([]bool, len(reads))
	var names []string
	for g.MaxLength == 0 || len(contig) < g.MaxLength {
		var best *extension
		for i, r := range reads {
			if used[i] || len(r.Sequence) == 0 {
				continue
			}
			// contained reads add nothing.
			if strings.Contains(contig, r.Sequence) {
				used[i] = true
				continue
			}
			if len(r.Sequence) > len(contig) && strings.Contains(r.Sequence, contig) {
				if best == nil || len(contig) > best.k {
					best = &extension{read: i, k: len(contig), replace: true}
				}
				continue
			}
			if k := overlap(contig, r.Sequence, min); k > 0 && (best == nil || k > best.k) {
				best = &extension{read: i, k: k, right: true}
			}
			if k := overlap(r.Sequence, contig, min); k > 0 && (best == nil || k > best.k) {
				best = &extension{read: i, k: k, right: false}
			}
		}
		if best == nil {
			break
		}
		used[best.read] = true
		s := reads[best.read].Sequence
		switch {
		case best.replace:
			contig = s
		case best.right:
			contig += s[best.k:]
		default:
			contig = s[:len(s)-best.k] + contig
		}
		names = append(names, reads[best.read].Name)
	}
	if len(names) == 0 {
		return Contig{}, false
	}
	sort.Strings(names)
	return Contig{Sequence: contig, Names: names}, true
}

package breakpoint

// Align says which edge the columns of a consensus are anchored to.
type Align uint8

const (
	// AlignLeft anchors column 0 to the first base of every sequence.
	AlignLeft Align = iota
	// AlignRight anchors the last column to the last base of every sequence.
	AlignRight
)

func baseIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	}
	return -1
}

const bases = "ACGT"

// Consensus is the per column majority vote of seqs. Its length is that of
// the longest sequence. A column whose highest count is shared by two or more
// bases, or that has no A, C, G or T, gives 'N'.
func Consensus(seqs []string, align Align) string {
	L := 0
	for _, s := range seqs {
		if len(s) > L {
			L = len(s)
		}
	}
	if L == 0 {
		return ""
	}
	out := make([]byte, L)
	var counts [4]int
	for j := 0; j < L; j++ {
		counts = [4]int{}
		for _, s := range seqs {
			i := j
			if align == AlignRight {
				i = len(s) - L + j
			}
			if i < 0 || i >= len(s) {
				continue
			}
			if b := baseIndex(s[i]); b >= 0 {
				counts[b]++
			}
		}
		best, tie := -1, false
		for b, n := range counts {
			if n == 0 {
				continue
			}
			switch {
			case best < 0 || n > counts[best]:
				best, tie = b, false
			case n == counts[best]:
				tie = true
			}
		}
		if best < 0 || tie {
			out[j] = 'N'
		} else {
			out[j] = bases[best]
		}
	}
	return string(out)
}

var complement = [256]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N',
	'a': 't', 'c': 'g', 'g': 'c', 't': 'a', 'n': 'n',
}

// ReverseComplement of s. Bases other than ACGTN become 'N'.
func ReverseComplement(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := complement[s[len(s)-1-i]]
		if c == 0 {
			c = 'N'
		}
		out[i] = c
	}
	return string(out)
}

func countN(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == 'N' || s[i] == 'n' {
			n++
		}
	}
	return n
}

// Package discordant reads pre-computed discordant read-pair clusters and
// finds the ones that overlap a pair of breakpoints.
package discordant

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/biogo/store/interval"
	"github.com/brentp/clipsv/clip"
	"github.com/brentp/xopen"
	"github.com/pkg/errors"
)

// Cluster is one discordant pair cluster. Coordinates are 1-based inclusive.
type Cluster struct {
	ID          string
	LeftRef     string
	LeftStart   int
	LeftEnd     int
	LeftStrand  clip.Strand
	RightRef    string
	RightStart  int
	RightEnd    int
	RightStrand clip.Strand
	Support     int
}

// Key is an unordered pair of chromosomes.
type Key struct {
	A, B string
}

// NewKey orders a and b so that NewKey(a, b) == NewKey(b, a).
func NewKey(a, b string) Key {
	if b < a {
		a, b = b, a
	}
	return Key{A: a, B: b}
}

func (k Key) String() string { return k.A + ":" + k.B }

// Key of the chromosomes c joins.
func (c Cluster) Key() Key { return NewKey(c.LeftRef, c.RightRef) }

// Canonical returns c with its sides in the same order used for clip
// clusters: by reference name, then start.
func (c Cluster) Canonical() Cluster {
	if c.LeftRef > c.RightRef || (c.LeftRef == c.RightRef && c.LeftStart > c.RightStart) {
		c.LeftRef, c.RightRef = c.RightRef, c.LeftRef
		c.LeftStart, c.RightStart = c.RightStart, c.LeftStart
		c.LeftEnd, c.RightEnd = c.RightEnd, c.LeftEnd
		c.LeftStrand, c.RightStrand = c.RightStrand, c.LeftStrand
	}
	return c
}

func (c Cluster) String() string {
	return fmt.Sprintf("%s:%d-%d%s|%s:%d-%d%s", c.LeftRef, c.LeftStart, c.LeftEnd, c.LeftStrand,
		c.RightRef, c.RightStart, c.RightEnd, c.RightStrand)
}

// parse reads a BEDPE row:
// chrom1 start1 end1 chrom2 start2 end2 name score strand1 strand2 [support]
// BEDPE starts are 0-based.
func parse(line []byte) (Cluster, error) {
	var c Cluster
	toks := bytes.Split(bytes.TrimRight(line, "\r\n"), []byte{'\t'})
	if len(toks) < 10 {
		return c, errors.Errorf("expected at least 10 columns, got %d", len(toks))
	}
	ints := make([]int, 4)
	for i, col := range []int{1, 2, 4, 5} {
		v, err := strconv.Atoi(string(toks[col]))
		if err != nil {
			return c, errors.Wrapf(err, "bad coordinate in column %d", col+1)
		}
		ints[i] = v
	}
	s1, err := clip.ParseStrand(string(toks[8]))
	if err != nil {
		return c, err
	}
	s2, err := clip.ParseStrand(string(toks[9]))
	if err != nil {
		return c, err
	}
	c = Cluster{
		LeftRef: string(toks[0]), LeftStart: ints[0] + 1, LeftEnd: ints[1], LeftStrand: s1,
		RightRef: string(toks[3]), RightStart: ints[2] + 1, RightEnd: ints[3], RightStrand: s2,
		ID: string(toks[6]),
	}
	if len(toks) > 10 {
		if c.Support, err = strconv.Atoi(string(toks[10])); err != nil {
			return c, errors.Wrap(err, "bad support")
		}
	} else if v, err := strconv.Atoi(string(toks[7])); err == nil {
		// without a support column the score is the pair count.
		c.Support = v
	}
	if c.LeftEnd < c.LeftStart || c.RightEnd < c.RightStart {
		return c, errors.Errorf("inverted interval %s", c)
	}
	return c, nil
}

// ReadFrom parses every row of r. Lines starting with '#' and blank lines are
// skipped.
func ReadFrom(r io.Reader) ([]Cluster, error) {
	var out []Cluster
	br := bufio.NewReader(r)
	n := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			n++
			if line[0] != '#' && len(bytes.TrimSpace(line)) > 0 {
				c, perr := parse(line)
				if perr != nil {
					return out, errors.Wrapf(perr, "discordant: line %d", n)
				}
				out = append(out, c)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, errors.Wrap(err, "discordant: reading clusters")
		}
	}
	return out, nil
}

// Read parses the (optionally gzipped) BEDPE file at path.
func Read(path string) ([]Cluster, error) {
	f, err := xopen.Ropen(path)
	if err != nil {
		return nil, errors.Wrapf(err, "discordant: opening %s", path)
	}
	defer f.Close()
	return ReadFrom(f)
}

// irange is a left interval in an Index tree. End is exclusive.
type irange struct {
	Start, End int
	UID        uintptr
	idx        int
}

func (i irange) Overlap(b interval.IntRange) bool {
	return i.End > b.Start && i.Start < b.End
}
func (i irange) ID() uintptr              { return i.UID }
func (i irange) Range() interval.IntRange { return interval.IntRange{Start: i.Start, End: i.End} }

// Index finds discordant clusters by chromosome pair and position.
type Index struct {
	clusters []Cluster
	trees    map[Key]*interval.IntTree
}

// NewIndex stores the canonical form of each cluster.
func NewIndex(clusters []Cluster) (*Index, error) {
	idx := &Index{clusters: make([]Cluster, 0, len(clusters)), trees: make(map[Key]*interval.IntTree)}
	for _, c := range clusters {
		c = c.Canonical()
		k := c.Key()
		t, ok := idx.trees[k]
		if !ok {
			t = &interval.IntTree{}
			idx.trees[k] = t
		}
		i := len(idx.clusters)
		idx.clusters = append(idx.clusters, c)
		if err := t.Insert(irange{Start: c.LeftStart, End: c.LeftEnd + 1, UID: uintptr(i), idx: i}, true); err != nil {
			return nil, errors.Wrapf(err, "discordant: indexing %s", c)
		}
	}
	for _, t := range idx.trees {
		t.AdjustRanges()
	}
	return idx, nil
}

// Len is the number of indexed clusters.
func (x *Index) Len() int { return len(x.clusters) }

// Cluster returns the i'th indexed cluster.
func (x *Index) Cluster(i int) Cluster { return x.clusters[i] }

// Overlapping returns the indexes of clusters joining leftRef and rightRef
// whose left interval is within window of leftPos and whose right interval is
// within window of rightPos. leftRef, leftPos must be the lower side as
// ordered by Cluster.Canonical.
func (x *Index) Overlapping(leftRef string, leftPos int, rightRef string, rightPos int, window int) []int {
	t := x.trees[NewKey(leftRef, rightRef)]
	if t == nil {
		return nil
	}
	var found []int
	q := irange{Start: leftPos - window, End: leftPos + window + 1, UID: uintptr(len(x.clusters) + 1)}
	t.DoMatching(func(iv interval.IntInterface) bool {
		c := x.clusters[iv.(irange).idx]
		if c.LeftRef == leftRef && c.RightRef == rightRef &&
			c.RightEnd >= rightPos-window && c.RightStart <= rightPos+window {
			found = append(found, iv.(irange).idx)
		}
		return false
	}, q)
	return found
}

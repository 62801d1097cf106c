// Package psl parses BLAT alignments in PSL format.
//
// PSL stores 0-based half-open coordinates. A Record holds 1-based inclusive
// coordinates: every start is shifted by one and every end is left as is.
package psl

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/brentp/clipsv/shared"
	"github.com/brentp/go-athenaeum/unsplit"
	"github.com/pkg/errors"
)

// Columns is the number of tab-delimited fields in a PSL line.
const Columns = 21

// Record is one aligned query.
type Record struct {
	QueryName string
	Target    string
	// Strand is '+' or '-' for the query relative to the target.
	Strand byte

	Match      int
	Mismatch   int
	QueryGaps  int
	TargetGaps int

	BlockCount   int
	BlockSizes   []int
	QueryStarts  []int
	TargetStarts []int

	QuerySize   int
	QueryStart  int
	QueryEnd    int
	TargetSize  int
	TargetStart int
	TargetEnd   int
}

// Score is used only to rank alignments of the same query.
func (r Record) Score() int {
	return r.Match - r.Mismatch - r.TargetGaps - r.QueryGaps
}

// BlockEnd is the 1-based inclusive target end of block i.
func (r Record) BlockEnd(i int) int {
	return r.TargetStarts[i] + r.BlockSizes[i] - 1
}

func atoi(b []byte, name string) (int, error) {
	v, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, errors.Wrapf(err, "psl: bad %s", name)
	}
	return v, nil
}

// ints parses a comma-separated list as written by BLAT (with a trailing
// comma) adding off to each value.
func ints(b []byte, n int, name string, off int) ([]int, error) {
	b = bytes.TrimRight(b, ",")
	out := make([]int, 0, n)
	us := unsplit.New(b, []byte{','})
	for {
		t := us.Next()
		if t == nil {
			break
		}
		v, err := atoi(t, name)
		if err != nil {
			return nil, err
		}
		out = append(out, v+off)
	}
	if len(out) != n {
		return nil, errors.Errorf("psl: expected %d %s, got %d", n, name, len(out))
	}
	return out, nil
}

// Parse reads a single PSL line.
func Parse(line []byte) (Record, error) {
	var r Record
	line = bytes.TrimRight(line, "\r\n")
	toks := make([][]byte, 0, Columns)
	us := unsplit.New(line, []byte{'\t'})
	for {
		t := us.Next()
		if t == nil {
			break
		}
		toks = append(toks, t)
	}
	if len(toks) != Columns {
		return r, errors.Errorf("psl: expected %d columns, got %d", Columns, len(toks))
	}

	var err error
	num := func(i int, name string) int {
		if err != nil {
			return 0
		}
		var v int
		v, err = atoi(toks[i], name)
		return v
	}
	r.Match = num(0, "match")
	r.Mismatch = num(1, "mismatch")
	r.QueryGaps = num(4, "qNumInsert")
	r.TargetGaps = num(6, "tNumInsert")
	r.QuerySize = num(10, "qSize")
	r.QueryStart = num(11, "qStart") + 1
	r.QueryEnd = num(12, "qEnd")
	r.TargetSize = num(14, "tSize")
	r.TargetStart = num(15, "tStart") + 1
	r.TargetEnd = num(16, "tEnd")
	r.BlockCount = num(17, "blockCount")
	if err != nil {
		return r, err
	}

	// translated alignments report two strands; the second is the target's.
	if len(toks[8]) == 0 || (toks[8][0] != '+' && toks[8][0] != '-') {
		return r, errors.Errorf("psl: bad strand %q", toks[8])
	}
	r.Strand = toks[8][0]
	r.QueryName = string(toks[9])
	r.Target = string(toks[13])

	if r.BlockSizes, err = ints(toks[18], r.BlockCount, "blockSizes", 0); err != nil {
		return r, err
	}
	if r.QueryStarts, err = ints(toks[19], r.BlockCount, "qStarts", 1); err != nil {
		return r, err
	}
	if r.TargetStarts, err = ints(toks[20], r.BlockCount, "tStarts", 1); err != nil {
		return r, err
	}
	return r, nil
}

// ReadBest returns the highest scoring record for each query name. Header
// lines are ignored and unparsable lines are logged and skipped.
func ReadBest(r io.Reader) (map[string]Record, error) {
	best := make(map[string]Record)
	br := bufio.NewReader(r)
	n := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			n++
			if isRecordLine(line) {
				rec, perr := Parse(line)
				if perr != nil {
					shared.Slogger.Printf("skipping psl line %d: %s", n, perr)
				} else if cur, ok := best[rec.QueryName]; !ok || rec.Score() > cur.Score() {
					best[rec.QueryName] = rec
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return best, errors.Wrap(err, "psl: reading alignments")
		}
	}
	return best, nil
}

// isRecordLine is false for the psLayout header and blank lines.
func isRecordLine(line []byte) bool {
	return len(line) > 0 && line[0] >= '0' && line[0] <= '9'
}

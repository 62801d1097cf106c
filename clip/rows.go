package clip

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brentp/go-athenaeum/unsplit"
	"github.com/pkg/errors"
)

const unmappedSide = "unmapped"

// WriteEvidence writes e as a single tab-delimited row:
// readId ref pos side strand class clipped aligned read
func WriteEvidence(w io.Writer, e Evidence) error {
	_, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n", e.ReadID, e.Reference, e.Position,
		e.Side, e.Strand, e.Class, e.Clipped, e.Aligned, e.Read)
	return err
}

// WriteUnmapped writes u as: readId ref pos unmapped - class sequence
func WriteUnmapped(w io.Writer, u Unmapped) error {
	_, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\t-\t%s\t%s\n", u.ReadID, u.Reference, u.Position, unmappedSide, u.Class, u.Sequence)
	return err
}

func fields(line []byte) [][]byte {
	toks := make([][]byte, 0, 9)
	us := unsplit.New(line, []byte{'\t'})
	for {
		t := us.Next()
		if t == nil {
			break
		}
		toks = append(toks, t)
	}
	return toks
}

// parseRow returns exactly one of a clip or an unmapped read.
func parseRow(line []byte) (e Evidence, u Unmapped, isUnmapped bool, err error) {
	toks := fields(bytes.TrimRight(line, "\r\n"))
	if len(toks) < 7 {
		return e, u, false, fmt.Errorf("expected at least 7 columns, got %d", len(toks))
	}
	pos, err := strconv.Atoi(string(toks[2]))
	if err != nil {
		return e, u, false, errors.Wrap(err, "bad position")
	}
	if string(toks[3]) == unmappedSide {
		u = Unmapped{ReadID: string(toks[0]), Reference: string(toks[1]), Position: pos,
			Class: Class(toks[5]), Sequence: string(toks[6])}
		return e, u, true, nil
	}
	if len(toks) < 9 {
		return e, u, false, fmt.Errorf("expected 9 columns, got %d", len(toks))
	}
	side, err := ParseSide(string(toks[3]))
	if err != nil {
		return e, u, false, err
	}
	strand, err := ParseStrand(string(toks[4]))
	if err != nil {
		return e, u, false, err
	}
	e = Evidence{Class: Class(toks[5]), Clip: Clip{
		ReadID:    string(toks[0]),
		Reference: string(toks[1]),
		Position:  pos,
		Side:      side,
		Strand:    strand,
		Clipped:   string(toks[6]),
		Aligned:   string(toks[7]),
		Read:      string(toks[8]),
	}}
	return e, u, false, nil
}

// Rows holds everything read from one per-chromosome evidence file.
type Rows struct {
	Clips    []Evidence
	Unmapped []Unmapped
}

// ReadRows parses rows until EOF. Blank lines and lines starting with '#' are
// skipped. The first malformed line stops parsing with an error that names it.
func ReadRows(r io.Reader) (Rows, error) {
	var rows Rows
	br := bufio.NewReader(r)
	n := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			n++
			if line[0] != '#' && len(strings.TrimSpace(string(line))) > 0 {
				e, u, isU, perr := parseRow(line)
				if perr != nil {
					return rows, errors.Wrapf(perr, "clip: line %d", n)
				}
				if isU {
					rows.Unmapped = append(rows.Unmapped, u)
				} else {
					rows.Clips = append(rows.Clips, e)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, errors.Wrap(err, "clip: reading rows")
		}
	}
	return rows, nil
}

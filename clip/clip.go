// Package clip holds soft-clip observations taken from aligned reads and the
// per-chromosome row format they are stored in between extraction and calling.
package clip

import (
	"fmt"
	"sort"
)

// Side tells which end of the read was clipped. A Left clip has its clipped
// bases before the breakpoint and the aligned bases starting at it.
type Side uint8

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// ParseSide is the inverse of Side.String.
func ParseSide(s string) (Side, error) {
	switch s {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	}
	return Left, fmt.Errorf("clip: unknown side %q", s)
}

type Strand byte

const (
	Plus  Strand = '+'
	Minus Strand = '-'
)

func (s Strand) String() string { return string(s) }

// Flip returns the opposite strand.
func (s Strand) Flip() Strand {
	if s == Plus {
		return Minus
	}
	return Plus
}

// ParseStrand accepts "+" or "-".
func ParseStrand(s string) (Strand, error) {
	if len(s) == 1 && (s[0] == '+' || s[0] == '-') {
		return Strand(s[0]), nil
	}
	return Plus, fmt.Errorf("clip: unknown strand %q", s)
}

// Class is the evidence group a read came from.
type Class string

const (
	Tumour Class = "tumour"
	Normal Class = "normal"
)

// Clip is a single soft-clip observation. Position is 1-based: the first
// aligned base for a Left clip and the last aligned base for a Right clip.
type Clip struct {
	Reference string
	Position  int
	Side      Side
	Strand    Strand
	Clipped   string
	Aligned   string
	Read      string
	ReadID    string
}

// Evidence is a Clip tagged with the class of the sample it came from.
type Evidence struct {
	Class Class
	Clip
}

// Unmapped is a read without an alignment whose mate places it at Position.
type Unmapped struct {
	Reference string
	Position  int
	ReadID    string
	Sequence  string
	Class     Class
}

// Less orders clips by position, then read id.
func Less(a, b Clip) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	return a.ReadID < b.ReadID
}

// Equal reports whether a and b are the same observation.
func Equal(a, b Clip) bool {
	return a.Position == b.Position && a.ReadID == b.ReadID
}

// Sort orders clips in place with Less.
func Sort(clips []Clip) {
	sort.Slice(clips, func(i, j int) bool { return Less(clips[i], clips[j]) })
}

// Key identifies the breakpoint a clip supports.
type Key struct {
	Reference string
	Position  int
	Side      Side
}

func (c Clip) Key() Key { return Key{Reference: c.Reference, Position: c.Position, Side: c.Side} }

func (k Key) String() string {
	return fmt.Sprintf("%s_%d_%s", k.Reference, k.Position, k.Side)
}

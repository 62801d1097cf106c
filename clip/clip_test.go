package clip

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/hts/sam"
	. "gopkg.in/check.v1"
)

func Test(t *testing.T) { TestingT(t) }

type ClipTest struct{}

var _ = Suite(&ClipTest{})

func mustRecord(c *C, name, cigar, seq string, pos int, flags sam.Flags) *sam.Record {
	ref, err := sam.NewReference("chr1", "", "", 100000, nil, nil)
	c.Assert(err, IsNil)
	_, err = sam.NewHeader(nil, []*sam.Reference{ref})
	c.Assert(err, IsNil)
	cig, err := sam.ParseCigar([]byte(cigar))
	c.Assert(err, IsNil)
	rec, err := sam.NewRecord(name, ref, nil, pos, -1, 0, 60, cig, []byte(seq), nil, nil)
	c.Assert(err, IsNil)
	rec.Flags = flags
	return rec
}

func (s *ClipTest) TestLeftClip(c *C) {
	rec := mustRecord(c, "r1", "4S6M", "ACGTTTTTTT", 99, 0)
	cl, ok := DefaultFilter.FromRecord(rec)
	c.Assert(ok, Equals, true)
	c.Assert(cl.Side, Equals, Left)
	c.Assert(cl.Position, Equals, 100)
	c.Assert(cl.Clipped, Equals, "ACGT")
	c.Assert(cl.Aligned, Equals, "TTTTTT")
	c.Assert(cl.Strand, Equals, Plus)
	c.Assert(cl.Reference, Equals, "chr1")
}

func (s *ClipTest) TestRightClipReverse(c *C) {
	rec := mustRecord(c, "r2", "2H6M4S", "TTTTTTACGT", 99, sam.Reverse)
	cl, ok := DefaultFilter.FromRecord(rec)
	c.Assert(ok, Equals, true)
	c.Assert(cl.Side, Equals, Right)
	// aligned bases cover 100..105 1-based.
	c.Assert(cl.Position, Equals, 105)
	c.Assert(cl.Clipped, Equals, "ACGT")
	c.Assert(cl.Aligned, Equals, "TTTTTT")
	c.Assert(cl.Strand, Equals, Minus)
}

func (s *ClipTest) TestExcluded(c *C) {
	both := mustRecord(c, "r3", "2S6M2S", "ACTTTTTTGT", 99, 0)
	_, ok := DefaultFilter.FromRecord(both)
	c.Assert(ok, Equals, false)

	none := mustRecord(c, "r4", "10M", "ACTTTTTTGT", 99, 0)
	_, ok = DefaultFilter.FromRecord(none)
	c.Assert(ok, Equals, false)

	dup := mustRecord(c, "r5", "4S6M", "ACGTTTTTTT", 99, sam.Duplicate)
	_, ok = DefaultFilter.FromRecord(dup)
	c.Assert(ok, Equals, false)

	short := mustRecord(c, "r6", "4S6M", "ACGTTTTTTT", 99, 0)
	_, ok = Filter{MinMapQ: 20, MinClip: 5}.FromRecord(short)
	c.Assert(ok, Equals, false)
}

func (s *ClipTest) TestOrdering(c *C) {
	clips := []Clip{
		{Position: 10, ReadID: "b"},
		{Position: 5, ReadID: "z"},
		{Position: 10, ReadID: "a"},
	}
	Sort(clips)
	c.Assert(clips[0].Position, Equals, 5)
	c.Assert(clips[1].ReadID, Equals, "a")
	c.Assert(clips[2].ReadID, Equals, "b")
	c.Assert(Equal(Clip{Position: 10, ReadID: "a", Clipped: "A"}, Clip{Position: 10, ReadID: "a", Clipped: "C"}), Equals, true)
	c.Assert(Equal(clips[1], clips[2]), Equals, false)
}

func (s *ClipTest) TestRows(c *C) {
	var buf bytes.Buffer
	e := Evidence{Class: Normal, Clip: Clip{Reference: "chr2", Position: 42, Side: Right, Strand: Minus,
		Clipped: "ACG", Aligned: "TTTT", Read: "TTTTACG", ReadID: "read/1"}}
	c.Assert(WriteEvidence(&buf, e), IsNil)
	u := Unmapped{Reference: "chr2", Position: 50, ReadID: "read/2", Sequence: "GGGG", Class: Tumour}
	c.Assert(WriteUnmapped(&buf, u), IsNil)
	buf.WriteString("# comment\n\n")

	rows, err := ReadRows(&buf)
	c.Assert(err, IsNil)
	c.Assert(rows.Clips, DeepEquals, []Evidence{e})
	c.Assert(rows.Unmapped, DeepEquals, []Unmapped{u})
}

func (s *ClipTest) TestMalformedRow(c *C) {
	_, err := ReadRows(strings.NewReader("r1\tchr1\tnotanumber\tleft\t+\ttumour\tA\tC\tAC\n"))
	c.Assert(err, NotNil)
	c.Assert(strings.Contains(err.Error(), "line 1"), Equals, true)

	_, err = ReadRows(strings.NewReader("r1\tchr1\t10\tup\t+\ttumour\tA\tC\tAC\n"))
	c.Assert(err, NotNil)
}

func (s *ClipTest) TestDirSource(c *C) {
	dir, err := ioutil.TempDir("", "clipsv-source")
	c.Assert(err, IsNil)
	defer os.RemoveAll(dir)

	c.Assert(ioutil.WriteFile(filepath.Join(dir, "chr3"+Suffix), []byte("garbage\n"), 0644), IsNil)
	c.Assert(ioutil.WriteFile(filepath.Join(dir, "GL000192.1"+Suffix), []byte(""), 0644), IsNil)

	src := DirSource{Dir: dir, Exclude: []string{"~^GL"}}
	chroms, err := src.Chromosomes()
	c.Assert(err, IsNil)
	c.Assert(chroms, DeepEquals, []string{"chr3"})

	// malformed and missing files are both empty.
	c.Assert(src.Load("chr3").Clips, HasLen, 0)
	c.Assert(src.Load("chr9").Clips, HasLen, 0)
}

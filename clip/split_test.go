package clip

import (
	"strings"

	"github.com/biogo/hts/sam"
	. "gopkg.in/check.v1"
)

type SplitTest struct{}

var _ = Suite(&SplitTest{})

func cigars(c *C, cs ...string) []sam.Cigar {
	out := make([]sam.Cigar, len(cs))
	for i, s := range cs {
		cig, err := sam.ParseCigar([]byte(s))
		c.Assert(err, IsNil)
		out[i] = cig
	}
	return out
}

func (s *SplitTest) TestCoverage(c *C) {
	counts := readCoverage(cigars(c, "100M50S", "100S50M"), 150)
	c.Assert(counts, HasLen, 150)
	for i := range counts {
		c.Assert(counts[i], Equals, int8(1))
	}
	c.Assert(DefaultSplitCheck.conflicting(counts), Equals, false)
}

func (s *SplitTest) TestOverlappingParts(c *C) {
	counts := readCoverage(cigars(c, "100M10H", "10M100S"), 150)
	for i := 0; i < 10; i++ {
		c.Assert(counts[i], Equals, int8(2))
	}
	for i := 10; i < 100; i++ {
		c.Assert(counts[i], Equals, int8(1))
	}
	for i := 100; i < 110; i++ {
		c.Assert(counts[i], Equals, int8(0))
	}
	c.Assert(DefaultSplitCheck.conflicting(counts), Equals, true)
}

func withSA(c *C, rec *sam.Record, sa string) *sam.Record {
	aux, err := sam.NewAux(sam.NewTag("SA"), sa)
	c.Assert(err, IsNil)
	rec.AuxFields = append(rec.AuxFields, aux)
	return rec
}

func (s *SplitTest) TestBad(c *C) {
	seq := strings.Repeat("A", 150)
	good := withSA(c, mustRecord(c, "good", "110M40S", seq, 99, 0), "chr1,5000,+,110S40M,60,0;")
	c.Assert(DefaultSplitCheck.Bad(good), Equals, false)

	bad := withSA(c, mustRecord(c, "bad", "110M40S", seq, 99, 0), "chr1,5000,+,90M60S,60,0;")
	c.Assert(DefaultSplitCheck.Bad(bad), Equals, true)

	// a reverse strand part is flipped to the read's orientation.
	flipped := withSA(c, mustRecord(c, "flip", "110M40S", seq, 99, 0), "chr1,5000,-,40M110S,60,0;")
	c.Assert(DefaultSplitCheck.Bad(flipped), Equals, false)

	plain := mustRecord(c, "plain", "110M40S", seq, 99, 0)
	c.Assert(DefaultSplitCheck.Bad(plain), Equals, false)

	f := DefaultFilter
	f.Splits = &DefaultSplitCheck
	_, ok := f.FromRecord(bad)
	c.Assert(ok, Equals, false)
	_, ok = f.FromRecord(good)
	c.Assert(ok, Equals, true)
}

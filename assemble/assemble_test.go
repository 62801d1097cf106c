package assemble

import (
	"reflect"
	"testing"
)

func TestOverlap(t *testing.T) {
	for _, tc := range []struct {
		a, b string
		min  int
		want int
	}{
		{"ACGTAC", "TACGGG", 2, 3},
		{"ACGTAC", "TACGGG", 4, 0},
		{"AAAA", "AAAA", 1, 3},
		{"ACGT", "GGGG", 1, 0},
	} {
		if got := overlap(tc.a, tc.b, tc.min); got != tc.want {
			t.Errorf("overlap(%s, %s, %d) = %d, want %d", tc.a, tc.b, tc.min, got, tc.want)
		}
	}
}

func TestAssembleBothEnds(t *testing.T) {
	g := Greedy{MinOverlap: 4}
	c, ok := g.Assemble("CCGGTTAA", []Read{
		{Name: "r", Sequence: "TTAAGGCA"},
		{Name: "l", Sequence: "ATATCCGG"},
		{Name: "inside", Sequence: "GGTT"},
		{Name: "none", Sequence: "GGGGGGGG"},
	})
	if !ok {
		t.Fatal("expected a contig")
	}
	if c.Sequence != "ATATCCGGTTAAGGCA" {
		t.Fatalf("unexpected contig %s", c.Sequence)
	}
	if !reflect.DeepEqual(c.Names, []string{"l", "r"}) {
		t.Fatalf("unexpected names %v", c.Names)
	}
}

func TestAssembleContaining(t *testing.T) {
	c, ok := Greedy{MinOverlap: 3}.Assemble("GATTACA", []Read{{Name: "big", Sequence: "TTGATTACAGG"}})
	if !ok || c.Sequence != "TTGATTACAGG" {
		t.Fatalf("expected the containing read, got %v %v", c, ok)
	}
}

func TestAssembleNothing(t *testing.T) {
	if _, ok := (Greedy{MinOverlap: 5}).Assemble("ACGTACGT", []Read{{Name: "x", Sequence: "CGTAGGG"}}); ok {
		t.Fatal("short overlap should not extend")
	}
	if _, ok := (Greedy{}).Assemble("ACGT", nil); ok {
		t.Fatal("no reads should give no contig")
	}
}

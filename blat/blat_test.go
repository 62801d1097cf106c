package blat

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFasta(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFasta(&buf, []Query{{"chr1_10_left", "ACGT"}, {"chr1_20_right", "GGCC"}}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != ">chr1_10_left\nACGT\n>chr1_20_right\nGGCC\n" {
		t.Fatalf("unexpected fasta %q", buf.String())
	}
}

func TestCommand(t *testing.T) {
	b := New("/ref/hg38.2bit")
	got := b.command("/tmp/q.fa", "/tmp/q.psl")
	want := "set -euo pipefail\nblat /ref/hg38.2bit /tmp/q.fa /tmp/q.psl -noHead " + DefaultArgs
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	b.Command = "{{exe}} -x {{psl}}"
	b.Executable = "/opt/blat"
	if got := b.command("a", "b"); got != "/opt/blat -x b" {
		t.Fatalf("got %q", got)
	}
}

const alignments = "30\t2\t0\t0\t0\t0\t0\t0\t+\tchr1_1000_left\t40\t0\t32\tchr1\t248956422\t1999\t2031\t1\t32,\t0,\t1999,\n" +
	"10\t2\t0\t0\t0\t0\t0\t0\t+\tchr1_1000_left\t40\t0\t12\tchr3\t198295559\t99\t111\t1\t12,\t0,\t99,\n"

func TestAlign(t *testing.T) {
	dir, err := ioutil.TempDir("", "clipsv-blat")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	fixture := filepath.Join(dir, "fixture.psl")
	if err := ioutil.WriteFile(fixture, []byte(alignments), 0644); err != nil {
		t.Fatal(err)
	}
	b := &Blat{Command: "grep -c chr1_1000_left {{fasta}} > /dev/null && cat " + fixture + " > {{psl}}"}
	best, err := b.Align(context.Background(), []Query{{"chr1_1000_left", strings.Repeat("A", 40)}})
	if err != nil {
		t.Fatal(err)
	}
	if len(best) != 1 || best["chr1_1000_left"].Target != "chr1" {
		t.Fatalf("unexpected alignments %+v", best)
	}

	b.Command = "exit 3"
	if _, err := b.Align(context.Background(), []Query{{"q", "ACGT"}}); err == nil {
		t.Fatal("expected an error from a failing command")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Align(ctx, []Query{{"q", "ACGT"}}); err == nil {
		t.Fatal("expected a cancelled context to stop the batch")
	}
	if got, err := b.Align(ctx, nil); err != nil || len(got) != 0 {
		t.Fatalf("empty batch: %v %v", got, err)
	}
}

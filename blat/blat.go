// Package blat aligns batches of consensus sequences with an out of process
// BLAT call.
package blat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/brentp/clipsv/psl"
	"github.com/brentp/clipsv/shared"
	"github.com/brentp/go-athenaeum/tempclean"
	"github.com/brentp/xopen"
	"github.com/pkg/errors"
	"github.com/valyala/fasttemplate"
)

// Query is a named sequence to align.
type Query struct {
	Name     string
	Sequence string
}

// DefaultCommand runs blat on a reference (.2bit or fasta) writing headerless
// PSL.
const DefaultCommand = `set -euo pipefail
{{exe}} {{reference}} {{fasta}} {{psl}} -noHead {{args}}`

// DefaultArgs are tuned for short queries.
const DefaultArgs = "-stepSize=5 -repMatch=2253 -minScore=20 -minIdentity=95"

// Blat runs one process per call to Align.
type Blat struct {
	Executable string
	Reference  string
	Args       string
	// Command is a fasttemplate with {{exe}}, {{reference}}, {{fasta}},
	// {{psl}} and {{args}}. DefaultCommand is used when empty.
	Command string
}

// New returns a Blat with default arguments.
func New(reference string) *Blat {
	return &Blat{Executable: "blat", Reference: reference, Args: DefaultArgs}
}

// WriteFasta writes each query as a single-line record.
func WriteFasta(w io.Writer, queries []Query) error {
	bw := bufio.NewWriter(w)
	for _, q := range queries {
		if _, err := fmt.Fprintf(bw, ">%s\n%s\n", q.Name, q.Sequence); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (b *Blat) command(fasta, out string) string {
	tmpl := b.Command
	if tmpl == "" {
		tmpl = DefaultCommand
	}
	exe := b.Executable
	if exe == "" {
		exe = "blat"
	}
	vars := map[string]interface{}{
		"exe":       exe,
		"reference": b.Reference,
		"fasta":     fasta,
		"psl":       out,
		"args":      b.Args,
	}
	return fasttemplate.New(tmpl, "{{", "}}").ExecuteString(vars)
}

// Align returns the best alignment for each query that aligned. ctx is only
// checked before the process starts; a started batch always completes.
func (b *Blat) Align(ctx context.Context, queries []Query) (map[string]psl.Record, error) {
	if len(queries) == 0 {
		return map[string]psl.Record{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fa, err := tempclean.TempFile("", "clipsv.fa")
	if err != nil {
		return nil, errors.Wrap(err, "blat: creating query fasta")
	}
	defer os.Remove(fa.Name())
	if err := WriteFasta(fa, queries); err != nil {
		fa.Close()
		return nil, errors.Wrap(err, "blat: writing query fasta")
	}
	if err := fa.Close(); err != nil {
		return nil, errors.Wrap(err, "blat: writing query fasta")
	}
	out, err := tempclean.TempFile("", "clipsv.psl")
	if err != nil {
		return nil, errors.Wrap(err, "blat: creating psl output")
	}
	out.Close()
	defer os.Remove(out.Name())

	t0 := time.Now()
	p := exec.Command("bash", "-c", b.command(fa.Name(), out.Name()))
	p.Stderr = shared.Slogger
	p.Stdout = shared.Slogger
	if err := p.Run(); err != nil {
		return nil, errors.Wrapf(err, "blat: aligning %d queries", len(queries))
	}

	f, err := xopen.Ropen(out.Name())
	if err != nil {
		return nil, errors.Wrap(err, "blat: reading psl output")
	}
	defer f.Close()
	best, err := psl.ReadBest(f)
	if err != nil {
		return nil, err
	}
	shared.Slogger.Printf("aligned %d of %d queries in %.1f seconds", len(best), len(queries), time.Since(t0).Seconds())
	return best, nil
}

package clip

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
	"github.com/brentp/clipsv/shared"
	"github.com/brentp/goleft/covstats"
	"github.com/brentp/goleft/indexcov"
	"github.com/brentp/xopen"
	"github.com/pkg/errors"
)

type cliargs struct {
	Tumour        string `arg:"-t,required,help:indexed bam for the tumour (or only) sample."`
	Normal        string `arg:"-N,help:optional indexed bam for the matched normal."`
	OutDir        string `arg:"-o,help:output directory for per-chromosome evidence."`
	ExcludeChroms string `arg:"-C,help:ignore these comma-delimited chroms. If this starts with ~ it is treated as a regular expression to exclude."`
	MinMapQ       int    `arg:"-q,help:minimum mapping quality of a clipped read."`
	MinClip       int    `arg:"-m,help:minimum length of a soft clip."`
	Unmapped      bool   `arg:"-u,help:also store unmapped reads placed by their mate."`
	KeepBadSplits bool   `arg:"-b,help:keep split reads whose supplementary alignments disagree with the clip."`
	Processes     int    `arg:"-p,help:number of chromosomes to process in parallel."`
}

func (cliargs) Description() string {
	return "extract soft-clipped reads from bams into per-chromosome evidence files for `call`"
}

func check(e error) {
	if e != nil {
		panic(e)
	}
}

// Input is one bam and the class its reads are assigned.
type Input struct {
	Path  string
	Class Class
}

// Extractor writes clip evidence for every chromosome of the inputs.
type Extractor struct {
	Inputs   []Input
	OutDir   string
	Filter   Filter
	Unmapped bool
	Exclude  []string
}

type indexedBam struct {
	f   *os.File
	br  *bam.Reader
	idx *bam.Index
}

func openIndexed(path string) (*indexedBam, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "clip: opening %s", path)
	}
	br, err := bam.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "clip: reading %s", path)
	}
	fi, err := os.Open(path + ".bai")
	if err != nil {
		br.Close()
		f.Close()
		return nil, errors.Wrapf(err, "clip: %s must be indexed", path)
	}
	defer fi.Close()
	idx, err := bam.ReadIndex(fi)
	if err != nil {
		br.Close()
		f.Close()
		return nil, errors.Wrapf(err, "clip: reading index for %s", path)
	}
	return &indexedBam{f: f, br: br, idx: idx}, nil
}

func (b *indexedBam) Close() error {
	b.br.Close()
	return b.f.Close()
}

func refByName(h *sam.Header, name string) *sam.Reference {
	for _, r := range h.Refs() {
		if r.Name() == name {
			return r
		}
	}
	return nil
}

// chromosome writes the evidence for one chromosome from every input and
// returns the number of clips written.
func (x *Extractor) chromosome(bams []*indexedBam, chrom string) (int, error) {
	out, err := xopen.Wopen(Path(x.OutDir, chrom))
	if err != nil {
		return 0, errors.Wrapf(err, "clip: creating evidence for %s", chrom)
	}
	w := bufio.NewWriter(out)
	n := 0
	for i, b := range bams {
		ref := refByName(b.br.Header(), chrom)
		if ref == nil {
			continue
		}
		chunks, err := b.idx.Chunks(ref, 0, ref.Len())
		if err == index.ErrInvalid || err == io.EOF {
			continue
		}
		if err != nil {
			return n, errors.Wrapf(err, "clip: index lookup for %s", chrom)
		}
		it, err := bam.NewIterator(b.br, chunks)
		if err != nil {
			return n, errors.Wrapf(err, "clip: iterating %s", chrom)
		}
		class := x.Inputs[i].Class
		for it.Next() {
			rec := it.Record()
			if c, ok := x.Filter.FromRecord(rec); ok {
				if err := WriteEvidence(w, Evidence{Class: class, Clip: c}); err != nil {
					it.Close()
					return n, err
				}
				n++
				continue
			}
			if x.Unmapped {
				if u, ok := UnmappedFromRecord(rec); ok {
					u.Class = class
					if err := WriteUnmapped(w, u); err != nil {
						it.Close()
						return n, err
					}
				}
			}
		}
		if err := it.Error(); err != nil && err != io.EOF {
			it.Close()
			return n, errors.Wrapf(err, "clip: reading %s from %s", chrom, x.Inputs[i].Path)
		}
		it.Close()
	}
	if err := w.Flush(); err != nil {
		return n, err
	}
	return n, out.Close()
}

// Run extracts all chromosomes using procs goroutines. Each goroutine opens
// its own readers.
func (x *Extractor) Run(procs int) error {
	if len(x.Inputs) == 0 {
		return errors.New("clip: no inputs")
	}
	first, err := openIndexed(x.Inputs[0].Path)
	if err != nil {
		return err
	}
	chroms := make([]string, 0, len(first.br.Header().Refs()))
	for _, r := range first.br.Header().Refs() {
		if shared.Contains(x.Exclude, r.Name()) {
			continue
		}
		chroms = append(chroms, r.Name())
	}
	first.Close()

	ch := make(chan string, procs)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	for i := 0; i < procs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bams := make([]*indexedBam, 0, len(x.Inputs))
			defer func() {
				for _, b := range bams {
					b.Close()
				}
			}()
			for _, in := range x.Inputs {
				b, err := openIndexed(in.Path)
				if err != nil {
					fail(err)
					for range ch {
					}
					return
				}
				bams = append(bams, b)
			}
			for chrom := range ch {
				t0 := time.Now()
				n, err := x.chromosome(bams, chrom)
				if err != nil {
					fail(err)
					continue
				}
				shared.Slogger.Printf("wrote %d clips for %s in %.1f seconds", n, chrom, time.Since(t0).Seconds())
			}
		}()
	}
	for _, c := range chroms {
		ch <- c
	}
	close(ch)
	wg.Wait()
	return firstErr
}

// writeStats stores the template-length summary of path next to the evidence
// so that `call` can pick a minimum insert size.
func writeStats(path, outdir string) {
	br, err := shared.NewReader(path, 2, "")
	check(err)
	stats := covstats.BamStats(br, 200000, 0)
	br.Close()
	sm, err := indexcov.GetShortName(path, false)
	check(err)
	f, err := os.Create(StatsPath(outdir))
	check(err)
	_, err = fmt.Fprintf(f, "%s\t%.3f\t%.3f\t%d\n", sm, stats.TemplateMean, stats.TemplateSD, stats.MaxReadLength)
	check(err)
	check(f.Close())
	shared.Slogger.Printf("%s: template mean %.1f, sd %.1f, max read length %d", sm, stats.TemplateMean, stats.TemplateSD, stats.MaxReadLength)
}

// StatsPath is where Extract stores library statistics.
func StatsPath(outdir string) string {
	return filepath.Join(outdir, "library.stats")
}

// Main is the `extract` sub-command.
func Main() {
	here, _ := filepath.Abs(".")
	cli := cliargs{OutDir: here, ExcludeChroms: "hs37d5,~:,~^GL,~decoy", MinMapQ: int(MinMapQuality), MinClip: 1,
		Processes: runtime.GOMAXPROCS(0)}
	arg.MustParse(&cli)
	check(os.MkdirAll(cli.OutDir, 0755))

	x := &Extractor{
		Inputs:   []Input{{Path: cli.Tumour, Class: Tumour}},
		OutDir:   cli.OutDir,
		Filter:   Filter{MinMapQ: byte(cli.MinMapQ), MinClip: cli.MinClip},
		Unmapped: cli.Unmapped,
		Exclude:  shared.SplitChroms(cli.ExcludeChroms),
	}
	if !cli.KeepBadSplits {
		sc := DefaultSplitCheck
		x.Filter.Splits = &sc
	}
	if cli.Normal != "" {
		x.Inputs = append(x.Inputs, Input{Path: cli.Normal, Class: Normal})
	}
	writeStats(cli.Tumour, cli.OutDir)
	if err := x.Run(cli.Processes); err != nil {
		shared.Slogger.Fatal(err)
	}
}

// Package engine runs breakpoint detection and clustering over every
// chromosome.
//
// Each chromosome goes through load, define, a single batched alignment, mate
// resolution and intra-chromosomal pairing on its own. Once every chromosome
// is done, breakpoints with mates on other chromosomes are paired, clusters
// are merged with discordant read-pair clusters and unresolved breakpoints get
// a second, wider attempt.
package engine

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/brentp/clipsv/blat"
	"github.com/brentp/clipsv/breakpoint"
	"github.com/brentp/clipsv/clip"
	"github.com/brentp/clipsv/cluster"
	"github.com/brentp/clipsv/discordant"
	"github.com/brentp/clipsv/psl"
	"github.com/brentp/clipsv/shared"
	"github.com/pkg/errors"
)

// EvidenceSource supplies the clip evidence of each chromosome.
type EvidenceSource interface {
	Chromosomes() ([]string, error)
	Load(chrom string) clip.Rows
}

// Aligner aligns a batch of queries and returns the best record per query
// name.
type Aligner interface {
	Align(ctx context.Context, queries []blat.Query) (map[string]psl.Record, error)
}

// Options control the run. Zero numeric values and zero Params are replaced
// by DefaultOptions. Rescue and Unmapped are taken as given.
type Options struct {
	Params breakpoint.Params

	// Processes is the number of chromosomes handled at once.
	Processes int
	// DefineWorkers is the size of the pool defining one chromosome's
	// breakpoints.
	DefineWorkers int
	// MateTolerance is how far apart mutual mate positions may be.
	MateTolerance int
	// LowConfidenceClips is the clip count from which an unresolved somatic
	// breakpoint is reported.
	LowConfidenceClips int
	// OverlapWindow pads clip positions when looking for discordant clusters.
	OverlapWindow int
	// RescueWindow replaces Params.UnmappedWindow in the rescue pass.
	RescueWindow int
	// RescueBatchSize is the number of queries per rescue alignment.
	RescueBatchSize int
	// RescueClips is the fewest tumour clips a breakpoint needs to be
	// rescued.
	RescueClips int
	// Timeout bounds the wait for all chromosomes.
	Timeout time.Duration
	// Unmapped adds unmapped reads to consensus extension.
	Unmapped bool
	// Rescue enables the second pass.
	Rescue bool

	Discordant *discordant.Index
	// LowConfidence receives unresolved breakpoints. It may be nil.
	LowConfidence io.Writer
}

// DefaultOptions are used for any unset field.
var DefaultOptions = Options{
	Params:             breakpoint.DefaultParams,
	Processes:          runtime.GOMAXPROCS(0),
	DefineWorkers:      4,
	MateTolerance:      10,
	LowConfidenceClips: 10,
	OverlapWindow:      500,
	RescueWindow:       2000,
	RescueBatchSize:    500,
	RescueClips:        2,
	Timeout:            48 * time.Hour,
	Rescue:             true,
}

func (o *Options) fill() {
	d := DefaultOptions
	if o.Params.ClipCount == 0 && o.Params.MinConsensusLength == 0 {
		a := o.Params.Assembler
		o.Params = d.Params
		o.Params.Assembler = a
	}
	for _, f := range []struct{ v, def *int }{
		{&o.Processes, &d.Processes},
		{&o.DefineWorkers, &d.DefineWorkers},
		{&o.MateTolerance, &d.MateTolerance},
		{&o.LowConfidenceClips, &d.LowConfidenceClips},
		{&o.OverlapWindow, &d.OverlapWindow},
		{&o.RescueWindow, &d.RescueWindow},
		{&o.RescueBatchSize, &d.RescueBatchSize},
		{&o.RescueClips, &d.RescueClips},
	} {
		if *f.v <= 0 {
			*f.v = *f.def
		}
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
}

// Engine holds the collaborators for a run.
type Engine struct {
	Source  EvidenceSource
	Aligner Aligner
	Options

	lowMu sync.Mutex
}

// New returns an engine. Unset options take their default.
func New(src EvidenceSource, aligner Aligner, opts Options) *Engine {
	opts.fill()
	return &Engine{Source: src, Aligner: aligner, Options: opts}
}

// chromResult is everything a chromosome hands to the global stages.
type chromResult struct {
	chrom    string
	table    *breakpoint.Table
	clusters []cluster.Cluster
	// inter have their mate on another chromosome.
	inter      []breakpoint.Resolved
	unresolved []*breakpoint.Breakpoint
}

// Run processes every chromosome and returns the events sorted by position.
// The first worker error cancels the run; it is returned once in-flight work
// has finished.
func (e *Engine) Run(ctx context.Context) ([]Event, error) {
	chroms, err := e.Source.Chromosomes()
	if err != nil {
		return nil, errors.Wrap(err, "engine: listing chromosomes")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var firstErr error
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
		cancel()
	}

	results := make([]*chromResult, 0, len(chroms))
	ch := make(chan string, e.Processes)
	var wg sync.WaitGroup
	for i := 0; i < e.Processes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chrom := range ch {
				if ctx.Err() != nil {
					continue
				}
				res, err := e.safeChromosome(ctx, chrom)
				if err != nil {
					fail(errors.Wrapf(err, "engine: %s", chrom))
					continue
				}
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}
	go func() {
		defer close(ch)
		for _, c := range chroms {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := barrier(&wg, e.Timeout); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].chrom < results[j].chrom })

	clusters := make([]cluster.Cluster, 0, 64)
	var inter []breakpoint.Resolved
	for _, r := range results {
		clusters = append(clusters, r.clusters...)
		inter = append(inter, r.inter...)
	}
	clusters = append(clusters, pairAcross(inter, e.MateTolerance)...)
	events := e.overlap(clusters)

	if e.Rescue {
		rescued, err := e.rescue(ctx, results)
		if err != nil {
			return nil, err
		}
		events = append(events, rescued...)
	}
	sortEvents(events)
	shared.Slogger.Printf("found %d events over %d chromosomes", len(events), len(results))
	return events, nil
}

// barrier waits for every chromosome worker. Waiting longer than timeout is
// fatal.
func barrier(wg *sync.WaitGroup, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.Errorf("engine: chromosomes did not finish within %s", timeout)
	}
}

// safeChromosome turns a panic in a worker into an error.
func (e *Engine) safeChromosome(ctx context.Context, chrom string) (res *chromResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return e.chromosome(ctx, chrom)
}

func (e *Engine) chromosome(ctx context.Context, chrom string) (*chromResult, error) {
	t0 := time.Now()
	res := &chromResult{chrom: chrom, table: breakpoint.NewTable(chrom)}

	// load
	rows := e.Source.Load(chrom)
	var unmapped []clip.Unmapped
	if e.Unmapped {
		unmapped = rows.Unmapped
		sort.Slice(unmapped, func(i, j int) bool { return unmapped[i].Position < unmapped[j].Position })
	}
	candidates := e.candidates(chrom, rows.Clips)
	window := e.Params.UnmappedWindow
	if e.Rescue && e.RescueWindow > window {
		window = e.RescueWindow
	}
	for _, b := range candidates {
		addUnmapped(b, unmapped, window)
	}

	// define
	defined, err := e.define(ctx, candidates, e.Params, false)
	if err != nil {
		return nil, err
	}

	// align
	alignments := e.align(ctx, chrom, defined)

	// resolve
	done := make(map[clip.Key]bool, len(defined))
	var intra []breakpoint.Resolved
	for _, d := range defined {
		var r *breakpoint.Resolved
		ok := false
		if rec, found := alignments[d.Name()]; found {
			r, ok = d.ResolveMate(rec, e.Params)
		}
		if r != nil {
			// resolved, or a mate too close to call.
			done[d.Key] = true
		}
		if ok {
			res.table.Add(r)
			if r.SameReference() {
				intra = append(intra, *r)
			} else {
				res.inter = append(res.inter, *r)
			}
			continue
		}
		if !d.Germline && d.Clips >= e.LowConfidenceClips && e.LowConfidence != nil {
			e.lowMu.Lock()
			err := writeLowConfidence(e.LowConfidence, d)
			e.lowMu.Unlock()
			if err != nil {
				return nil, errors.Wrap(err, "writing low confidence breakpoint")
			}
		}
	}
	for _, b := range candidates {
		if !done[b.Key] && b.Count(clip.Tumour) >= e.RescueClips {
			res.unresolved = append(res.unresolved, b)
		}
	}

	// intra-chromosomal clusters
	pairs, orphans := pairMutual(intra, e.MateTolerance)
	for _, p := range pairs {
		res.clusters = append(res.clusters, cluster.NewPair(intra[p[0]], intra[p[1]]).Normalize())
	}
	for _, i := range orphans {
		res.clusters = append(res.clusters, cluster.NewOrphan(intra[i]).Normalize())
	}
	shared.Slogger.Printf("%s: %d candidates, %d defined, %d resolved, %d clusters in %.1f seconds", chrom,
		len(candidates), len(defined), res.table.Len(), len(res.clusters), time.Since(t0).Seconds())
	return res, nil
}

// candidates groups clips into breakpoints ordered by position, left side
// first.
func (e *Engine) candidates(chrom string, clips []clip.Evidence) []*breakpoint.Breakpoint {
	sides := [2]map[int]*breakpoint.Breakpoint{make(map[int]*breakpoint.Breakpoint), make(map[int]*breakpoint.Breakpoint)}
	skipped := 0
	for _, ev := range clips {
		if ev.Reference != chrom {
			skipped++
			continue
		}
		m := sides[ev.Side]
		b, ok := m[ev.Position]
		if !ok {
			b = breakpoint.New(ev.Key())
			m[ev.Position] = b
		}
		if err := b.AddEvidence(ev.Class, ev.Clip); err != nil {
			skipped++
		}
	}
	if skipped > 0 {
		shared.Slogger.Printf("%s: skipped %d clips from other chromosomes", chrom, skipped)
	}
	out := make([]*breakpoint.Breakpoint, 0, len(sides[0])+len(sides[1]))
	for _, m := range sides {
		for _, b := range m {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].Side < out[j].Side
	})
	return out
}

// addUnmapped gives b the unmapped reads within window of its position.
// unmapped must be sorted by position.
func addUnmapped(b *breakpoint.Breakpoint, unmapped []clip.Unmapped, window int) {
	if len(unmapped) == 0 {
		return
	}
	i := sort.Search(len(unmapped), func(i int) bool { return unmapped[i].Position >= b.Position-window })
	for ; i < len(unmapped) && unmapped[i].Position <= b.Position+window; i++ {
		b.AddUnmapped(unmapped[i])
	}
}

// define runs Define over bps with a bounded pool. The result is ordered by
// position and side.
// safeDefine turns a panic inside Define (usually from the Assembler) into
// an error for b.
func safeDefine(b *breakpoint.Breakpoint, p breakpoint.Params, rescue bool) (d *breakpoint.Defined, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, ok, err = nil, false, fmt.Errorf("defining %s: panic: %v", b.Key, r)
		}
	}()
	d, ok = b.Define(p, rescue)
	return d, ok, nil
}

func (e *Engine) define(ctx context.Context, bps []*breakpoint.Breakpoint, p breakpoint.Params, rescue bool) ([]*breakpoint.Defined, error) {
	in := make(chan *breakpoint.Breakpoint, e.DefineWorkers)
	out := make(chan *breakpoint.Defined, e.DefineWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed error
	for i := 0; i < e.DefineWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range in {
				mu.Lock()
				stop := failed != nil
				mu.Unlock()
				if stop {
					continue
				}
				d, ok, err := safeDefine(b, p, rescue)
				if err != nil {
					mu.Lock()
					if failed == nil {
						failed = err
					}
					mu.Unlock()
					continue
				}
				if ok {
					out <- d
				}
			}
		}()
	}
	go func() {
		defer close(in)
		for _, b := range bps {
			if ctx.Err() != nil {
				return
			}
			in <- b
		}
	}()
	go func() {
		wg.Wait()
		close(out)
	}()

	var defined []*breakpoint.Defined
	for d := range out {
		defined = append(defined, d)
	}
	if failed != nil {
		return nil, failed
	}
	sort.Slice(defined, func(i, j int) bool {
		if defined[i].Position != defined[j].Position {
			return defined[i].Position < defined[j].Position
		}
		return defined[i].Side < defined[j].Side
	})
	return defined, nil
}

// align sends every query of a batch in one call. A failed call leaves the
// whole batch unresolved.
func (e *Engine) align(ctx context.Context, label string, defined []*breakpoint.Defined) map[string]psl.Record {
	if len(defined) == 0 {
		return nil
	}
	queries := make([]blat.Query, len(defined))
	for i, d := range defined {
		queries[i] = blat.Query{Name: d.Name(), Sequence: d.Query()}
	}
	alignments, err := e.Aligner.Align(ctx, queries)
	if err != nil {
		shared.Slogger.Printf("%s: alignment failed, %d breakpoints unresolved: %s", label, len(defined), err)
		return nil
	}
	return alignments
}

// pairAcross pairs breakpoints whose mates are on another chromosome. Each
// unordered chromosome pair is handled separately.
func pairAcross(inter []breakpoint.Resolved, tol int) []cluster.Cluster {
	groups := make(map[discordant.Key][]breakpoint.Resolved)
	for _, r := range inter {
		k := discordant.NewKey(r.Reference, r.MateReference)
		groups[k] = append(groups[k], r)
	}
	keys := make([]discordant.Key, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	var out []cluster.Cluster
	for _, k := range keys {
		bps := groups[k]
		sortResolved(bps)
		pairs, orphans := pairMutual(bps, tol)
		for _, p := range pairs {
			out = append(out, cluster.NewPair(bps[p[0]], bps[p[1]]).Normalize())
		}
		for _, i := range orphans {
			out = append(out, cluster.NewOrphan(bps[i]).Normalize())
		}
	}
	return out
}

// overlap unions clip clusters with the discordant clusters joining the same
// positions. Discordant clusters that match nothing become their own events.
func (e *Engine) overlap(clusters []cluster.Cluster) []Event {
	events := make([]Event, 0, len(clusters))
	var used []bool
	if e.Discordant != nil {
		used = make([]bool, e.Discordant.Len())
	}
	for i := range clusters {
		c := clusters[i]
		ev := Event{Clip: &c}
		if e.Discordant != nil {
			for _, j := range e.Discordant.Overlapping(c.LeftReference, c.LeftBreakpoint, c.RightReference,
				c.RightBreakpoint, e.OverlapWindow) {
				ev.Discordant = append(ev.Discordant, e.Discordant.Cluster(j))
				used[j] = true
			}
		}
		events = append(events, ev)
	}
	for j, u := range used {
		if !u {
			events = append(events, Event{Discordant: []discordant.Cluster{e.Discordant.Cluster(j)}})
		}
	}
	return events
}

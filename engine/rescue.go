package engine

import (
	"context"
	"time"

	"github.com/brentp/clipsv/breakpoint"
	"github.com/brentp/clipsv/cluster"
	"github.com/brentp/clipsv/shared"
	"github.com/pkg/errors"
)

// rescue gives unresolved breakpoints a second attempt without the clip count
// threshold. With an Assembler set, unmapped reads from the wider window are
// used for extension. Each breakpoint that resolves becomes an orphan event.
func (e *Engine) rescue(ctx context.Context, results []*chromResult) ([]Event, error) {
	var bps []*breakpoint.Breakpoint
	for _, r := range results {
		bps = append(bps, r.unresolved...)
	}
	if len(bps) == 0 {
		return nil, nil
	}
	t0 := time.Now()
	p := e.Params
	p.UnmappedWindow = e.RescueWindow
	defined, err := e.define(ctx, bps, p, true)
	if err != nil {
		return nil, errors.Wrap(err, "engine: rescue")
	}

	var events []Event
	for i := 0; i < len(defined); i += e.RescueBatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		j := i + e.RescueBatchSize
		if j > len(defined) {
			j = len(defined)
		}
		batch := defined[i:j]
		alignments := e.align(ctx, "rescue", batch)
		for _, d := range batch {
			rec, found := alignments[d.Name()]
			if !found {
				continue
			}
			r, ok := d.ResolveMate(rec, p)
			if !ok {
				continue
			}
			c := cluster.NewOrphan(*r).Normalize()
			events = append(events, Event{Clip: &c, SecondPass: true})
		}
	}
	shared.Slogger.Printf("rescue: %d of %d breakpoints resolved in %.1f seconds", len(events), len(bps), time.Since(t0).Seconds())
	return events, nil
}

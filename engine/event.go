package engine

import (
	"fmt"
	"io"
	"sort"

	"github.com/brentp/clipsv/breakpoint"
	"github.com/brentp/clipsv/cluster"
	"github.com/brentp/clipsv/discordant"
)

// Event is one finished candidate. Clip is nil for discordant clusters that
// matched no clip cluster.
type Event struct {
	ID         string
	Clip       *cluster.Cluster
	Discordant []discordant.Cluster
	// SecondPass is set for events found by the rescue pass.
	SecondPass bool
}

// Reference and Position locate the lower side of the event.
func (e Event) Reference() string {
	if e.Clip != nil {
		return e.Clip.LeftReference
	}
	return e.Discordant[0].LeftRef
}

func (e Event) Position() int {
	if e.Clip != nil {
		return e.Clip.LeftBreakpoint
	}
	return e.Discordant[0].LeftStart
}

// PairedReads is the discordant pair support of the event.
func (e Event) PairedReads() int {
	n := 0
	for _, d := range e.Discordant {
		n += d.Support
	}
	return n
}

func sortEvents(evs []Event) {
	sort.SliceStable(evs, func(i, j int) bool {
		a, b := evs[i], evs[j]
		if a.Reference() != b.Reference() {
			return a.Reference() < b.Reference()
		}
		return a.Position() < b.Position()
	})
	for i := range evs {
		evs[i].ID = fmt.Sprintf("clipsv_%d", i+1)
	}
}

// writeLowConfidence writes a breakpoint that found no confident mate:
// ref pos germline|somatic left|right strand pos neg consensus
func writeLowConfidence(w io.Writer, d *breakpoint.Defined) error {
	class := "somatic"
	if d.Germline {
		class = "germline"
	}
	_, err := fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\t%d\t%s\n", d.Reference, d.Position, class, d.Side,
		d.Strand, d.PosCount, d.NegCount, d.Consensus())
	return err
}

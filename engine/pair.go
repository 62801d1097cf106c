package engine

import (
	"sort"

	"github.com/brentp/clipsv/breakpoint"
	"github.com/kyroy/kdtree"
	"github.com/kyroy/kdtree/kdrange"
)

// mpoint places a breakpoint at (position, mate position).
type mpoint struct {
	i         int
	pos, mate int
}

func (p mpoint) Dimensions() int { return 2 }
func (p mpoint) Dimension(i int) float64 {
	if i == 0 {
		return float64(p.pos)
	}
	return float64(p.mate)
}

// mutual is true when a and b each land within tol of the other's position
// on the other's reference.
func mutual(a, b breakpoint.Resolved, tol int) bool {
	return a.MateReference == b.Reference && b.MateReference == a.Reference &&
		abs(a.MatePosition-b.Position) <= tol && abs(b.MatePosition-a.Position) <= tol
}

// pairMutual greedily pairs breakpoints whose mates point at each other. bps
// are visited in order and each is used at most once. Breakpoints that find
// no partner are returned as orphans.
func pairMutual(bps []breakpoint.Resolved, tol int) (pairs [][2]int, orphans []int) {
	if len(bps) == 0 {
		return nil, nil
	}
	pts := make([]kdtree.Point, len(bps))
	for i, b := range bps {
		pts[i] = mpoint{i: i, pos: b.Position, mate: b.MatePosition}
	}
	tree := kdtree.New(pts)
	used := make([]bool, len(bps))
	ft := float64(tol)
	for i, a := range bps {
		if used[i] {
			continue
		}
		// a partner sits at a's mate and has its mate at a.
		found := tree.RangeSearch(kdrange.New(
			float64(a.MatePosition)-ft, float64(a.MatePosition)+ft,
			float64(a.Position)-ft, float64(a.Position)+ft))
		best, bestDist := -1, 0
		for _, p := range found {
			j := p.(mpoint).i
			if j == i || used[j] || !mutual(a, bps[j], tol) {
				continue
			}
			d := abs(a.MatePosition-bps[j].Position) + abs(bps[j].MatePosition-a.Position)
			if best < 0 || d < bestDist || (d == bestDist && j < best) {
				best, bestDist = j, d
			}
		}
		if best < 0 {
			continue
		}
		used[i], used[best] = true, true
		pairs = append(pairs, [2]int{i, best})
	}
	for i := range bps {
		if !used[i] {
			orphans = append(orphans, i)
		}
	}
	return pairs, orphans
}

// sortResolved orders breakpoints by reference, position then side.
func sortResolved(bps []breakpoint.Resolved) {
	sort.SliceStable(bps, func(i, j int) bool {
		a, b := bps[i], bps[j]
		if a.Reference != b.Reference {
			return a.Reference < b.Reference
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.Side < b.Side
	})
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

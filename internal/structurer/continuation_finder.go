package structurer

import "github.com/SovereignSatellite/Spider/internal/cfg"

// continuationFinder expands the dominated-block frontier out from each
// branch arm until it finds the blocks where the arms rejoin: a point
// "dominates" (is still inside the arm) only if every one of its
// predecessors is also already inside the arm (or is itself), and is
// excluded from expansion when it's in the caller-supplied excluded set
// (used to keep distinct A-register continuations from merging early).
type continuationFinder struct {
	points   []cfg.BlockID
	excluded []cfg.BlockID

	expanded set
	seen     set
	stack    []cfg.BlockID
}

func (f *continuationFinder) setExcluded(ids []cfg.BlockID) {
	f.excluded = append(f.excluded[:0], ids...)
	sortBlockIDs(f.excluded)
	f.excluded = dedupBlockIDs(f.excluded)
}

func sortBlockIDs(ids []cfg.BlockID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

func binarySearchBlockID(ids []cfg.BlockID, target cfg.BlockID) (int, bool) {
	lo, hi := 0, len(ids)
	for lo < hi {
		mid := (lo + hi) / 2
		if ids[mid] < target {
			lo = mid + 1
		} else if ids[mid] > target {
			hi = mid
		} else {
			return mid, true
		}
	}
	return lo, false
}

// edgesInto appends (predecessor, point) for every already-expanded
// predecessor of every found continuation point.
func (f *continuationFinder) edgesInto(g *Graph, out *[]edge) {
	for _, point := range f.points {
		for _, pred := range g.Predecessors(point) {
			if f.expanded.contains(int(pred)) {
				*out = append(*out, edge{pred, point})
			}
		}
	}
}

func (f *continuationFinder) dominates(g *Graph, id cfg.BlockID) bool {
	if _, found := binarySearchBlockID(f.excluded, id); found {
		return false
	}
	for _, p := range g.Predecessors(id) {
		if p != id && !f.expanded.contains(int(p)) {
			return false
		}
	}
	return true
}

func (f *continuationFinder) addSuccessor(id cfg.BlockID) {
	if f.seen.growInsert(int(id)) {
		return
	}
	f.stack = append(f.stack, id)
}

func (f *continuationFinder) setEntry(g *Graph, entry cfg.BlockID) {
	if _, found := binarySearchBlockID(f.excluded, entry); found {
		predecessor := g.Predecessors(entry)[0]
		f.points = append(f.points, entry)
		f.expanded.insert(int(predecessor))
		return
	}

	f.seen.clear()
	f.seen.insert(int(entry))
	f.expanded.insert(int(entry))

	for _, succ := range g.Successors(entry) {
		f.addSuccessor(succ)
	}
}

func (f *continuationFinder) handleStack(g *Graph) bool {
	changed := false

	for len(f.stack) > 0 {
		id := f.stack[len(f.stack)-1]
		f.stack = f.stack[:len(f.stack)-1]

		if f.dominates(g, id) {
			f.expanded.insert(int(id))
			for _, succ := range g.Successors(id) {
				f.addSuccessor(succ)
			}
			changed = true
		} else {
			f.points = append(f.points, id)
		}
	}

	return changed
}

func (f *continuationFinder) run(g *Graph, entry cfg.BlockID) {
	f.points = f.points[:0]
	f.expanded.clear()

	f.setEntry(g, entry)

	for f.handleStack(g) {
		f.points, f.stack = f.stack, f.points
	}
}

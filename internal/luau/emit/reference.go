package emit

import "github.com/SovereignSatellite/Spider/internal/rvsdg"

// resultCount reports how many of node's output ports are real, nameable
// values rather than trailing state/trap threading (spec §4.6 "reference
// finder"). Most kinds expose nothing but real values (Outputs already is
// the right count); the few stateful kinds whose single output is purely
// a new resource state, and Call's trailing dependency/trap ports, are
// the exceptions.
func resultCount(n *rvsdg.Node) int {
	switch n.Kind {
	case rvsdg.KindCall:
		return int(n.Index2)
	case rvsdg.KindTableGrow, rvsdg.KindMemoryGrow:
		return 1
	case rvsdg.KindGlobalSet, rvsdg.KindTableSet, rvsdg.KindTableFill, rvsdg.KindTableCopy,
		rvsdg.KindTableInit, rvsdg.KindElemDrop, rvsdg.KindMemoryStore, rvsdg.KindMemoryFill,
		rvsdg.KindMemoryCopy, rvsdg.KindMemoryInit, rvsdg.KindDataDrop, rvsdg.KindMerge:
		return 0
	default:
		return n.Outputs
	}
}

type successor struct {
	node rvsdg.NodeID
	port uint16
}

// referenceFinder indexes every link's consumers with one pass over the
// graph, the same successor index the teacher's dataflow visitors build
// before running any rewrite or lowering pass over it.
type referenceFinder struct {
	by map[rvsdg.Link][]successor
}

func newReferenceFinder(g *rvsdg.Graph) *referenceFinder {
	rf := &referenceFinder{by: map[rvsdg.Link][]successor{}}
	for id := range g.Nodes {
		n := &g.Nodes[id]
		for port, l := range n.Inputs {
			if l.IsDangling() {
				continue
			}
			rf.by[l] = append(rf.by[l], successor{node: rvsdg.NodeID(id), port: uint16(port)})
		}
	}
	return rf
}

func (rf *referenceFinder) isUsed(l rvsdg.Link) bool { return len(rf.by[l]) > 0 }

// hasResultAt reports whether any of node id's real result ports up to
// and including port has a consumer.
func (rf *referenceFinder) hasResultAt(id rvsdg.NodeID, port uint16) bool {
	for p := uint16(0); p <= port; p++ {
		if rf.isUsed(rvsdg.Link{Node: id, Port: p}) {
			return true
		}
	}
	return false
}

// hasManyUses reports whether node id's real results are read from more
// than one place in total.
func (rf *referenceFinder) hasManyUses(id rvsdg.NodeID, n *rvsdg.Node) bool {
	count := 0
	rc := uint16(resultCount(n))
	for p := uint16(0); p < rc; p++ {
		count += len(rf.by[rvsdg.Link{Node: id, Port: p}])
		if count > 1 {
			return true
		}
	}
	return false
}

// hasManyResults reports whether more than one of node id's real result
// ports is read at all (a multi-return node whose results fan out to
// distinct consumers can't be folded into one inline expression).
func (rf *referenceFinder) hasManyResults(id rvsdg.NodeID, n *rvsdg.Node) bool {
	rc := uint16(resultCount(n))
	for p := uint16(1); p < rc; p++ {
		if rf.isUsed(rvsdg.Link{Node: id, Port: p}) {
			return true
		}
	}
	return false
}

// lastUse returns the highest node id that reads any of link's producer's
// real result ports, the place allocator's "until" for that port.
func (rf *referenceFinder) lastUse(l rvsdg.Link) (rvsdg.NodeID, bool) {
	succs := rf.by[l]
	if len(succs) == 0 {
		return 0, false
	}
	max := succs[0].node
	for _, s := range succs[1:] {
		if s.node > max {
			max = s.node
		}
	}
	return max, true
}

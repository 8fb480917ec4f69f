package emit

import "github.com/SovereignSatellite/Spider/internal/rvsdg"

// findLocals decides which node ids the place allocator must give a
// stable, possibly-reused name (spec §4.6 "local finder"): every boundary
// value a region threads across its edges, every producer read out of
// its topological position, and anything with more than one use or more
// than one referenced result. Everything else stays an inline expression
// substituted directly at its single point of use.
//
// This is a deliberately conservative approximation: where the teacher's
// local finder narrowly inspects a handful of named argument positions
// per stateful op kind (its destination/source fields) to decide whether
// a "prior state" read actually lands on a value port, this version
// folds that case into the same out-of-order and many-uses checks run
// for every other input. Naming a node that strictly didn't need it only
// costs a harmless extra local, never a correctness issue, so erring
// toward more names is the safe direction to approximate in.
func findLocals(g *rvsdg.Graph, rf *referenceFinder) map[rvsdg.NodeID]bool {
	must := map[rvsdg.NodeID]bool{}

	localizeLinks := func(links []rvsdg.Link) {
		for _, l := range links {
			if !l.IsDangling() {
				must[l.Node] = true
			}
		}
	}

	for id := range g.Nodes {
		n := &g.Nodes[id]

		// Out-of-order sequencing: an argument referencing an earlier
		// producer than one already passed over in this same input list
		// can't be folded inline without reordering its side effects.
		parameter := rvsdg.NodeID(0)
		for _, l := range n.Inputs {
			if l.IsDangling() {
				continue
			}
			producer := &g.Nodes[l.Node]
			if int(l.Port) >= resultCount(producer) {
				continue
			}
			if l.Node >= parameter {
				parameter = l.Node
			} else {
				must[l.Node] = true
			}
		}

		switch n.Kind {
		case rvsdg.KindRegionOut:
			localizeLinks(n.Inputs)
		case rvsdg.KindGammaIn:
			if len(n.Inputs) > 1 {
				localizeLinks(n.Inputs[1:]) // skip the branch condition itself
			}
		case rvsdg.KindGammaOut:
			if len(n.Regions) != 2 {
				gammaIn := &g.Nodes[n.Partner]
				if len(gammaIn.Inputs) > 0 {
					must[gammaIn.Inputs[0].Node] = true
				}
			}
		case rvsdg.KindThetaIn:
			localizeLinks(n.Inputs)
		case rvsdg.KindThetaOut:
			localizeLinks(n.Inputs)
			regionOut := n.Body.End - 1
			if regionOut >= n.Body.Start {
				out := &g.Nodes[regionOut]
				if len(out.Inputs) > 0 {
					must[out.Inputs[len(out.Inputs)-1].Node] = true
				}
			}
		case rvsdg.KindLambdaOut:
			localizeLinks(n.Inputs)
		}

		local := false
		switch n.Kind {
		case rvsdg.KindTrap:
			local = true
		case rvsdg.KindCall:
			rc := resultCount(n)
			local = rc == 0 || !rf.hasResultAt(rvsdg.NodeID(id), uint16(rc-1))
		case rvsdg.KindTableGrow, rvsdg.KindMemoryGrow:
			local = !rf.hasResultAt(rvsdg.NodeID(id), 0)
		}
		if local || rf.hasManyUses(rvsdg.NodeID(id), n) || rf.hasManyResults(rvsdg.NodeID(id), n) {
			must[rvsdg.NodeID(id)] = true
		}

		// A multi-output node's extra results always need a statement
		// form in Luau (multiple assignment), regardless of reuse.
		if resultCount(n) > 1 || (n.Kind == rvsdg.KindCall && n.Outputs > 1) {
			must[rvsdg.NodeID(id)] = true
		}
	}

	return must
}

// findLifetimes returns, for every link the finder reads, the highest
// node id that still reads it — a simplified stand-in for the teacher's
// backward-BFS lifetime finder. Since the graph is walked here only after
// internal/rvsdg.Normalize has put it in topological order, the
// highest-index consumer is exactly the point past which the place can
// be freed, with no need to re-walk the graph backward to find it.
func findLifetimes(g *rvsdg.Graph, rf *referenceFinder, must map[rvsdg.NodeID]bool) map[rvsdg.Link]int {
	lifetimes := map[rvsdg.Link]int{}
	for id := range g.Nodes {
		if !must[rvsdg.NodeID(id)] {
			continue
		}
		n := &g.Nodes[id]
		for p := 0; p < resultCount(n); p++ {
			l := rvsdg.Link{Node: rvsdg.NodeID(id), Port: uint16(p)}
			if until, ok := rf.lastUse(l); ok {
				lifetimes[l] = int(until)
			} else {
				lifetimes[l] = id
			}
		}
	}
	return lifetimes
}

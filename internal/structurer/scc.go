package structurer

import "github.com/SovereignSatellite/Spider/internal/cfg"

// depthFirstSearcher runs a non-recursive DFS recording each node's
// post-order position, reusable across both Kosaraju passes.
type depthFirstSearcher struct {
	seen  set
	stack []dfsFrame
}

type dfsFrame struct {
	id   cfg.BlockID
	post bool
}

// reset seeds seen with everything outside the region of interest: the
// loop header's own predecessors (so the search never escapes backward out
// of the region through the header) minus the header's direct successors
// (which must remain reachable), plus the region exit.
func (d *depthFirstSearcher) reset(g *Graph, entry, exit cfg.BlockID) {
	d.seen.clear()
	for _, p := range g.Predecessors(entry) {
		d.seen.insert(int(p))
	}
	for _, s := range g.Successors(entry) {
		d.seen.remove(int(s))
	}
	d.seen.insert(int(exit))
}

func (d *depthFirstSearcher) addSuccessor(id cfg.BlockID) {
	if d.seen.contains(int(id)) {
		return
	}
	d.stack = append(d.stack, dfsFrame{id, false})
}

func (d *depthFirstSearcher) run(result *[]cfg.BlockID, entry cfg.BlockID, next func(cfg.BlockID) []cfg.BlockID) {
	d.addSuccessor(entry)

	for len(d.stack) > 0 {
		top := d.stack[len(d.stack)-1]
		d.stack = d.stack[:len(d.stack)-1]

		if !d.seen.growInsert(int(top.id)) {
			d.stack = append(d.stack, dfsFrame{top.id, true})
			for _, n := range next(top.id) {
				d.addSuccessor(n)
			}
		} else if top.post {
			*result = append(*result, top.id)
		}
	}
}

// stronglyConnectedFinder finds strongly-connected regions within
// entry..exit using Kosaraju's two-pass algorithm: a post-order DFS over
// successors, then a DFS over predecessors in reverse post-order, each
// maximal predecessor-DFS tree being one SCC.
type stronglyConnectedFinder struct {
	separators []int
	results    []cfg.BlockID
	post       []cfg.BlockID

	dfs depthFirstSearcher
}

func (f *stronglyConnectedFinder) forEach(handler func([]cfg.BlockID)) {
	start := 0
	for _, end := range f.separators {
		handler(f.results[start:end])
		start = end
	}
}

func (f *stronglyConnectedFinder) findSuccessors(g *Graph, entry, exit cfg.BlockID) {
	f.post = f.post[:0]
	f.dfs.reset(g, entry, exit)
	f.dfs.run(&f.post, entry, g.Successors)
}

// shouldStore keeps a region only if it is a genuine cycle: either more
// than one block, or a single block with a self-loop.
func shouldStore(g *Graph, list []cfg.BlockID) bool {
	if len(list) == 1 {
		only := list[0]
		for _, p := range g.Predecessors(only) {
			if p == only {
				return true
			}
		}
		return false
	}
	return len(list) != 0
}

func (f *stronglyConnectedFinder) findPredecessors(g *Graph, entry, exit cfg.BlockID) {
	f.separators = f.separators[:0]
	f.results = f.results[:0]

	f.dfs.reset(g, entry, exit)

	start := 0
	for len(f.post) > 0 {
		id := f.post[len(f.post)-1]
		f.post = f.post[:len(f.post)-1]

		f.dfs.run(&f.results, id, g.Predecessors)

		if shouldStore(g, f.results[start:]) {
			start = len(f.results)
			f.separators = append(f.separators, start)
		} else {
			f.results = f.results[:start]
		}
	}
}

func (f *stronglyConnectedFinder) run(g *Graph, entry, exit cfg.BlockID) {
	f.findSuccessors(g, entry, exit)
	f.findPredecessors(g, entry, exit)
}

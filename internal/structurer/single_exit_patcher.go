package structurer

import "github.com/SovereignSatellite/Spider/internal/cfg"

// singleExitPatcher gives every block with no successors (a dead end left
// by unreachable-trapping code, or a `return` block the CFG builder never
// wired forward) an edge to the function's single exit, so later passes
// never have to special-case sinks.
type singleExitPatcher struct {
	seen  set
	stack []cfg.BlockID
}

func (p *singleExitPatcher) addSuccessor(id cfg.BlockID) {
	if p.seen.growInsert(int(id)) {
		return
	}
	p.stack = append(p.stack, id)
}

func (p *singleExitPatcher) run(g *Graph, entry, exit cfg.BlockID) {
	p.seen.clear()
	p.seen.insert(int(exit))

	p.addSuccessor(entry)

	for len(p.stack) > 0 {
		id := p.stack[len(p.stack)-1]
		p.stack = p.stack[:len(p.stack)-1]

		sink := true
		for _, succ := range g.Successors(id) {
			p.addSuccessor(succ)
			sink = false
		}

		if sink {
			g.AddEdge(id, exit)
		}
	}
}

package structurer

import "github.com/SovereignSatellite/Spider/internal/cfg"

// branchBulk finds and structures every multi-way branch in a region,
// working from the outermost branch inward: each call to
// branchSingle.run collapses one branch's arms to a point, then the code
// after that point and each arm up to it are queued to be searched next.
type branchBulk struct {
	single branchSingle

	infos []edge
}

// findNextBranch walks forward through single-successor chains starting at
// entry until it either reaches exit (no branch found) or a block with more
// than one successor (self-loops excluded, since those belong to repeat
// structuring, not branch structuring).
func findNextBranch(g *Graph, entry, exit cfg.BlockID) (cfg.BlockID, bool) {
	for entry != exit {
		var successor cfg.BlockID
		count := 0
		for _, succ := range g.Successors(entry) {
			if succ == entry {
				continue
			}
			if count == 0 {
				successor = succ
			}
			count++
		}

		if count <= 1 {
			entry = successor
			continue
		}
		return entry, true
	}
	return 0, false
}

func (b *branchBulk) addBranch(g *Graph, entry, exit cfg.BlockID) {
	if found, ok := findNextBranch(g, entry, exit); ok {
		b.infos = append(b.infos, edge{found, exit})
	}
}

func (b *branchBulk) handleRegion(g *Graph, entry, exit cfg.BlockID) {
	point := b.single.run(g, entry)

	b.addBranch(g, point, exit)

	for _, succ := range g.Successors(entry) {
		b.addBranch(g, succ, point)
	}
}

func (b *branchBulk) run(g *Graph, entry, exit cfg.BlockID) {
	b.infos = b.infos[:0]
	b.addBranch(g, entry, exit)

	for len(b.infos) > 0 {
		last := b.infos[len(b.infos)-1]
		b.infos = b.infos[:len(b.infos)-1]
		b.handleRegion(g, last.From, last.To)
	}
}

package structurer

import "github.com/SovereignSatellite/Spider/internal/cfg"

// RepeatInfo records one structured loop's (entry, latch) pair, needed to
// temporarily disable/enable its back-edge while branch structuring runs
// (branch structuring assumes acyclic regions).
type RepeatInfo struct {
	Entry cfg.BlockID
	Latch cfg.BlockID
}

// repeatBulk finds and structures every loop in a function, outermost
// first: each region that strongly-connects structures into one
// (entry, latch) pair, which may itself contain nested SCCs once its own
// back-edge is accounted for, so newly produced pairs are re-scanned.
type repeatBulk struct {
	single repeatSingle
	scc    stronglyConnectedFinder

	infos []RepeatInfo
}

func (b *repeatBulk) handleRegion(g *Graph, entry, exit cfg.BlockID) {
	b.scc.run(g, entry, exit)
	b.scc.forEach(func(region []cfg.BlockID) {
		e, latch := b.single.run(g, region)
		b.infos = append(b.infos, RepeatInfo{Entry: e, Latch: latch})
	})
}

func (b *repeatBulk) run(g *Graph, entry, exit cfg.BlockID) {
	b.infos = b.infos[:0]

	b.handleRegion(g, entry, exit)

	for index := 0; index < len(b.infos); index++ {
		info := b.infos[index]
		b.handleRegion(g, info.Entry, info.Latch)
	}
}

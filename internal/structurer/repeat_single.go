package structurer

import (
	"sort"

	"github.com/SovereignSatellite/Spider/internal/cfg"
)

// repeatSingle turns one strongly-connected region into a well-nested
// repeat: a single entry, a single latch (the block that either repeats or
// exits), and a single exit, inserting B/C selector nodes wherever the
// region naturally has more than one of each.
type repeatSingle struct {
	entries []cfg.BlockID
	exits   []cfg.BlockID

	region    set
	temporary []cfg.BlockID
}

func (s *repeatSingle) setRegionContents(region []cfg.BlockID) {
	s.region.clear()
	for _, id := range region {
		s.region.insert(int(id))
	}
}

func (s *repeatSingle) findEntriesAndExits(g *Graph) {
	s.entries = s.entries[:0]
	s.exits = s.exits[:0]

	s.region.ascending(func(idx int) {
		id := cfg.BlockID(idx)

		for _, p := range g.Predecessors(id) {
			if !s.region.contains(int(p)) {
				s.entries = append(s.entries, id)
				break
			}
		}

		for _, succ := range g.Successors(id) {
			if !s.region.contains(int(succ)) {
				s.exits = append(s.exits, succ)
			}
		}
	})

	sort.Slice(s.exits, func(i, j int) bool { return s.exits[i] < s.exits[j] })
	s.exits = dedupBlockIDs(s.exits)
}

func dedupBlockIDs(ids []cfg.BlockID) []cfg.BlockID {
	if len(ids) == 0 {
		return ids
	}
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}

func (s *repeatSingle) setNewEntry(g *Graph) cfg.BlockID {
	selection := g.AddSelection(cfg.RegC)

	for index, entry := range s.entries {
		s.temporary = append(s.temporary[:0], g.Predecessors(entry)...)

		for _, predecessor := range s.temporary {
			assignment := g.AddAssignment(cfg.RegC, index)
			g.ReplaceEdge(predecessor, entry, assignment)
			g.AddEdge(assignment, selection)
		}

		g.AddEdge(selection, entry)
	}

	return selection
}

func (s *repeatSingle) findOrSetEntry(g *Graph) cfg.BlockID {
	if len(s.entries) == 1 {
		return s.entries[0]
	}
	return s.setNewEntry(g)
}

func (s *repeatSingle) setNewExit(g *Graph) cfg.BlockID {
	selection := g.AddSelection(cfg.RegC)

	for index, exit := range s.exits {
		s.temporary = s.temporary[:0]
		for _, p := range g.Predecessors(exit) {
			if s.region.contains(int(p)) {
				s.temporary = append(s.temporary, p)
			}
		}

		for _, predecessor := range s.temporary {
			assignment := g.AddAssignment(cfg.RegC, index)
			g.ReplaceEdge(predecessor, exit, assignment)
			g.AddEdge(assignment, selection)
		}

		g.AddEdge(selection, exit)
	}

	return selection
}

func (s *repeatSingle) findOrSetExit(g *Graph) cfg.BlockID {
	switch len(s.exits) {
	case 1:
		return s.exits[0]
	case 0:
		return g.AddNoOperation()
	default:
		return s.setNewExit(g)
	}
}

// inRegion reports whether target is in the region, or one of its
// predecessors added during this pass is (covers synthetic entry/exit
// selection nodes, which sit just outside the original region set).
func inRegion(g *Graph, region *set, target cfg.BlockID) bool {
	if region.contains(int(target)) {
		return true
	}
	for _, p := range g.Predecessors(target) {
		if region.contains(int(p)) {
			return true
		}
	}
	return false
}

func inRegionAcyclic(g *Graph, region *set, target, exit cfg.BlockID) bool {
	return target != exit && inRegion(g, region, target)
}

// findLatch recognizes the already-well-formed case: entry and exit share
// exactly one predecessor in the region with exactly two successors (the
// natural "repeat or fall through" shape), which can serve as the latch
// without inserting a B selector.
func (s *repeatSingle) findLatch(g *Graph, entry, exit cfg.BlockID) (cfg.BlockID, bool) {
	var repetition cfg.BlockID
	repCount := 0
	for _, p := range g.Predecessors(entry) {
		if inRegion(g, &s.region, p) {
			if repCount == 0 {
				repetition = p
			}
			repCount++
			if repCount > 1 {
				break
			}
		}
	}
	if repCount != 1 {
		return 0, false
	}

	var escape cfg.BlockID
	escCount := 0
	for _, p := range g.Predecessors(exit) {
		if inRegionAcyclic(g, &s.region, p, exit) {
			if escCount == 0 {
				escape = p
			}
			escCount++
			if escCount > 1 {
				break
			}
		}
	}
	if escCount != 1 || repetition != escape {
		return 0, false
	}

	succs := g.Successors(repetition)
	if len(succs) != 2 {
		return 0, false
	}
	return repetition, true
}

func (s *repeatSingle) setBreak(g *Graph, latch, selection cfg.BlockID) {
	s.temporary = s.temporary[:0]
	for _, p := range g.Predecessors(selection) {
		if inRegionAcyclic(g, &s.region, p, selection) {
			s.temporary = append(s.temporary, p)
		}
	}

	for _, exit := range s.temporary {
		assignment := g.AddAssignment(cfg.RegB, 0)
		g.ReplaceEdge(exit, selection, assignment)
		g.AddEdge(assignment, latch)
	}
}

func (s *repeatSingle) setContinue(g *Graph, latch, selection cfg.BlockID) {
	s.temporary = s.temporary[:0]
	for _, p := range g.Predecessors(selection) {
		if inRegion(g, &s.region, p) {
			s.temporary = append(s.temporary, p)
		}
	}

	for _, entry := range s.temporary {
		assignment := g.AddAssignment(cfg.RegB, 1)
		g.ReplaceEdge(entry, selection, assignment)
		g.AddEdge(assignment, latch)
	}
}

func (s *repeatSingle) setNewLatch(g *Graph, entry, exit cfg.BlockID) cfg.BlockID {
	selection := g.AddSelection(cfg.RegB)

	s.setBreak(g, selection, exit)
	s.setContinue(g, selection, entry)

	g.AddEdge(selection, exit)
	g.AddEdge(selection, entry)

	return selection
}

func (s *repeatSingle) findOrSetLatch(g *Graph, entry, exit cfg.BlockID) cfg.BlockID {
	if latch, ok := s.findLatch(g, entry, exit); ok {
		return latch
	}
	return s.setNewLatch(g, entry, exit)
}

// run structures one SCC region into (entry, latch), returning the pair so
// the caller can recurse into the loop body (entry..latch) for nested
// repeats.
func (s *repeatSingle) run(g *Graph, region []cfg.BlockID) (cfg.BlockID, cfg.BlockID) {
	s.setRegionContents(region)
	s.findEntriesAndExits(g)

	entry := s.findOrSetEntry(g)
	exit := s.findOrSetExit(g)
	latch := s.findOrSetLatch(g, entry, exit)

	return entry, latch
}

package structurer

import "github.com/SovereignSatellite/Spider/internal/cfg"

// branchSingle structures one if/else-shaped branch point (entry has two or
// more successors) into a single continuation point, inserting an A
// selector when the arms don't already reconverge at one block.
type branchSingle struct {
	edges      []edge
	points     []cfg.BlockID
	separators []int

	continuationFinder continuationFinder
}

func (s *branchSingle) hasAssignmentInBranch(g *Graph) bool {
	for _, point := range s.points {
		for _, pred := range g.Predecessors(point) {
			if !g.HasAssignment(pred, cfg.RegA) {
				continue
			}
			for _, e := range s.edges {
				if e.From == pred {
					return true
				}
			}
		}
	}
	return false
}

func (s *branchSingle) hasAssignmentInTail(g *Graph) bool {
	for _, point := range s.points {
		for _, pred := range g.Predecessors(point) {
			if !g.HasAssignment(pred, cfg.RegA) {
				continue
			}
			inEdges := false
			for _, e := range s.edges {
				if e.From == pred {
					inEdges = true
					break
				}
			}
			if !inEdges {
				return true
			}
		}
	}
	return false
}

// excludeLastAssignments collects, for every continuation point's
// predecessors that are themselves A-assignments, the block that should be
// excluded from the next continuation-finder pass: normally the assignment
// itself, but if the assignment has exactly one predecessor and that one is
// a C-assignment (a repeat-latch selector), the C-assignment instead — it's
// the one that actually needs to stay un-expanded.
func (s *branchSingle) excludeLastAssignments(g *Graph) []cfg.BlockID {
	var excluded []cfg.BlockID

	for _, point := range s.points {
		for _, pred := range g.Predecessors(point) {
			if !g.HasAssignment(pred, cfg.RegA) {
				continue
			}
			id := pred
			preds := g.Predecessors(pred)
			if len(preds) == 1 && g.HasAssignment(preds[0], cfg.RegC) {
				id = preds[0]
			}
			excluded = append(excluded, id)
		}
	}

	return excluded
}

func (s *branchSingle) findContinuations(g *Graph, entry, id cfg.BlockID) {
	count := 0
	for _, other := range g.Predecessors(id) {
		if other != id {
			count++
			if count > 1 {
				break
			}
		}
	}

	if count > 1 {
		s.edges = append(s.edges, edge{entry, id})
	} else {
		s.continuationFinder.run(g, id)
		s.continuationFinder.edgesInto(g, &s.edges)
	}

	s.separators = append(s.separators, len(s.edges))
}

func (s *branchSingle) findAllContinuations(g *Graph, entry cfg.BlockID) {
	s.edges = s.edges[:0]
	s.separators = s.separators[:0]

	for _, succ := range g.Successors(entry) {
		s.findContinuations(g, entry, succ)
	}

	s.points = s.points[:0]
	for _, e := range s.edges {
		s.points = append(s.points, e.To)
	}
	sortBlockIDs(s.points)
	s.points = dedupBlockIDs(s.points)
}

func (s *branchSingle) setNewContinuation(g *Graph) cfg.BlockID {
	selection := g.AddSelection(cfg.RegA)

	for i := range s.edges {
		point, _ := binarySearchBlockID(s.points, s.edges[i].To)
		assignment := g.AddAssignment(cfg.RegA, point)

		g.ReplaceEdge(s.edges[i].From, s.edges[i].To, assignment)
		g.AddEdge(assignment, selection)

		s.edges[i].From = assignment
		s.edges[i].To = selection
	}

	for _, point := range s.points {
		g.AddEdge(selection, point)
	}

	return selection
}

func (s *branchSingle) findOrSetContinuation(g *Graph, entry cfg.BlockID) cfg.BlockID {
	if len(s.points) == 1 {
		return s.points[0]
	}

	if s.hasAssignmentInTail(g) && s.hasAssignmentInBranch(g) {
		excluded := s.excludeLastAssignments(g)
		s.continuationFinder.setExcluded(excluded)
		s.findAllContinuations(g, entry)
	}

	return s.setNewContinuation(g)
}

func (s *branchSingle) setContinuationMerges(g *Graph, point cfg.BlockID) {
	start := 0
	for _, end := range s.separators {
		continuations := s.edges[start:end]
		start = end

		if len(continuations) > 1 {
			dummy := g.AddNoOperation()
			for _, e := range continuations {
				g.ReplaceEdge(e.From, e.To, dummy)
			}
			g.AddEdge(dummy, point)
		}
	}
}

// fillEmptyBranches adds a dummy no-op block on every entry->point edge
// that's already direct, so every arm of the branch has at least one block
// of its own — the emitter relies on this symmetry.
func fillEmptyBranches(g *Graph, entry, point cfg.BlockID) {
	count := 0
	for _, succ := range g.Successors(entry) {
		if succ == point {
			count++
		}
	}

	for i := 0; i < count; i++ {
		dummy := g.AddNoOperation()
		g.ReplaceEdge(entry, point, dummy)
		g.AddEdge(dummy, point)
	}
}

// run structures the branch at entry, returning the single point all its
// arms now funnel into.
func (s *branchSingle) run(g *Graph, entry cfg.BlockID) cfg.BlockID {
	s.continuationFinder.setExcluded(nil)

	s.findAllContinuations(g, entry)

	point := s.findOrSetContinuation(g, entry)

	s.setContinuationMerges(g, point)
	fillEmptyBranches(g, entry, point)

	return point
}

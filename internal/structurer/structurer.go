package structurer

import "github.com/SovereignSatellite/Spider/internal/cfg"

// Structurer turns a basic-block CFG (spec §4.2's "Structurer" stage) into
// one built entirely from well-nested repeat (loop) and branch (if/else)
// regions, the shape the data-flow builder (internal/rvsdg) requires. It
// runs in three passes over the same graph: structure every loop, patch
// every block without a successor to the function exit, then structure
// every branch with loop back-edges temporarily severed (branch structuring
// assumes the region it's working over is acyclic).
type Structurer struct {
	repeat repeatBulk
	branch branchBulk

	exitPatcher singleExitPatcher
}

// New returns a Structurer ready for Run.
func New() *Structurer {
	return &Structurer{}
}

// HandleRepeats structures every loop reachable from entry..exit.
func (s *Structurer) HandleRepeats(g *Graph, entry, exit cfg.BlockID) {
	s.repeat.run(g, entry, exit)
}

// HandleExits gives every dead-end block an edge to exit.
func (s *Structurer) HandleExits(g *Graph, entry, exit cfg.BlockID) {
	s.exitPatcher.run(g, entry, exit)
}

// DisableRepeats severs each structured loop's back-edge (latch->entry),
// replacing it with a latch->latch self-stub, so branch structuring sees an
// acyclic graph.
func (s *Structurer) DisableRepeats(g *Graph) {
	for _, info := range s.repeat.infos {
		g.ReplaceEdge(info.Latch, info.Entry, info.Latch)
	}
}

// EnableRepeats restores every back-edge DisableRepeats severed.
func (s *Structurer) EnableRepeats(g *Graph) {
	for _, info := range s.repeat.infos {
		g.ReplaceEdge(info.Latch, info.Latch, info.Entry)
	}
}

// HandleBranches structures every multi-way branch reachable from
// entry..exit.
func (s *Structurer) HandleBranches(g *Graph, entry, exit cfg.BlockID) {
	s.branch.run(g, entry, exit)
}

// Repeats returns the (entry, latch) pairs of every loop structured by the
// most recent Run/HandleRepeats call, needed by the data-flow builder to
// recognize Theta region boundaries.
func (s *Structurer) Repeats() []RepeatInfo {
	return s.repeat.infos
}

// Run performs the full structuring pipeline in the required order: loops
// first (so branch structuring never has to reason about back-edges),
// then exit patching, then loops are hidden, branches are structured, and
// finally loops are restored.
func (s *Structurer) Run(g *Graph, entry, exit cfg.BlockID) {
	s.HandleRepeats(g, entry, exit)
	s.HandleExits(g, entry, exit)
	s.DisableRepeats(g)
	s.HandleBranches(g, entry, exit)
	s.EnableRepeats(g)
}

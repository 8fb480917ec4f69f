package liveness

import (
	"sort"

	"github.com/SovereignSatellite/Spider/internal/cfg"
)

// Locals holds, for every block in a function, the set of registers live on
// entry to that block (spec's liveness stage — the register allocator needs
// this to know when a value's last use has passed and its slot can be
// reused).
type Locals struct {
	liveIn [][]cfg.Register
}

// Get returns the sorted, de-duplicated set of registers live on entry to
// block id.
func (l *Locals) Get(id cfg.BlockID) []cfg.Register {
	return l.liveIn[id]
}

// Compute runs a standard backward liveness fixpoint over fn's blocks:
// live-out is the union of every successor's live-in, live-in is live-out
// minus this block's definitions plus its uses. results gives the number
// of the function's own result registers, which are always considered live
// out of the exit block (the caller reads them after the call returns).
func Compute(fn *cfg.Function, results int) *Locals {
	n := len(fn.Blocks)
	liveIn := make([][]bool, n)
	uses := make([][]bool, n)
	defs := make([][]bool, n)

	width := int(cfg.LocalBase) + fn.NumParams + fn.NumLocals
	if width == 0 {
		width = 1
	}

	for i, b := range fn.Blocks {
		u := make([]bool, width)
		d := make([]bool, width)
		insts := fn.Instructions[b.Start:b.End]

		// Walk backward so a def clears a use recorded later in program
		// order but earlier in this reverse walk (the use happened after
		// the def within the same block, so it doesn't make the
		// block-entry value live).
		for j := len(insts) - 1; j >= 0; j-- {
			in := &insts[j]
			if dst, ok := in.WritesLocal(); ok {
				growSet(&d, int(dst))
				clearSet(u, int(dst))
			}
			for r := 0; r < width; r++ {
				if in.ReadsLocal(cfg.Register(r)) {
					growSet(&u, r)
				}
			}
		}

		uses[i] = u
		defs[i] = d
		liveIn[i] = make([]bool, width)
	}

	changed := true
	for changed {
		changed = false

		for i := n - 1; i >= 0; i-- {
			liveOut := make([]bool, width)
			for _, succ := range fn.Blocks[i].Succs {
				unionInto(liveOut, liveIn[succ])
			}
			if i == int(fn.Exit) {
				for r := 0; r < results; r++ {
					growSet(&liveOut, int(cfg.LocalBase)+r)
				}
			}

			next := make([]bool, len(liveOut))
			copy(next, liveOut)
			for r := 0; r < width; r++ {
				if defs[i][r] {
					next[r] = false
				}
			}
			unionInto(next, uses[i])

			if !equalSets(next, liveIn[i]) {
				liveIn[i] = next
				changed = true
			}
		}
	}

	out := make([][]cfg.Register, n)
	for i, set := range liveIn {
		var regs []cfg.Register
		for r, live := range set {
			if live {
				regs = append(regs, cfg.Register(r))
			}
		}
		out[i] = regs
	}

	return &Locals{liveIn: out}
}

func growSet(s *[]bool, idx int) {
	for len(*s) <= idx {
		*s = append(*s, false)
	}
	(*s)[idx] = true
}

func clearSet(s []bool, idx int) {
	if idx < len(s) {
		s[idx] = false
	}
}

func unionInto(dst, src []bool) {
	for i, v := range src {
		if v && i < len(dst) {
			dst[i] = true
		}
	}
}

func equalSets(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Union returns the sorted, de-duplicated union of the live-in sets of the
// given blocks, the operation the data-flow builder uses when merging two
// branch arms' continuations.
func (l *Locals) Union(ids []cfg.BlockID) []cfg.Register {
	seen := map[cfg.Register]bool{}
	for _, id := range ids {
		for _, r := range l.liveIn[id] {
			seen[r] = true
		}
	}

	out := make([]cfg.Register, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

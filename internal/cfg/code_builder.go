package cfg

// codeBuilder accumulates instructions and basic blocks for one function,
// mirroring the reference CodeBuilder (code_builder.rs): add_basic_block
// always gives the new block one placeholder successor (itself+1) so that
// fallthrough is the default and jump patching only ever needs to
// overwrite an existing successor slot, never append one.
type codeBuilder struct {
	fn       *Function
	position int // instruction index where the currently-open block began
}

func newCodeBuilder() *codeBuilder {
	return &codeBuilder{fn: &Function{}}
}

// addBasicBlock closes the run of instructions since the last call to
// addBasicBlock into a new block (range [position, len(Instructions))),
// gives it `successors` placeholder successor edges (all pointing one
// past the new block, the default fallthrough), and returns the new
// block's own ID. This mirrors the reference's add_basic_block exactly:
// the returned ID names the block just closed, not the one about to be
// opened.
func (cb *codeBuilder) addBasicBlock(successors int) BlockID {
	id := BlockID(len(cb.fn.Blocks))
	next := BlockID(id + 1)
	b := Block{Start: cb.position, End: len(cb.fn.Instructions)}
	for i := 0; i < successors; i++ {
		b.Succs = append(b.Succs, next)
	}
	cb.fn.Blocks = append(cb.fn.Blocks, b)
	cb.position = len(cb.fn.Instructions)
	return id
}

func (cb *codeBuilder) emit(inst Instruction) {
	cb.fn.Instructions = append(cb.fn.Instructions, inst)
}

// addLocalBranch emits a branch-on-local instruction ending the current
// block, then closes that block with `successors` placeholder edges.
// Returns the ID of the now-closed branch block.
func (cb *codeBuilder) addLocalBranch(source Register, successors int) BlockID {
	cb.emit(Instruction{Kind: InstLocalBranch, Src0: source})
	id := cb.addBasicBlock(successors)
	cb.fn.Blocks[id].Branch = true
	return id
}

func (cb *codeBuilder) addUnreachable() BlockID {
	cb.emit(Instruction{Kind: InstUnreachable, TrapMessage: "unreachable"})
	return cb.addBasicBlock(1)
}

// addLocalsSet moves count registers from source.. to destination..,
// choosing iteration direction so overlapping ranges don't clobber
// themselves, exactly like the reference add_locals_set.
func (cb *codeBuilder) addLocalsSet(destination, source Register, count int) {
	if destination <= source {
		for off := 0; off < count; off++ {
			cb.emit(Instruction{Kind: InstLocalMove, Dst: destination + Register(off), Src0: source + Register(off)})
		}
	} else {
		for off := count - 1; off >= 0; off-- {
			cb.emit(Instruction{Kind: InstLocalMove, Dst: destination + Register(off), Src0: source + Register(off)})
		}
	}
}

// tryAddStackAdjustment inserts a shim moving the top `count` registers down
// to base if the recorded stack top differs from base+count, per spec §4.1
// "end: ... insert a shim block that moves the top-of-stack result
// registers down." Returns whether a shim was actually emitted.
func (cb *codeBuilder) tryAddStackAdjustment(base, top Register, count int) bool {
	source := top - Register(count)
	if base == source || top == 0xFFFF {
		return false
	}
	cb.addLocalsSet(base, source, count)
	return true
}

func (cb *codeBuilder) setJumpDestination(source BlockID, branch int, destination BlockID) {
	cb.fn.Blocks[source].Succs[branch] = destination
}

func (cb *codeBuilder) setJumpDestinations(destination BlockID, jumps []Jump) {
	for _, j := range jumps {
		cb.setJumpDestination(j.Source, j.Branch, destination)
	}
}

// addJumpAdjustments inserts a shim block per jump whose recorded stack
// depth needs reconciling to `base`, retargeting the jump through it.
func (cb *codeBuilder) addJumpAdjustments(base Register, count int, jumps []Jump) {
	for i := range jumps {
		if !cb.tryAddStackAdjustment(base, jumps[i].Stack, count) {
			continue
		}
		destination := cb.addBasicBlock(1)
		cb.setJumpDestination(jumps[i].Source, jumps[i].Branch, destination)
		jumps[i].Source = destination
		jumps[i].Branch = 0
	}
}

// handleLevel resolves a popped Level's pending jumps against its
// destination (loop header) or, lacking one, against the natural
// fall-through point — spec §4.1's `end` handling in full.
func (cb *codeBuilder) handleLevel(level Level, top Register) {
	cb.tryAddStackAdjustment(level.Base, top, level.Results)

	exit := cb.addBasicBlock(1)

	if level.Destination != nil {
		cb.addJumpAdjustments(level.Base, level.Parameters, level.Jumps)
		cb.setJumpDestinations(*level.Destination, level.Jumps)
	} else {
		cb.addJumpAdjustments(level.Base, level.Results, level.Jumps)
		destination := BlockID(len(cb.fn.Blocks))
		cb.setJumpDestinations(destination, level.Jumps)
	}

	destination := BlockID(len(cb.fn.Blocks))
	cb.setJumpDestination(exit, 0, destination)
}

// fillPredecessors derives every block's predecessor list from the
// (by-construction complete) successor lists, once building is done.
func fillPredecessors(blocks []Block) {
	for i := range blocks {
		for _, succ := range blocks[i].Succs {
			blocks[succ].Preds = append(blocks[succ].Preds, BlockID(i))
		}
	}
}

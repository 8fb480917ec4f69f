package cfg

// Jump is a pending branch record: the operand-stack top at the moment of
// the branch, the block it branches from, and which successor slot
// ("branch") of that block it occupies. Recorded by push/br* handling,
// resolved against a Level's destination at `end` (spec §4.1).
type Jump struct {
	Stack  Register
	Source BlockID
	Branch int
}

// Level is one entry in the scope stack the StackBuilder maintains:
// block/loop/if/else nesting. Destination is set for loop (the loop
// header block, so `br` to this depth jumps backward) and left unset for
// block/if/else (so `br` resolves forward at `end`).
type Level struct {
	Parameters int
	Results    int
	Base       Register

	Destination *BlockID
	Jumps       []Jump
}

// StackBuilder tracks the current operand-stack top register and the
// nested scope levels, mirroring the reference stack_builder.rs directly:
// every local index is `top`-relative, levels record a base/param/result
// arity, and jumps accumulate per level until `end` resolves them.
type StackBuilder struct {
	levels []Level
	top    Register
}

// NewStackBuilder returns a builder ready for SetFunctionData.
func NewStackBuilder() *StackBuilder { return &StackBuilder{} }

// SetFunctionData initializes the builder for a new function: locals occupy
// LocalBase..LocalBase+params+locals, and the outermost level (the
// function body) is pushed with no destination (so `return`/falling off
// the end both resolve through the ordinary `end` path at depth 0, per
// spec §4.1 "return: register a jump to the outermost level").
func (s *StackBuilder) SetFunctionData(params, results, locals int) {
	s.top = LocalBase
	s.levels = append(s.levels, Level{
		Parameters: params,
		Results:    results,
		Base:       s.top,
	})
	s.top += Register(params + locals)
}

// PushLevel opens a new scope (block/loop/if/else). destination is non-nil
// only for `loop`.
func (s *StackBuilder) PushLevel(params, results int, destination *BlockID) {
	s.levels = append(s.levels, Level{
		Parameters: params,
		Results:    results,
		Base:       s.top - Register(params),
		Destination: destination,
	})
}

// PullLevel pops and returns the innermost level, resetting top to
// base+results (the level's result registers become the new stack top).
func (s *StackBuilder) PullLevel() Level {
	lvl := s.levels[len(s.levels)-1]
	s.levels = s.levels[:len(s.levels)-1]
	s.top = lvl.Base + Register(lvl.Results)
	return lvl
}

// PeekLevel returns a pointer to the innermost level for in-place jump
// list mutation (e.g. the `else` swap).
func (s *StackBuilder) PeekLevel() *Level { return &s.levels[len(s.levels)-1] }

// LevelAt returns a pointer to the level at absolute index i (0 = outermost).
func (s *StackBuilder) LevelAt(i int) *Level { return &s.levels[i] }

// Depth returns the number of currently open levels.
func (s *StackBuilder) Depth() int { return len(s.levels) }

// PushLocal reserves one new register at the top of the stack and returns
// it.
func (s *StackBuilder) PushLocal() Register {
	r := s.top
	s.top++
	return r
}

// PushLocals reserves count new registers, returning [start, end).
func (s *StackBuilder) PushLocals(count int) (Register, Register) {
	start := s.top
	s.top += Register(count)
	return start, s.top
}

// PullLocal releases the top register and returns its index.
func (s *StackBuilder) PullLocal() Register {
	s.top--
	return s.top
}

// PullLocals releases count registers from the top, returning [start, end)
// of the released range.
func (s *StackBuilder) PullLocals(count int) (Register, Register) {
	s.top -= Register(count)
	return s.top, s.top + Register(count)
}

// LoadFunctionType reserves a call's destination range and releases its
// source range, for a signature with the given param/result counts.
// Returns (destinations, sources) as (start,end) pairs, matching the
// reference's pull-before-push ordering (arguments are already on the
// stack below where results will land).
func (s *StackBuilder) LoadFunctionType(numParams, numResults int) (dst, src [2]Register) {
	srcStart, srcEnd := s.PullLocals(numParams)
	dstStart, dstEnd := s.PushLocals(numResults)
	return [2]Register{dstStart, dstEnd}, [2]Register{srcStart, srcEnd}
}

// Top returns the current operand-stack top register index.
func (s *StackBuilder) Top() Register { return s.top }

// SetTop forcibly sets the stack top: to 0xFFFF after `unreachable` (so no
// shim is built for the dead stack that follows), and back to the level's
// parameter top at `else`.
func (s *StackBuilder) SetTop(top Register) { s.top = top }

// JumpToLevel records a pending jump from source's branch-th successor
// slot into the level at absolute index `level`.
func (s *StackBuilder) JumpToLevel(source BlockID, branch int, level int) {
	s.levels[level].Jumps = append(s.levels[level].Jumps, Jump{
		Stack:  s.top,
		Source: source,
		Branch: branch,
	})
}

// JumpToDepth records a pending jump at relative block depth (0 = innermost),
// the form `br`/`br_if`/`br_table` operands use directly.
func (s *StackBuilder) JumpToDepth(source BlockID, branch int, depth uint32) {
	s.JumpToLevel(source, branch, len(s.levels)-int(depth)-1)
}

package rvsdg

import "github.com/SovereignSatellite/Spider/internal/cfg"

// postDominators computes each block's immediate post-dominator relative to
// exit, using the iterative Cooper-Harvey-Kennedy algorithm run over the
// reverse graph. Because structuring (internal/structurer) guarantees every
// branch is diamond-shaped with a single join block, a branch's immediate
// post-dominator is exactly that join block — this is how the builder
// locates Gamma continuations without the original's bespoke
// is_branch_end/find_branch_start graph queries.
func postDominators(fn *cfg.Function) []cfg.BlockID {
	n := len(fn.Blocks)
	order := reversePostorderFrom(fn, fn.Exit, true)

	idom := make([]int, n)
	for i := range idom {
		idom[i] = -1
	}
	idom[fn.Exit] = int(fn.Exit)

	position := make([]int, n)
	for i := range position {
		position[i] = -1
	}
	for i, id := range order {
		position[id] = i
	}

	changed := true
	for changed {
		changed = false

		for _, id := range order {
			if id == fn.Exit {
				continue
			}

			newIdom := -1
			for _, succ := range fn.Blocks[id].Succs {
				if idom[succ] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = int(succ)
					continue
				}
				newIdom = intersect(idom, position, newIdom, int(succ))
			}

			if newIdom != -1 && idom[id] != newIdom {
				idom[id] = newIdom
				changed = true
			}
		}
	}

	out := make([]cfg.BlockID, n)
	for i, v := range idom {
		if v == -1 {
			out[i] = fn.Exit
		} else {
			out[i] = cfg.BlockID(v)
		}
	}
	return out
}

func intersect(idom, position []int, a, b int) int {
	for a != b {
		for position[a] > position[b] {
			a = idom[a]
		}
		for position[b] > position[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorderFrom walks fn from start (over predecessors when
// reverse is true, successors otherwise) and returns block IDs in
// reverse-postorder. Used to give the dominator fixpoint a convergence-
// friendly visit order; correctness doesn't depend on the order, only
// iteration count.
func reversePostorderFrom(fn *cfg.Function, start cfg.BlockID, reverse bool) []cfg.BlockID {
	seen := make([]bool, len(fn.Blocks))
	var post []cfg.BlockID

	type frame struct {
		id   cfg.BlockID
		done bool
	}
	stack := []frame{{start, false}}

	next := func(id cfg.BlockID) []cfg.BlockID {
		if reverse {
			return fn.Blocks[id].Preds
		}
		return fn.Blocks[id].Succs
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.done {
			post = append(post, top.id)
			continue
		}
		if seen[top.id] {
			continue
		}
		seen[top.id] = true
		stack = append(stack, frame{top.id, true})
		for _, n := range next(top.id) {
			if !seen[n] {
				stack = append(stack, frame{n, false})
			}
		}
	}

	// post is post-order; reverse it in place.
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

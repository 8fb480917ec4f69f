// Package liveness computes, for every basic block in a built cfg.Function,
// which registers are live on entry (needed by the Luau place allocator to
// know how long a value must survive) and which external resources
// (globals, tables, element segments, memories, data segments, functions)
// each block's instructions touch (needed by the data-flow builder to
// thread state edges only through the resources actually in play).
package liveness

import (
	"sort"

	"github.com/SovereignSatellite/Spider/internal/cfg"
)

// ReferenceKind names the external (non-register) resource a Reference
// names.
type ReferenceKind int

const (
	RefFunction ReferenceKind = iota
	RefGlobal
	RefTable
	RefElements
	RefMemory
	RefData
)

// Reference is one read-or-write touch of an external resource by a block.
// Reads and writes are not distinguished: the data-flow builder treats any
// touch as requiring a state-edge dependency, matching the original's
// choice to track conservatively rather than build a full read/write set
// pair.
type Reference struct {
	Kind ReferenceKind
	ID   uint32
}

// Track appends every external-resource Reference touched by insts, sorted
// and de-duplicated, so two blocks with the same resource footprint compare
// equal.
func Track(insts []cfg.Instruction) []Reference {
	var refs []Reference

	push := func(kind ReferenceKind, id uint32) {
		refs = append(refs, Reference{Kind: kind, ID: id})
	}

	for _, in := range insts {
		switch in.Kind {
		case cfg.InstRefFunc:
			push(RefFunction, in.Index)
		case cfg.InstGlobalGet, cfg.InstGlobalSet:
			push(RefGlobal, in.Index)
		case cfg.InstTableGet, cfg.InstTableSet, cfg.InstTableSize, cfg.InstTableGrow, cfg.InstTableFill:
			push(RefTable, in.Index)
		case cfg.InstTableCopy:
			push(RefTable, in.Index)
			push(RefTable, in.Index2)
		case cfg.InstTableInit:
			push(RefTable, in.Index)
			push(RefElements, in.Index2)
		case cfg.InstElemDrop:
			push(RefElements, in.Index)
		case cfg.InstMemoryLoad, cfg.InstMemoryStore, cfg.InstMemorySize, cfg.InstMemoryGrow, cfg.InstMemoryFill:
			push(RefMemory, in.Index)
		case cfg.InstMemoryCopy:
			push(RefMemory, in.Index)
			push(RefMemory, in.Index2)
		case cfg.InstMemoryInit:
			push(RefMemory, in.Index)
			push(RefData, in.Index2)
		case cfg.InstDataDrop:
			push(RefData, in.Index)
		}
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].ID < refs[j].ID
	})

	out := refs[:0]
	for i, r := range refs {
		if i == 0 || r != out[len(out)-1] {
			out = append(out, r)
		}
	}
	return out
}

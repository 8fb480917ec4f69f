// Package emit walks a normalized internal/rvsdg.Graph and lowers it to
// an internal/luau/ast tree (spec §4.6 "Luau Emitter"): a place allocator
// decides which values get a name and for how long, then a single
// topological pass emits a statement or records an inline expression for
// every node.
package emit

import (
	"container/heap"

	"github.com/SovereignSatellite/Spider/internal/luau/ast"
)

// PlaceKind distinguishes how a Local was produced: freshly declared,
// reassigned into a place that already existed, or spilled to the
// per-function overflow table (spec §4.6 "Local provider").
type PlaceKind int

const (
	PlaceDefinition PlaceKind = iota
	PlaceAssignment
	PlaceOverflow
)

// Place is one value's storage location, as decided by the allocator.
type Place struct {
	Kind  PlaceKind
	Name  ast.Name
	Table ast.Name
	Index uint16
}

// Local converts a Place into the ast.Local the emitter embeds in
// statements and expressions.
func (p Place) Local() ast.Local {
	if p.Kind == PlaceOverflow {
		return ast.Local{Fast: false, Table: p.Table, Index: p.Index}
	}
	return ast.Local{Fast: true, Name: p.Name}
}

// hold is one live name's expiry, ordered so the allocator's free-list
// reclaims the name that dies soonest first (spec's "min-heap of
// (expires_at, name)").
type hold struct {
	name  uint32
	until int
}

type holdHeap []hold

func (h holdHeap) Len() int            { return len(h) }
func (h holdHeap) Less(i, j int) bool  { return h[i].until < h[j].until }
func (h holdHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *holdHeap) Push(x interface{}) { *h = append(*h, x.(hold)) }
func (h *holdHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// indexProvider hands out dense uint32 indices, reusing one from its free
// list when available; it underlies both the fast-local name space and a
// single overflow table's index space (spec §4.6 "local provider... a
// free list of names whose scope is still active").
type indexProvider struct {
	holds holdHeap
	free  []uint32
	names uint32
}

func (p *indexProvider) shouldCreate() bool { return len(p.free) == 0 }

func (p *indexProvider) pull(until int) uint32 {
	var name uint32
	if n := len(p.free); n > 0 {
		name = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		name = p.names
		p.names++
	}
	heap.Push(&p.holds, hold{name: name, until: until})
	return name
}

// tryRevive reuses name if it is currently free, extending its lifetime
// to until; it reports whether the reuse happened.
func (p *indexProvider) tryRevive(name uint32, until int) bool {
	for i, n := range p.free {
		if n == name {
			p.free = append(p.free[:i], p.free[i+1:]...)
			heap.Push(&p.holds, hold{name: name, until: until})
			return true
		}
	}
	return false
}

// forgetFree drops every free name at or above last: names revived into
// an outer scope must not be handed back out once that scope's region
// closes (spec "on exit, names freed inside the region are forgotten").
func (p *indexProvider) forgetFree(last uint32) {
	kept := p.free[:0]
	for _, n := range p.free {
		if n < last {
			kept = append(kept, n)
		}
	}
	p.free = kept
}

// pushUntil frees every hold whose expiry is exactly end, the node index
// the allocator has just finished processing.
func (p *indexProvider) pushUntil(end int) {
	for len(p.holds) > 0 && p.holds[0].until == end {
		h := heap.Pop(&p.holds).(hold)
		p.free = append(p.free, h.name)
	}
}

// tableProvider lazily creates the per-function overflow table the first
// time a local spills past the budget (spec "switches to a table
// provider").
type tableProvider struct {
	active   bool
	table    ast.Name
	provider indexProvider
}

func (t *tableProvider) getOrCreate(names *indexProvider, until int) ast.Name {
	if !t.active {
		t.active = true
		t.table = ast.Name{ID: names.pull(until)}
	}
	return t.table
}

func (t *tableProvider) pull(until int, names *indexProvider) Place {
	table := t.getOrCreate(names, 1<<30) // the table itself outlives the function body
	idx := t.provider.pull(until)
	return Place{Kind: PlaceOverflow, Table: table, Index: uint16(idx)}
}

func (t *tableProvider) tryRevive(table ast.Name, index uint16, until int) bool {
	if !t.active || table != t.table {
		return false
	}
	return t.provider.tryRevive(uint32(index), until)
}

func (t *tableProvider) pushUntil(end int) {
	if t.active {
		t.provider.pushUntil(end)
	}
}

// createdLen reports the overflow table's final width, if one was ever
// created.
func (t *tableProvider) createdLen() (ast.Name, uint32, bool) {
	if !t.active {
		return ast.Name{}, 0, false
	}
	return t.table, t.provider.names, true
}

// functionProvider is one function's whole local-naming state: the fast
// local space, plus the overflow table it spills into once the live
// count exceeds budget (spec §4.6, §9's "199 locals per function").
type functionProvider struct {
	budget int
	locals indexProvider
	table  tableProvider
}

func newFunctionProvider(budget int) *functionProvider {
	return &functionProvider{budget: budget}
}

func (f *functionProvider) pull(until int) Place {
	if f.locals.shouldCreate() && len(f.locals.holds) >= f.budget {
		return f.table.pull(until, &f.locals)
	}
	declares := f.locals.shouldCreate()
	name := ast.Name{ID: f.locals.pull(until)}
	if declares {
		return Place{Kind: PlaceDefinition, Name: name}
	}
	return Place{Kind: PlaceAssignment, Name: name}
}

func (f *functionProvider) tryRevive(p Place, until int) bool {
	switch p.Kind {
	case PlaceOverflow:
		return f.table.tryRevive(p.Table, p.Index, until)
	default:
		return f.locals.tryRevive(p.Name.ID, until)
	}
}

func (f *functionProvider) pushUntil(end int) {
	f.locals.pushUntil(end)
	f.table.pushUntil(end)
}

// scopedProvider nests a stack of functionProviders (one per Lambda,
// including the Omega-level module chunk) and, within each, a stack of
// local-scope checkpoints (spec "local scopes nest with branch/loop
// regions").
type scopedProvider struct {
	functions  []*functionProvider
	firstNames []uint32
	budget     int
}

func newScopedProvider(budget int) *scopedProvider {
	return &scopedProvider{budget: budget}
}

func (s *scopedProvider) current() *functionProvider {
	return s.functions[len(s.functions)-1]
}

func (s *scopedProvider) pushFunctionScope() {
	s.functions = append(s.functions, newFunctionProvider(s.budget))
}

// popFunctionScope tears down the innermost function scope, returning its
// overflow table's name and final width if one was created.
func (s *scopedProvider) popFunctionScope() (ast.Name, uint32, bool) {
	f := s.functions[len(s.functions)-1]
	s.functions = s.functions[:len(s.functions)-1]
	name, length, ok := f.table.createdLen()
	return name, length, ok
}

func (s *scopedProvider) pushLocalScope() {
	s.firstNames = append(s.firstNames, s.current().locals.names)
}

func (s *scopedProvider) popLocalScope() {
	n := len(s.firstNames) - 1
	last := s.firstNames[n]
	s.firstNames = s.firstNames[:n]
	s.current().locals.forgetFree(last)
}

func (s *scopedProvider) pull(until int) Place        { return s.current().pull(until) }
func (s *scopedProvider) tryRevive(p Place, u int) bool { return s.current().tryRevive(p, u) }
func (s *scopedProvider) pushUntil(end int)           { s.current().pushUntil(end) }

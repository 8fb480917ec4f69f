// Package runtime holds the pre-authored Luau snippets the printer calls
// into for anything that isn't a native Luau operator: i32/i64 wrapping
// arithmetic, f32 single-precision rounding, and the table/memory/global
// resource model (spec §6 "runtime library"). Grounded on Luau's actual
// standard library rather than a hand-rolled byte array: buffer for
// linear memory (exact IEEE754 and integer-width load/store), bit32 for
// i32/i64 bitwise ops, table for the table resource.
//
// Every helper is a standalone local function; Preamble concatenates
// only the ones the module being printed actually calls, in dependency
// order, the same selective-linking shape the teacher's own runtime
// support files are loaded under (see std/compiler/runtime.go).
package runtime

import (
	"sort"
	"strings"
)

type snippet struct {
	body string
	deps []string
}

// Preamble returns the Luau source for every helper named in used, plus
// its transitive dependencies, each exactly once, dependencies-before-
// dependents. used is read-only; Preamble never mutates it.
func Preamble(used map[string]bool) string {
	seen := map[string]bool{}
	var order []string
	var visit func(name string)
	visit = func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		s, ok := registry()[name]
		if !ok {
			return
		}
		for _, d := range s.deps {
			visit(d)
		}
		order = append(order, name)
	}

	names := make([]string, 0, len(used))
	for n := range used {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		visit(n)
	}

	reg := registry()
	var sb strings.Builder
	for _, n := range order {
		sb.WriteString(reg[n].body)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Package config holds the small set of knobs the pipeline needs: the
// target platform's local-variable ceiling and which optional Wasm
// proposals are accepted. It mirrors the teacher's VMConfig/newVMConfig
// shape (std/compiler/backend_vm.go in the retrieval pack): a plain struct
// built by a constructor plus functional options, rather than a sprawling
// flags object threaded everywhere.
package config

// DefaultLocalBudget is the number of fast locals Luau grants a function
// (spec §4.6, §9). Exceeding it switches the emitter's allocator to the
// table-spill provider for the remainder of that function.
const DefaultLocalBudget = 199

// Config configures one compilation run.
type Config struct {
	// LocalBudget is the per-function fast-local ceiling; see
	// DefaultLocalBudget. Exposed as a setting so an alternate emitter
	// target (spec §9, "emitters targeting other hosts") can raise or
	// remove it.
	LocalBudget int

	// MultiValue, ReferenceTypes, BulkMemory, SignExtension, and
	// SaturatingFloatToInt name the MVP-plus features spec §6 requires
	// support for. All default true. No pipeline stage reads them: the
	// decoder accepts each of these features whatever they are set to.
	MultiValue           bool
	ReferenceTypes       bool
	BulkMemory           bool
	SignExtension        bool
	SaturatingFloatToInt bool

	// RejectSIMD, RejectGC, and RejectExceptions record whether the
	// features spec §6 excludes are rejected. All default true. Only
	// cmd/spiderc reads RejectSIMD, to log it; the decoder rejects SIMD,
	// GC and exception-handling opcodes as unknown opcodes regardless.
	RejectSIMD       bool
	RejectGC         bool
	RejectExceptions bool
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithLocalBudget overrides DefaultLocalBudget.
func WithLocalBudget(n int) Option {
	return func(c *Config) { c.LocalBudget = n }
}

// WithoutRejectSIMD clears RejectSIMD. The decoder does not consult the
// flag, so SIMD opcodes are still rejected (spec Non-goals).
func WithoutRejectSIMD() Option {
	return func(c *Config) { c.RejectSIMD = false }
}

// New builds a Config with the MVP-plus feature set enabled and the
// reference rejections in force, then applies opts.
func New(opts ...Option) Config {
	c := Config{
		LocalBudget:          DefaultLocalBudget,
		MultiValue:           true,
		ReferenceTypes:       true,
		BulkMemory:           true,
		SignExtension:        true,
		SaturatingFloatToInt: true,
		RejectSIMD:           true,
		RejectGC:             true,
		RejectExceptions:     true,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

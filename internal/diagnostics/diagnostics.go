// Package diagnostics defines the compiler's error taxonomy.
//
// The pipeline recognizes four kinds of failure (spec §7): malformed input
// surfaced by the upstream Wasm parser, an explicitly unsupported feature,
// an internal invariant violation (a pipeline bug), and a runtime trap
// (lowered to data instead of raised as a Go error — see internal/rvsdg).
// The first three are modeled here; traps are first-class RVSDG values.
package diagnostics

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a compiler error for callers that branch on failure mode
// (the CLI, for instance, uses a different exit code per kind).
type Kind int

const (
	// KindMalformedInput means the upstream parser rejected the module.
	KindMalformedInput Kind = iota
	// KindUnsupportedFeature means the module uses something this compiler
	// deliberately never supports (SIMD, GC types, exceptions).
	KindUnsupportedFeature
	// KindInvariant means a structural invariant the pipeline relies on
	// was violated; this always indicates a bug in the pipeline itself.
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindMalformedInput:
		return "malformed input"
	case KindUnsupportedFeature:
		return "unsupported feature"
	case KindInvariant:
		return "internal invariant violation"
	default:
		return "unknown error"
	}
}

// Error wraps an underlying cause with a Kind and the function or stage
// that detected it, so the message reads: kind [stage]: detail.
type Error struct {
	Kind  Kind
	Stage string
	cause error
}

func (e *Error) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.cause)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Stage, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// Malformed wraps err as malformed-input, surfaced verbatim from the
// upstream parser's diagnostic.
func Malformed(stage string, err error) error {
	return &Error{Kind: KindMalformedInput, Stage: stage, cause: err}
}

// Malformedf is the formatted-message variant of Malformed.
func Malformedf(stage, format string, args ...interface{}) error {
	return Malformed(stage, fmt.Errorf(format, args...))
}

// Unsupported aborts compilation for a feature this compiler does not
// implement. The design deliberately fails fast here (spec §7): these are
// compile-time configuration errors, not adversarial input.
func Unsupported(stage, feature string) error {
	return &Error{Kind: KindUnsupportedFeature, Stage: stage, cause: fmt.Errorf("%s is unimplemented", feature)}
}

// Invariant reports a broken pipeline invariant (dominance, type mismatch
// between region arms, local-budget exhaustion without a spill path).
func Invariant(stage, format string, args ...interface{}) error {
	return &Error{Kind: KindInvariant, Stage: stage, cause: fmt.Errorf(format, args...)}
}

// Wrap attaches stage context to an arbitrary error without reclassifying
// it, using pkg/errors so the original stack trace (if any) survives.
func Wrap(stage string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithMessage(err, stage)
}

// Is reports whether err (or any error it wraps) is of the given Kind.
func Is(err error, kind Kind) bool {
	var de *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			de = e
			break
		}
		err = errors.Unwrap(err)
	}
	return de != nil && de.Kind == kind
}

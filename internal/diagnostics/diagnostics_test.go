package diagnostics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "malformed input", KindMalformedInput.String())
	assert.Equal(t, "unsupported feature", KindUnsupportedFeature.String())
	assert.Equal(t, "internal invariant violation", KindInvariant.String())
	assert.Equal(t, "unknown error", Kind(99).String())
}

func TestMalformed(t *testing.T) {
	cause := errors.New("bad magic")
	err := Malformed("decode", cause)

	require.True(t, Is(err, KindMalformedInput))
	assert.False(t, Is(err, KindInvariant))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "decode")
	assert.Contains(t, err.Error(), "bad magic")
}

func TestMalformedf(t *testing.T) {
	err := Malformedf("decode", "section %d too short", 4)
	require.True(t, Is(err, KindMalformedInput))
	assert.Contains(t, err.Error(), "section 4 too short")
}

func TestUnsupported(t *testing.T) {
	err := Unsupported("cfg", "SIMD")
	require.True(t, Is(err, KindUnsupportedFeature))
	assert.Contains(t, err.Error(), "SIMD is unimplemented")
}

func TestInvariant(t *testing.T) {
	err := Invariant("rvsdg", "dominator missing for block %d", 3)
	require.True(t, Is(err, KindInvariant))
	assert.Contains(t, err.Error(), "dominator missing for block 3")
}

func TestWrapPreservesKind(t *testing.T) {
	inner := Unsupported("cfg", "GC")
	wrapped := Wrap("build", inner)

	assert.True(t, Is(wrapped, KindUnsupportedFeature))
	assert.Contains(t, wrapped.Error(), "build")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap("build", nil))
}

func TestIsFalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("plain"), KindMalformedInput))
	assert.False(t, Is(nil, KindMalformedInput))
}

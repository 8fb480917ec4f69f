package wasm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRejectsBadMagic(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad magic")
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0x00, 0x61, 0x73, 0x6D, 0x02, 0x00, 0x00, 0x00}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported Wasm version")
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{0x00, 0x61}))
	require.Error(t, err)
}

func TestDecodeAcceptsEmptyModule(t *testing.T) {
	mod, err := Decode(bytes.NewReader([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}))
	require.NoError(t, err)
	assert.Empty(t, mod.Types)
	assert.Empty(t, mod.Functions)
	assert.Empty(t, mod.Imports)
	assert.Equal(t, 0, mod.NumFuncImports())
}

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SovereignSatellite/Spider/internal/diagnostics"
)

func TestExitCodeMapsEveryDiagnosticKind(t *testing.T) {
	assert.Equal(t, 2, exitCode(diagnostics.Malformed("decode", errors.New("bad magic"))))
	assert.Equal(t, 3, exitCode(diagnostics.Unsupported("cfg", "SIMD")))
	assert.Equal(t, 4, exitCode(diagnostics.Invariant("rvsdg", "missing dominator")))
	assert.Equal(t, 1, exitCode(errors.New("plain failure")))
}

func TestOpenInputDashUsesStdin(t *testing.T) {
	rc, err := openInput("-")
	assert.NoError(t, err)
	assert.NoError(t, rc.Close())
}

func TestOpenOutputDashUsesStdout(t *testing.T) {
	wc, err := openOutput("-")
	assert.NoError(t, err)
	assert.NoError(t, wc.Close())
}

func TestOpenInputMissingFile(t *testing.T) {
	_, err := openInput("/nonexistent/path/to/a/module.wasm")
	assert.Error(t, err)
}

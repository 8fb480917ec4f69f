package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	c := New()

	assert.Equal(t, DefaultLocalBudget, c.LocalBudget)
	assert.True(t, c.MultiValue)
	assert.True(t, c.ReferenceTypes)
	assert.True(t, c.BulkMemory)
	assert.True(t, c.SignExtension)
	assert.True(t, c.SaturatingFloatToInt)
	assert.True(t, c.RejectSIMD)
	assert.True(t, c.RejectGC)
	assert.True(t, c.RejectExceptions)
}

func TestWithLocalBudget(t *testing.T) {
	c := New(WithLocalBudget(64))
	assert.Equal(t, 64, c.LocalBudget)
}

func TestWithoutRejectSIMD(t *testing.T) {
	c := New(WithoutRejectSIMD())
	assert.False(t, c.RejectSIMD)
	// Unrelated rejections stay on.
	assert.True(t, c.RejectGC)
	assert.True(t, c.RejectExceptions)
}

func TestOptionsCompose(t *testing.T) {
	c := New(WithLocalBudget(12), WithoutRejectSIMD())
	assert.Equal(t, 12, c.LocalBudget)
	assert.False(t, c.RejectSIMD)
}

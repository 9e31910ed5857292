package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/txprop/internal/ir"
)

func TestFixedIDs_InOrder(t *testing.T) {
	gen := NewFixedIDs(
		"00000000-0000-0000-0000-000000000001",
		"00000000-0000-0000-0000-000000000002",
	)

	assert.Equal(t, ir.MustParseTxID("00000000-0000-0000-0000-000000000001"), gen.Generate())
	assert.Equal(t, ir.MustParseTxID("00000000-0000-0000-0000-000000000002"), gen.Generate())
}

func TestFixedIDs_PanicsWhenExhausted(t *testing.T) {
	gen := NewFixedIDs("00000000-0000-0000-0000-000000000001")
	gen.Generate()

	assert.PanicsWithValue(t, "FixedIDs: all ids exhausted", func() {
		gen.Generate()
	})
}

func TestNewFixedIDs_PanicsOnBadInput(t *testing.T) {
	assert.Panics(t, func() {
		NewFixedIDs("not-a-uuid")
	})
}

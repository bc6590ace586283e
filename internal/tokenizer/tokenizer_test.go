package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiktokenCount(t *testing.T) {
	tk, err := NewTiktoken("cl100k_base")
	require.NoError(t, err)
	assert.Equal(t, "cl100k_base", tk.Encoding())

	assert.Equal(t, 0, tk.Count(""))
	assert.Greater(t, tk.Count("hello world"), 0)

	short := tk.Count("hello")
	long := tk.Count("hello hello hello hello")
	assert.Greater(t, long, short)
}

func TestTiktokenModelNameFallback(t *testing.T) {
	// Model names resolve through the model table when the encoding table
	// misses.
	tk, err := NewTiktoken("gpt-4")
	require.NoError(t, err)
	assert.Greater(t, tk.Count("some text to count"), 0)
}

func TestHeuristicCount(t *testing.T) {
	h := Heuristic{}
	assert.Equal(t, 0, h.Count(""))
	assert.Equal(t, 0, h.Count("   \n\t "))
	assert.Equal(t, 3, h.Count("one two three"))
	assert.Equal(t, 3, h.Count("  one\n\ntwo\tthree  "))
}

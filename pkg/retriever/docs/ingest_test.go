package docs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitChunksShortTextSingleChunk(t *testing.T) {
	chunks := SplitChunks("short text", 100, 20)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitChunksOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 30) // 300 runes
	chunks := SplitChunks(text, 100, 20)

	require.True(t, len(chunks) > 1)
	for i, c := range chunks[:len(chunks)-1] {
		assert.Len(t, c, 100, "chunk %d", i)
	}
	// Consecutive chunks share the overlap region.
	assert.Equal(t, chunks[0][80:], chunks[1][:20])
}

func TestSplitChunksEmpty(t *testing.T) {
	assert.Nil(t, SplitChunks("", 100, 20))
	assert.Nil(t, SplitChunks("anything", 0, 0))
}

package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCachedSystemBlocks(t *testing.T) {
	text := "Você é um auditor técnico de sites de clínicas."

	blocks := BuildCachedSystemBlocks(text)

	require.Len(t, blocks, 1)
	assert.Equal(t, text, blocks[0].Text)
	require.NotNil(t, blocks[0].CacheControl)
	assert.Equal(t, "1h", blocks[0].CacheControl.TTL)
}

func TestBuildCachedSystemBlocks_BreakpointOnLast(t *testing.T) {
	blocks := BuildCachedSystemBlocks("role", "", "output rules")

	require.Len(t, blocks, 2)
	assert.Nil(t, blocks[0].CacheControl)
	require.NotNil(t, blocks[1].CacheControl)
	assert.Equal(t, "output rules", blocks[1].Text)
}

func TestBuildCachedSystemBlocks_Empty(t *testing.T) {
	assert.Empty(t, BuildCachedSystemBlocks())
	assert.Empty(t, BuildCachedSystemBlocks(""))
}

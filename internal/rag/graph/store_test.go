package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphStore_AddsAreIdempotent(t *testing.T) {
	g := NewLocalGraphStore(t.TempDir())

	g.AddBlock("b1")
	g.AddBlock("b1")
	g.AddEntity("ACME")
	g.AddEntity("ACME")
	g.AddContains("b1", "ACME")
	g.AddContains("b1", "ACME")
	g.AddRelationship("ACME", "acquired", "Initech")
	g.AddRelationship("ACME", "acquired", "Initech")

	assert.Equal(t, 2, g.NodeCount()) //b1 and ACME; Initech is only a relation endpoint
	assert.Equal(t, 2, g.EdgeCount())
}

func TestGraphStore_ContextualSubgraph(t *testing.T) {
	g := NewLocalGraphStore(t.TempDir())
	for _, b := range []string{"b1", "b2", "b3"} {
		g.AddBlock(b)
	}
	g.AddEntity("ACME")
	g.AddEntity("Initech")
	g.AddEntity("Globex")
	g.AddContains("b1", "ACME")
	g.AddContains("b2", "ACME")
	g.AddContains("b1", "Initech")
	g.AddContains("b3", "Globex")
	g.AddRelationship("ACME", "acquired", "Initech")
	g.AddRelationship("Globex", "sued", "ACME")

	out := g.ContextualSubgraph([]string{"b1", "b2"})

	assert.True(t, strings.HasPrefix(out, "Graph Connections:"))
	assert.Contains(t, out, "Common Entity 'ACME' connects blocks: b1, b2")
	// both endpoints live in the selected blocks
	assert.Contains(t, out, "'ACME' acquired 'Initech'")
	// Globex is only in b3, its relation must not leak in
	assert.NotContains(t, out, "Globex")
}

func TestGraphStore_ContextualSubgraphEmpty(t *testing.T) {
	g := NewLocalGraphStore(t.TempDir())
	g.AddBlock("b1")
	g.AddEntity("ACME")
	g.AddContains("b1", "ACME")

	// one block, no bridges, no local relations
	assert.Equal(t, "", g.ContextualSubgraph([]string{"b1"}))
	assert.Equal(t, "", g.ContextualSubgraph(nil))
}

func TestGraphStore_RemoveBlockCascades(t *testing.T) {
	g := NewLocalGraphStore(t.TempDir())
	g.AddBlock("b1")
	g.AddBlock("b2")
	g.AddEntity("shared")
	g.AddEntity("lonely")
	g.AddContains("b1", "shared")
	g.AddContains("b2", "shared")
	g.AddContains("b1", "lonely")
	g.AddRelationship("lonely", "mentions", "shared")

	g.RemoveBlock("b1")

	// "shared" survives via b2, "lonely" and its relation are gone
	assert.Equal(t, 2, g.NodeCount())
	assert.Equal(t, 1, g.EdgeCount())

	out := g.ContextualSubgraph([]string{"b2"})
	assert.NotContains(t, out, "lonely")
}

func TestGraphStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	g := NewLocalGraphStore(dir)
	g.AddBlock("b1")
	g.AddBlock("b2")
	g.AddEntity("ACME")
	g.AddContains("b1", "ACME")
	g.AddContains("b2", "ACME")
	g.AddRelationship("ACME", "owns", "Initech")
	require.NoError(t, g.Save())

	reloaded := NewLocalGraphStore(dir)
	require.NoError(t, reloaded.Load())

	assert.Equal(t, g.NodeCount(), reloaded.NodeCount())
	assert.Equal(t, g.EdgeCount(), reloaded.EdgeCount())
	assert.Contains(t, reloaded.ContextualSubgraph([]string{"b1", "b2"}), "Common Entity 'ACME'")
}

func TestGraphStore_ClearIsIdempotent(t *testing.T) {
	g := NewLocalGraphStore(t.TempDir())
	g.AddBlock("b1")
	require.NoError(t, g.Save())

	require.NoError(t, g.Clear())
	assert.Equal(t, 0, g.NodeCount())
	require.NoError(t, g.Clear())
}

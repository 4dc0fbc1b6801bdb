package graph

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImportRoundTrip(t *testing.T) {
	s := NewStore()
	alice, err := s.AddNode("Alice", "Person", Properties{"age": Int64(30)})
	require.NoError(t, err)
	bob, err := s.AddNode("Bob", "Person", Properties{"age": Int64(25)})
	require.NoError(t, err)
	require.NoError(t, s.AddEdge(alice, bob, "KNOWS", Properties{"since": Int64(2020)}))

	doc := Export(s)

	restored := NewStore()
	require.NoError(t, Import(restored, doc))

	// Same graph modulo id assignment: names, labels, properties and the
	// edge structure all survive.
	require.Equal(t, s.NodeCount(), restored.NodeCount())
	require.Equal(t, s.EdgeCount(), restored.EdgeCount())
	for _, n := range s.Nodes() {
		got, ok := restored.GetNodeByName(n.Name)
		require.True(t, ok, "node %s missing after round trip", n.Name)
		assert.Equal(t, n.Label, got.Label)
		assert.True(t, n.Properties.Equal(got.Properties))
	}
	if diff := cmp.Diff(Export(s), Export(restored)); diff != "" {
		t.Errorf("round trip changed the document (-want +got):\n%s", diff)
	}
}

func TestImportDefaults(t *testing.T) {
	doc := &Document{
		Nodes: []NodeRecord{
			{ID: 10},
			{ID: 11, Name: "Bob"},
		},
		Edges: []EdgeRecord{
			{Source: 10, Target: 11},
		},
	}
	s := NewStore()
	require.NoError(t, Import(s, doc))

	n, ok := s.GetNodeByName("Node_10")
	require.True(t, ok)
	assert.Equal(t, "Default", n.Label)

	bob, ok := s.GetNodeByName("Bob")
	require.True(t, ok)

	e, ok := s.GetEdge(n.ID, bob.ID, "interacts_with")
	require.True(t, ok)
	assert.Empty(t, e.Properties)
}

func TestImportReplacesContents(t *testing.T) {
	s := NewStore()
	_, err := s.AddNode("Old", "Person", nil)
	require.NoError(t, err)

	require.NoError(t, Import(s, &Document{Nodes: []NodeRecord{{ID: 1, Name: "New"}}}))
	_, ok := s.GetNodeByName("Old")
	assert.False(t, ok)
	assert.Equal(t, 1, s.NodeCount())
}

func TestImportUnknownEndpoint(t *testing.T) {
	doc := &Document{
		Nodes: []NodeRecord{{ID: 1, Name: "A"}},
		Edges: []EdgeRecord{{Source: 1, Target: 2}},
	}
	s := NewStore()
	err := Import(s, doc)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestExchangeFiles(t *testing.T) {
	s := NewStore()
	a, _ := s.AddNode("Alice", "Person", Properties{"score": Float64(0.5)})
	b, _ := s.AddNode("Bob", "Person", nil)
	require.NoError(t, s.AddEdge(a, b, "KNOWS", nil))

	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, ExportFile(s, path))

	restored := NewStore()
	require.NoError(t, ImportFile(restored, path))
	assert.Equal(t, 2, restored.NodeCount())
	assert.Equal(t, 1, restored.EdgeCount())

	alice, ok := restored.GetNodeByName("Alice")
	require.True(t, ok)
	assert.Equal(t, Float64(0.5), alice.Properties["score"])
}

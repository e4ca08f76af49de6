package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Documents: []DocumentRecord{
			{ID: "doc-1", Kind: types.BusinessDoc(), Status: types.StatusCompleted, RawContent: "quarterly plan"},
			{ID: "doc-2", Kind: types.Code("go"), Status: types.StatusFailed, RawContent: "package main"},
		},
		Vectors: VectorSnapshot{
			ModelID:   "statistical-tfidf",
			Dimension: 4,
			Entries: []VectorEntry{
				{
					ChunkID:    "chunk-1",
					DocumentID: "doc-1",
					Content:    "quarterly plan",
					Vector:     []float32{0.1, 0.2, 0.3, 0.4},
					Metadata:   map[string]string{types.MetaKind: "business_doc"},
				},
				{
					ChunkID:    "chunk-2",
					DocumentID: "doc-2",
					Content:    "package main",
					Vector:     []float32{0.5, 0.6, 0.7, 0.8},
					Metadata:   map[string]string{types.MetaKind: "code:go"},
				},
			},
		},
		Graph: GraphSnapshot{
			Nodes: []types.GraphNode{
				{ID: "doc:doc-1", Kind: types.NodeDocument, Weight: 0, Payload: map[string]string{"kind": "business_doc"}},
				{ID: "kw:plan", Kind: types.NodeKeyword, Weight: 1},
				{ID: "kw:quarter", Kind: types.NodeKeyword, Weight: 1},
			},
			Edges: []types.GraphEdge{
				{Source: "doc:doc-1", Target: "kw:plan", Kind: types.EdgeContains, Weight: 1},
				{Source: "kw:plan", Target: "kw:quarter", Kind: types.EdgeCooccurrence, Weight: 1, Count: 1},
			},
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := testSnapshot()
	require.NoError(t, store.SaveSnapshot(ctx, want))

	got, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, want.Documents, got.Documents)
	assert.Equal(t, want.Vectors.ModelID, got.Vectors.ModelID)
	assert.Equal(t, want.Vectors.Dimension, got.Vectors.Dimension)
	assert.Equal(t, want.Vectors.Entries, got.Vectors.Entries)
	assert.ElementsMatch(t, want.Graph.Nodes, got.Graph.Nodes)
	assert.ElementsMatch(t, want.Graph.Edges, got.Graph.Edges)
}

func TestSnapshotPreservesVectorOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	snap := &Snapshot{
		Documents: []DocumentRecord{
			{ID: "d", Kind: types.Generic(), Status: types.StatusCompleted, RawContent: "x"},
		},
		Vectors: VectorSnapshot{ModelID: "m", Dimension: 1},
	}
	for i := 0; i < 20; i++ {
		snap.Vectors.Entries = append(snap.Vectors.Entries, VectorEntry{
			ChunkID:    fmt.Sprintf("chunk-%02d", i),
			DocumentID: "d",
			Content:    "c",
			Vector:     []float32{float32(i)},
		})
	}
	require.NoError(t, store.SaveSnapshot(ctx, snap))

	got, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, got.Vectors.Entries, 20)
	for i, entry := range got.Vectors.Entries {
		assert.Equal(t, float32(i), entry.Vector[0], "entry %d out of order", i)
	}
}

func TestSaveSnapshotReplacesPreviousState(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot()))

	smaller := &Snapshot{
		Documents: []DocumentRecord{
			{ID: "only", Kind: types.Checklist(), Status: types.StatusCompleted, RawContent: "- done"},
		},
		Vectors: VectorSnapshot{ModelID: "other-model", Dimension: 2},
	}
	require.NoError(t, store.SaveSnapshot(ctx, smaller))

	got, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "only", got.Documents[0].ID)
	assert.Empty(t, got.Vectors.Entries)
	assert.Equal(t, "other-model", got.Vectors.ModelID)
	assert.Empty(t, got.Graph.Nodes)
	assert.Empty(t, got.Graph.Edges)
}

func TestLoadSnapshotFreshDatabaseIsEmpty(t *testing.T) {
	store := openTestStore(t)

	got, err := store.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Documents)
	assert.Empty(t, got.Vectors.Entries)
	assert.Empty(t, got.Graph.Nodes)
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot(ctx, testSnapshot()))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Documents, 2)
	assert.Len(t, got.Vectors.Entries, 2)
	assert.Equal(t, types.Code("go"), got.Documents[1].Kind)
}

func TestVectorSerializationRoundTrip(t *testing.T) {
	vectors := [][]float32{
		{},
		{0},
		{1.5, -2.25, 3.125},
		{-0.000001, 1e20},
	}
	for _, vec := range vectors {
		got := deserializeVector(serializeVector(vec))
		assert.Equal(t, vec, got)
	}
}

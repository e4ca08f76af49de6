package vectorindex

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

func newIndex(t *testing.T, dim int) *Index {
	t.Helper()
	idx, err := New("test-model", dim)
	require.NoError(t, err)
	return idx
}

func entry(chunkID, docID string, vec ...float32) Entry {
	return Entry{ChunkID: chunkID, DocumentID: docID, Content: "content of " + chunkID, Vector: vec}
}

func TestSearch_RanksByCosineSimilarity(t *testing.T) {
	idx := newIndex(t, 3)
	require.NoError(t, idx.Add(
		entry("orthogonal", "d1", 0, 1, 0),
		entry("exact", "d1", 1, 0, 0),
		entry("close", "d2", 0.9, 0.1, 0),
	))

	results, err := idx.Search([]float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact", results[0].ChunkID)
	assert.Equal(t, "close", results[1].ChunkID)
	assert.Equal(t, "orthogonal", results[2].ChunkID)

	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
	assert.Equal(t, 3, results[2].Rank)

	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.0, results[2].Score, 1e-9)
	assert.Greater(t, results[1].Score, results[2].Score)
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	idx := newIndex(t, 2)
	// Same direction, different magnitude: identical cosine similarity.
	require.NoError(t, idx.Add(
		entry("first", "d1", 1, 1),
		entry("second", "d1", 2, 2),
		entry("third", "d1", 3, 3),
	))

	for i := 0; i < 5; i++ {
		results, err := idx.Search([]float32{1, 1}, 3, nil)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "first", results[0].ChunkID, "run %d", i)
		assert.Equal(t, "second", results[1].ChunkID, "run %d", i)
		assert.Equal(t, "third", results[2].ChunkID, "run %d", i)
	}
}

func TestSearch_KSmallerThanIndex(t *testing.T) {
	idx := newIndex(t, 2)
	for i := 0; i < 10; i++ {
		require.NoError(t, idx.Add(entry(fmt.Sprintf("c%d", i), "d", float32(i), 1)))
	}

	results, err := idx.Search([]float32{1, 0}, 3, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	results, err = idx.Search([]float32{1, 0}, 100, nil)
	require.NoError(t, err)
	assert.Len(t, results, 10)

	results, err = idx.Search([]float32{1, 0}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_FilterRestrictsCandidates(t *testing.T) {
	idx := newIndex(t, 2)
	require.NoError(t, idx.Add(
		entry("a1", "docA", 1, 0),
		entry("b1", "docB", 1, 0),
		entry("a2", "docA", 0, 1),
	))

	results, err := idx.Search([]float32{1, 0}, 10, func(e Entry) bool {
		return e.DocumentID == "docA"
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a1", results[0].ChunkID)
	assert.Equal(t, "a2", results[1].ChunkID)
}

func TestSearch_RejectsBadQueries(t *testing.T) {
	idx := newIndex(t, 3)

	_, err := idx.Search(nil, 5, nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = idx.Search([]float32{1, 2}, 5, nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAdd_RejectsDimensionMismatch(t *testing.T) {
	idx := newIndex(t, 3)

	err := idx.Add(entry("bad", "d", 1, 2))
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, idx.Len())
}

func TestAdd_RejectsDuplicateChunkAndLeavesIndexUnchanged(t *testing.T) {
	idx := newIndex(t, 2)
	require.NoError(t, idx.Add(entry("c1", "d", 1, 0)))

	err := idx.Add(entry("c2", "d", 0, 1), entry("c1", "d", 1, 1))
	assert.ErrorIs(t, err, ErrDuplicateChunk)
	assert.Equal(t, 1, idx.Len(), "failed Add must not partially apply")
}

func TestDeleteDocument(t *testing.T) {
	idx := newIndex(t, 2)
	require.NoError(t, idx.Add(
		entry("a1", "docA", 1, 0),
		entry("b1", "docB", 0, 1),
		entry("a2", "docA", 1, 1),
	))

	removed := idx.DeleteDocument("docA")
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, idx.Len())

	results, err := idx.Search([]float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b1", results[0].ChunkID)

	assert.Equal(t, 0, idx.DeleteDocument("docA"), "second delete is a no-op")
}

func TestDeleteThenReaddSameChunkID(t *testing.T) {
	idx := newIndex(t, 2)
	require.NoError(t, idx.Add(entry("c1", "docA", 1, 0)))
	idx.DeleteDocument("docA")
	assert.NoError(t, idx.Add(entry("c1", "docA", 0, 1)))
}

func TestSnapshotRestore_PreservesRanking(t *testing.T) {
	idx := newIndex(t, 3)
	require.NoError(t, idx.Add(
		entry("x", "d1", 0.2, 0.8, 0.1),
		entry("y", "d2", 0.9, 0.05, 0.3),
		entry("z", "d1", 0.5, 0.5, 0.5),
	))

	query := []float32{0.7, 0.2, 0.4}
	before, err := idx.Search(query, 3, nil)
	require.NoError(t, err)

	restored, err := Restore(idx.Snapshot(), "test-model", 3)
	require.NoError(t, err)

	after, err := restored.Search(query, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRestore_RejectsModelMismatch(t *testing.T) {
	idx := newIndex(t, 2)
	require.NoError(t, idx.Add(entry("c", "d", 1, 0)))
	snap := idx.Snapshot()

	_, err := Restore(snap, "other-model", 2)
	assert.ErrorIs(t, err, ErrModelMismatch)

	_, err = Restore(snap, "test-model", 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSearch_ResultFieldsPopulated(t *testing.T) {
	idx := newIndex(t, 2)
	e := Entry{
		ChunkID:    "c1",
		DocumentID: "d1",
		Content:    "hello world",
		Vector:     []float32{1, 0},
		Metadata:   map[string]string{types.MetaKind: "generic"},
	}
	require.NoError(t, idx.Add(e))

	results, err := idx.Search([]float32{1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, types.SearchResult{
		ChunkID:    "c1",
		DocumentID: "d1",
		Rank:       1,
		Score:      results[0].Score,
		Content:    "hello world",
	}, results[0])
}

package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOONL0323/knowgraph-mcp/internal/chunker"
	"github.com/MOONL0323/knowgraph-mcp/internal/embedder"
	"github.com/MOONL0323/knowgraph-mcp/internal/extractor"
	"github.com/MOONL0323/knowgraph-mcp/internal/graph"
	"github.com/MOONL0323/knowgraph-mcp/internal/vectorindex"
	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

const testDimension = 64

// newTestOrchestrator wires a full stack on the statistical embedder, which
// is deterministic and needs no network.
func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()

	provider, err := embedder.New(embedder.Config{
		Candidates: []embedder.Candidate{{
			Name: "statistical",
			Construct: func() (embedder.Backend, error) {
				return embedder.NewStatisticalBackend(testDimension), nil
			},
		}},
	})
	require.NoError(t, err)

	idx, err := vectorindex.New(provider.Describe().BackendID, provider.Dimension())
	require.NoError(t, err)

	builder := graph.New(graph.DefaultConfig())
	t.Cleanup(func() { _ = builder.Close() })

	return New(
		DefaultConfig(),
		chunker.New(chunker.DefaultConfig()),
		provider,
		extractor.New(extractor.DefaultConfig()),
		idx,
		builder,
	)
}

func ingestAndProcess(t *testing.T, o *Orchestrator, docID, content string, kind types.ContentKind) string {
	t.Helper()
	id, err := o.Ingest(docID, content, kind)
	require.NoError(t, err)
	require.NoError(t, o.Process(context.Background(), id))
	return id
}

func TestProcess_HappyPath(t *testing.T) {
	o := newTestOrchestrator(t)

	id := ingestAndProcess(t, o, "doc-1",
		"The payment gateway validates each transaction before settlement.",
		types.BusinessDoc())

	status, err := o.Status(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, status)

	stats := o.Stats()
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Vectors)
	assert.Greater(t, stats.Graph.Nodes, 1, "document node plus keyword nodes")
}

func TestIngest_GeneratesIDWhenEmpty(t *testing.T) {
	o := newTestOrchestrator(t)

	id, err := o.Ingest("", "some content", types.Generic())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	status, err := o.Status(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, status)
}

func TestIngest_RejectsEmptyContent(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.Ingest("doc", "", types.Generic())
	assert.ErrorIs(t, err, types.ErrEmptyContent)
}

func TestProcess_UnknownDocument(t *testing.T) {
	o := newTestOrchestrator(t)

	err := o.Process(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestProcess_CompletedDocumentCannotReprocessWithoutReingest(t *testing.T) {
	o := newTestOrchestrator(t)
	id := ingestAndProcess(t, o, "doc-1", "content for the pipeline", types.Generic())

	err := o.Process(context.Background(), id)
	assert.ErrorIs(t, err, types.ErrInvalidStatus)
}

func TestProcess_CancellationMarksFailedAndRetryWorks(t *testing.T) {
	o := newTestOrchestrator(t)
	id, err := o.Ingest("doc-1", "content that will fail to embed first", types.Generic())
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, o.Process(cancelled, id))

	status, err := o.Status(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, status)

	// FAILED -> PROCESSING is a legal retry transition.
	require.NoError(t, o.Process(context.Background(), id))
	status, err = o.Status(id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, status)
}

func TestSearch_FindsIngestedContent(t *testing.T) {
	o := newTestOrchestrator(t)

	ingestAndProcess(t, o, "payments",
		"The payment gateway validates transactions and settles invoices.",
		types.BusinessDoc())
	ingestAndProcess(t, o, "fruit",
		"Bananas and apples are stocked in the produce aisle.",
		types.BusinessDoc())

	results, err := o.Search(context.Background(), "payment gateway transaction", 2, "")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "payments", results[0].DocumentID)
	assert.Equal(t, 1, results[0].Rank)
}

func TestSearch_KindFilter(t *testing.T) {
	o := newTestOrchestrator(t)

	ingestAndProcess(t, o, "notes", "release checklist for deployment", types.Generic())
	ingestAndProcess(t, o, "tasks", "1. deploy release\n2. verify deployment", types.Checklist())

	results, err := o.Search(context.Background(), "deployment release", 10, "checklist")
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, result := range results {
		assert.Equal(t, "tasks", result.DocumentID)
	}
}

func TestDeleteDocument_Cascades(t *testing.T) {
	o := newTestOrchestrator(t)
	id := ingestAndProcess(t, o, "doc-1", "kubernetes cluster deployment guide", types.Generic())

	require.NoError(t, o.DeleteDocument(context.Background(), id))

	_, err := o.Status(id)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	stats := o.Stats()
	assert.Zero(t, stats.Documents)
	assert.Zero(t, stats.Vectors)
	assert.Zero(t, stats.Graph.Nodes)

	err = o.DeleteDocument(context.Background(), id)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestReingest_ReplacesChunksWholesale(t *testing.T) {
	o := newTestOrchestrator(t)

	long := strings.Repeat("alpha beta gamma delta epsilon ", 200)
	ingestAndProcess(t, o, "doc-1", long, types.Generic())
	before := o.Stats().Vectors
	require.Greater(t, before, 1)

	ingestAndProcess(t, o, "doc-1", "short replacement", types.Generic())
	assert.Equal(t, 1, o.Stats().Vectors, "old chunk set fully replaced")
	assert.Equal(t, 1, o.Stats().Documents)
}

func TestProcessAll_FailureDoesNotBlockOthers(t *testing.T) {
	o := newTestOrchestrator(t)

	id1, err := o.Ingest("ok-1", "first document content", types.Generic())
	require.NoError(t, err)
	id2, err := o.Ingest("ok-2", "second document content", types.Generic())
	require.NoError(t, err)

	// "missing" was never ingested; its failure must not stop the others.
	require.NoError(t, o.ProcessAll(context.Background(), []string{id1, "missing", id2}))

	for _, id := range []string{id1, id2} {
		status, err := o.Status(id)
		require.NoError(t, err)
		assert.Equal(t, types.StatusCompleted, status)
	}
}

func TestRelated_ResolvesDocumentNames(t *testing.T) {
	o := newTestOrchestrator(t)
	ingestAndProcess(t, o, "doc-1", "kubernetes deployment rollout", types.Generic())

	// Plain document id resolves through the doc: prefix.
	related, err := o.Related("doc-1", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, related)

	// Keyword nodes resolve directly.
	related, err = o.Related("kubernetes", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, related)
}

func TestSnapshotRestore_FullCycle(t *testing.T) {
	o := newTestOrchestrator(t)
	ingestAndProcess(t, o, "payments",
		"The payment gateway validates transactions and settles invoices.",
		types.BusinessDoc())
	ingestAndProcess(t, o, "fruit",
		"Bananas and apples are stocked in the produce aisle.",
		types.BusinessDoc())

	query := "payment gateway"
	wantResults, err := o.Search(context.Background(), query, 5, "")
	require.NoError(t, err)
	snap := o.Snapshot()

	// Rebuild a fresh stack from the snapshot.
	restored := newTestOrchestrator(t)
	idx, err := vectorindex.Restore(snap.Vectors, restored.index.ModelID(), restored.index.Dimension())
	require.NoError(t, err)
	restored.index = idx
	require.NoError(t, restored.graph.Restore(snap.Graph))
	restored.RestoreDocuments(snap.Documents)

	gotResults, err := restored.Search(context.Background(), query, 5, "")
	require.NoError(t, err)
	assert.Equal(t, wantResults, gotResults, "restored index reproduces rankings")

	status, err := restored.Status("payments")
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, status)

	assert.Equal(t, o.Stats(), restored.Stats())
}

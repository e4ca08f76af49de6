package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MOONL0323/knowgraph-mcp/internal/chunker"
	"github.com/MOONL0323/knowgraph-mcp/internal/embedder"
	"github.com/MOONL0323/knowgraph-mcp/internal/extractor"
	"github.com/MOONL0323/knowgraph-mcp/internal/graph"
	"github.com/MOONL0323/knowgraph-mcp/internal/storage"
	"github.com/MOONL0323/knowgraph-mcp/internal/vectorindex"
	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

// DefaultWorkers bounds concurrent document processing.
const DefaultWorkers = 4

var (
	// ErrDocumentNotFound is returned for operations on unknown documents.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentBusy is returned when an operation races a document that
	// is currently processing.
	ErrDocumentBusy = errors.New("document is processing")
)

// Config holds orchestrator configuration.
type Config struct {
	Workers int
}

// DefaultConfig returns the standard orchestrator configuration.
func DefaultConfig() Config {
	return Config{Workers: DefaultWorkers}
}

// Orchestrator wires the pipeline stages together and tracks per-document
// status. It is safe for concurrent use.
type Orchestrator struct {
	chunker   *chunker.Chunker
	embedder  *embedder.Provider
	extractor *extractor.Extractor
	index     *vectorindex.Index
	graph     *graph.Builder
	workers   int
	logger    *slog.Logger

	mu   sync.RWMutex
	docs map[string]*types.Document
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New wires an orchestrator from its explicitly constructed stages. No
// stage is optional; there is no hidden process-wide state.
func New(
	cfg Config,
	chk *chunker.Chunker,
	emb *embedder.Provider,
	ext *extractor.Extractor,
	idx *vectorindex.Index,
	grph *graph.Builder,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		chunker:   chk,
		embedder:  emb,
		extractor: ext,
		index:     idx,
		graph:     grph,
		workers:   cfg.Workers,
		logger:    slog.Default(),
		docs:      make(map[string]*types.Document),
	}
	if o.workers < 1 {
		o.workers = DefaultWorkers
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ingest registers a document as PENDING. An empty id gets a generated one;
// re-ingesting an existing id replaces its content and resets it to PENDING
// unless it is mid-processing. Returns the document id.
func (o *Orchestrator) Ingest(docID, content string, kind types.ContentKind) (string, error) {
	if docID == "" {
		docID = uuid.NewString()
	}
	doc := &types.Document{
		ID:         docID,
		RawContent: content,
		Kind:       kind,
		Status:     types.StatusPending,
	}
	if err := doc.Validate(); err != nil {
		return "", err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.docs[docID]; ok && existing.Status == types.StatusProcessing {
		return "", fmt.Errorf("%w: %s", ErrDocumentBusy, docID)
	}
	o.docs[docID] = doc
	return docID, nil
}

// Process runs the full pipeline for one document. A failure at any stage
// marks the document FAILED without rolling back stages that already
// committed; re-invoking Process on a FAILED document retries it.
func (o *Orchestrator) Process(ctx context.Context, docID string) error {
	doc, err := o.transition(docID, types.StatusProcessing)
	if err != nil {
		return err
	}

	if err := o.run(ctx, doc); err != nil {
		o.setStatus(docID, types.StatusFailed)
		o.logger.Warn("document processing failed", "document", docID, "error", err)
		return err
	}

	o.setStatus(docID, types.StatusCompleted)
	return nil
}

// run executes the pipeline stages for one document.
func (o *Orchestrator) run(ctx context.Context, doc *types.Document) error {
	contents, err := o.chunker.Split(ctx, doc.RawContent, doc.Kind)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}

	chunks := make([]types.Chunk, len(contents))
	for i, content := range contents {
		chunk := types.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Content:    content,
			Index:      i,
		}
		chunk.Metadata = map[string]string{
			types.MetaDocumentID: doc.ID,
			types.MetaKind:       doc.Kind.String(),
			types.MetaChunkIndex: strconv.Itoa(i),
			types.MetaHash:       chunk.ContentHash(),
		}
		chunks[i] = chunk
	}

	// Reprocessing replaces the chunk set wholesale.
	o.index.DeleteDocument(doc.ID)

	// Embed in chunk-index order. Per-chunk failures come back as nil
	// vectors; only a cancellation aborts.
	vectors, err := o.embedder.Encode(ctx, contents)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	entries := make([]vectorindex.Entry, 0, len(chunks))
	for i, chunk := range chunks {
		if vectors[i] == nil {
			o.logger.Warn("chunk skipped, no embedding",
				"document", doc.ID, "chunk_index", chunk.Index)
			continue
		}
		entries = append(entries, vectorindex.Entry{
			ChunkID:    chunk.ID,
			DocumentID: chunk.DocumentID,
			Content:    chunk.Content,
			Vector:     vectors[i],
			Metadata:   chunk.Metadata,
		})
	}
	if err := o.index.Add(entries...); err != nil {
		return fmt.Errorf("index: %w", err)
	}

	extraction, err := o.extractor.Extract(ctx, doc.RawContent, doc.Kind)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	if err := o.graph.UpsertDocument(ctx, doc.ID, doc.Kind, extraction); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	return nil
}

// ProcessAll processes documents concurrently under the worker pool. A
// document's failure is recorded in its status and does not abort the
// others; only context cancellation stops the batch early.
func (o *Orchestrator) ProcessAll(ctx context.Context, docIDs []string) error {
	semaphore := make(chan struct{}, o.workers)
	g, gctx := errgroup.WithContext(ctx)

	for _, docID := range docIDs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			if err := o.Process(gctx, docID); err != nil {
				// Recorded in status; keep the batch going unless the
				// context itself is gone.
				if gctx.Err() != nil {
					return gctx.Err()
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// DeleteDocument removes a document and cascades to its vectors and graph
// containment.
func (o *Orchestrator) DeleteDocument(ctx context.Context, docID string) error {
	o.mu.Lock()
	doc, ok := o.docs[docID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	if doc.Status == types.StatusProcessing {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDocumentBusy, docID)
	}
	delete(o.docs, docID)
	o.mu.Unlock()

	o.index.DeleteDocument(docID)
	if err := o.graph.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("graph delete: %w", err)
	}
	return nil
}

// PendingIDs returns the documents eligible for processing: those still
// PENDING plus FAILED ones awaiting a retry.
func (o *Orchestrator) PendingIDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var ids []string
	for id, doc := range o.docs {
		if doc.Status == types.StatusPending || doc.Status == types.StatusFailed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Status returns a document's current pipeline status.
func (o *Orchestrator) Status(docID string) (types.DocumentStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	doc, ok := o.docs[docID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	return doc.Status, nil
}

// Search embeds the query text and runs a top-k scan over the vector index.
// An optional kind restricts results to chunks of that content kind.
func (o *Orchestrator) Search(ctx context.Context, query string, k int, kind string) ([]types.SearchResult, error) {
	vector, err := o.embedder.EncodeOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var filter vectorindex.Filter
	if kind != "" {
		filter = func(e vectorindex.Entry) bool {
			return e.Metadata[types.MetaKind] == kind
		}
	}
	return o.index.Search(vector, k, filter)
}

// Related runs a bounded graph traversal. The node id is tried as given and
// as a document node.
func (o *Orchestrator) Related(nodeID string, maxDepth int) ([]types.RelatedNode, error) {
	if o.graph.HasNode(nodeID) {
		return o.graph.FindRelated(nodeID, maxDepth)
	}
	return o.graph.FindRelated(graph.DocumentNodeID(nodeID), maxDepth)
}

// Stats returns the aggregate counts across the registry, index, and graph.
func (o *Orchestrator) Stats() types.Stats {
	o.mu.RLock()
	documents := len(o.docs)
	o.mu.RUnlock()

	return types.Stats{
		Documents: documents,
		Vectors:   o.index.Len(),
		Graph:     o.graph.Stats(),
	}
}

// Snapshot assembles the full persistent state: document registry, vector
// index, and graph.
func (o *Orchestrator) Snapshot() *storage.Snapshot {
	o.mu.RLock()
	docs := make([]storage.DocumentRecord, 0, len(o.docs))
	for _, doc := range o.docs {
		status := doc.Status
		if status == types.StatusProcessing {
			// A document mid-flight at shutdown restarts as pending.
			status = types.StatusPending
		}
		docs = append(docs, storage.DocumentRecord{
			ID:         doc.ID,
			Kind:       doc.Kind,
			Status:     status,
			RawContent: doc.RawContent,
		})
	}
	o.mu.RUnlock()

	snap := &storage.Snapshot{
		Documents: docs,
		Vectors:   o.index.Snapshot(),
		Graph:     o.graph.Snapshot(),
	}
	return snap
}

// RestoreDocuments reloads the document registry from a snapshot. Vector
// index and graph state are restored by their own packages before the
// orchestrator is constructed.
func (o *Orchestrator) RestoreDocuments(records []storage.DocumentRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, rec := range records {
		o.docs[rec.ID] = &types.Document{
			ID:         rec.ID,
			RawContent: rec.RawContent,
			Kind:       rec.Kind,
			Status:     rec.Status,
		}
	}
}

// transition atomically moves a document to next, enforcing the state
// machine.
func (o *Orchestrator) transition(docID string, next types.DocumentStatus) (*types.Document, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	doc, ok := o.docs[docID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	if !doc.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s for %s", types.ErrInvalidStatus, doc.Status, next, docID)
	}
	doc.Status = next

	// Copy so run() reads stable fields without holding the lock.
	snapshot := *doc
	return &snapshot, nil
}

func (o *Orchestrator) setStatus(docID string, status types.DocumentStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if doc, ok := o.docs[docID]; ok {
		doc.Status = status
	}
}

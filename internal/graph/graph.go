package graph

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

// Defaults for graph construction.
const (
	// DefaultMinFrequency is the corpus-wide occurrence count a term needs
	// before it gets a node, and a pair needs before it gets a
	// co-occurrence edge.
	DefaultMinFrequency = 1

	// DefaultSemanticThreshold is the cosine similarity above which a
	// semantic edge is added.
	DefaultSemanticThreshold = 0.85

	// DefaultMaxSemanticNodes bounds the pairwise semantic pass, which is
	// O(n^2) in the number of term nodes.
	DefaultMaxSemanticNodes = 200

	// DefaultMaxRelated caps the result size of a traversal.
	DefaultMaxRelated = 50
)

// DocumentNodeID returns the graph node ID for a document.
func DocumentNodeID(docID string) string { return "doc:" + docID }

var (
	// ErrClosed is returned for operations on a closed builder.
	ErrClosed = errors.New("graph builder is closed")

	// ErrNodeNotFound is returned by traversal from an unknown node.
	ErrNodeNotFound = errors.New("graph node not found")
)

// Encoder supplies embeddings for the semantic-edge pass. The embedding
// provider satisfies this.
type Encoder interface {
	EncodeOne(ctx context.Context, text string) ([]float32, error)
}

// Config holds graph construction parameters.
type Config struct {
	MinFrequency      int
	SemanticThreshold float64
	MaxSemanticNodes  int
	MaxRelated        int
}

// DefaultConfig returns the standard graph configuration.
func DefaultConfig() Config {
	return Config{
		MinFrequency:      DefaultMinFrequency,
		SemanticThreshold: DefaultSemanticThreshold,
		MaxSemanticNodes:  DefaultMaxSemanticNodes,
		MaxRelated:        DefaultMaxRelated,
	}
}

type pairKey struct {
	a, b string // lexically ordered, a < b
}

func makePair(x, y string) pairKey {
	if x < y {
		return pairKey{a: x, b: y}
	}
	return pairKey{a: y, b: x}
}

type edgeKey struct {
	source, target string
	kind           types.EdgeKind
}

// Builder is the incremental knowledge graph. Mutations are serialized
// through a single writer goroutine; traversal and stats take a read lock.
type Builder struct {
	cfg     Config
	encoder Encoder
	logger  *slog.Logger

	mu        sync.RWMutex
	nodes     map[string]*types.GraphNode
	edges     map[edgeKey]*types.GraphEdge
	adjacency map[string]map[string]types.EdgeKind

	// termFreq is the number of documents containing each term; termDocs
	// tracks which documents those are with per-document counts, and
	// pairCounts holds the raw co-occurrence counters including pairs not
	// yet materialized as edges.
	termFreq   map[string]int
	termDocs   map[string]map[string]int
	docTerms   map[string]map[string]int
	docEntity  map[string]map[string]bool
	pairCounts map[pairKey]int

	// termVectors caches embeddings for the semantic pass.
	termVectors map[string][]float32

	ops    chan func()
	done   chan struct{}
	closed sync.Once
	wg     sync.WaitGroup
}

// Option configures a Builder.
type Option func(*Builder)

// WithEncoder enables the semantic-edge pass using the given embedder.
func WithEncoder(enc Encoder) Option {
	return func(b *Builder) { b.encoder = enc }
}

// WithLogger sets the logger for inconsistency and degradation events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// New creates an empty graph builder and starts its writer goroutine.
// Callers must Close it to stop the writer.
func New(cfg Config, opts ...Option) *Builder {
	if cfg.MinFrequency < 1 {
		cfg.MinFrequency = DefaultMinFrequency
	}
	if cfg.SemanticThreshold <= 0 {
		cfg.SemanticThreshold = DefaultSemanticThreshold
	}
	if cfg.MaxSemanticNodes < 1 {
		cfg.MaxSemanticNodes = DefaultMaxSemanticNodes
	}
	if cfg.MaxRelated < 1 {
		cfg.MaxRelated = DefaultMaxRelated
	}

	b := &Builder{
		cfg:         cfg,
		logger:      slog.Default(),
		nodes:       make(map[string]*types.GraphNode),
		edges:       make(map[edgeKey]*types.GraphEdge),
		adjacency:   make(map[string]map[string]types.EdgeKind),
		termFreq:    make(map[string]int),
		termDocs:    make(map[string]map[string]int),
		docTerms:    make(map[string]map[string]int),
		docEntity:   make(map[string]map[string]bool),
		pairCounts:  make(map[pairKey]int),
		termVectors: make(map[string][]float32),
		ops:         make(chan func()),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.wg.Add(1)
	go b.writeLoop()
	return b
}

// writeLoop applies mutations one at a time.
func (b *Builder) writeLoop() {
	defer b.wg.Done()
	for {
		select {
		case op := <-b.ops:
			op()
		case <-b.done:
			// Drain anything already queued.
			for {
				select {
				case op := <-b.ops:
					op()
				default:
					return
				}
			}
		}
	}
}

// Close stops the writer goroutine after draining queued mutations.
func (b *Builder) Close() error {
	b.closed.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
	return nil
}

// submit runs op on the writer goroutine and waits for completion.
func (b *Builder) submit(ctx context.Context, op func() error) error {
	errCh := make(chan error, 1)
	wrapped := func() { errCh <- op() }

	select {
	case b.ops <- wrapped:
	case <-b.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertDocument merges one document's extraction into the graph. A
// document already present is replaced wholesale: its previous terms are
// unwound first, exactly as in DeleteDocument, then re-added.
func (b *Builder) UpsertDocument(ctx context.Context, docID string, kind types.ContentKind, extraction *types.Extraction) error {
	if docID == "" {
		return errors.New("document id is required")
	}
	counts := extraction.TermCounts()
	entities := extraction.EntityNames()

	return b.submit(ctx, func() error {
		b.mu.Lock()
		if _, exists := b.docTerms[docID]; exists {
			b.removeDocumentLocked(docID)
		}
		b.upsertLocked(docID, kind, counts, entities)
		b.mu.Unlock()

		// The semantic pass calls a potentially slow encoder, so it manages
		// the lock itself. The writer goroutine still serializes it against
		// other mutations.
		b.addSemanticEdges(ctx)
		return nil
	})
}

// DeleteDocument removes the document node, its contains edges, and any
// term whose corpus frequency drops to zero.
func (b *Builder) DeleteDocument(ctx context.Context, docID string) error {
	return b.submit(ctx, func() error {
		b.mu.Lock()
		defer b.mu.Unlock()

		if _, exists := b.docTerms[docID]; !exists {
			return nil // idempotent
		}
		b.removeDocumentLocked(docID)
		return nil
	})
}

// upsertLocked applies one document's terms. Caller holds the write lock.
func (b *Builder) upsertLocked(docID string, kind types.ContentKind, counts map[string]int, entities map[string]bool) {
	docNode := DocumentNodeID(docID)
	b.nodes[docNode] = &types.GraphNode{
		ID:      docNode,
		Kind:    types.NodeDocument,
		Payload: map[string]string{"kind": kind.String()},
	}

	b.docTerms[docID] = counts
	b.docEntity[docID] = entities

	// Frequency bookkeeping first, so node materialization below sees the
	// updated corpus counts.
	for term, count := range counts {
		b.termFreq[term]++
		if b.termDocs[term] == nil {
			b.termDocs[term] = make(map[string]int)
		}
		b.termDocs[term][docID] = count
	}

	for term := range counts {
		if b.termFreq[term] < b.cfg.MinFrequency {
			continue
		}
		b.materializeTermLocked(term)
	}

	// Co-occurrence counters over all unordered pairs in this document.
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	for i := 0; i < len(terms); i++ {
		for j := i + 1; j < len(terms); j++ {
			pair := makePair(terms[i], terms[j])
			b.pairCounts[pair]++
		}
	}

	b.refreshCooccurrenceLocked(terms)
}

// materializeTermLocked creates or updates the node for a term that meets
// the minimum frequency, backfilling contains edges from every document
// holding it.
func (b *Builder) materializeTermLocked(term string) {
	kind := types.NodeKeyword
	for docID := range b.termDocs[term] {
		if b.docEntity[docID][term] {
			kind = types.NodeEntity
			break
		}
	}

	node, ok := b.nodes[term]
	if !ok {
		node = &types.GraphNode{ID: term, Kind: kind}
		b.nodes[term] = node
	}
	node.Weight = b.termFreq[term]

	for docID, count := range b.termDocs[term] {
		b.setEdgeLocked(types.GraphEdge{
			Source: DocumentNodeID(docID),
			Target: term,
			Kind:   types.EdgeContains,
			Weight: float64(count),
		})
	}
}

// refreshCooccurrenceLocked re-derives co-occurrence edges touching the
// given terms. Weight is count normalized by the rarer term's document
// frequency, so it is symmetric by construction. Existing edges touching
// other pairs are left alone.
func (b *Builder) refreshCooccurrenceLocked(terms []string) {
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		seen[t] = true
	}

	for pair, count := range b.pairCounts {
		if !seen[pair.a] && !seen[pair.b] {
			continue
		}
		b.applyCooccurrenceLocked(pair, count)
	}
}

func (b *Builder) applyCooccurrenceLocked(pair pairKey, count int) {
	key := edgeKey{source: pair.a, target: pair.b, kind: types.EdgeCooccurrence}

	if count < b.cfg.MinFrequency || b.nodes[pair.a] == nil || b.nodes[pair.b] == nil {
		b.dropEdgeLocked(key)
		return
	}

	freqA, freqB := b.termFreq[pair.a], b.termFreq[pair.b]
	minFreq := freqA
	if freqB < minFreq {
		minFreq = freqB
	}
	if minFreq == 0 {
		b.dropEdgeLocked(key)
		return
	}

	// A co-occurrence edge replaces any semantic edge between the pair.
	b.dropEdgeLocked(edgeKey{source: pair.a, target: pair.b, kind: types.EdgeSemantic})

	b.setEdgeLocked(types.GraphEdge{
		Source: pair.a,
		Target: pair.b,
		Kind:   types.EdgeCooccurrence,
		Weight: float64(count) / float64(minFreq),
		Count:  count,
	})
}

// removeDocumentLocked unwinds one document: contains edges, frequency
// decrements, pair-counter decrements, and zero-frequency node removal.
func (b *Builder) removeDocumentLocked(docID string) {
	counts := b.docTerms[docID]
	docNode := DocumentNodeID(docID)

	b.dropNodeLocked(docNode)
	delete(b.docTerms, docID)
	delete(b.docEntity, docID)

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)

		b.termFreq[term]--
		delete(b.termDocs[term], docID)

		if b.termFreq[term] <= 0 {
			delete(b.termFreq, term)
			delete(b.termDocs, term)
			delete(b.termVectors, term)
			b.dropNodeLocked(term)
		} else if node, ok := b.nodes[term]; ok {
			node.Weight = b.termFreq[term]
		}
	}

	for i := 0; i < len(terms); i++ {
		for j := i + 1; j < len(terms); j++ {
			pair := makePair(terms[i], terms[j])
			if b.pairCounts[pair] <= 1 {
				delete(b.pairCounts, pair)
			} else {
				b.pairCounts[pair]--
			}
		}
	}

	b.refreshCooccurrenceLocked(terms)
}

// setEdgeLocked inserts or updates an edge and its adjacency entries.
func (b *Builder) setEdgeLocked(edge types.GraphEdge) {
	key := edgeKey{source: edge.Source, target: edge.Target, kind: edge.Kind}
	b.edges[key] = &edge

	if b.adjacency[edge.Source] == nil {
		b.adjacency[edge.Source] = make(map[string]types.EdgeKind)
	}
	if b.adjacency[edge.Target] == nil {
		b.adjacency[edge.Target] = make(map[string]types.EdgeKind)
	}
	b.adjacency[edge.Source][edge.Target] = edge.Kind
	b.adjacency[edge.Target][edge.Source] = edge.Kind
}

func (b *Builder) dropEdgeLocked(key edgeKey) {
	if _, ok := b.edges[key]; !ok {
		return
	}
	delete(b.edges, key)
	b.removeAdjacencyLocked(key.source, key.target)
}

// removeAdjacencyLocked clears the neighbor entries for a pair unless
// another edge kind still connects them.
func (b *Builder) removeAdjacencyLocked(a, c string) {
	for _, kind := range []types.EdgeKind{types.EdgeContains, types.EdgeCooccurrence, types.EdgeSemantic} {
		if _, ok := b.edges[edgeKey{source: a, target: c, kind: kind}]; ok {
			return
		}
		if _, ok := b.edges[edgeKey{source: c, target: a, kind: kind}]; ok {
			return
		}
	}
	delete(b.adjacency[a], c)
	delete(b.adjacency[c], a)
	if len(b.adjacency[a]) == 0 {
		delete(b.adjacency, a)
	}
	if len(b.adjacency[c]) == 0 {
		delete(b.adjacency, c)
	}
}

// dropNodeLocked removes a node and every edge touching it.
func (b *Builder) dropNodeLocked(nodeID string) {
	delete(b.nodes, nodeID)
	for neighbor := range b.adjacency[nodeID] {
		for _, kind := range []types.EdgeKind{types.EdgeContains, types.EdgeCooccurrence, types.EdgeSemantic} {
			delete(b.edges, edgeKey{source: nodeID, target: neighbor, kind: kind})
			delete(b.edges, edgeKey{source: neighbor, target: nodeID, kind: kind})
		}
		delete(b.adjacency[neighbor], nodeID)
		if len(b.adjacency[neighbor]) == 0 {
			delete(b.adjacency, neighbor)
		}
	}
	delete(b.adjacency, nodeID)
}

// Stats returns aggregate graph counts.
func (b *Builder) Stats() types.GraphStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := types.GraphStats{
		Nodes:       len(b.nodes),
		Edges:       len(b.edges),
		NodesByKind: make(map[types.NodeKind]int),
		EdgesByKind: make(map[types.EdgeKind]int),
	}
	for _, node := range b.nodes {
		stats.NodesByKind[node.Kind]++
	}
	for _, edge := range b.edges {
		stats.EdgesByKind[edge.Kind]++
	}
	stats.Documents = stats.NodesByKind[types.NodeDocument]
	stats.KeywordTerms = stats.NodesByKind[types.NodeKeyword] + stats.NodesByKind[types.NodeEntity]
	return stats
}

// EdgeWeight returns the weight of the edge of the given kind between two
// nodes, in either direction.
func (b *Builder) EdgeWeight(a, c string, kind types.EdgeKind) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if edge, ok := b.edges[edgeKey{source: a, target: c, kind: kind}]; ok {
		return edge.Weight, true
	}
	if edge, ok := b.edges[edgeKey{source: c, target: a, kind: kind}]; ok {
		return edge.Weight, true
	}
	return 0, false
}

// NodeWeight returns the corpus frequency recorded on a term node.
func (b *Builder) NodeWeight(nodeID string) (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	node, ok := b.nodes[nodeID]
	if !ok {
		return 0, false
	}
	return node.Weight, true
}

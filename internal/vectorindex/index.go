package vectorindex

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/MOONL0323/knowgraph-mcp/internal/storage"
	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

var (
	// ErrDimensionMismatch is returned when a vector does not match the
	// index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrModelMismatch is returned when restoring a snapshot produced by a
	// different embedding model.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrDuplicateChunk is returned when adding a chunk ID that is already
	// indexed. Reprocessing must delete the document's entries first.
	ErrDuplicateChunk = errors.New("chunk already indexed")

	// ErrEmptyQuery is returned for a nil or zero-length query vector.
	ErrEmptyQuery = errors.New("query vector is empty")
)

// Entry is one indexed chunk embedding.
type Entry struct {
	ChunkID    string
	DocumentID string
	Content    string
	Vector     []float32
	Metadata   map[string]string
}

// Filter restricts a search to entries it returns true for. A nil Filter
// matches everything.
type Filter func(Entry) bool

// Index is an exact cosine-similarity index. All methods are safe for
// concurrent use; writes take the write lock, searches scan under the read
// lock.
type Index struct {
	mu      sync.RWMutex
	modelID string
	dim     int
	entries []Entry
	byChunk map[string]struct{}
}

// New creates an empty index bound to one embedding model and dimension.
func New(modelID string, dim int) (*Index, error) {
	if dim < 1 {
		return nil, fmt.Errorf("%w: dimension %d", ErrDimensionMismatch, dim)
	}
	return &Index{
		modelID: modelID,
		dim:     dim,
		byChunk: make(map[string]struct{}),
	}, nil
}

// ModelID returns the embedding model this index is bound to.
func (idx *Index) ModelID() string { return idx.modelID }

// Dimension returns the fixed vector dimension.
func (idx *Index) Dimension() int { return idx.dim }

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Add appends entries in the given order. The whole call is rejected before
// any mutation when an entry has the wrong dimension or a duplicate chunk
// ID, so a failed Add leaves the index unchanged.
func (idx *Index) Add(entries ...Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if len(e.Vector) != idx.dim {
			return fmt.Errorf("%w: chunk %s has dimension %d, index has %d",
				ErrDimensionMismatch, e.ChunkID, len(e.Vector), idx.dim)
		}
		if _, ok := idx.byChunk[e.ChunkID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateChunk, e.ChunkID)
		}
		if _, ok := seen[e.ChunkID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateChunk, e.ChunkID)
		}
		seen[e.ChunkID] = struct{}{}
	}

	for _, e := range entries {
		idx.entries = append(idx.entries, e)
		idx.byChunk[e.ChunkID] = struct{}{}
	}
	return nil
}

// Search scans every entry and returns the top k by cosine similarity,
// descending. Entries with equal similarity keep their insertion order.
// k <= 0 returns no results.
func (idx *Index) Search(query []float32, k int, filter Filter) ([]types.SearchResult, error) {
	if len(query) == 0 {
		return nil, ErrEmptyQuery
	}
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			ErrDimensionMismatch, len(query), idx.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	type scored struct {
		entry Entry
		score float64
	}
	candidates := make([]scored, 0, len(idx.entries))
	for _, e := range idx.entries {
		if filter != nil && !filter(e) {
			continue
		}
		candidates = append(candidates, scored{entry: e, score: cosineSimilarity(query, e.Vector)})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]types.SearchResult, k)
	for i := 0; i < k; i++ {
		results[i] = types.SearchResult{
			ChunkID:    candidates[i].entry.ChunkID,
			DocumentID: candidates[i].entry.DocumentID,
			Rank:       i + 1,
			Score:      candidates[i].score,
			Content:    candidates[i].entry.Content,
		}
	}
	return results, nil
}

// DeleteDocument removes every entry belonging to documentID and returns
// how many were removed. Remaining entries keep their relative order.
func (idx *Index) DeleteDocument(documentID string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	kept := idx.entries[:0]
	removed := 0
	for _, e := range idx.entries {
		if e.DocumentID == documentID {
			delete(idx.byChunk, e.ChunkID)
			removed++
			continue
		}
		kept = append(kept, e)
	}
	idx.entries = kept
	return removed
}

// Snapshot captures the full index state for persistence.
func (idx *Index) Snapshot() storage.VectorSnapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	snap := storage.VectorSnapshot{
		ModelID:   idx.modelID,
		Dimension: idx.dim,
		Entries:   make([]storage.VectorEntry, len(idx.entries)),
	}
	for i, e := range idx.entries {
		snap.Entries[i] = storage.VectorEntry{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			Content:    e.Content,
			Vector:     e.Vector,
			Metadata:   e.Metadata,
		}
	}
	return snap
}

// Restore rebuilds an index from a snapshot. The snapshot must have been
// produced by the same embedding model and dimension; otherwise the stored
// vectors are not comparable to new queries and Restore refuses them.
func Restore(snap storage.VectorSnapshot, modelID string, dim int) (*Index, error) {
	if snap.ModelID != "" && snap.ModelID != modelID {
		return nil, fmt.Errorf("%w: snapshot from %q, active model is %q",
			ErrModelMismatch, snap.ModelID, modelID)
	}
	if snap.Dimension != 0 && snap.Dimension != dim {
		return nil, fmt.Errorf("%w: snapshot dimension %d, active dimension %d",
			ErrDimensionMismatch, snap.Dimension, dim)
	}

	idx, err := New(modelID, dim)
	if err != nil {
		return nil, err
	}
	for _, e := range snap.Entries {
		if err := idx.Add(Entry{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			Content:    e.Content,
			Vector:     e.Vector,
			Metadata:   e.Metadata,
		}); err != nil {
			return nil, fmt.Errorf("restore chunk %s: %w", e.ChunkID, err)
		}
	}
	return idx, nil
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

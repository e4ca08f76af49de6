package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrNoBackend      = errors.New("no embedding backend could be initialized")
	ErrBackendFailed  = errors.New("embedding backend failed")
	ErrUnknownBackend = errors.New("unknown embedding backend")
	ErrEmptyText      = errors.New("text cannot be empty")
)

const (
	// DefaultBatchSize is the number of texts sent to a backend per call.
	DefaultBatchSize = 32

	// DefaultCacheSize is the number of embeddings kept in the LRU cache.
	DefaultCacheSize = 10000

	// canaryText is embedded once at construction to probe a candidate
	// backend and fix the vector dimension.
	canaryText = "dimension probe"
)

// Backend is a single embedding implementation. Backends embed whole
// batches; the Provider owns batching, caching, and failure degradation.
type Backend interface {
	// Encode embeds every text in the batch, preserving order.
	Encode(ctx context.Context, texts []string) ([][]float32, error)

	// ID identifies the backend and model, e.g. "ollama/nomic-embed-text".
	ID() string

	// Close releases any resources held by the backend.
	Close() error
}

// Info describes the active backend.
type Info struct {
	BackendID string
	Dimension int
}

// Provider is the embedding service handed to the rest of the system. The
// active backend and dimension are fixed for the provider's lifetime.
type Provider struct {
	backend   Backend
	dim       int
	batchSize int
	cache     *lru.Cache[string, []float32]
	logger    *slog.Logger
}

// Dimension returns the fixed vector dimension of the active backend.
func (p *Provider) Dimension() int { return p.dim }

// Describe returns the active backend identity and dimension.
func (p *Provider) Describe() Info {
	return Info{BackendID: p.backend.ID(), Dimension: p.dim}
}

// Close releases the active backend.
func (p *Provider) Close() error { return p.backend.Close() }

// Encode embeds texts in fixed-size batches. The result always has one entry
// per input, in input order; a text whose batch failed gets a nil vector.
// The only returned error is context cancellation, checked between batches —
// callers must treat a cancellation as "no batches after the last complete
// one were committed".
func (p *Provider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))

	// Serve cache hits first so only misses hit the backend.
	missIdx := make([]int, 0, len(texts))
	missTexts := make([]string, 0, len(texts))
	for i, text := range texts {
		if text == "" {
			continue // stays nil
		}
		if p.cache != nil {
			if vec, ok := p.cache.Get(hashText(text)); ok {
				out[i] = cloneVector(vec)
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	for start := 0; start < len(missTexts); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		end := start + p.batchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		batch := missTexts[start:end]

		vectors, err := p.backend.Encode(ctx, batch)
		if err != nil || len(vectors) != len(batch) {
			// Degrade to per-text nil vectors; the document still proceeds.
			p.logger.Warn("embedding batch failed",
				"backend", p.backend.ID(), "batch_size", len(batch), "error", err)
			continue
		}

		for j, vec := range vectors {
			if len(vec) != p.dim {
				p.logger.Warn("embedding dimension mismatch, dropping vector",
					"backend", p.backend.ID(), "want", p.dim, "got", len(vec))
				continue
			}
			out[missIdx[start+j]] = vec
			if p.cache != nil {
				p.cache.Add(hashText(batch[j]), cloneVector(vec))
			}
		}
	}

	return out, nil
}

// EncodeOne embeds a single text, returning an error when the backend could
// not produce a vector. Used for query embedding where a nil vector is not
// an acceptable degradation.
func (p *Provider) EncodeOne(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	vectors, err := p.Encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || vectors[0] == nil {
		return nil, fmt.Errorf("%w: %s", ErrBackendFailed, p.backend.ID())
	}
	return vectors[0], nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

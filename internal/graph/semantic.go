package graph

import (
	"context"
	"math"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

// addSemanticEdges runs the pairwise similarity pass over term nodes. It is
// skipped entirely when no encoder is configured or the term count exceeds
// the configured bound, since the pass is O(n^2). Pairs already connected by
// any edge are left alone; co-occurrence evidence always wins over
// embedding similarity.
func (b *Builder) addSemanticEdges(ctx context.Context) {
	if b.encoder == nil {
		return
	}

	b.mu.RLock()
	terms := make([]string, 0, len(b.nodes))
	for id, node := range b.nodes {
		if node.Kind == types.NodeKeyword || node.Kind == types.NodeEntity {
			terms = append(terms, id)
		}
	}
	tooMany := len(terms) > b.cfg.MaxSemanticNodes
	missing := make([]string, 0)
	for _, term := range terms {
		if _, ok := b.termVectors[term]; !ok {
			missing = append(missing, term)
		}
	}
	b.mu.RUnlock()

	if tooMany {
		b.logger.Debug("skipping semantic pass, too many term nodes",
			"terms", len(terms), "max", b.cfg.MaxSemanticNodes)
		return
	}

	// Embed outside the lock; a failed encoder degrades to no semantic
	// edges this round, never to a failed upsert.
	vectors := make(map[string][]float32, len(missing))
	for _, term := range missing {
		vec, err := b.encoder.EncodeOne(ctx, term)
		if err != nil {
			b.logger.Warn("semantic pass skipped, term embedding failed",
				"term", term, "error", err)
			return
		}
		vectors[term] = vec
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for term, vec := range vectors {
		b.termVectors[term] = vec
	}

	for i := 0; i < len(terms); i++ {
		for j := i + 1; j < len(terms); j++ {
			a, c := terms[i], terms[j]
			if _, connected := b.adjacency[a][c]; connected {
				continue
			}
			va, okA := b.termVectors[a]
			vc, okC := b.termVectors[c]
			if !okA || !okC {
				continue
			}
			sim := cosine(va, vc)
			if sim <= b.cfg.SemanticThreshold {
				continue
			}
			pair := makePair(a, c)
			b.setEdgeLocked(types.GraphEdge{
				Source: pair.a,
				Target: pair.b,
				Kind:   types.EdgeSemantic,
				Weight: sim,
			})
		}
	}
}

func cosine(a, c []float32) float64 {
	if len(a) != len(c) {
		return 0
	}
	var dot, normA, normC float64
	for i := range a {
		dot += float64(a[i]) * float64(c[i])
		normA += float64(a[i]) * float64(a[i])
		normC += float64(c[i]) * float64(c[i])
	}
	if normA == 0 || normC == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normC))
}

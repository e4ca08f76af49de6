package graph

import (
	"fmt"
	"sort"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

// FindRelated walks the graph breadth-first from nodeID up to maxDepth hops
// and returns each discovered node with its distance, nearest first. The
// start node itself is excluded and the result is capped at the configured
// maximum. Nodes at the same distance are ordered by ID so traversal output
// is deterministic.
func (b *Builder) FindRelated(nodeID string, maxDepth int) ([]types.RelatedNode, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if _, ok := b.nodes[nodeID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	type queued struct {
		id    string
		depth int
	}

	visited := map[string]bool{nodeID: true}
	queue := []queued{{id: nodeID, depth: 0}}
	var results []types.RelatedNode

	for len(queue) > 0 && len(results) < b.cfg.MaxRelated {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		// Expand neighbors in sorted order for stable output.
		neighbors := make([]string, 0, len(b.adjacency[current.id]))
		for neighbor := range b.adjacency[current.id] {
			if !visited[neighbor] {
				neighbors = append(neighbors, neighbor)
			}
		}
		sort.Strings(neighbors)

		for _, neighbor := range neighbors {
			if len(results) >= b.cfg.MaxRelated {
				break
			}
			visited[neighbor] = true

			node := b.nodes[neighbor]
			if node == nil {
				// Adjacency pointing at a missing node means derived state
				// drifted; log and skip rather than fail the query.
				b.logger.Warn("adjacency references missing node", "node", neighbor)
				continue
			}
			results = append(results, types.RelatedNode{
				ID:       neighbor,
				Kind:     node.Kind,
				Distance: current.depth + 1,
			})
			queue = append(queue, queued{id: neighbor, depth: current.depth + 1})
		}
	}

	return results, nil
}

// HasNode reports whether a node exists.
func (b *Builder) HasNode(nodeID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.nodes[nodeID]
	return ok
}

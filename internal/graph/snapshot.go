package graph

import (
	"sort"
	"strings"

	"github.com/MOONL0323/knowgraph-mcp/internal/storage"
	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

// Snapshot captures the node/edge lists for persistence, in deterministic
// order.
func (b *Builder) Snapshot() storage.GraphSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snap := storage.GraphSnapshot{
		Nodes: make([]types.GraphNode, 0, len(b.nodes)),
		Edges: make([]types.GraphEdge, 0, len(b.edges)),
	}
	for _, node := range b.nodes {
		snap.Nodes = append(snap.Nodes, *node)
	}
	for _, edge := range b.edges {
		snap.Edges = append(snap.Edges, *edge)
	}

	sort.Slice(snap.Nodes, func(i, j int) bool { return snap.Nodes[i].ID < snap.Nodes[j].ID })
	sort.Slice(snap.Edges, func(i, j int) bool {
		if snap.Edges[i].Source != snap.Edges[j].Source {
			return snap.Edges[i].Source < snap.Edges[j].Source
		}
		if snap.Edges[i].Target != snap.Edges[j].Target {
			return snap.Edges[i].Target < snap.Edges[j].Target
		}
		return snap.Edges[i].Kind < snap.Edges[j].Kind
	})
	return snap
}

// Restore rebuilds derived state from a snapshot's node/edge lists: term
// frequencies come from node weights, per-document term counts from
// contains-edge weights, and co-occurrence counters from edge counts.
// Must be called before any documents are upserted.
func (b *Builder) Restore(snap storage.GraphSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, node := range snap.Nodes {
		n := node
		b.nodes[n.ID] = &n

		switch n.Kind {
		case types.NodeKeyword, types.NodeEntity:
			b.termFreq[n.ID] = n.Weight
			if b.termDocs[n.ID] == nil {
				b.termDocs[n.ID] = make(map[string]int)
			}
		}
	}

	for _, edge := range snap.Edges {
		b.setEdgeLocked(edge)

		switch edge.Kind {
		case types.EdgeContains:
			docID := strings.TrimPrefix(edge.Source, "doc:")
			term := edge.Target
			if b.docTerms[docID] == nil {
				b.docTerms[docID] = make(map[string]int)
			}
			b.docTerms[docID][term] = int(edge.Weight)
			if b.termDocs[term] == nil {
				b.termDocs[term] = make(map[string]int)
			}
			b.termDocs[term][docID] = int(edge.Weight)
			if node, ok := b.nodes[term]; ok && node.Kind == types.NodeEntity {
				if b.docEntity[docID] == nil {
					b.docEntity[docID] = make(map[string]bool)
				}
				b.docEntity[docID][term] = true
			}
		case types.EdgeCooccurrence:
			b.pairCounts[makePair(edge.Source, edge.Target)] = edge.Count
		}
	}

	return nil
}

package types

// SearchResult is a single ranked hit from the vector index.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Rank       int // 1-based position in the result set
	Score      float64
	Content    string
}

// GraphStats summarizes the knowledge graph.
type GraphStats struct {
	Nodes        int
	Edges        int
	NodesByKind  map[NodeKind]int
	EdgesByKind  map[EdgeKind]int
	Documents    int
	KeywordTerms int
}

// Stats is the aggregate counts exposed on the query surface.
type Stats struct {
	Documents int
	Vectors   int
	Graph     GraphStats
}

package types

// NodeKind classifies graph nodes.
type NodeKind string

const (
	NodeDocument NodeKind = "document"
	NodeKeyword  NodeKind = "keyword"
	NodeEntity   NodeKind = "entity"
)

// EdgeKind classifies graph edges. Edges are undirected; contains edges only
// ever connect a document node to a keyword/entity node.
type EdgeKind string

const (
	EdgeContains     EdgeKind = "contains"
	EdgeCooccurrence EdgeKind = "cooccurrence"
	EdgeSemantic     EdgeKind = "semantic"
)

// GraphNode is a node in the knowledge graph. For keyword/entity nodes,
// Weight is the number of documents containing the term; when it reaches
// zero the node is deleted along with all its edges.
type GraphNode struct {
	ID      string
	Kind    NodeKind
	Weight  int
	Payload map[string]string
}

// GraphEdge is an undirected weighted edge. Source/Target ordering is
// canonicalized by the graph builder; Weight is always >= 0. For
// co-occurrence edges Count holds the raw pair count the weight is derived
// from, so weights can be recomputed as term frequencies change.
type GraphEdge struct {
	Source string
	Target string
	Kind   EdgeKind
	Weight float64
	Count  int
}

// RelatedNode is one entry in a bounded graph traversal result.
type RelatedNode struct {
	ID       string
	Kind     NodeKind
	Distance int
}

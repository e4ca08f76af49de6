// Package types defines the shared domain types for the knowgraph retrieval
// core: documents, chunks, content kinds, graph nodes and edges, extraction
// output, and search results.
//
// Types in this package are pure data with validation helpers. They carry no
// knowledge of storage, embedding backends, or the MCP transport, which keeps
// the core components (chunker, embedder, vectorindex, extractor, graph,
// pipeline) mutually independent.
package types

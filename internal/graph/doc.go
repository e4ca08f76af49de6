// Package graph maintains the incremental knowledge graph over documents,
// keywords, and code entities.
//
// Nodes are documents plus the keyword/entity terms they contain; edges are
// contains (document to term, weight = in-document count), co-occurrence
// (term to term, weight = pair count normalized by the rarer term's
// frequency), and semantic (term to term, added from embedding similarity
// when the corpus is small enough for the pairwise pass).
//
// All mutations flow through a single-writer queue; reads take a read lock.
// The graph is derived, best-effort data: an inconsistency is logged and
// repaired by the next upsert, never treated as fatal.
package graph

// Package vectorindex holds the in-memory vector store: an exact
// linear-scan cosine index over chunk embeddings.
//
// The index is deliberately simple. Every entry is scanned for every query,
// similarity is computed in float64, and ties keep insertion order, so a
// given index state always produces the same ranking. The embedding model
// and dimension are fixed at construction; entries from another model or
// dimension are refused rather than silently mixed.
package vectorindex

// Package embedder turns text into fixed-dimension vectors.
//
// A Provider wraps exactly one active Backend, chosen at construction by
// trying an ordered list of candidates: local backends first (Ollama),
// networked APIs second (OpenAI), and a hashed TF-IDF statistical embedder
// as the last-resort fallback. The first candidate whose probe embedding
// succeeds becomes active and fixes the vector dimension for the process
// lifetime; mixing vectors from different backends in one index is refused
// downstream by the vector index's model contract.
//
// Encode processes inputs in fixed-size batches. A failed batch degrades to
// nil entries for its texts instead of aborting the call, output ordering
// always matches input ordering, and the context is checked between batches
// so in-flight jobs can be cancelled cleanly.
package embedder

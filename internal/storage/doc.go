// Package storage persists the retrieval state between process runs.
//
// The in-memory vector index and knowledge graph are the source of truth
// while the process runs; storage only sees them at process boundaries. A
// Store loads one complete Snapshot at startup and saves one at shutdown,
// each inside a single SQLite transaction, so the on-disk state is always a
// consistent whole and a crash mid-save leaves the previous snapshot intact.
//
// The schema is versioned with semver migrations. Two SQLite drivers are
// supported through build tags: mattn/go-sqlite3 when CGO is available and
// modernc.org/sqlite for pure Go builds.
package storage

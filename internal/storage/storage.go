package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

var (
	// ErrSnapshotIO is returned when a snapshot cannot be read or written.
	ErrSnapshotIO = errors.New("snapshot io failed")
)

// index_meta keys
const (
	metaModelID   = "model_id"
	metaDimension = "dimension"
)

// VectorEntry is one persisted row of the vector index, in insertion order.
type VectorEntry struct {
	ChunkID    string
	DocumentID string
	Content    string
	Vector     []float32
	Metadata   map[string]string
}

// VectorSnapshot is the complete persisted state of the vector index.
type VectorSnapshot struct {
	ModelID   string
	Dimension int
	Entries   []VectorEntry
}

// GraphSnapshot is the complete persisted state of the knowledge graph.
type GraphSnapshot struct {
	Nodes []types.GraphNode
	Edges []types.GraphEdge
}

// DocumentRecord is the persisted form of a document and its status.
type DocumentRecord struct {
	ID         string
	Kind       types.ContentKind
	Status     types.DocumentStatus
	RawContent string
}

// Snapshot is everything the system persists between runs. It is written
// and read as a single unit.
type Snapshot struct {
	Documents []DocumentRecord
	Vectors   VectorSnapshot
	Graph     GraphSnapshot
}

// Store persists snapshots in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot database at path and applies pending
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSnapshot replaces the entire persisted state with snap inside one
// transaction. A failure rolls back and leaves the previous snapshot intact.
func (s *Store) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrSnapshotIO, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Replace-all: clear every snapshot table, then insert the new state.
	for _, table := range []string{"graph_edges", "graph_nodes", "vectors", "index_meta", "documents"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("%w: clear %s: %v", ErrSnapshotIO, table, err)
		}
	}

	if err := saveDocuments(ctx, tx, snap.Documents); err != nil {
		return err
	}
	if err := saveVectors(ctx, tx, &snap.Vectors); err != nil {
		return err
	}
	if err := saveGraph(ctx, tx, &snap.Graph); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrSnapshotIO, err)
	}
	return nil
}

// LoadSnapshot reads the complete persisted state. A fresh database yields
// an empty snapshot, not an error.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	docs, err := loadDocuments(ctx, s.db)
	if err != nil {
		return nil, err
	}
	snap.Documents = docs

	vectors, err := loadVectors(ctx, s.db)
	if err != nil {
		return nil, err
	}
	snap.Vectors = *vectors

	graph, err := loadGraph(ctx, s.db)
	if err != nil {
		return nil, err
	}
	snap.Graph = *graph

	return snap, nil
}

func saveDocuments(ctx context.Context, tx *sql.Tx, docs []DocumentRecord) error {
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO documents (id, kind, language, status, raw_content) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("%w: prepare documents: %v", ErrSnapshotIO, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, doc := range docs {
		name, language := kindColumns(doc.Kind)
		if _, err := stmt.ExecContext(ctx, doc.ID, name, language, string(doc.Status), doc.RawContent); err != nil {
			return fmt.Errorf("%w: insert document %s: %v", ErrSnapshotIO, doc.ID, err)
		}
	}
	return nil
}

func loadDocuments(ctx context.Context, db *sql.DB) ([]DocumentRecord, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, kind, language, status, raw_content FROM documents ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("%w: query documents: %v", ErrSnapshotIO, err)
	}
	defer func() { _ = rows.Close() }()

	var docs []DocumentRecord
	for rows.Next() {
		var rec DocumentRecord
		var name, language, status string
		if err := rows.Scan(&rec.ID, &name, &language, &status, &rec.RawContent); err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", ErrSnapshotIO, err)
		}
		kind, err := types.ParseContentKind(name, language)
		if err != nil {
			return nil, fmt.Errorf("%w: document %s: %v", ErrSnapshotIO, rec.ID, err)
		}
		rec.Kind = kind
		rec.Status = types.DocumentStatus(status)
		docs = append(docs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}
	return docs, nil
}

func saveVectors(ctx context.Context, tx *sql.Tx, snap *VectorSnapshot) error {
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO index_meta (key, value) VALUES (?, ?), (?, ?)",
		metaModelID, snap.ModelID, metaDimension, strconv.Itoa(snap.Dimension)); err != nil {
		return fmt.Errorf("%w: insert index meta: %v", ErrSnapshotIO, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO vectors (chunk_id, document_id, position, content, vector, metadata) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("%w: prepare vectors: %v", ErrSnapshotIO, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, entry := range snap.Entries {
		meta, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshal metadata for %s: %v", ErrSnapshotIO, entry.ChunkID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			entry.ChunkID, entry.DocumentID, i, entry.Content, serializeVector(entry.Vector), string(meta)); err != nil {
			return fmt.Errorf("%w: insert vector %s: %v", ErrSnapshotIO, entry.ChunkID, err)
		}
	}
	return nil
}

func loadVectors(ctx context.Context, db *sql.DB) (*VectorSnapshot, error) {
	snap := &VectorSnapshot{}

	rows, err := db.QueryContext(ctx, "SELECT key, value FROM index_meta")
	if err != nil {
		return nil, fmt.Errorf("%w: query index meta: %v", ErrSnapshotIO, err)
	}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: scan index meta: %v", ErrSnapshotIO, err)
		}
		switch key {
		case metaModelID:
			snap.ModelID = value
		case metaDimension:
			dim, err := strconv.Atoi(value)
			if err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("%w: invalid dimension %q: %v", ErrSnapshotIO, value, err)
			}
			snap.Dimension = dim
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}
	_ = rows.Close()

	rows, err = db.QueryContext(ctx,
		"SELECT chunk_id, document_id, content, vector, metadata FROM vectors ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("%w: query vectors: %v", ErrSnapshotIO, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var entry VectorEntry
		var blob []byte
		var meta string
		if err := rows.Scan(&entry.ChunkID, &entry.DocumentID, &entry.Content, &blob, &meta); err != nil {
			return nil, fmt.Errorf("%w: scan vector: %v", ErrSnapshotIO, err)
		}
		entry.Vector = deserializeVector(blob)
		if err := json.Unmarshal([]byte(meta), &entry.Metadata); err != nil {
			return nil, fmt.Errorf("%w: metadata for %s: %v", ErrSnapshotIO, entry.ChunkID, err)
		}
		snap.Entries = append(snap.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}
	return snap, nil
}

func saveGraph(ctx context.Context, tx *sql.Tx, snap *GraphSnapshot) error {
	nodeStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO graph_nodes (id, kind, weight, payload) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("%w: prepare graph nodes: %v", ErrSnapshotIO, err)
	}
	defer func() { _ = nodeStmt.Close() }()

	for _, node := range snap.Nodes {
		payload, err := json.Marshal(node.Payload)
		if err != nil {
			return fmt.Errorf("%w: marshal payload for %s: %v", ErrSnapshotIO, node.ID, err)
		}
		if _, err := nodeStmt.ExecContext(ctx, node.ID, string(node.Kind), node.Weight, string(payload)); err != nil {
			return fmt.Errorf("%w: insert node %s: %v", ErrSnapshotIO, node.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO graph_edges (source, target, kind, weight, pair_count) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("%w: prepare graph edges: %v", ErrSnapshotIO, err)
	}
	defer func() { _ = edgeStmt.Close() }()

	for _, edge := range snap.Edges {
		if _, err := edgeStmt.ExecContext(ctx,
			edge.Source, edge.Target, string(edge.Kind), edge.Weight, edge.Count); err != nil {
			return fmt.Errorf("%w: insert edge %s-%s: %v", ErrSnapshotIO, edge.Source, edge.Target, err)
		}
	}
	return nil
}

func loadGraph(ctx context.Context, db *sql.DB) (*GraphSnapshot, error) {
	snap := &GraphSnapshot{}

	rows, err := db.QueryContext(ctx, "SELECT id, kind, weight, payload FROM graph_nodes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%w: query graph nodes: %v", ErrSnapshotIO, err)
	}
	for rows.Next() {
		var node types.GraphNode
		var kind, payload string
		if err := rows.Scan(&node.ID, &kind, &node.Weight, &payload); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: scan graph node: %v", ErrSnapshotIO, err)
		}
		node.Kind = types.NodeKind(kind)
		if err := json.Unmarshal([]byte(payload), &node.Payload); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: payload for %s: %v", ErrSnapshotIO, node.ID, err)
		}
		snap.Nodes = append(snap.Nodes, node)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}
	_ = rows.Close()

	rows, err = db.QueryContext(ctx,
		"SELECT source, target, kind, weight, pair_count FROM graph_edges ORDER BY source, target, kind")
	if err != nil {
		return nil, fmt.Errorf("%w: query graph edges: %v", ErrSnapshotIO, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var edge types.GraphEdge
		var kind string
		if err := rows.Scan(&edge.Source, &edge.Target, &kind, &edge.Weight, &edge.Count); err != nil {
			return nil, fmt.Errorf("%w: scan graph edge: %v", ErrSnapshotIO, err)
		}
		edge.Kind = types.EdgeKind(kind)
		snap.Edges = append(snap.Edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotIO, err)
	}
	return snap, nil
}

// kindColumns splits a ContentKind into its name and language columns.
func kindColumns(k types.ContentKind) (string, string) {
	switch k.Tag() {
	case types.TagBusinessDoc:
		return "business_doc", ""
	case types.TagCode:
		return "code", k.Language()
	case types.TagChecklist:
		return "checklist", ""
	default:
		return "generic", ""
	}
}

// serializeVector converts a float32 slice to a little-endian byte blob
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

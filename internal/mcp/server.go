package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/MOONL0323/knowgraph-mcp/internal/chunker"
	"github.com/MOONL0323/knowgraph-mcp/internal/embedder"
	"github.com/MOONL0323/knowgraph-mcp/internal/extractor"
	"github.com/MOONL0323/knowgraph-mcp/internal/graph"
	"github.com/MOONL0323/knowgraph-mcp/internal/pipeline"
	"github.com/MOONL0323/knowgraph-mcp/internal/storage"
	"github.com/MOONL0323/knowgraph-mcp/internal/vectorindex"
)

const (
	// ServerName is the MCP server name
	ServerName = "knowgraph-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the snapshot database
	DefaultDBPath = "~/.knowgraph"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp          *server.MCPServer
	store        *storage.Store
	embedder     *embedder.Provider
	graph        *graph.Builder
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger
}

// NewServer creates a new MCP server instance. It restores the previous
// snapshot from the database under dbPath, or starts empty on a fresh one.
func NewServer(dbPath string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".knowgraph")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	dbFile := filepath.Join(dbPath, "knowgraph.db")

	store, err := storage.Open(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	// The embedder is shared by the pipeline and the graph's semantic pass,
	// so both draw on one cache and one fixed dimension.
	emb, err := embedder.NewFromEnv(logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	info := emb.Describe()

	snap, err := store.LoadSnapshot(context.Background())
	if err != nil {
		_ = store.Close()
		_ = emb.Close()
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	idx, err := restoreIndex(snap, info, dbFile)
	if err != nil {
		_ = store.Close()
		_ = emb.Close()
		return nil, err
	}

	builder := graph.New(graph.DefaultConfig(),
		graph.WithEncoder(emb),
		graph.WithLogger(logger),
	)
	if err := builder.Restore(snap.Graph); err != nil {
		_ = store.Close()
		_ = emb.Close()
		return nil, fmt.Errorf("failed to restore graph: %w", err)
	}

	orch := pipeline.New(
		pipeline.DefaultConfig(),
		chunker.New(chunker.DefaultConfig()),
		emb,
		extractor.New(extractor.DefaultConfig(), extractor.WithLogger(logger)),
		idx,
		builder,
		pipeline.WithLogger(logger),
	)
	orch.RestoreDocuments(snap.Documents)

	s := &Server{
		mcp:          server.NewMCPServer(ServerName, ServerVersion),
		store:        store,
		embedder:     emb,
		graph:        builder,
		orchestrator: orch,
		logger:       logger,
	}
	s.registerTools()
	return s, nil
}

// restoreIndex rebuilds the vector index from a snapshot. Vectors from a
// different backend or dimension are never mixed into the live index; the
// operator has to delete the database to switch models.
func restoreIndex(snap *storage.Snapshot, info embedder.Info, dbFile string) (*vectorindex.Index, error) {
	if snap.Vectors.ModelID == "" {
		return vectorindex.New(info.BackendID, info.Dimension)
	}
	if snap.Vectors.ModelID != info.BackendID || snap.Vectors.Dimension != info.Dimension {
		return nil, fmt.Errorf(
			"snapshot was built with backend %q (dimension %d) but the active backend is %q (dimension %d); delete %s to rebuild",
			snap.Vectors.ModelID, snap.Vectors.Dimension,
			info.BackendID, info.Dimension, dbFile)
	}
	return vectorindex.Restore(snap.Vectors, info.BackendID, info.Dimension)
}

// Serve starts the MCP server on stdio and blocks until the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}

// Shutdown persists the current state and releases all resources. The
// snapshot write is transactional, so an interrupted shutdown leaves the
// previous snapshot intact.
func (s *Server) Shutdown(ctx context.Context) error {
	var firstErr error

	if err := s.store.SaveSnapshot(ctx, s.orchestrator.Snapshot()); err != nil {
		firstErr = fmt.Errorf("save snapshot: %w", err)
		s.logger.Error("snapshot save failed", "error", err)
	}
	if err := s.graph.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestDocumentTool(), s.handleIngestDocument)
	s.mcp.AddTool(processDocumentsTool(), s.handleProcessDocuments)
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(relatedTool(), s.handleRelated)
	s.mcp.AddTool(deleteDocumentTool(), s.handleDeleteDocument)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}

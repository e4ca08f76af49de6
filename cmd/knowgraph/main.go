package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MOONL0323/knowgraph-mcp/internal/mcp"
	"github.com/MOONL0323/knowgraph-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("Knowgraph MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	// Log to stderr (stdout reserved for MCP protocol)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))
	slog.SetDefault(logger)
	logger.Info("knowgraph MCP server starting",
		"version", version, "build_mode", storage.BuildMode, "driver", storage.DriverName)

	dbPath := os.Getenv("KNOWGRAPH_DB_PATH")
	if dbPath == "" {
		dbPath = mcp.DefaultDBPath
	}

	server, err := mcp.NewServer(dbPath, logger)
	if err != nil {
		logger.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
	case serveErr = <-errChan:
	}

	// Persist the snapshot regardless of how serving ended; the write is
	// transactional, so a failure here leaves the previous snapshot intact.
	if err := server.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	if serveErr != nil {
		logger.Error("server error", "error", serveErr)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// logLevel reads KNOWGRAPH_LOG_LEVEL, defaulting to info.
func logLevel() slog.Level {
	switch os.Getenv("KNOWGRAPH_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

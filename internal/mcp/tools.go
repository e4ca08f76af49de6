package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MOONL0323/knowgraph-mcp/internal/graph"
	"github.com/MOONL0323/knowgraph-mcp/internal/pipeline"
	"github.com/MOONL0323/knowgraph-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeDocumentNotFound = -32001 // Unknown document or graph node
	ErrorCodeDocumentBusy     = -32002 // Document is currently processing
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

// handleIngestDocument handles the ingest_document tool invocation
func (s *Server) handleIngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	content, ok := args["content"].(string)
	if !ok || content == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "content parameter is required", map[string]interface{}{
			"param":  "content",
			"reason": "missing or empty",
		})
	}

	kindName := getStringDefault(args, "kind", "generic")
	language := getStringDefault(args, "language", "")
	kind, err := types.ParseContentKind(kindName, language)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid kind", map[string]interface{}{
			"param":  "kind",
			"value":  kindName,
			"reason": err.Error(),
		})
	}

	docID := getStringDefault(args, "document_id", "")
	process := getBoolDefault(args, "process", true)

	id, err := s.orchestrator.Ingest(docID, content, kind)
	if err != nil {
		if errors.Is(err, pipeline.ErrDocumentBusy) {
			return nil, newMCPError(ErrorCodeDocumentBusy, "document is currently processing", map[string]interface{}{
				"document_id": docID,
			})
		}
		return nil, newMCPError(ErrorCodeInvalidParams, "ingest failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"document_id": id,
		"status":      string(types.StatusPending),
	}

	if process {
		// A stage failure is recorded in the document's status, not hidden
		// behind a protocol error; FAILED documents can be retried.
		if err := s.orchestrator.Process(ctx, id); err != nil {
			response["error"] = err.Error()
		}
		status, err := s.orchestrator.Status(id)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to read status", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response["status"] = string(status)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleProcessDocuments handles the process_documents tool invocation
func (s *Server) handleProcessDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	var docIDs []string
	if raw, ok := args["document_ids"].([]interface{}); ok {
		for _, item := range raw {
			id, ok := item.(string)
			if !ok || id == "" {
				return nil, newMCPError(ErrorCodeInvalidParams, "document_ids must be non-empty strings", map[string]interface{}{
					"param": "document_ids",
				})
			}
			docIDs = append(docIDs, id)
		}
	}
	if docIDs == nil {
		docIDs = s.orchestrator.PendingIDs()
	}

	if err := s.orchestrator.ProcessAll(ctx, docIDs); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "processing aborted", map[string]interface{}{
			"error": err.Error(),
		})
	}

	statuses := make(map[string]interface{}, len(docIDs))
	for _, id := range docIDs {
		status, err := s.orchestrator.Status(id)
		if err != nil {
			statuses[id] = map[string]interface{}{"error": err.Error()}
			continue
		}
		statuses[id] = string(status)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"processed": len(docIDs),
		"statuses":  statuses,
	})), nil
}

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	kind := getStringDefault(args, "kind", "")

	results, err := s.orchestrator.Search(ctx, query, limit, kind)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	hits := make([]map[string]interface{}, 0, len(results))
	for _, result := range results {
		hits = append(hits, map[string]interface{}{
			"rank":        result.Rank,
			"score":       result.Score,
			"chunk_id":    result.ChunkID,
			"document_id": result.DocumentID,
			"content":     result.Content,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":   query,
		"results": hits,
	})), nil
}

// handleRelated handles the related tool invocation
func (s *Server) handleRelated(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	node, ok := args["node"].(string)
	if !ok || node == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "node parameter is required", map[string]interface{}{
			"param":  "node",
			"reason": "missing or empty",
		})
	}

	maxDepth := getIntDefault(args, "max_depth", 2)
	if maxDepth < 1 || maxDepth > 10 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_depth must be between 1 and 10", map[string]interface{}{
			"param": "max_depth",
			"value": maxDepth,
		})
	}

	related, err := s.orchestrator.Related(node, maxDepth)
	if err != nil {
		if errors.Is(err, graph.ErrNodeNotFound) {
			return nil, newMCPError(ErrorCodeDocumentNotFound, "node not found", map[string]interface{}{
				"node": node,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "traversal failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	nodes := make([]map[string]interface{}, 0, len(related))
	for _, rel := range related {
		nodes = append(nodes, map[string]interface{}{
			"id":       rel.ID,
			"kind":     string(rel.Kind),
			"distance": rel.Distance,
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"node":    node,
		"related": nodes,
	})), nil
}

// handleDeleteDocument handles the delete_document tool invocation
func (s *Server) handleDeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	docID, ok := args["document_id"].(string)
	if !ok || docID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "document_id parameter is required", map[string]interface{}{
			"param":  "document_id",
			"reason": "missing or empty",
		})
	}

	if err := s.orchestrator.DeleteDocument(ctx, docID); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrDocumentNotFound):
			return nil, newMCPError(ErrorCodeDocumentNotFound, "document not found", map[string]interface{}{
				"document_id": docID,
			})
		case errors.Is(err, pipeline.ErrDocumentBusy):
			return nil, newMCPError(ErrorCodeDocumentBusy, "document is currently processing", map[string]interface{}{
				"document_id": docID,
			})
		default:
			return nil, newMCPError(ErrorCodeInternalError, "delete failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted":     true,
		"document_id": docID,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	if docID := getStringDefault(args, "document_id", ""); docID != "" {
		status, err := s.orchestrator.Status(docID)
		if err != nil {
			return nil, newMCPError(ErrorCodeDocumentNotFound, "document not found", map[string]interface{}{
				"document_id": docID,
			})
		}
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"document_id": docID,
			"status":      string(status),
		})), nil
	}

	stats := s.orchestrator.Stats()
	info := s.embedder.Describe()

	nodesByKind := make(map[string]int, len(stats.Graph.NodesByKind))
	for kind, count := range stats.Graph.NodesByKind {
		nodesByKind[string(kind)] = count
	}
	edgesByKind := make(map[string]int, len(stats.Graph.EdgesByKind))
	for kind, count := range stats.Graph.EdgesByKind {
		edgesByKind[string(kind)] = count
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"documents": stats.Documents,
		"vectors":   stats.Vectors,
		"graph": map[string]interface{}{
			"nodes":         stats.Graph.Nodes,
			"edges":         stats.Graph.Edges,
			"documents":     stats.Graph.Documents,
			"keyword_terms": stats.Graph.KeywordTerms,
			"nodes_by_kind": nodesByKind,
			"edges_by_kind": edgesByKind,
		},
		"embedding": map[string]interface{}{
			"backend":   info.BackendID,
			"dimension": info.Dimension,
		},
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

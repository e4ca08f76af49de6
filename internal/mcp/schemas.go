package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestDocumentTool returns the tool definition for ingest_document
func ingestDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_document",
		Description: "Register a document for chunking, embedding, and graph extraction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Raw document content",
				},
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Stable document identifier; generated when omitted. Re-using an id replaces the document",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Content kind controlling the chunking strategy",
					"enum":        []string{"business_doc", "code", "checklist", "generic"},
					"default":     "generic",
				},
				"language": map[string]interface{}{
					"type":        "string",
					"description": "Source language for kind=code (e.g. 'go', 'python')",
				},
				"process": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, run the processing pipeline immediately instead of leaving the document pending",
					"default":     true,
				},
			},
			Required: []string{"content"},
		},
	}
}

// processDocumentsTool returns the tool definition for process_documents
func processDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "process_documents",
		Description: "Run the processing pipeline over specific documents, or all pending ones",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_ids": map[string]interface{}{
					"type":        "array",
					"description": "Documents to process; all pending and failed documents when omitted",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
		},
	}
}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search ingested documents with a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to chunks of one content kind (e.g. 'business_doc', 'code:go')",
				},
			},
			Required: []string{"query"},
		},
	}
}

// relatedTool returns the tool definition for related
func relatedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "related",
		Description: "Find graph nodes related to a document or keyword by bounded traversal",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"node": map[string]interface{}{
					"type":        "string",
					"description": "Document id or keyword/entity term to start from",
				},
				"max_depth": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum traversal depth in edges",
					"default":     2,
					"minimum":     1,
					"maximum":     10,
				},
			},
			Required: []string{"node"},
		},
	}
}

// deleteDocumentTool returns the tool definition for delete_document
func deleteDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and cascade to its vectors and graph containment",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Document to delete",
				},
			},
			Required: []string{"document_id"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query a document's pipeline status, or aggregate statistics when no document is given",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Document to query; omit for system-wide statistics",
				},
			},
		},
	}
}

// Package mcp implements the Model Context Protocol (MCP) server for
// knowgraph.
//
// The server exposes six tools to MCP clients over stdio:
//   - ingest_document: Register a document for processing
//   - process_documents: Run the pipeline over pending documents
//   - search: Embed a query and scan the vector index
//   - related: Bounded traversal of the knowledge graph
//   - delete_document: Remove a document and cascade to vectors and graph
//   - get_status: Per-document status or aggregate statistics
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client -> Server: {"method": "tools/call", "params": {...}}
//	Server -> Client: {"result": {...}}
//
// stdout is reserved for protocol messages; all logging goes to stderr.
//
// # Tool: ingest_document
//
//	Request:
//	{
//	  "name": "ingest_document",
//	  "arguments": {
//	    "content": "The payment gateway validates each transaction.",
//	    "document_id": "payments",
//	    "kind": "business_doc",
//	    "process": true
//	  }
//	}
//
//	Response:
//	{
//	  "document_id": "payments",
//	  "status": "completed"
//	}
//
// Kinds are "business_doc", "code" (with an optional "language"),
// "checklist", and "generic". An omitted document_id gets a generated one.
// With "process": false the document stays pending until process_documents
// runs.
//
// # Tool: search
//
//	Request:
//	{
//	  "name": "search",
//	  "arguments": {
//	    "query": "transaction validation",
//	    "limit": 10,
//	    "kind": "business_doc"
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {"rank": 1, "score": 0.91, "document_id": "payments", "content": "..."}
//	  ]
//	}
//
// # Tool: related
//
//	Request:
//	{
//	  "name": "related",
//	  "arguments": {"node": "payments", "max_depth": 2}
//	}
//
// The node argument is tried as a raw graph node id first, then as a
// document id.
//
// # Error Handling
//
// Handlers return standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "content parameter is required",
//	    "data": {"param": "content", "reason": "missing or empty"}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (pipeline, storage)
//   - -32001: Document not found
//   - -32002: Document is currently processing
//   - -32004: Query parameter is empty
//
// # Persistence
//
// The server loads one snapshot (documents, vectors, graph) from SQLite at
// startup and saves one at graceful shutdown. Nothing is persisted in
// between; a crash loses work since the last snapshot but never corrupts it.
package mcp

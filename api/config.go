// Package api provides the HTTP API server for ingesting and querying
// documents.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// MCPEnabled mounts the MCP endpoint at /mcp when true.
	MCPEnabled bool
}

// ErrorResponse is the JSON error body returned by every handler.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ABOUTME: Package documentation for the MCP server package
// ABOUTME: Explains transport behavior and session lifecycle

// Package mcp exposes the budget tracker's operations as MCP tools over the
// Streamable HTTP transport.
//
// A client first POSTs an initialize request and receives an Mcp-Session-Id
// header; subsequent tools/list and tools/call requests must carry that
// header. DELETE terminates the session. Server-initiated SSE streams are not
// supported.
//
// Tool execution failures are reported inside the tool result with isError
// set, per the MCP convention; JSON-RPC errors are reserved for protocol
// violations.
package mcp

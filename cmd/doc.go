// Package cmd provides the command-line interface for the MCP metrics server.
//
// This package implements the Cobra CLI framework to provide commands for:
// - Starting the MCP server with various transport options (stdio, sse, http)
// - Managing server configuration and lifecycle
//
// The main entry point is the serve command which starts the MCP server and
// registers all Prometheus-related tools for querying metrics, discovering
// metrics metadata, and retrieving target information.
//
// Environment Variables:
//   - PROMETHEUS_URL: Prometheus server URL
//   - PROMETHEUS_USERNAME: Optional basic auth username
//   - PROMETHEUS_PASSWORD: Optional basic auth password
//   - PROMETHEUS_TOKEN: Optional bearer token for authentication
//   - PROMETHEUS_ORGID: Optional organization ID for multi-tenant setups
//   - PROMETHEUS_URL_SSL_VERIFY: Optional TLS verification toggle (default true)
//   - PROMETHEUS_CUSTOM_HEADERS: Optional JSON object with extra request headers
//   - PROMETHEUS_DISABLE_LINKS: Optional toggle to suppress Prometheus UI links
//   - PROMETHEUS_AUTH_SERVICEACCOUNT: Optional Kubernetes service account auth
//
// Example usage:
//
//	mcp-metrics serve --transport stdio
//	mcp-metrics serve --transport sse --http-addr :8080
//	mcp-metrics serve --transport streamable-http --metrics-addr :9091
package cmd

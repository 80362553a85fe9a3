// Package server provides the core server infrastructure for the MCP metrics server.
//
// This package contains:
// - ServerContext: Configuration and shared resources management
// - Logger interface: Structured logging abstraction
// - Configuration options: Functional options pattern for server setup
//
// The ServerContext manages the lifecycle of the server and provides
// thread-safe access to configuration options such as:
// - Debug mode toggle
// - Prometheus connection settings (URL, TLS verification, tenant header)
// - Authentication credentials (basic auth, bearer token, service account)
// - Custom request headers and UI link generation
//
// Example usage:
//
//	ctx := context.Background()
//	serverContext, err := server.NewServerContext(ctx,
//	    server.WithDebugMode(true),
//	    server.WithLogger(logger),
//	)
package server

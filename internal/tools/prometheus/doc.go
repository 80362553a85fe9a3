// Package prometheus provides MCP tools for interacting with Prometheus servers.
//
// This package implements the following MCP tools:
//
// Query Tools:
//   - execute_query: Execute PromQL instant queries
//   - execute_range_query: Execute PromQL range queries with time bounds
//
// Discovery Tools:
//   - list_metrics: List available metrics with pagination and filtering
//   - search_metrics: Search metric names from a cached catalog
//   - suggest_semconv: Suggest OpenTelemetry semconv metrics by domain
//   - get_metric_metadata: Get metadata for specific metrics
//   - get_targets: Get information about scrape targets
//   - list_label_names, list_label_values, find_series: Label and series discovery
//
// Operational Tools:
//   - health_check: Service identity plus a live backend connectivity probe
//
// Authentication Support:
//   - Basic authentication via username/password
//   - Bearer token authentication
//   - Kubernetes service account tokens
//   - Multi-tenant organization ID headers and custom request headers
//
// All tools go through a single request gateway that builds authenticated
// GET requests against the Prometheus HTTP API, validates the
// {status, data, error} response envelope and classifies failures into
// transport, decode and backend errors. The metric-name catalog used by
// search_metrics is cached for five minutes with stale-data fallback.
//
// Example tool usage:
//
//	execute_query: {"query": "up", "time": "2023-01-01T00:00:00Z"}
//	execute_range_query: {"query": "rate(http_requests_total[5m])", "start": "2023-01-01T00:00:00Z", "end": "2023-01-01T01:00:00Z", "step": "1m"}
//	search_metrics: {"prefix": "http_server", "limit": 20}
//	get_metric_metadata: {"metric": "http_requests_total"}
//	health_check: {}
package prometheus

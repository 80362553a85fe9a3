package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/giantswarm/mcp-metrics/internal/server"
)

// defaultSearchLimit is the page size of search_metrics when the caller does
// not pass one.
const defaultSearchLimit = 50

// ServiceName identifies this server in health check responses.
const ServiceName = "mcp-metrics"

// RegisterPrometheusTools registers Prometheus-related tools with the MCP server
func RegisterPrometheusTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Create Prometheus client and the shared metric-name cache
	client := NewClient(sc.PrometheusConfig(), sc.Logger())
	cache := NewMetricsCache(client, sc.Logger())

	// execute_query tool
	executeQueryTool := mcp.NewTool("execute_query",
		mcp.WithDescription("Execute a PromQL instant query against Prometheus"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("PromQL query string"),
		),
		mcp.WithString("time",
			mcp.Description("Optional RFC3339 or Unix timestamp (default: current time)"),
		),
	)

	s.AddTool(executeQueryTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleExecuteQuery(ctx, request, client, sc)
	})

	// execute_range_query tool
	executeRangeQueryTool := mcp.NewTool("execute_range_query",
		mcp.WithDescription("Execute a PromQL range query with start time, end time, and step interval"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("PromQL query string"),
		),
		mcp.WithString("start",
			mcp.Required(),
			mcp.Description("Start time as RFC3339 or Unix timestamp"),
		),
		mcp.WithString("end",
			mcp.Required(),
			mcp.Description("End time as RFC3339 or Unix timestamp"),
		),
		mcp.WithString("step",
			mcp.Required(),
			mcp.Description("Query resolution step width (e.g., '15s', '1m', '1h')"),
		),
	)

	s.AddTool(executeRangeQueryTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleExecuteRangeQuery(ctx, request, client, sc)
	})

	// list_metrics tool
	listMetricsTool := mcp.NewTool("list_metrics",
		mcp.WithDescription("List available metrics in Prometheus with pagination and optional filtering"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of metrics to return (default: all metrics)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of metrics to skip for pagination (default: 0)"),
		),
		mcp.WithString("filter_pattern",
			mcp.Description("Optional substring to filter metric names (case-insensitive)"),
		),
	)

	s.AddTool(listMetricsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListMetrics(ctx, request, client, sc)
	})

	// search_metrics tool
	searchMetricsTool := mcp.NewTool("search_metrics",
		mcp.WithDescription("Search metrics by name fragment (case-insensitive substring match, served from a cached catalog)"),
		mcp.WithString("prefix",
			mcp.Required(),
			mcp.Description("Substring to search metric names for"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of metrics to return (default: 50)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of metrics to skip for pagination (default: 0)"),
		),
	)

	s.AddTool(searchMetricsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSearchMetrics(ctx, request, cache, sc)
	})

	// suggest_semconv tool
	suggestSemconvTool := mcp.NewTool("suggest_semconv",
		mcp.WithDescription("Suggest common OpenTelemetry semantic-convention metrics by domain: http, http_client, rpc, db, messaging, process, system, container, k8s"),
		mcp.WithString("domain",
			mcp.Description("Semantic convention domain (default: http)"),
		),
	)

	s.AddTool(suggestSemconvTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSuggestSemconv(ctx, request, sc)
	})

	// get_metric_metadata tool
	getMetricMetadataTool := mcp.NewTool("get_metric_metadata",
		mcp.WithDescription("Get metadata for a specific metric"),
		mcp.WithString("metric",
			mcp.Required(),
			mcp.Description("The name of the metric to retrieve metadata for"),
		),
	)

	s.AddTool(getMetricMetadataTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetMetricMetadata(ctx, request, client, sc)
	})

	// get_targets tool
	getTargetsTool := mcp.NewTool("get_targets",
		mcp.WithDescription("Get information about all scrape targets"),
	)

	s.AddTool(getTargetsTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetTargets(ctx, request, client, sc)
	})

	// health_check tool
	healthCheckTool := mcp.NewTool("health_check",
		mcp.WithDescription("Check the health of the MCP server and its connectivity to Prometheus"),
	)

	s.AddTool(healthCheckTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleHealthCheck(ctx, request, client, sc)
	})

	// list_label_names tool
	listLabelNamesTool := mcp.NewTool("list_label_names",
		mcp.WithDescription("List all known label names, optionally constrained by a series selector and time window"),
		mcp.WithString("match",
			mcp.Description("Optional series selector, e.g. up{job=\"prometheus\"}"),
		),
		mcp.WithString("start",
			mcp.Description("Optional start time as RFC3339 or Unix timestamp"),
		),
		mcp.WithString("end",
			mcp.Description("Optional end time as RFC3339 or Unix timestamp"),
		),
	)

	s.AddTool(listLabelNamesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListLabelNames(ctx, request, client, sc)
	})

	// list_label_values tool
	listLabelValuesTool := mcp.NewTool("list_label_values",
		mcp.WithDescription("List the values of a specific label"),
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("The label name to list values for"),
		),
		mcp.WithString("match",
			mcp.Description("Optional series selector"),
		),
		mcp.WithString("start",
			mcp.Description("Optional start time as RFC3339 or Unix timestamp"),
		),
		mcp.WithString("end",
			mcp.Description("Optional end time as RFC3339 or Unix timestamp"),
		),
	)

	s.AddTool(listLabelValuesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleListLabelValues(ctx, request, client, sc)
	})

	// find_series tool
	findSeriesTool := mcp.NewTool("find_series",
		mcp.WithDescription("Find time series matching a label selector"),
		mcp.WithString("match",
			mcp.Required(),
			mcp.Description("Series selector, e.g. up{job=\"prometheus\"}"),
		),
		mcp.WithString("start",
			mcp.Description("Optional start time as RFC3339 or Unix timestamp"),
		),
		mcp.WithString("end",
			mcp.Description("Optional end time as RFC3339 or Unix timestamp"),
		),
	)

	s.AddTool(findSeriesTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleFindSeries(ctx, request, client, sc)
	})

	return nil
}

// requestArgs extracts the argument map from a tool request.
func requestArgs(request mcp.CallToolRequest) map[string]interface{} {
	params := make(map[string]interface{})
	if request.Params.Arguments != nil {
		if argsMap, ok := request.Params.Arguments.(map[string]interface{}); ok {
			params = argsMap
		}
	}
	return params
}

// stringArg reads an optional string argument.
func stringArg(params map[string]interface{}, key string) string {
	value, _ := params[key].(string)
	return value
}

// intArg reads an optional integer argument. JSON numbers arrive as float64.
func intArg(params map[string]interface{}, key string, fallback int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return fallback, nil
	}
	switch value := raw.(type) {
	case float64:
		return int(value), nil
	case int:
		return value, nil
	default:
		return 0, &ValidationError{Param: key, Reason: "must be a number"}
	}
}

// jsonResult marshals v into a text tool result.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// handleExecuteQuery handles the execute_query tool
func handleExecuteQuery(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestArgs(request)

	query, ok := params["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("Error: query parameter is required and must be a string"), nil
	}

	timeParam := stringArg(params, "time")

	sc.Logger().Debug("Executing PromQL query", "query", query, "time", timeParam)

	result, err := client.Query(ctx, query, timeParam)
	if err != nil {
		sc.Logger().Error("Failed to execute query", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error executing query: %v", err)), nil
	}

	config := sc.PrometheusConfig()
	if !config.DisableLinks {
		result.Links = []Link{instantQueryLink(config.URL, query, timeParam)}
	}

	return jsonResult(result)
}

// handleExecuteRangeQuery handles the execute_range_query tool
func handleExecuteRangeQuery(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestArgs(request)

	query, ok := params["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("Error: query parameter is required and must be a string"), nil
	}

	start, ok := params["start"].(string)
	if !ok || start == "" {
		return mcp.NewToolResultError("Error: start parameter is required and must be a string"), nil
	}

	end, ok := params["end"].(string)
	if !ok || end == "" {
		return mcp.NewToolResultError("Error: end parameter is required and must be a string"), nil
	}

	step, ok := params["step"].(string)
	if !ok || step == "" {
		return mcp.NewToolResultError("Error: step parameter is required and must be a string"), nil
	}

	sc.Logger().Debug("Executing PromQL range query", "query", query, "start", start, "end", end, "step", step)

	reportProgress := progressReporterFor(ctx, request)
	reportProgress(0, 100, "Starting range query...")

	result, err := client.QueryRange(ctx, query, start, end, step)
	if err != nil {
		sc.Logger().Error("Failed to execute range query", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error executing range query: %v", err)), nil
	}

	reportProgress(50, 100, "Processing query results...")

	config := sc.PrometheusConfig()
	if !config.DisableLinks {
		result.Links = []Link{rangeQueryLink(config.URL, query, start, end, step)}
	}

	reportProgress(100, 100, "Range query completed")

	return jsonResult(result)
}

// handleListMetrics handles the list_metrics tool. It always fetches the
// current catalog, bypassing the cache.
func handleListMetrics(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestArgs(request)

	// A limit of -1 means unbounded; it is the fallback, never accepted
	// from the caller.
	limit, err := intArg(params, "limit", -1)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}
	if _, present := params["limit"]; present && limit < 0 {
		return mcp.NewToolResultError("Error: limit parameter must not be negative"), nil
	}
	offset, err := intArg(params, "offset", 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}
	if offset < 0 {
		return mcp.NewToolResultError("Error: offset parameter must not be negative"), nil
	}
	filterPattern := stringArg(params, "filter_pattern")

	sc.Logger().Debug("Listing metrics", "limit", limit, "offset", offset, "filter_pattern", filterPattern)

	reportProgress := progressReporterFor(ctx, request)
	reportProgress(0, 100, "Fetching metric list...")

	names, err := client.MetricNames(ctx)
	if err != nil {
		sc.Logger().Error("Failed to list metrics", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error listing metrics: %v", err)), nil
	}

	reportProgress(50, 100, fmt.Sprintf("Processing %d metrics...", len(names)))

	filtered := filterMetrics(names, filterPattern)
	page := paginateMetrics(filtered, limit, offset)

	reportProgress(100, 100, fmt.Sprintf("Returned %d of %d metrics", page.ReturnedCount, page.TotalCount))

	return jsonResult(page)
}

// handleSearchMetrics handles the search_metrics tool. Despite the parameter
// name, prefix is matched as a case-insensitive substring; it reads the
// cached catalog.
func handleSearchMetrics(ctx context.Context, request mcp.CallToolRequest, cache *MetricsCache, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestArgs(request)

	prefix, ok := params["prefix"].(string)
	if !ok || prefix == "" {
		return mcp.NewToolResultError("Error: prefix parameter is required and must be a string"), nil
	}

	limit, err := intArg(params, "limit", defaultSearchLimit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}
	if limit < 0 {
		return mcp.NewToolResultError("Error: limit parameter must not be negative"), nil
	}
	offset, err := intArg(params, "offset", 0)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
	}
	if offset < 0 {
		return mcp.NewToolResultError("Error: offset parameter must not be negative"), nil
	}

	sc.Logger().Debug("Searching metrics", "prefix", prefix, "limit", limit, "offset", offset)

	reportProgress := progressReporterFor(ctx, request)
	reportProgress(0, 100, "Searching metrics...")

	filtered := filterMetrics(cache.Catalog(ctx), prefix)
	page := paginateMetrics(filtered, limit, offset)

	reportProgress(100, 100, fmt.Sprintf("Found %d of %d metrics", page.ReturnedCount, page.TotalCount))

	return jsonResult(page)
}

// handleSuggestSemconv handles the suggest_semconv tool
func handleSuggestSemconv(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestArgs(request)

	domain := stringArg(params, "domain")
	if domain == "" {
		domain = "http"
	}

	sc.Logger().Debug("Suggesting semconv metrics", "domain", domain)

	return jsonResult(SuggestSemconv(domain))
}

// handleGetMetricMetadata handles the get_metric_metadata tool
func handleGetMetricMetadata(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestArgs(request)

	metric, ok := params["metric"].(string)
	if !ok || metric == "" {
		return mcp.NewToolResultError("Error: metric parameter is required and must be a string"), nil
	}

	sc.Logger().Debug("Getting metric metadata", "metric", metric)

	metadata, err := client.Metadata(ctx, metric)
	if err != nil {
		sc.Logger().Error("Failed to get metric metadata", "error", err, "metric", metric)
		return mcp.NewToolResultError(fmt.Sprintf("Error getting metadata for metric '%s': %v", metric, err)), nil
	}

	return jsonResult(metadata)
}

// handleGetTargets handles the get_targets tool
func handleGetTargets(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sc.Logger().Debug("Getting targets")

	targets, err := client.Targets(ctx)
	if err != nil {
		sc.Logger().Error("Failed to get targets", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error getting targets: %v", err)), nil
	}

	return jsonResult(targets)
}

// handleHealthCheck handles the health_check tool. A failing backend probe
// degrades the status instead of failing the call.
func handleHealthCheck(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	config := sc.PrometheusConfig()

	health := map[string]interface{}{
		"status":    "healthy",
		"service":   ServiceName,
		"version":   sc.Version(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"configuration": map[string]interface{}{
			"prometheus_url_configured": config.URL != "",
			"authentication_configured": config.Username != "" || config.Token != "" || config.ServiceAccountAuth,
			"org_id_configured":         config.OrgID != "",
			"ssl_verification_enabled":  config.SSLVerify,
			"prometheus_links_disabled": config.DisableLinks,
		},
	}

	if config.URL == "" {
		health["status"] = "unhealthy"
		health["error"] = "PROMETHEUS_URL not configured"
		sc.Logger().Info("Health check completed", "status", "unhealthy")
		return jsonResult(health)
	}

	// Probe through the regular gateway path so auth and envelope handling
	// are exercised, not just TCP reachability.
	if _, err := client.Query(ctx, "up", strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		health["status"] = "degraded"
		health["prometheus_connectivity"] = "unhealthy"
		health["prometheus_error"] = err.Error()
	} else {
		health["prometheus_connectivity"] = "healthy"
		health["prometheus_url"] = config.URL
	}

	sc.Logger().Info("Health check completed", "status", health["status"])
	return jsonResult(health)
}

// handleListLabelNames handles the list_label_names tool
func handleListLabelNames(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestArgs(request)

	match := stringArg(params, "match")
	start := stringArg(params, "start")
	end := stringArg(params, "end")

	sc.Logger().Debug("Listing label names", "match", match)

	names, err := client.LabelNames(ctx, match, start, end)
	if err != nil {
		sc.Logger().Error("Failed to list label names", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error listing label names: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{"labelNames": names})
}

// handleListLabelValues handles the list_label_values tool
func handleListLabelValues(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestArgs(request)

	label, ok := params["label"].(string)
	if !ok || label == "" {
		return mcp.NewToolResultError("Error: label parameter is required and must be a string"), nil
	}

	match := stringArg(params, "match")
	start := stringArg(params, "start")
	end := stringArg(params, "end")

	sc.Logger().Debug("Listing label values", "label", label, "match", match)

	values, err := client.LabelValues(ctx, label, match, start, end)
	if err != nil {
		sc.Logger().Error("Failed to list label values", "error", err, "label", label)
		return mcp.NewToolResultError(fmt.Sprintf("Error listing values for label '%s': %v", label, err)), nil
	}

	return jsonResult(map[string]interface{}{"labelValues": values})
}

// handleFindSeries handles the find_series tool
func handleFindSeries(ctx context.Context, request mcp.CallToolRequest, client *Client, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	params := requestArgs(request)

	match, ok := params["match"].(string)
	if !ok || match == "" {
		return mcp.NewToolResultError("Error: match parameter is required and must be a string"), nil
	}

	start := stringArg(params, "start")
	end := stringArg(params, "end")

	sc.Logger().Debug("Finding series", "match", match)

	series, err := client.Series(ctx, match, start, end)
	if err != nil {
		sc.Logger().Error("Failed to find series", "error", err, "match", match)
		return mcp.NewToolResultError(fmt.Sprintf("Error finding series: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{"series": series})
}

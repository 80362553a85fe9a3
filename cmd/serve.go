package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/mcp-metrics/internal/metrics"
	"github.com/giantswarm/mcp-metrics/internal/observability"
	"github.com/giantswarm/mcp-metrics/internal/server"
	"github.com/giantswarm/mcp-metrics/internal/tools/prometheus"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// simpleLogger provides basic logging for the server
type simpleLogger struct{}

func (l *simpleLogger) Debug(msg string, args ...interface{}) {
	log.Printf("[DEBUG] %s %v", msg, args)
}

func (l *simpleLogger) Info(msg string, args ...interface{}) {
	log.Printf("[INFO] %s %v", msg, args)
}

func (l *simpleLogger) Warn(msg string, args ...interface{}) {
	log.Printf("[WARN] %s %v", msg, args)
}

func (l *simpleLogger) Error(msg string, args ...interface{}) {
	log.Printf("[ERROR] %s %v", msg, args)
}

// newServeCmd creates the Cobra command for starting the MCP server.
func newServeCmd() *cobra.Command {
	var (
		debugMode bool

		// Transport options
		transport       string
		httpAddr        string
		sseEndpoint     string
		messageEndpoint string
		httpEndpoint    string

		// Observability options
		metricsAddr     string
		traceEndpoint   string
		traceSampleRate float64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP metrics server",
		Long: `Start the MCP metrics server to provide tools for interacting
with Prometheus metrics via the Model Context Protocol.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events over HTTP
  - streamable-http: Streamable HTTP transport

Environment Variables:
  PROMETHEUS_URL                 - Prometheus server URL
  PROMETHEUS_USERNAME            - Optional: Basic auth username
  PROMETHEUS_PASSWORD            - Optional: Basic auth password
  PROMETHEUS_TOKEN               - Optional: Bearer token for authentication
  PROMETHEUS_ORGID               - Optional: Organization ID for multi-tenant setups
  PROMETHEUS_URL_SSL_VERIFY      - Optional: Verify TLS certificates (default: true)
  PROMETHEUS_CUSTOM_HEADERS      - Optional: JSON object with extra request headers
  PROMETHEUS_DISABLE_LINKS       - Optional: Suppress Prometheus UI links in results
  PROMETHEUS_AUTH_SERVICEACCOUNT - Optional: Use the Kubernetes service account token`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(transport, debugMode,
				httpAddr, sseEndpoint, messageEndpoint, httpEndpoint,
				metricsAddr, traceEndpoint, traceSampleRate)
		},
	}

	// Add flags for configuring the server
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging (default: false)")

	// Transport flags
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio, sse, or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().StringVar(&sseEndpoint, "sse-endpoint", "/sse", "SSE endpoint path (for sse transport)")
	cmd.Flags().StringVar(&messageEndpoint, "message-endpoint", "/message", "Message endpoint path (for sse transport)")
	cmd.Flags().StringVar(&httpEndpoint, "http-endpoint", "/mcp", "HTTP endpoint path (for streamable-http transport)")

	// Observability flags
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to expose self-instrumentation metrics on (disabled when empty)")
	cmd.Flags().StringVar(&traceEndpoint, "trace-endpoint", "", "OTLP/HTTP trace collector endpoint (tracing disabled when empty)")
	cmd.Flags().Float64Var(&traceSampleRate, "trace-sample-rate", 1.0, "Trace sampling rate between 0.0 and 1.0")

	return cmd
}

// runServe contains the main server logic with support for multiple transports
func runServe(transport string, debugMode bool,
	httpAddr, sseEndpoint, messageEndpoint, httpEndpoint string,
	metricsAddr, traceEndpoint string, traceSampleRate float64) error {

	// Setup graceful shutdown - listen for both SIGINT and SIGTERM
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize tracing before anything that creates a tracer
	if err := observability.Init(shutdownCtx, observability.Config{
		Enabled:        traceEndpoint != "",
		Endpoint:       traceEndpoint,
		ServiceName:    prometheus.ServiceName,
		ServiceVersion: rootCmd.Version,
		SampleRate:     traceSampleRate,
	}); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := observability.Shutdown(context.Background()); err != nil {
			log.Printf("Error during tracing shutdown: %v", err)
		}
	}()

	// Create server context
	serverContext, err := server.NewServerContext(shutdownCtx,
		server.WithDebugMode(debugMode),
		server.WithLogger(&simpleLogger{}),
		server.WithVersion(rootCmd.Version),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			log.Printf("Error during server context shutdown: %v", err)
		}
	}()

	// Log configuration
	config := serverContext.PrometheusConfig()
	fmt.Printf("Prometheus configuration:\n")
	fmt.Printf("  Server URL: %s\n", config.URL)
	switch {
	case config.Token != "":
		fmt.Printf("  Authentication: Bearer token\n")
	case config.ServiceAccountAuth:
		fmt.Printf("  Authentication: Kubernetes service account\n")
	case config.Username != "" && config.Password != "":
		fmt.Printf("  Authentication: Basic auth (username: %s)\n", config.Username)
	default:
		fmt.Printf("  Authentication: None\n")
	}
	if config.OrgID != "" {
		fmt.Printf("  Organization ID: %s\n", config.OrgID)
	}
	if !config.SSLVerify {
		fmt.Printf("  TLS verification: disabled (insecure)\n")
	}
	if len(config.CustomHeaders) > 0 {
		fmt.Printf("  Custom headers: %d\n", len(config.CustomHeaders))
	}
	if config.DisableLinks {
		fmt.Printf("  Prometheus UI links: disabled\n")
	}

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("mcp-metrics", rootCmd.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	// Register Prometheus tools
	if err := prometheus.RegisterPrometheusTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register Prometheus tools: %w", err)
	}

	// Optionally expose self-instrumentation metrics
	if metricsAddr != "" {
		go runMetricsServer(shutdownCtx, metricsAddr)
	}

	fmt.Printf("Starting MCP metrics server with %s transport...\n", transport)

	// Start the appropriate server based on transport type
	switch transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "sse":
		return runSSEServer(mcpSrv, httpAddr, sseEndpoint, messageEndpoint, shutdownCtx, debugMode)
	case "streamable-http":
		return runStreamableHTTPServer(mcpSrv, httpAddr, httpEndpoint, shutdownCtx, debugMode)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", transport)
	}
}

// runMetricsServer exposes the self-instrumentation registry until the
// context is cancelled.
func runMetricsServer(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Metrics server listening on %s\n", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("Metrics server stopped with error: %v", err)
	}
}

// runStdioServer runs the server with STDIO transport
func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	// Start the server in a goroutine so we can handle shutdown signals
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	// Wait for server completion
	if err := <-serverDone; err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}

	fmt.Println("Server gracefully stopped")
	return nil
}

// runSSEServer runs the server with SSE transport
func runSSEServer(mcpSrv *mcpserver.MCPServer, addr, sseEndpoint, messageEndpoint string, ctx context.Context, debugMode bool) error {
	if debugMode {
		log.Printf("[DEBUG] Initializing SSE server with configuration:")
		log.Printf("[DEBUG]   Address: %s", addr)
		log.Printf("[DEBUG]   SSE Endpoint: %s", sseEndpoint)
		log.Printf("[DEBUG]   Message Endpoint: %s", messageEndpoint)
	}

	// Create SSE server with custom endpoints
	sseServer := mcpserver.NewSSEServer(mcpSrv,
		mcpserver.WithSSEEndpoint(sseEndpoint),
		mcpserver.WithMessageEndpoint(messageEndpoint),
	)

	fmt.Printf("SSE server starting on %s\n", addr)
	fmt.Printf("  SSE endpoint: %s\n", sseEndpoint)
	fmt.Printf("  Message endpoint: %s\n", messageEndpoint)

	// Start server in goroutine
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := sseServer.Start(addr); err != nil {
			serverDone <- err
		}
	}()

	// Wait for either shutdown signal or server completion
	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping SSE server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down SSE server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("SSE server stopped with error: %w", err)
		}
		fmt.Println("SSE server stopped normally")
	}

	fmt.Println("SSE server gracefully stopped")
	return nil
}

// runStreamableHTTPServer runs the server with Streamable HTTP transport
func runStreamableHTTPServer(mcpSrv *mcpserver.MCPServer, addr, endpoint string, ctx context.Context, debugMode bool) error {
	// Create Streamable HTTP server with custom endpoint
	httpServer := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath(endpoint),
	)

	fmt.Printf("Streamable HTTP server starting on %s\n", addr)
	fmt.Printf("  HTTP endpoint: %s\n", endpoint)

	// Start server in goroutine
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil {
			serverDone <- err
		}
	}()

	// Wait for either shutdown signal or server completion
	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		fmt.Println("HTTP server stopped normally")
	}

	fmt.Println("HTTP server gracefully stopped")
	return nil
}

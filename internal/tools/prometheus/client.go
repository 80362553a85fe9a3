package prometheus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/api"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/mcp-metrics/internal/metrics"
	"github.com/giantswarm/mcp-metrics/internal/observability"
	"github.com/giantswarm/mcp-metrics/internal/server"
)

// requestTimeout bounds every backend call. Timeouts are not differentiated
// per endpoint.
const requestTimeout = 30 * time.Second

var (
	metricAPICallsFailed = promclient.NewCounterVec(
		promclient.CounterOpts{
			Name: promclient.BuildFQName(metrics.Namespace, "api", "calls_failed_total"),
			Help: "Total number of failed Prometheus API calls, per endpoint.",
		},
		[]string{"endpoint"},
	)

	metricAPICallDuration = promclient.NewHistogramVec(
		promclient.HistogramOpts{
			Name:    promclient.BuildFQName(metrics.Namespace, "api", "call_duration_seconds"),
			Help:    "Duration of Prometheus API calls, per endpoint, in seconds.",
			Buckets: promclient.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"endpoint"},
	)
)

func init() {
	metrics.Registry.MustRegister(
		metricAPICallsFailed,
		metricAPICallDuration,
	)
}

// orgIDRoundTripper adds Organization ID header to requests for multi-tenant setups
type orgIDRoundTripper struct {
	orgID string
	rt    http.RoundTripper
}

func (o *orgIDRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if o.orgID != "" {
		req.Header.Set("X-Scope-OrgID", o.orgID)
	}
	return o.rt.RoundTrip(req)
}

// basicAuthRoundTripper adds basic authentication to requests
type basicAuthRoundTripper struct {
	username string
	password string
	rt       http.RoundTripper
}

func (b *basicAuthRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(b.username, b.password)
	return b.rt.RoundTrip(req)
}

// bearerTokenRoundTripper adds bearer token authentication to requests
type bearerTokenRoundTripper struct {
	token string
	rt    http.RoundTripper
}

func (b *bearerTokenRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.rt.RoundTrip(req)
}

// customHeaderRoundTripper adds configured custom headers to requests. It is
// the innermost layer of the chain, so its writes land last and win over the
// tenant header on key collision.
type customHeaderRoundTripper struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (c *customHeaderRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	return c.rt.RoundTrip(req)
}

// apiEnvelope is the wrapper every Prometheus API response uses.
type apiEnvelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	ErrorType string          `json:"errorType"`
	Error     string          `json:"error"`
}

// Client issues authenticated requests against the Prometheus HTTP API and
// validates the response envelope.
type Client struct {
	api    api.Client
	config server.PrometheusConfig
	logger server.Logger
	tracer trace.Tracer

	// initErr carries a construction failure so callers see the real cause
	// instead of a missing-configuration error.
	initErr error

	insecureWarn sync.Once
}

// NewClient creates a new Prometheus client from the resolved configuration.
func NewClient(config server.PrometheusConfig, logger server.Logger) *Client {
	logger.Debug("Creating new Prometheus client", "url", config.URL, "orgID", config.OrgID)

	client := &Client{
		config: config,
		logger: logger,
		tracer: observability.Tracer(),
	}

	if config.URL == "" {
		logger.Error("Prometheus URL is empty")
		return client
	}

	// Start with default transport
	var roundTripper http.RoundTripper = http.DefaultTransport
	if !config.SSLVerify {
		roundTripper = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	// Custom headers sit closest to the wire so they are applied last.
	if len(config.CustomHeaders) > 0 {
		roundTripper = &customHeaderRoundTripper{
			headers: config.CustomHeaders,
			rt:      roundTripper,
		}
		logger.Debug("Using custom request headers", "count", len(config.CustomHeaders))
	}

	// Add organization ID layer if specified
	if config.OrgID != "" {
		roundTripper = &orgIDRoundTripper{
			orgID: config.OrgID,
			rt:    roundTripper,
		}
		logger.Debug("Using organization ID", "orgID", config.OrgID)
	}

	// Add authentication layer. An explicit token wins over service account
	// auth, which wins over basic auth.
	switch {
	case config.Token != "":
		roundTripper = &bearerTokenRoundTripper{
			token: config.Token,
			rt:    roundTripper,
		}
		logger.Debug("Using bearer token authentication")
	case config.ServiceAccountAuth:
		saRoundTripper, err := serviceAccountRoundTripper(roundTripper)
		if err != nil {
			logger.Error("Failed to configure service account authentication", "error", err)
		} else {
			roundTripper = saRoundTripper
			logger.Debug("Using Kubernetes service account authentication")
		}
	case config.Username != "" && config.Password != "":
		roundTripper = &basicAuthRoundTripper{
			username: config.Username,
			password: config.Password,
			rt:       roundTripper,
		}
		logger.Debug("Using basic authentication", "username", config.Username)
	default:
		logger.Debug("No authentication configured")
	}

	apiClient, err := api.NewClient(api.Config{
		Address:      config.URL,
		RoundTripper: roundTripper,
	})
	if err != nil {
		logger.Error("Failed to create Prometheus client", "error", err, "url", config.URL)
		// Return a client that will fail on use rather than panicking here
		client.initErr = fmt.Errorf("invalid Prometheus URL %q: %w", config.URL, err)
		return client
	}

	client.api = apiClient
	return client
}

// request issues a single GET against {baseUrl}/api/v1/{endpoint}, validates
// the response envelope and returns the inner data payload. It never retries;
// failures are classified and returned immediately.
func (c *Client) request(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	if c.api == nil {
		if c.initErr != nil {
			return nil, c.initErr
		}
		return nil, ErrNotConfigured
	}

	// Warned on the request path, once per client, so the insecure posture
	// shows up next to the traffic it affects.
	if !c.config.SSLVerify {
		c.insecureWarn.Do(func() {
			c.logger.Warn("TLS certificate verification is disabled, this is insecure and should not be used in production")
		})
	}

	u := c.api.URL("/api/v1/"+endpoint, nil)
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "prometheus.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("prometheus.endpoint", endpoint),
			attribute.String("url.full", u.String()),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metricAPICallDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	c.logger.Debug("Making Prometheus API request", "endpoint", endpoint, "url", u.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, c.failRequest(span, endpoint, &TransportError{Endpoint: endpoint, URL: u.String(), Err: err})
	}

	resp, body, err := c.api.Do(ctx, req)
	if err != nil {
		return nil, c.failRequest(span, endpoint, &TransportError{Endpoint: endpoint, URL: u.String(), Err: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.failRequest(span, endpoint, &TransportError{
			StatusCode: resp.StatusCode,
			Endpoint:   endpoint,
			URL:        u.String(),
		})
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, c.failRequest(span, endpoint, &DecodeError{Endpoint: endpoint, URL: u.String(), Err: err})
	}

	if envelope.Status != "success" {
		message := envelope.Error
		if message == "" {
			message = "unknown error"
		}
		return nil, c.failRequest(span, endpoint, &BackendError{
			Endpoint:  endpoint,
			ErrorType: envelope.ErrorType,
			Message:   message,
		})
	}

	c.logger.Debug("Prometheus API request successful", "endpoint", endpoint)
	return envelope.Data, nil
}

// failRequest records a classified request failure on the span, the failure
// counter and the log, then hands the error back unchanged.
func (c *Client) failRequest(span trace.Span, endpoint string, err error) error {
	metricAPICallsFailed.WithLabelValues(endpoint).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.logger.Error("Prometheus API request failed", "endpoint", endpoint, "error", err)
	return err
}

// Link points at a related Prometheus UI view.
type Link struct {
	Href  string `json:"href"`
	Rel   string `json:"rel"`
	Title string `json:"title"`
}

// QueryResult represents the result of an instant or range query. Result is
// passed through from the backend verbatim.
type QueryResult struct {
	ResultType string          `json:"resultType"`
	Result     json.RawMessage `json:"result"`
	Links      []Link          `json:"links,omitempty"`
}

// Query executes an instant PromQL query. The query and time arguments are
// forwarded verbatim; the backend parses them.
func (c *Client) Query(ctx context.Context, query, timeParam string) (*QueryResult, error) {
	params := url.Values{}
	params.Set("query", query)
	if timeParam != "" {
		params.Set("time", timeParam)
	}

	data, err := c.request(ctx, "query", params)
	if err != nil {
		return nil, err
	}
	return decodeQueryResult("query", data)
}

// QueryRange executes a range PromQL query. Start and end are forwarded
// verbatim, the step is validated locally before any network call.
func (c *Client) QueryRange(ctx context.Context, query, start, end, step string) (*QueryResult, error) {
	if _, err := model.ParseDuration(step); err != nil {
		return nil, &ValidationError{Param: "step", Reason: err.Error()}
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("start", start)
	params.Set("end", end)
	params.Set("step", step)

	data, err := c.request(ctx, "query_range", params)
	if err != nil {
		return nil, err
	}
	return decodeQueryResult("query_range", data)
}

func decodeQueryResult(endpoint string, data json.RawMessage) (*QueryResult, error) {
	var result QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &DecodeError{Endpoint: endpoint, Err: err}
	}
	return &result, nil
}

// MetricNames enumerates every known metric name.
func (c *Client) MetricNames(ctx context.Context) ([]string, error) {
	data, err := c.request(ctx, "label/__name__/values", nil)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, &DecodeError{Endpoint: "label/__name__/values", Err: err}
	}
	return names, nil
}

// Metadata gets metadata for a specific metric, normalized into a flat list.
func (c *Client) Metadata(ctx context.Context, metric string) ([]interface{}, error) {
	params := url.Values{}
	params.Set("metric", metric)

	data, err := c.request(ctx, "metadata", params)
	if err != nil {
		return nil, err
	}
	return normalizeMetadata(data)
}

// normalizeMetadata flattens the three envelope shapes the metadata endpoint
// is known to produce: a "metadata" key, a "data" key, or a bare payload. A
// lone object becomes a single-element list.
func normalizeMetadata(data json.RawMessage) ([]interface{}, error) {
	var payload interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &DecodeError{Endpoint: "metadata", Err: err}
	}

	if wrapper, ok := payload.(map[string]interface{}); ok {
		if inner, ok := wrapper["metadata"]; ok {
			payload = inner
		} else if inner, ok := wrapper["data"]; ok {
			payload = inner
		}
	}

	if list, ok := payload.([]interface{}); ok {
		return list, nil
	}
	return []interface{}{payload}, nil
}

// TargetsResult represents the result of the targets API
type TargetsResult struct {
	ActiveTargets  []interface{} `json:"activeTargets"`
	DroppedTargets []interface{} `json:"droppedTargets"`
}

// Targets gets information about scrape targets.
func (c *Client) Targets(ctx context.Context) (*TargetsResult, error) {
	data, err := c.request(ctx, "targets", nil)
	if err != nil {
		return nil, err
	}

	var result TargetsResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &DecodeError{Endpoint: "targets", Err: err}
	}
	if result.ActiveTargets == nil {
		result.ActiveTargets = []interface{}{}
	}
	if result.DroppedTargets == nil {
		result.DroppedTargets = []interface{}{}
	}
	return &result, nil
}

// LabelNames gets all known label names, optionally constrained by a series
// selector and a time window.
func (c *Client) LabelNames(ctx context.Context, match, start, end string) ([]string, error) {
	params := url.Values{}
	if match != "" {
		params.Add("match[]", match)
	}
	if start != "" {
		params.Set("start", start)
	}
	if end != "" {
		params.Set("end", end)
	}

	data, err := c.request(ctx, "labels", params)
	if err != nil {
		return nil, err
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, &DecodeError{Endpoint: "labels", Err: err}
	}
	return names, nil
}

// LabelValues gets the values of a specific label.
func (c *Client) LabelValues(ctx context.Context, label, match, start, end string) ([]string, error) {
	params := url.Values{}
	if match != "" {
		params.Add("match[]", match)
	}
	if start != "" {
		params.Set("start", start)
	}
	if end != "" {
		params.Set("end", end)
	}

	endpoint := "label/" + label + "/values"
	data, err := c.request(ctx, endpoint, params)
	if err != nil {
		return nil, err
	}

	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, &DecodeError{Endpoint: endpoint, Err: err}
	}
	return values, nil
}

// Series finds series matching a selector.
func (c *Client) Series(ctx context.Context, match, start, end string) ([]map[string]string, error) {
	params := url.Values{}
	params.Add("match[]", match)
	if start != "" {
		params.Set("start", start)
	}
	if end != "" {
		params.Set("end", end)
	}

	data, err := c.request(ctx, "series", params)
	if err != nil {
		return nil, err
	}

	var series []map[string]string
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, &DecodeError{Endpoint: "series", Err: err}
	}
	return series, nil
}

package prometheus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/giantswarm/mcp-metrics/internal/server"
)

// testLogger implements server.Logger for tests
type testLogger struct{}

func (l *testLogger) Debug(msg string, args ...interface{}) {}
func (l *testLogger) Info(msg string, args ...interface{})  {}
func (l *testLogger) Warn(msg string, args ...interface{})  {}
func (l *testLogger) Error(msg string, args ...interface{}) {}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	mockServer := httptest.NewServer(handler)
	t.Cleanup(mockServer.Close)

	client := NewClient(server.PrometheusConfig{
		URL:       mockServer.URL,
		SSLVerify: true,
	}, &testLogger{})
	return client, mockServer
}

func jsonHandler(path, response string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == path {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(response))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestRequestEnvelopeClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		checkErr  func(error) bool
		wantError bool
	}{
		{
			name:   "success returns data verbatim",
			status: http.StatusOK,
			body:   `{"status": "success", "data": ["metric1", "metric2"]}`,
		},
		{
			name:   "non-2xx is a transport failure",
			status: http.StatusBadGateway,
			body:   `upstream unavailable`,
			checkErr: func(err error) bool {
				var transportErr *TransportError
				return errors.As(err, &transportErr) && transportErr.StatusCode == http.StatusBadGateway
			},
			wantError: true,
		},
		{
			name:   "invalid JSON is a decode failure",
			status: http.StatusOK,
			body:   `{"status": "success"`,
			checkErr: func(err error) bool {
				var decodeErr *DecodeError
				return errors.As(err, &decodeErr)
			},
			wantError: true,
		},
		{
			name:   "error envelope is a backend failure carrying the message",
			status: http.StatusOK,
			body:   `{"status": "error", "errorType": "bad_data", "error": "bad query"}`,
			checkErr: func(err error) bool {
				var backendErr *BackendError
				return errors.As(err, &backendErr) && backendErr.Message == "bad query"
			},
			wantError: true,
		},
		{
			name:   "error envelope without a message reports unknown",
			status: http.StatusOK,
			body:   `{"status": "error"}`,
			checkErr: func(err error) bool {
				var backendErr *BackendError
				return errors.As(err, &backendErr) && backendErr.Message == "unknown error"
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			data, err := client.request(context.Background(), "query", nil)
			if tt.wantError {
				if err == nil {
					t.Fatal("expected an error")
				}
				if !tt.checkErr(err) {
					t.Errorf("unexpected error classification: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var names []string
			if err := json.Unmarshal(data, &names); err != nil {
				t.Fatalf("data payload not passed through: %v", err)
			}
			if !reflect.DeepEqual(names, []string{"metric1", "metric2"}) {
				t.Errorf("unexpected data payload: %v", names)
			}
		})
	}
}

func TestRequestWithoutURL(t *testing.T) {
	client := NewClient(server.PrometheusConfig{SSLVerify: true}, &testLogger{})

	_, err := client.request(context.Background(), "query", nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestRequestWithInvalidURL(t *testing.T) {
	client := NewClient(server.PrometheusConfig{URL: "://not-a-url", SSLVerify: true}, &testLogger{})

	_, err := client.request(context.Background(), "query", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, ErrNotConfigured) {
		t.Error("a malformed URL is a construction failure, not missing configuration")
	}
	if !strings.Contains(err.Error(), "://not-a-url") {
		t.Errorf("error should name the offending URL, got %v", err)
	}
}

// warnCountingLogger counts Warn calls so debounced logging can be asserted.
type warnCountingLogger struct {
	testLogger
	warns int
}

func (l *warnCountingLogger) Warn(msg string, args ...interface{}) { l.warns++ }

func TestInsecureTLSWarnsOncePerClient(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "success", "data": []}`))
	}))
	defer mockServer.Close()

	logger := &warnCountingLogger{}
	client := NewClient(server.PrometheusConfig{
		URL:       mockServer.URL,
		SSLVerify: false,
	}, logger)

	for i := 0; i < 3; i++ {
		if _, err := client.request(context.Background(), "query", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if logger.warns != 1 {
		t.Errorf("insecure TLS warning should fire once on the request path, got %d", logger.warns)
	}
}

func TestAuthPrecedence(t *testing.T) {
	var gotAuth string
	var gotBasic bool
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _, gotBasic = r.BasicAuth()
		w.Write([]byte(`{"status": "success", "data": []}`))
	}))
	defer mockServer.Close()

	// Both a bearer token and basic credentials configured
	client := NewClient(server.PrometheusConfig{
		URL:       mockServer.URL,
		SSLVerify: true,
		Token:     "secret-token",
		Username:  "user",
		Password:  "pass",
	}, &testLogger{})

	if _, err := client.request(context.Background(), "query", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("expected bearer header, got %q", gotAuth)
	}
	if gotBasic {
		t.Error("basic credentials must not be sent when a token is configured")
	}
}

func TestHeaderMergeOrder(t *testing.T) {
	var gotOrgID, gotExtra string
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrgID = r.Header.Get("X-Scope-OrgID")
		gotExtra = r.Header.Get("X-Extra")
		w.Write([]byte(`{"status": "success", "data": []}`))
	}))
	defer mockServer.Close()

	// Custom headers are merged last and win over the tenant header.
	client := NewClient(server.PrometheusConfig{
		URL:       mockServer.URL,
		SSLVerify: true,
		OrgID:     "tenant-a",
		CustomHeaders: map[string]string{
			"X-Scope-OrgID": "tenant-b",
			"X-Extra":       "value",
		},
	}, &testLogger{})

	if _, err := client.request(context.Background(), "query", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotOrgID != "tenant-b" {
		t.Errorf("custom header should override tenant header, got %q", gotOrgID)
	}
	if gotExtra != "value" {
		t.Errorf("custom header not sent, got %q", gotExtra)
	}
}

func TestQuery(t *testing.T) {
	var gotQuery, gotTime string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotQuery = r.URL.Query().Get("query")
		gotTime = r.URL.Query().Get("time")
		w.Write([]byte(`{"status": "success", "data": {"resultType": "vector", "result": [{"value": [1, "1"]}]}}`))
	})

	result, err := client.Query(context.Background(), "up", "2023-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "up" || gotTime != "2023-01-01T00:00:00Z" {
		t.Errorf("query parameters not forwarded verbatim: query=%q time=%q", gotQuery, gotTime)
	}
	if result.ResultType != "vector" {
		t.Errorf("expected vector result type, got %q", result.ResultType)
	}
}

func TestQueryRange(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler("/api/v1/query_range",
		`{"status": "success", "data": {"resultType": "matrix", "result": []}}`))

	result, err := client.QueryRange(context.Background(), "up", "2023-01-01T00:00:00Z", "2023-01-01T01:00:00Z", "1m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ResultType != "matrix" {
		t.Errorf("expected matrix result type, got %q", result.ResultType)
	}
}

func TestQueryRangeStepValidation(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"status": "success", "data": {"resultType": "matrix", "result": []}}`))
	})

	_, err := client.QueryRange(context.Background(), "up", "0", "10", "not-a-duration")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if requests != 0 {
		t.Error("an invalid step must be rejected before any network call")
	}
}

func TestMetricNames(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler("/api/v1/label/__name__/values",
		`{"status": "success", "data": ["metric1", "metric2"]}`))

	names, err := client.MetricNames(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"metric1", "metric2"}) {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestMetadata(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler("/api/v1/metadata",
		`{"status": "success", "data": {"metadata": [{"type": "gauge"}]}}`))

	metadata, err := client.Metadata(context.Background(), "up")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metadata) != 1 {
		t.Fatalf("expected one metadata entry, got %d", len(metadata))
	}
	entry, ok := metadata[0].(map[string]interface{})
	if !ok || entry["type"] != "gauge" {
		t.Errorf("unexpected metadata entry: %v", metadata[0])
	}
}

func TestNormalizeMetadata(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{name: "metadata key", data: `{"metadata": [{"type": "gauge"}, {"type": "counter"}]}`, want: 2},
		{name: "data key", data: `{"data": [{"type": "gauge"}]}`, want: 1},
		{name: "bare list", data: `[{"type": "gauge"}]`, want: 1},
		{name: "lone object is wrapped", data: `{"up": [{"type": "gauge"}]}`, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metadata, err := normalizeMetadata(json.RawMessage(tt.data))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(metadata) != tt.want {
				t.Errorf("expected %d entries, got %d", tt.want, len(metadata))
			}
		})
	}
}

func TestTargets(t *testing.T) {
	client, _ := newTestClient(t, jsonHandler("/api/v1/targets",
		`{"status": "success", "data": {"activeTargets": [{"health": "up"}], "droppedTargets": []}}`))

	targets, err := client.Targets(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(targets.ActiveTargets) != 1 || len(targets.DroppedTargets) != 0 {
		t.Errorf("unexpected targets: %+v", targets)
	}
}

func TestLabelNamesAndValues(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/labels":
			w.Write([]byte(`{"status": "success", "data": ["__name__", "job"]}`))
		case "/api/v1/label/job/values":
			w.Write([]byte(`{"status": "success", "data": ["prometheus"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	names, err := client.LabelNames(context.Background(), "", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("unexpected label names: %v", names)
	}

	values, err := client.LabelValues(context.Background(), "job", "", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(values, []string{"prometheus"}) {
		t.Errorf("unexpected label values: %v", values)
	}
}

func TestSeries(t *testing.T) {
	var gotMatch string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMatch = r.URL.Query().Get("match[]")
		w.Write([]byte(`{"status": "success", "data": [{"__name__": "up", "job": "prometheus"}]}`))
	})

	series, err := client.Series(context.Background(), `up{job="prometheus"}`, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMatch != `up{job="prometheus"}` {
		t.Errorf("match selector not forwarded: %q", gotMatch)
	}
	if len(series) != 1 || series[0]["__name__"] != "up" {
		t.Errorf("unexpected series: %v", series)
	}
}

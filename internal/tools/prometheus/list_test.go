package prometheus

import (
	"fmt"
	"reflect"
	"testing"
)

func TestFilterMetrics(t *testing.T) {
	names := []string{"http_requests_total", "HTTP_server_duration", "node_cpu_seconds"}

	filtered := filterMetrics(names, "http")
	if len(filtered) != 2 {
		t.Errorf("filter should be case-insensitive, got %v", filtered)
	}

	if got := filterMetrics(names, ""); !reflect.DeepEqual(got, names) {
		t.Errorf("empty pattern must keep everything, got %v", got)
	}

	if got := filterMetrics(names, "nosuchthing"); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestPaginateMetrics(t *testing.T) {
	names := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		name         string
		limit        int
		offset       int
		wantMetrics  []string
		wantHasMore  bool
		wantReturned int
	}{
		{name: "no limit returns everything", limit: -1, offset: 0, wantMetrics: []string{"a", "b", "c", "d", "e"}, wantHasMore: false, wantReturned: 5},
		{name: "limit slices the head", limit: 2, offset: 0, wantMetrics: []string{"a", "b"}, wantHasMore: true, wantReturned: 2},
		{name: "offset and limit slice the middle", limit: 2, offset: 2, wantMetrics: []string{"c", "d"}, wantHasMore: true, wantReturned: 2},
		{name: "limit past the end is clamped", limit: 10, offset: 3, wantMetrics: []string{"d", "e"}, wantHasMore: false, wantReturned: 2},
		{name: "offset past the end yields an empty page", limit: 2, offset: 100, wantMetrics: []string{}, wantHasMore: false, wantReturned: 0},
		{name: "zero limit yields an empty page with more", limit: 0, offset: 0, wantMetrics: []string{}, wantHasMore: true, wantReturned: 0},
		{name: "huge limit with offset does not overflow", limit: int(float64(9223372036854775000)), offset: 3, wantMetrics: []string{"d", "e"}, wantHasMore: false, wantReturned: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := paginateMetrics(names, tt.limit, tt.offset)

			if !reflect.DeepEqual(page.Metrics, tt.wantMetrics) {
				t.Errorf("unexpected page: %v", page.Metrics)
			}
			if page.TotalCount != len(names) {
				t.Errorf("total count should be pre-pagination, got %d", page.TotalCount)
			}
			if page.ReturnedCount != tt.wantReturned || page.ReturnedCount != len(page.Metrics) {
				t.Errorf("returned count %d does not match page length %d", page.ReturnedCount, len(page.Metrics))
			}
			if page.HasMore != tt.wantHasMore {
				t.Errorf("has_more = %v, want %v", page.HasMore, tt.wantHasMore)
			}
			if page.Offset != tt.offset {
				t.Errorf("offset should echo the request, got %d", page.Offset)
			}

			// Pagination invariant
			wantHasMore := tt.offset+page.ReturnedCount < page.TotalCount
			if page.HasMore != wantHasMore {
				t.Errorf("has_more invariant violated: got %v, want %v", page.HasMore, wantHasMore)
			}
		})
	}
}

func TestPaginateMetricsHugeLimit(t *testing.T) {
	names := make([]string, 3000)
	for i := range names {
		names[i] = fmt.Sprintf("metric_%04d", i)
	}

	// A JSON number near MaxInt64 arrives as a float64 and converts to a
	// value that overflows when added to the offset.
	page := paginateMetrics(names, int(float64(9223372036854775000)), 2000)
	if page.ReturnedCount != 1000 || page.TotalCount != 3000 {
		t.Errorf("unexpected page: returned %d of %d", page.ReturnedCount, page.TotalCount)
	}
	if page.HasMore {
		t.Error("has_more should be false on the final page")
	}
	if page.Metrics[0] != "metric_2000" {
		t.Errorf("unexpected first entry: %q", page.Metrics[0])
	}
}

func TestPaginateMetricsEmptyCatalog(t *testing.T) {
	page := paginateMetrics(nil, -1, 0)
	if page.Metrics == nil {
		t.Error("metrics must serialize as an empty list, not null")
	}
	if page.TotalCount != 0 || page.HasMore {
		t.Errorf("unexpected pagination of empty catalog: %+v", page)
	}
}

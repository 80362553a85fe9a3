package prometheus

import "strings"

// PaginatedMetricList is a page of metric names plus pagination bookkeeping.
type PaginatedMetricList struct {
	Metrics       []string `json:"metrics"`
	TotalCount    int      `json:"total_count"`
	ReturnedCount int      `json:"returned_count"`
	Offset        int      `json:"offset"`
	HasMore       bool     `json:"has_more"`
}

// filterMetrics keeps the names containing pattern, case-insensitively. An
// empty pattern keeps everything.
func filterMetrics(names []string, pattern string) []string {
	if pattern == "" {
		return names
	}
	term := strings.ToLower(pattern)
	filtered := make([]string, 0, len(names))
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), term) {
			filtered = append(filtered, name)
		}
	}
	return filtered
}

// paginateMetrics slices names to [offset : offset+limit]. A negative limit
// means unbounded; an offset past the end yields an empty page, not an error.
func paginateMetrics(names []string, limit, offset int) PaginatedMetricList {
	total := len(names)

	start := offset
	if start > total {
		start = total
	}
	// Compare instead of adding so a huge limit cannot overflow the index.
	end := total
	if limit >= 0 && limit < total-start {
		end = start + limit
	}

	page := names[start:end]
	if page == nil {
		page = []string{}
	}

	return PaginatedMetricList{
		Metrics:       page,
		TotalCount:    total,
		ReturnedCount: len(page),
		Offset:        offset,
		HasMore:       offset+len(page) < total,
	}
}

package prometheus

import (
	"net/url"
	"strings"
)

// instantQueryLink builds a deep-link into the Prometheus graph UI for an
// instant query.
func instantQueryLink(baseURL, query, timeParam string) Link {
	params := url.Values{}
	params.Set("g0.expr", query)
	params.Set("g0.tab", "0")
	if timeParam != "" {
		params.Set("g0.moment_input", timeParam)
	}
	return uiLink(baseURL, params)
}

// rangeQueryLink builds a deep-link into the Prometheus graph UI for a range
// query.
func rangeQueryLink(baseURL, query, start, end, step string) Link {
	params := url.Values{}
	params.Set("g0.expr", query)
	params.Set("g0.tab", "0")
	params.Set("g0.range_input", start+" to "+end)
	params.Set("g0.step_input", step)
	return uiLink(baseURL, params)
}

func uiLink(baseURL string, params url.Values) Link {
	return Link{
		Href:  strings.TrimRight(baseURL, "/") + "/graph?" + params.Encode(),
		Rel:   "prometheus-ui",
		Title: "View in Prometheus UI",
	}
}

package prometheus

import "strings"

// SemconvSuggestions lists example metric names for one OpenTelemetry
// semantic-convention domain.
type SemconvSuggestions struct {
	Domain       string   `json:"domain"`
	Examples     []string `json:"examples"`
	KnownDomains []string `json:"known_domains"`
}

// semconvDomains keeps the catalog iteration order stable.
var semconvDomains = []string{
	"http",
	"http_client",
	"rpc",
	"db",
	"messaging",
	"process",
	"system",
	"container",
	"k8s",
}

var semconvCatalog = map[string][]string{
	"http": {
		"http_server_duration_milliseconds_sum",
		"http_server_duration_milliseconds_count",
		"http_server_active_requests",
		"http_server_request_size",
		"http_server_response_size",
	},
	"http_client": {
		"http_client_duration_milliseconds_sum",
		"http_client_duration_milliseconds_count",
		"http_client_active_requests",
	},
	"rpc": {
		"rpc_server_duration_milliseconds_sum",
		"rpc_server_duration_milliseconds_count",
		"rpc_server_active_requests",
	},
	"db": {
		"db_client_operation_duration_milliseconds_sum",
		"db_client_operation_duration_milliseconds_count",
		"db_client_connections_usage",
	},
	"messaging": {
		"messaging_operation_duration_milliseconds_sum",
		"messaging_operation_duration_milliseconds_count",
		"messaging_clients_active",
	},
	"process": {
		"process_runtime_jvm_cpu_utilization",
		"process_cpu_seconds_total",
		"process_resident_memory_bytes",
		"process_runtime_go_gc_duration_seconds_sum",
	},
	"system": {
		"system_cpu_utilization",
		"system_cpu_usage",
		"system_memory_usage",
		"system_memory_utilization",
		"system_filesystem_usage",
		"system_network_io_bytes",
		"system_load_average_1m",
	},
	"container": {
		"container_cpu_usage_seconds_total",
		"container_memory_usage_bytes",
		"container_memory_working_set_bytes",
		"container_network_receive_bytes_total",
		"container_network_transmit_bytes_total",
	},
	"k8s": {
		"k8s_pod_cpu_usage",
		"k8s_pod_memory_usage",
		"k8s_node_cpu_utilization",
		"k8s_node_memory_utilization",
		"k8s_container_restarts_total",
	},
}

// SuggestSemconv returns example metric names for the given domain. An
// unknown domain yields an empty example list plus the known domains; it is
// never an error.
func SuggestSemconv(domain string) SemconvSuggestions {
	domain = strings.ToLower(domain)
	examples := semconvCatalog[domain]
	if examples == nil {
		examples = []string{}
	}
	return SemconvSuggestions{
		Domain:       domain,
		Examples:     examples,
		KnownDomains: semconvDomains,
	}
}

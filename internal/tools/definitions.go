package tools

import (
	"encoding/json"

	"github.com/observekit/signoz-mcp-server/pkg/mcp"
)

// Definitions returns the full tool catalog. Built once at process start;
// read-only afterwards. Every range-taking tool accepts the same
// start/end/duration trio: relative tokens ("30m"), now-anchored offsets
// ("now-2h"), RFC 3339 timestamps, or epoch values.
func Definitions() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "test_connection",
			Description: "Test connection to the SigNoz API to verify configuration and connectivity.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {},
				"required": []
			}`),
		},
		{
			Name:        "fetch_dashboards",
			Description: "Fetch all available dashboards from SigNoz (id, title, description, tags).",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {},
				"required": []
			}`),
		},
		{
			Name:        "fetch_dashboard_details",
			Description: "Fetch detailed information about a specific dashboard by ID, including panel definitions.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"dashboard_id": {"type": "string", "description": "The ID of the dashboard to fetch details for"}
				},
				"required": ["dashboard_id"]
			}`),
		},
		{
			Name:        "fetch_dashboard_data",
			Description: "Fetch data for every panel of a dashboard, referenced by id or name, over a time range. Panels are queried concurrently; individual panel failures are reported per panel without failing the call.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"dashboard": {"type": "string", "description": "Dashboard id, or title matched case-insensitively"},
					"start": {"type": "string", "description": "Start time: relative ('30m'), 'now-2h', RFC 3339, or epoch"},
					"end": {"type": "string", "description": "End time: relative ('30m'), 'now', RFC 3339, or epoch"},
					"duration": {"type": "string", "description": "Window ending at now (e.g. '2h', '90m'); ignored when start is given"},
					"step": {"type": ["integer", "string"], "description": "Step interval: seconds or token like '5m' (default 60)"},
					"variables_json": {"type": "string", "description": "Dashboard variable overrides as a JSON object"}
				},
				"required": ["dashboard"]
			}`),
		},
		{
			Name:        "query_metrics",
			Description: "Run a single structured metric query: aggregation (sum|avg|min|max|count|rate|p50|p90|p99) over a metric, with optional group-by keys and filters.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"metric": {"type": "string", "description": "Metric or table name to aggregate"},
					"aggregation": {"type": "string", "description": "Aggregation operator", "enum": ["sum", "avg", "min", "max", "count", "rate", "p50", "p90", "p99"]},
					"group_by": {"type": "array", "items": {"type": "string"}, "description": "Attribute keys to group by"},
					"filters": {"type": "array", "items": {
						"type": "object",
						"properties": {
							"key": {"type": "string"},
							"op": {"type": "string", "description": "Filter operator (=, !=, in, nin, contains, ...)"},
							"value": {}
						},
						"required": ["key", "op"]
					}, "description": "Filter predicates, ANDed together"},
					"start": {"type": "string", "description": "Start time: relative ('30m'), 'now-2h', RFC 3339, or epoch"},
					"end": {"type": "string", "description": "End time (default: now)"},
					"duration": {"type": "string", "description": "Window ending at now (e.g. '2h')"},
					"step": {"type": ["integer", "string"], "description": "Step interval: seconds or token like '5m' (default 60)"}
				},
				"required": ["metric", "aggregation"]
			}`),
		},
		{
			Name:        "query_promql",
			Description: "Run a raw PromQL query against the SigNoz query range API.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "PromQL expression"},
					"start": {"type": "string", "description": "Start time: relative ('30m'), 'now-2h', RFC 3339, or epoch"},
					"end": {"type": "string", "description": "End time (default: now)"},
					"duration": {"type": "string", "description": "Window ending at now (e.g. '2h')"},
					"step": {"type": ["integer", "string"], "description": "Step interval: seconds or token like '5m' (default 60)"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "fetch_apm_metrics",
			Description: "Fetch standard APM metrics (request rate, error rate, latency percentiles, apdex) for a service over a time range.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"service_name": {"type": "string", "description": "The service to fetch APM metrics for"},
					"start": {"type": "string", "description": "Start time: relative ('30m'), 'now-2h', RFC 3339, or epoch"},
					"end": {"type": "string", "description": "End time (default: now)"},
					"duration": {"type": "string", "description": "Window ending at now (e.g. '2h')"},
					"window": {"type": "string", "description": "Query step window like '1m', '5m' (default '1m')"},
					"operation_names": {"type": "array", "items": {"type": "string"}, "description": "Restrict to these operations"},
					"metrics": {"type": "array", "items": {"type": "string", "enum": ["request_rate", "error_rate", "latency_avg", "latency_p50", "latency_p90", "latency_p99", "apdex"]}, "description": "Metric keys to fetch (default: the full standard set)"}
				},
				"required": ["service_name"]
			}`),
		},
		{
			Name:        "fetch_services",
			Description: "Fetch all instrumented services from SigNoz with summary stats over a time range (default: last 24 hours).",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"start": {"type": "string", "description": "Start time: relative ('30m'), 'now-2h', RFC 3339, or epoch"},
					"end": {"type": "string", "description": "End time (default: now)"},
					"duration": {"type": "string", "description": "Window ending at now (e.g. '2h')"}
				},
				"required": []
			}`),
		},
		{
			Name:        "execute_clickhouse_query",
			Description: "Execute a raw ClickHouse SQL query via the SigNoz API. The resolved time range binds through the request's start/end fields, so {{.start_timestamp}}-style placeholders resolve server-side.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "minLength": 1, "description": "The ClickHouse SQL query to execute"},
					"start": {"type": "string", "description": "Start time: relative ('30m'), 'now-2h', RFC 3339, or epoch"},
					"end": {"type": "string", "description": "End time (default: now)"},
					"duration": {"type": "string", "description": "Window ending at now (e.g. '2h')"},
					"panel_type": {"type": "string", "description": "Panel type (default 'table')", "enum": ["table", "graph", "value", "list"]},
					"fill_gaps": {"type": "boolean", "description": "Whether to fill gaps in the data"},
					"step": {"type": ["integer", "string"], "description": "Step interval: seconds or token like '5m' (default 60)"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "execute_builder_query",
			Description: "Execute one or more structured builder queries. Each entry is a declarative spec: metric, aggregation, optional group_by keys and filters; synthetic query names A, B, ... are assigned in order.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"queries": {"type": "array", "minItems": 1, "items": {
						"type": "object",
						"properties": {
							"metric": {"type": "string", "description": "Metric or table name to aggregate"},
							"aggregation": {"type": "string", "description": "Aggregation operator", "enum": ["sum", "avg", "min", "max", "count", "rate", "p50", "p90", "p99"]},
							"data_source": {"type": "string", "description": "Data source (default 'metrics')", "enum": ["metrics", "traces", "logs"]},
							"group_by": {"type": "array", "items": {"type": "string"}},
							"filters": {"type": "array", "items": {
								"type": "object",
								"properties": {
									"key": {"type": "string"},
									"op": {"type": "string"},
									"value": {}
								},
								"required": ["key", "op"]
							}},
							"legend": {"type": "string"}
						},
						"required": ["metric", "aggregation"]
					}},
					"start": {"type": "string", "description": "Start time: relative ('30m'), 'now-2h', RFC 3339, or epoch"},
					"end": {"type": "string", "description": "End time (default: now)"},
					"duration": {"type": "string", "description": "Window ending at now (e.g. '2h')"},
					"panel_type": {"type": "string", "description": "Panel type (default 'table')", "enum": ["table", "graph", "value", "list"]},
					"step": {"type": ["integer", "string"], "description": "Step interval: seconds or token like '5m' (default 60)"}
				},
				"required": ["queries"]
			}`),
		},
	}
}

// Package tools implements the tool catalog and dispatcher: schema
// validation, argument decoding, and the per-tool glue between the protocol
// surface and the downstream query layers.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"

	"github.com/observekit/signoz-mcp-server/internal/dashboards"
	"github.com/observekit/signoz-mcp-server/internal/query"
	"github.com/observekit/signoz-mcp-server/internal/signoz"
	"github.com/observekit/signoz-mcp-server/internal/timerange"
	"github.com/observekit/signoz-mcp-server/pkg/mcp"
)

// servicesWindow is the default lookback for fetch_services; service
// summaries over short windows are mostly empty.
const servicesWindow = 24 * time.Hour

// apmWindow is the default lookback for fetch_apm_metrics.
const apmWindow = 3 * time.Hour

// Handler owns the tool catalog and dispatches tool calls.
type Handler struct {
	client  *signoz.Client
	agg     *dashboards.Aggregator
	logger  *zap.Logger
	now     func() time.Time
	tools   []mcp.Tool
	schemas map[string]*jsonschema.Schema
}

// NewHandler builds a Handler over the given downstream client, compiling
// every tool input schema up front.
func NewHandler(client *signoz.Client, logger *zap.Logger) (*Handler, error) {
	defs := Definitions()
	schemas, err := compileSchemas(defs)
	if err != nil {
		return nil, err
	}
	return &Handler{
		client:  client,
		agg:     dashboards.New(client, logger),
		logger:  logger,
		now:     time.Now,
		tools:   defs,
		schemas: schemas,
	}, nil
}

// Tools returns the catalog for tools/list.
func (h *Handler) Tools() []mcp.Tool { return h.tools }

// Handle validates the arguments against the tool's schema and dispatches.
// Tool failures come back as error results, never as Go errors: the protocol
// layer treats every dispatched call as answered.
func (h *Handler) Handle(ctx context.Context, name string, args json.RawMessage) *mcp.CallToolResult {
	schema, ok := h.schemas[name]
	if !ok {
		return errorResult(kindNotFound, fmt.Sprintf("unknown tool %q", name))
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	// Invalid arguments never reach the network.
	if err := validateArgs(schema, args); err != nil {
		return errorResult(kindValidation, err.Error())
	}

	log := h.logger.With(zap.String("tool", name), zap.String("call_id", uuid.NewString()))
	log.Debug("tool call started")
	begin := time.Now()

	var res *mcp.CallToolResult
	switch name {
	case "test_connection":
		res = h.testConnection(ctx)
	case "fetch_dashboards":
		res = h.fetchDashboards(ctx)
	case "fetch_dashboard_details":
		res = h.fetchDashboardDetails(ctx, args)
	case "fetch_dashboard_data":
		res = h.fetchDashboardData(ctx, args)
	case "query_metrics":
		res = h.queryMetrics(ctx, args)
	case "query_promql":
		res = h.queryPromql(ctx, args)
	case "fetch_apm_metrics":
		res = h.fetchAPMMetrics(ctx, args)
	case "fetch_services":
		res = h.fetchServices(ctx, args)
	case "execute_clickhouse_query":
		res = h.executeClickhouseQuery(ctx, args)
	case "execute_builder_query":
		res = h.executeBuilderQuery(ctx, args)
	default:
		res = errorResult(kindNotFound, fmt.Sprintf("unknown tool %q", name))
	}

	log.Debug("tool call finished",
		zap.Duration("elapsed", time.Since(begin)),
		zap.Bool("is_error", res.IsError))
	return res
}

// timeArgs is the shared start/end/duration/step argument block.
type timeArgs struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration string `json:"duration"`
	Step     any    `json:"step"`
}

func (h *Handler) resolveRange(a timeArgs, opts ...timerange.Option) (timerange.Range, int, error) {
	rng, err := timerange.Resolve(a.Start, a.End, a.Duration, h.now(), opts...)
	if err != nil {
		return timerange.Range{}, 0, err
	}
	return rng, timerange.StepSeconds(a.Step), nil
}

func (h *Handler) testConnection(ctx context.Context) *mcp.CallToolResult {
	if err := h.client.Health(ctx); err != nil {
		return errorFrom(err)
	}
	return jsonResult(map[string]any{
		"status":  "success",
		"message": "connected to SigNoz",
		"host":    h.client.Host(),
	})
}

func (h *Handler) fetchDashboards(ctx context.Context) *mcp.CallToolResult {
	items, err := h.client.ListDashboards(ctx)
	if err != nil {
		return errorFrom(err)
	}

	type summary struct {
		ID          string   `json:"id"`
		Title       string   `json:"title"`
		Description string   `json:"description,omitempty"`
		Tags        []string `json:"tags,omitempty"`
	}
	list := make([]summary, 0, len(items))
	for _, it := range items {
		list = append(list, summary{
			ID:          it.ID,
			Title:       it.Data.Title,
			Description: it.Data.Description,
			Tags:        it.Data.Tags,
		})
	}
	return jsonResult(map[string]any{
		"status":     "success",
		"count":      len(list),
		"dashboards": list,
	})
}

func (h *Handler) fetchDashboardDetails(ctx context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in struct {
		DashboardID string `json:"dashboard_id"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errorResult(kindValidation, err.Error())
	}

	detail, err := h.client.GetDashboard(ctx, in.DashboardID)
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(map[string]any{
		"status": "success",
		"data":   detail,
	})
}

func (h *Handler) fetchDashboardData(ctx context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in struct {
		Dashboard     string `json:"dashboard"`
		VariablesJSON string `json:"variables_json"`
		timeArgs
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errorResult(kindValidation, err.Error())
	}

	var variables map[string]any
	if in.VariablesJSON != "" {
		if err := json.Unmarshal([]byte(in.VariablesJSON), &variables); err != nil {
			return errorResult(kindValidation, "variables_json is not a JSON object: "+err.Error())
		}
	}

	rng, step, err := h.resolveRange(in.timeArgs)
	if err != nil {
		return errorFrom(err)
	}

	res, err := h.agg.FetchData(ctx, in.Dashboard, rng, step, variables)
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(map[string]any{
		"status":       "success",
		"dashboard_id": res.DashboardID,
		"title":        res.Title,
		"start":        rng.StartMs,
		"end":          rng.EndMs,
		"panels":       res.Panels,
	})
}

func (h *Handler) queryMetrics(ctx context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in struct {
		Metric      string         `json:"metric"`
		Aggregation string         `json:"aggregation"`
		GroupBy     []string       `json:"group_by"`
		Filters     []query.Filter `json:"filters"`
		timeArgs
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errorResult(kindValidation, err.Error())
	}

	rng, step, err := h.resolveRange(in.timeArgs)
	if err != nil {
		return errorFrom(err)
	}

	spec := query.BuilderSpec{
		Metric:      in.Metric,
		Aggregation: in.Aggregation,
		GroupBy:     in.GroupBy,
		Filters:     in.Filters,
	}
	seq := &query.LetterSeq{}
	letter, q, err := query.Build(spec, seq, step)
	if err != nil {
		return errorFrom(err)
	}

	payload := query.BuilderPayload(map[string]any{letter: q}, "graph", rng, step, nil)
	data, err := h.client.QueryRange(ctx, payload)
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(map[string]any{
		"status": "success",
		"query":  query.SpecFromQuery(q),
		"start":  rng.StartMs,
		"end":    rng.EndMs,
		"data":   data,
	})
}

func (h *Handler) queryPromql(ctx context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in struct {
		Query string `json:"query"`
		timeArgs
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errorResult(kindValidation, err.Error())
	}

	rng, step, err := h.resolveRange(in.timeArgs)
	if err != nil {
		return errorFrom(err)
	}

	data, err := h.client.QueryRange(ctx, query.PromPayload(in.Query, rng, step))
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(map[string]any{
		"status": "success",
		"start":  rng.StartMs,
		"end":    rng.EndMs,
		"data":   data,
	})
}

func (h *Handler) fetchAPMMetrics(ctx context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in struct {
		ServiceName    string   `json:"service_name"`
		Window         string   `json:"window"`
		OperationNames []string `json:"operation_names"`
		Metrics        []string `json:"metrics"`
		timeArgs
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errorResult(kindValidation, err.Error())
	}

	rng, err := timerange.Resolve(in.Start, in.End, in.Duration, h.now(), timerange.WithDefaultWindow(apmWindow))
	if err != nil {
		return errorFrom(err)
	}
	step := timerange.StepSeconds(in.Window)

	queries, names, err := query.APMQueries(in.ServiceName, in.OperationNames, in.Metrics, step)
	if err != nil {
		return errorFrom(err)
	}

	payload := query.BuilderPayload(queries, "graph", rng, step, nil)
	data, err := h.client.QueryRange(ctx, payload)
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(map[string]any{
		"status":  "success",
		"service": in.ServiceName,
		"start":   rng.StartMs,
		"end":     rng.EndMs,
		"metrics": extractSeries(data, names),
	})
}

// extractSeries maps query_range response entries back onto the APM metric
// each visible query answers. Hidden formula inputs are dropped.
func extractSeries(data json.RawMessage, names map[string]string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(names))
	var resp struct {
		Data struct {
			Result []struct {
				QueryName string          `json:"queryName"`
				Series    json.RawMessage `json:"series"`
				List      json.RawMessage `json:"list"`
			} `json:"result"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return out
	}
	for _, r := range resp.Data.Result {
		metric, ok := names[r.QueryName]
		if !ok {
			continue
		}
		switch {
		case len(r.Series) > 0 && string(r.Series) != "null":
			out[metric] = r.Series
		case len(r.List) > 0 && string(r.List) != "null":
			out[metric] = r.List
		}
	}
	return out
}

func (h *Handler) fetchServices(ctx context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in timeArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return errorResult(kindValidation, err.Error())
	}

	rng, err := timerange.Resolve(in.Start, in.End, in.Duration, h.now(), timerange.WithDefaultWindow(servicesWindow))
	if err != nil {
		return errorFrom(err)
	}

	data, err := h.client.ListServices(ctx, rng.StartNs(), rng.EndNs())
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(map[string]any{
		"status": "success",
		"start":  rng.StartMs,
		"end":    rng.EndMs,
		"data":   data,
	})
}

func (h *Handler) executeClickhouseQuery(ctx context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in struct {
		Query     string `json:"query"`
		PanelType string `json:"panel_type"`
		FillGaps  bool   `json:"fill_gaps"`
		timeArgs
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errorResult(kindValidation, err.Error())
	}

	rng, step, err := h.resolveRange(in.timeArgs)
	if err != nil {
		return errorFrom(err)
	}

	panelType := in.PanelType
	if panelType == "" {
		panelType = "table"
	}

	payload := query.ClickHousePayload(in.Query, panelType, in.FillGaps, rng, step)
	data, err := h.client.QueryRange(ctx, payload)
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(map[string]any{
		"status": "success",
		"start":  rng.StartMs,
		"end":    rng.EndMs,
		"data":   data,
	})
}

func (h *Handler) executeBuilderQuery(ctx context.Context, args json.RawMessage) *mcp.CallToolResult {
	var in struct {
		Queries   []query.BuilderSpec `json:"queries"`
		PanelType string              `json:"panel_type"`
		timeArgs
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return errorResult(kindValidation, err.Error())
	}

	rng, step, err := h.resolveRange(in.timeArgs)
	if err != nil {
		return errorFrom(err)
	}

	seq := &query.LetterSeq{}
	queries := make(map[string]any, len(in.Queries))
	for _, spec := range in.Queries {
		letter, q, err := query.Build(spec, seq, step)
		if err != nil {
			return errorFrom(err)
		}
		queries[letter] = q
	}

	panelType := in.PanelType
	if panelType == "" {
		panelType = "table"
	}

	payload := query.BuilderPayload(queries, panelType, rng, step, nil)
	data, err := h.client.QueryRange(ctx, payload)
	if err != nil {
		return errorFrom(err)
	}
	return jsonResult(map[string]any{
		"status": "success",
		"start":  rng.StartMs,
		"end":    rng.EndMs,
		"data":   data,
	})
}

// Package query translates declarative tool parameters into the request
// bodies the SigNoz query_range API expects, covering both query dialects:
// structured builder queries and raw pass-through (ClickHouse SQL, PromQL).
package query

import (
	"fmt"
	"strings"

	"github.com/observekit/signoz-mcp-server/internal/signoz"
	"github.com/observekit/signoz-mcp-server/internal/timerange"
)

// TranslationError reports an unsupported aggregation or filter operator.
type TranslationError struct {
	Field string
	Value string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("unsupported %s: %q", e.Field, e.Value)
}

// Filter is one (key, operator, value) predicate of a builder spec.
type Filter struct {
	Key   string `json:"key"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// BuilderSpec is the declarative form of a structured aggregation query as
// accepted by the tool layer.
type BuilderSpec struct {
	Metric      string   `json:"metric"`
	Aggregation string   `json:"aggregation"`
	DataSource  string   `json:"data_source,omitempty"`
	GroupBy     []string `json:"group_by,omitempty"`
	Filters     []Filter `json:"filters,omitempty"`
	Legend      string   `json:"legend,omitempty"`
}

// aggregation maps a spec operator onto the SigNoz operator triple.
type aggregation struct {
	operator string
	timeAgg  string
	spaceAgg string
	isColumn bool
}

var aggregations = map[string]aggregation{
	"sum":   {operator: "sum", timeAgg: "sum", spaceAgg: "sum", isColumn: true},
	"avg":   {operator: "avg", timeAgg: "avg", spaceAgg: "avg", isColumn: true},
	"min":   {operator: "min", timeAgg: "min", spaceAgg: "min", isColumn: true},
	"max":   {operator: "max", timeAgg: "max", spaceAgg: "max", isColumn: true},
	"count": {operator: "count", timeAgg: "count", spaceAgg: "sum", isColumn: true},
	"rate":  {operator: "rate", timeAgg: "rate", spaceAgg: "sum", isColumn: true},
	"p50":   {operator: "p50", spaceAgg: "p50", isColumn: true},
	"p90":   {operator: "p90", spaceAgg: "p90", isColumn: true},
	"p99":   {operator: "p99", spaceAgg: "p99", isColumn: true},
}

// filterOps maps accepted filter operators (case-insensitive) to the exact
// spelling the API expects.
var filterOps = map[string]string{
	"=":         "=",
	"!=":        "!=",
	">":         ">",
	">=":        ">=",
	"<":         "<",
	"<=":        "<=",
	"in":        "in",
	"nin":       "nin",
	"contains":  "contains",
	"ncontains": "ncontains",
	"like":      "like",
	"nlike":     "nlike",
	"exists":    "exists",
	"nexists":   "nexists",
	"regex":     "regex",
	"nregex":    "nregex",
}

// LetterSeq allocates the synthetic query identifiers ("A", "B", ...)
// threaded through builder requests so responses can be matched back.
// Wraps at Z.
type LetterSeq struct {
	next int
}

// Next returns the next query letter.
func (s *LetterSeq) Next() string {
	letter := string(rune('A' + s.next%26))
	s.next++
	return letter
}

// Build translates a BuilderSpec into a wire BuilderQuery, assigning the
// next synthetic query identifier from seq.
func Build(spec BuilderSpec, seq *LetterSeq, stepSec int) (string, *signoz.BuilderQuery, error) {
	agg, ok := aggregations[strings.ToLower(strings.TrimSpace(spec.Aggregation))]
	if !ok {
		return "", nil, &TranslationError{Field: "aggregation operator", Value: spec.Aggregation}
	}
	if strings.TrimSpace(spec.Metric) == "" {
		return "", nil, &TranslationError{Field: "metric", Value: spec.Metric}
	}

	dataSource := spec.DataSource
	if dataSource == "" {
		dataSource = "metrics"
	}

	var filters *signoz.FilterSet
	if len(spec.Filters) > 0 {
		items := make([]signoz.FilterItem, 0, len(spec.Filters))
		for _, f := range spec.Filters {
			op, ok := filterOps[strings.ToLower(strings.TrimSpace(f.Op))]
			if !ok {
				return "", nil, &TranslationError{Field: "filter operator", Value: f.Op}
			}
			items = append(items, signoz.FilterItem{
				Key:   attributeKey(f.Key),
				Op:    op,
				Value: f.Value,
			})
		}
		filters = &signoz.FilterSet{Op: "AND", Items: items}
	}

	groupBy := make([]signoz.AttributeKey, 0, len(spec.GroupBy))
	for _, k := range spec.GroupBy {
		groupBy = append(groupBy, attributeKey(k))
	}

	letter := seq.Next()
	q := &signoz.BuilderQuery{
		QueryName:         letter,
		Expression:        letter,
		DataSource:        dataSource,
		AggregateOperator: agg.operator,
		AggregateAttribute: signoz.AttributeKey{
			Key:      spec.Metric,
			DataType: "float64",
			IsColumn: agg.isColumn,
		},
		TimeAggregation:  agg.timeAgg,
		SpaceAggregation: agg.spaceAgg,
		Functions:        []any{},
		Filters:          filters,
		StepInterval:     stepSec,
		Having:           []any{},
		OrderBy:          []any{},
		GroupBy:          groupBy,
		Legend:           spec.Legend,
		ReduceTo:         "avg",
	}
	return letter, q, nil
}

// SpecFromQuery re-derives the declarative aggregation operator and
// group-by keys from a wire BuilderQuery. Inverse of Build for the fields a
// caller supplied.
func SpecFromQuery(q *signoz.BuilderQuery) BuilderSpec {
	groupBy := make([]string, 0, len(q.GroupBy))
	for _, k := range q.GroupBy {
		groupBy = append(groupBy, k.Key)
	}
	spec := BuilderSpec{
		Metric:      q.AggregateAttribute.Key,
		Aggregation: q.AggregateOperator,
		DataSource:  q.DataSource,
		GroupBy:     groupBy,
		Legend:      q.Legend,
	}
	if q.Filters != nil {
		for _, it := range q.Filters.Items {
			spec.Filters = append(spec.Filters, Filter{Key: it.Key.Key, Op: it.Op, Value: it.Value})
		}
	}
	return spec
}

// BuilderPayload assembles a builder-dialect query_range request. The
// resolved range rides as start/end in epoch milliseconds.
func BuilderPayload(queries map[string]any, panelType string, rng timerange.Range, stepSec int, variables map[string]any) *signoz.QueryRangeParams {
	if variables == nil {
		variables = map[string]any{}
	}
	return &signoz.QueryRangeParams{
		Start:     rng.StartMs,
		End:       rng.EndMs,
		Step:      stepSec,
		Variables: variables,
		CompositeQuery: signoz.CompositeQuery{
			QueryType:      "builder",
			PanelType:      panelType,
			BuilderQueries: queries,
		},
	}
}

// ClickHousePayload assembles a raw-SQL query_range request. The query
// string passes through unchanged; the time range binds through the
// start/end fields rather than string interpolation, so template
// placeholders resolve server-side even on boundary values.
func ClickHousePayload(sql, panelType string, fillGaps bool, rng timerange.Range, stepSec int) *signoz.QueryRangeParams {
	return &signoz.QueryRangeParams{
		Start:        rng.StartMs,
		End:          rng.EndMs,
		Step:         stepSec,
		Variables:    map[string]any{},
		FormatForWeb: true,
		CompositeQuery: signoz.CompositeQuery{
			QueryType: "clickhouse_sql",
			PanelType: panelType,
			FillGaps:  fillGaps,
			ChQueries: map[string]signoz.ClickHouseQuery{
				"A": {Name: "A", Query: sql},
			},
		},
	}
}

// PromPayload assembles a PromQL pass-through query_range request.
func PromPayload(promql string, rng timerange.Range, stepSec int) *signoz.QueryRangeParams {
	return &signoz.QueryRangeParams{
		Start:     rng.StartMs,
		End:       rng.EndMs,
		Step:      stepSec,
		Variables: map[string]any{},
		CompositeQuery: signoz.CompositeQuery{
			QueryType:   "promql",
			PromqlQuery: &signoz.PromQuery{Query: promql},
		},
	}
}

// NormalizePanelQuery prepares one stored dashboard builder query for
// execution: assigns the synthetic identifier, pins the step interval, and
// renames the snake_case keys older dashboard schemas carry.
func NormalizePanelQuery(raw map[string]any, seq *LetterSeq, stepSec int) (string, map[string]any) {
	q := make(map[string]any, len(raw)+4)
	for k, v := range raw {
		q[k] = v
	}
	delete(q, "step_interval")
	q["stepInterval"] = stepSec
	if gb, ok := q["group_by"]; ok {
		q["groupBy"] = gb
		delete(q, "group_by")
	}
	letter := seq.Next()
	q["queryName"] = letter
	q["expression"] = letter
	if _, ok := q["disabled"]; !ok {
		q["disabled"] = false
	}
	if ds, _ := q["dataSource"].(string); ds == "metrics" {
		q["pageSize"] = 10
	}
	return letter, q
}

// attributeKey infers the attribute metadata for a bare key name. Keys in
// well-known resource namespaces are tagged as resource attributes.
func attributeKey(key string) signoz.AttributeKey {
	typ := "tag"
	for _, prefix := range []string{"service.", "deployment.", "host.", "k8s.", "cloud."} {
		if strings.HasPrefix(key, prefix) {
			typ = "resource"
			break
		}
	}
	return signoz.AttributeKey{Key: key, DataType: "string", Type: typ}
}

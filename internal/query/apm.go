package query

import (
	"fmt"
	"strings"

	"github.com/observekit/signoz-mcp-server/internal/signoz"
)

// Standard APM metric keys accepted by fetch_apm_metrics. The templates
// mirror the builder queries the SigNoz service overview issues.
const (
	MetricRequestRate = "request_rate"
	MetricErrorRate   = "error_rate"
	MetricLatencyAvg  = "latency_avg"
	MetricLatencyP50  = "latency_p50"
	MetricLatencyP90  = "latency_p90"
	MetricLatencyP99  = "latency_p99"
	MetricApdex       = "apdex"
)

// DefaultAPMMetrics is the metric set fetched when the caller names none.
func DefaultAPMMetrics() []string {
	return []string{
		MetricRequestRate,
		MetricErrorRate,
		MetricLatencyP50,
		MetricLatencyP90,
		MetricLatencyP99,
		MetricApdex,
	}
}

// Apdex latency thresholds in milliseconds: satisfied under 500ms,
// tolerating under 2000ms.
const (
	apdexSatisfiedMs = "500"
	apdexToleratedMs = "2000"
)

// APMQueries builds the builder-query map for the requested APM metrics of
// one service, and the mapping from synthetic query name back to the metric
// each visible query answers.
func APMQueries(service string, operations []string, metrics []string, stepSec int) (map[string]any, map[string]string, error) {
	if strings.TrimSpace(service) == "" {
		return nil, nil, &TranslationError{Field: "service name", Value: service}
	}
	if len(metrics) == 0 {
		metrics = DefaultAPMMetrics()
	}

	queries := map[string]any{}
	names := map[string]string{}
	seq := &LetterSeq{}

	addQuery := func(q *signoz.BuilderQuery, metric string, hidden bool) {
		q.StepInterval = stepSec
		q.Disabled = hidden
		queries[q.QueryName] = q
		if !hidden {
			names[q.QueryName] = metric
		}
	}

	for _, metric := range metrics {
		switch strings.ToLower(strings.TrimSpace(metric)) {
		case MetricRequestRate:
			q := apmTemplate(seq.Next(), "sum_rate", "rate", "sum", "signoz_latency.count", "Request Rate")
			q.Filters = serviceFilter(service, operations)
			addQuery(q, MetricRequestRate, false)

		case MetricErrorRate:
			q := apmTemplate(seq.Next(), "sum_rate", "rate", "sum", "signoz_errors.count", "Error Rate")
			q.Filters = serviceFilter(service, operations)
			addQuery(q, MetricErrorRate, false)

		case MetricLatencyAvg:
			// Average latency is a sum/count formula over two hidden
			// sub-queries.
			sum := apmTemplate(seq.Next(), "sum", "sum", "sum", "signoz_latency.sum", "Latency Sum")
			sum.Filters = serviceFilter(service, operations)
			addQuery(sum, "", true)

			count := apmTemplate(seq.Next(), "sum", "sum", "sum", "signoz_latency.count", "Latency Count")
			count.Filters = serviceFilter(service, operations)
			addQuery(count, "", true)

			avg := apmTemplate(seq.Next(), "divide", "avg", "avg", "signoz_latency.sum", "Latency Avg")
			avg.Expression = fmt.Sprintf("%s/%s", sum.QueryName, count.QueryName)
			addQuery(avg, MetricLatencyAvg, false)

		case MetricLatencyP50:
			q := apmTemplate(seq.Next(), "p50", "", "p50", "signoz_latency", "Latency p50")
			q.Filters = serviceFilter(service, operations)
			addQuery(q, MetricLatencyP50, false)

		case MetricLatencyP90:
			q := apmTemplate(seq.Next(), "p90", "", "p90", "signoz_latency", "Latency p90")
			q.Filters = serviceFilter(service, operations)
			addQuery(q, MetricLatencyP90, false)

		case MetricLatencyP99:
			q := apmTemplate(seq.Next(), "p99", "", "p99", "signoz_latency", "Latency p99")
			q.Filters = serviceFilter(service, operations)
			addQuery(q, MetricLatencyP99, false)

		case MetricApdex:
			// Apdex = (satisfied + tolerating) / (2 * total) over the
			// latency histogram buckets.
			satisfied := apmTemplate(seq.Next(), "sum_rate", "rate", "sum", "signoz_latency.bucket", "Apdex Satisfied")
			satisfied.Filters = bucketFilter(service, operations, apdexSatisfiedMs)
			addQuery(satisfied, "", true)

			tolerated := apmTemplate(seq.Next(), "sum_rate", "rate", "sum", "signoz_latency.bucket", "Apdex Tolerating")
			tolerated.Filters = bucketFilter(service, operations, apdexToleratedMs)
			addQuery(tolerated, "", true)

			total := apmTemplate(seq.Next(), "sum_rate", "rate", "sum", "signoz_latency.count", "Apdex Total")
			total.Filters = serviceFilter(service, operations)
			addQuery(total, "", true)

			apdex := apmTemplate(seq.Next(), "divide", "avg", "avg", "signoz_latency.bucket", "Apdex")
			apdex.Expression = fmt.Sprintf("(%s+%s)/(2*%s)", satisfied.QueryName, tolerated.QueryName, total.QueryName)
			addQuery(apdex, MetricApdex, false)

		default:
			return nil, nil, &TranslationError{Field: "apm metric", Value: metric}
		}
	}

	return queries, names, nil
}

func apmTemplate(name, operator, timeAgg, spaceAgg, attribute, legend string) *signoz.BuilderQuery {
	return &signoz.BuilderQuery{
		QueryName:         name,
		Expression:        name,
		DataSource:        "metrics",
		AggregateOperator: operator,
		AggregateAttribute: signoz.AttributeKey{
			Key:      attribute,
			DataType: "float64",
			IsColumn: true,
		},
		TimeAggregation:  timeAgg,
		SpaceAggregation: spaceAgg,
		Functions:        []any{},
		Having:           []any{},
		OrderBy:          []any{},
		GroupBy:          []signoz.AttributeKey{},
		Legend:           legend,
		ReduceTo:         "avg",
	}
}

func serviceFilter(service string, operations []string) *signoz.FilterSet {
	items := []signoz.FilterItem{{
		Key: signoz.AttributeKey{
			Key:      "service.name",
			DataType: "string",
			Type:     "resource",
		},
		Op:    "IN",
		Value: []string{service},
	}}
	if len(operations) > 0 {
		items = append(items, signoz.FilterItem{
			Key: signoz.AttributeKey{
				Key:      "operation",
				DataType: "string",
				Type:     "tag",
			},
			Op:    "IN",
			Value: operations,
		})
	}
	return &signoz.FilterSet{Op: "AND", Items: items}
}

func bucketFilter(service string, operations []string, leMs string) *signoz.FilterSet {
	fs := serviceFilter(service, operations)
	fs.Items = append(fs.Items, signoz.FilterItem{
		Key: signoz.AttributeKey{
			Key:      "le",
			DataType: "string",
			Type:     "tag",
		},
		Op:    "=",
		Value: leMs,
	})
	return fs
}

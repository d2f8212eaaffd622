package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/observekit/signoz-mcp-server/internal/signoz"
)

func TestAPMQueriesDefaultSet(t *testing.T) {
	queries, names, err := APMQueries("checkout", nil, nil, 60)
	require.NoError(t, err)

	// Defaults: request_rate, error_rate, three percentiles, apdex. Apdex
	// alone contributes three hidden sub-queries plus its formula.
	assert.Len(t, names, 6)
	assert.Len(t, queries, 9)

	seen := map[string]bool{}
	for _, metric := range names {
		seen[metric] = true
	}
	for _, want := range DefaultAPMMetrics() {
		assert.True(t, seen[want], "missing metric %s", want)
	}
}

func TestAPMQueriesApdexFormula(t *testing.T) {
	queries, names, err := APMQueries("checkout", nil, []string{"apdex"}, 60)
	require.NoError(t, err)
	require.Len(t, queries, 4)

	assert.Equal(t, "apdex", names["D"])
	apdex := queries["D"].(*signoz.BuilderQuery)
	assert.Equal(t, "(A+B)/(2*C)", apdex.Expression)
	assert.False(t, apdex.Disabled)

	for _, name := range []string{"A", "B", "C"} {
		q := queries[name].(*signoz.BuilderQuery)
		assert.True(t, q.Disabled, "sub-query %s must be hidden", name)
	}

	// Satisfied and tolerating buckets carry the le threshold filter.
	satisfied := queries["A"].(*signoz.BuilderQuery)
	require.NotNil(t, satisfied.Filters)
	last := satisfied.Filters.Items[len(satisfied.Filters.Items)-1]
	assert.Equal(t, "le", last.Key.Key)
	assert.Equal(t, "500", last.Value)
}

func TestAPMQueriesLatencyAvg(t *testing.T) {
	queries, names, err := APMQueries("checkout", nil, []string{"latency_avg"}, 30)
	require.NoError(t, err)
	require.Len(t, queries, 3)
	assert.Equal(t, "latency_avg", names["C"])

	avg := queries["C"].(*signoz.BuilderQuery)
	assert.Equal(t, "A/B", avg.Expression)
	assert.Equal(t, 30, avg.StepInterval)
}

func TestAPMQueriesServiceAndOperationFilters(t *testing.T) {
	queries, _, err := APMQueries("checkout", []string{"GET /cart"}, []string{"request_rate"}, 60)
	require.NoError(t, err)

	q := queries["A"].(*signoz.BuilderQuery)
	require.NotNil(t, q.Filters)
	require.Len(t, q.Filters.Items, 2)
	assert.Equal(t, "service.name", q.Filters.Items[0].Key.Key)
	assert.Equal(t, "resource", q.Filters.Items[0].Key.Type)
	assert.Equal(t, []string{"checkout"}, q.Filters.Items[0].Value)
	assert.Equal(t, "operation", q.Filters.Items[1].Key.Key)
}

func TestAPMQueriesRejectsUnknownMetric(t *testing.T) {
	_, _, err := APMQueries("checkout", nil, []string{"throughput"}, 60)
	var terr *TranslationError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "apm metric", terr.Field)
}

func TestAPMQueriesRejectsEmptyService(t *testing.T) {
	_, _, err := APMQueries("  ", nil, nil, 60)
	var terr *TranslationError
	require.ErrorAs(t, err, &terr)
}

package dashboards

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/observekit/signoz-mcp-server/internal/signoz"
	"github.com/observekit/signoz-mcp-server/internal/timerange"
)

const listJSON = `{"data":[
	{"id":"d1","uuid":"uuid-1","data":{"title":"API Overview"}},
	{"id":"d2","uuid":"uuid-2","data":{"title":"Empty Board"}},
	{"id":"d3","uuid":"uuid-3","data":{"title":"Payments"}},
	{"id":"d4","uuid":"uuid-4","data":{"title":"payments"}}
]}`

func widget(id, title, metric string) string {
	return `{"id":"` + id + `","title":"` + title + `","panelTypes":"graph",
		"query":{"queryType":"builder","builder":{"queryData":[
			{"dataSource":"metrics","aggregateAttribute":{"key":"` + metric + `"}}
		]}}}`
}

func newStub(t *testing.T, queryCalls *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/dashboards", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listJSON))
	})
	mux.HandleFunc("GET /api/v1/dashboards/d1", func(w http.ResponseWriter, r *http.Request) {
		widgets := []string{
			widget("w1", "Requests", "m1"),
			widget("w2", "Errors", "m2"),
			widget("w3", "Latency", "bad_metric"),
			widget("w4", "Saturation", "m4"),
			widget("w5", "Traffic", "m5"),
		}
		w.Write([]byte(`{"data":{"id":"d1","data":{"title":"API Overview","widgets":[` +
			strings.Join(widgets, ",") + `]}}}`))
	})
	mux.HandleFunc("GET /api/v1/dashboards/d2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"d2","data":{"title":"Empty Board","widgets":[]}}}`))
	})
	mux.HandleFunc("POST /api/v4/query_range", func(w http.ResponseWriter, r *http.Request) {
		if queryCalls != nil {
			queryCalls.Add(1)
		}
		var body struct {
			CompositeQuery struct {
				BuilderQueries map[string]map[string]any `json:"builderQueries"`
			} `json:"compositeQuery"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode query_range body: %v", err)
		}
		for _, q := range body.CompositeQuery.BuilderQueries {
			attr, _ := q["aggregateAttribute"].(map[string]any)
			if attr["key"] == "bad_metric" {
				http.Error(w, "no such metric", http.StatusBadRequest)
				return
			}
		}
		w.Write([]byte(`{"data":{"result":[]}}`))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newAggregator(t *testing.T, host string) *Aggregator {
	t.Helper()
	client, err := signoz.New(signoz.Options{Host: host}, zap.NewNop())
	require.NoError(t, err)
	return New(client, zap.NewNop())
}

func TestFetchDataPartialFailure(t *testing.T) {
	ts := newStub(t, nil)
	agg := newAggregator(t, ts.URL)

	rng := timerange.Range{StartMs: 1000, EndMs: 2000}
	res, err := agg.FetchData(context.Background(), "d1", rng, 60, nil)
	require.NoError(t, err)

	assert.Equal(t, "d1", res.DashboardID)
	assert.Equal(t, "API Overview", res.Title)
	require.Len(t, res.Panels, 5)

	var ok, failed int
	for _, p := range res.Panels {
		switch p.Status {
		case StatusSuccess:
			ok++
		case StatusError:
			failed++
		}
	}
	assert.Equal(t, 4, ok)
	assert.Equal(t, 1, failed)

	bad := res.Panels["w3"]
	assert.Equal(t, StatusError, bad.Status)
	assert.Equal(t, "Latency", bad.Title)
	assert.NotEmpty(t, bad.Message)
	assert.Empty(t, bad.Data)
}

func TestFetchDataByTitle(t *testing.T) {
	ts := newStub(t, nil)
	agg := newAggregator(t, ts.URL)

	rng := timerange.Range{StartMs: 1000, EndMs: 2000}
	res, err := agg.FetchData(context.Background(), "api overview", rng, 60, nil)
	require.NoError(t, err)
	assert.Equal(t, "d1", res.DashboardID)
}

func TestFetchDataEmptyDashboard(t *testing.T) {
	var calls atomic.Int64
	ts := newStub(t, &calls)
	agg := newAggregator(t, ts.URL)

	rng := timerange.Range{StartMs: 1000, EndMs: 2000}
	res, err := agg.FetchData(context.Background(), "d2", rng, 60, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Panels)
	assert.Equal(t, int64(0), calls.Load(), "empty dashboard must not issue queries")
}

func TestFetchDataUnknownDashboard(t *testing.T) {
	ts := newStub(t, nil)
	agg := newAggregator(t, ts.URL)

	rng := timerange.Range{StartMs: 1000, EndMs: 2000}
	_, err := agg.FetchData(context.Background(), "API Overvew", rng, 60, nil)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.NotEmpty(t, nf.Suggestions)
	assert.Contains(t, nf.Suggestions, "API Overview")
}

func TestFetchDataAmbiguousTitle(t *testing.T) {
	ts := newStub(t, nil)
	agg := newAggregator(t, ts.URL)

	rng := timerange.Range{StartMs: 1000, EndMs: 2000}
	_, err := agg.FetchData(context.Background(), "PAYMENTS", rng, 60, nil)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Len(t, nf.Ambiguous, 2)
}

func TestFetchPanelSkipsNonBuilder(t *testing.T) {
	ts := newStub(t, nil)
	agg := newAggregator(t, ts.URL)

	w := signoz.Widget{
		ID:    "w9",
		Title: "Raw SQL",
		Query: signoz.QueryBody{QueryType: "clickhouse_sql"},
	}
	res := agg.fetchPanel(context.Background(), w, timerange.Range{StartMs: 1, EndMs: 2}, 60, nil)
	assert.Equal(t, StatusSkipped, res.Status)
}

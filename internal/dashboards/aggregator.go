// Package dashboards resolves a dashboard by id or name, fans out one
// query per panel, and merges the results keyed by panel id. Partial
// success is the expected steady state for large dashboards.
package dashboards

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/observekit/signoz-mcp-server/internal/query"
	"github.com/observekit/signoz-mcp-server/internal/signoz"
	"github.com/observekit/signoz-mcp-server/internal/timerange"
)

// maxPanelConcurrency bounds the per-dashboard fan-out so one call cannot
// monopolize the connection pool.
const maxPanelConcurrency = 8

// Panel result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
)

// NotFoundError reports a dashboard reference that resolved to zero or
// multiple dashboards. Ambiguity is rejected, never arbitrarily picked.
type NotFoundError struct {
	Ref         string
	Ambiguous   []string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Ambiguous) > 0 {
		return fmt.Sprintf("dashboard %q is ambiguous: matches %s", e.Ref, strings.Join(e.Ambiguous, ", "))
	}
	if len(e.Suggestions) > 0 {
		return fmt.Sprintf("dashboard %q not found; did you mean: %s", e.Ref, strings.Join(e.Suggestions, ", "))
	}
	return fmt.Sprintf("dashboard %q not found", e.Ref)
}

// AggregationError reports a dashboard-level failure: the dashboard itself
// could not be resolved or its panel list fetched. Distinct from per-panel
// failures, which live inside the result.
type AggregationError struct {
	Ref string
	Err error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate dashboard %q: %v", e.Ref, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// PanelResult is the outcome of one panel's query.
type PanelResult struct {
	Status  string          `json:"status"`
	Title   string          `json:"title,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"error_message,omitempty"`
}

// Result is the merged per-panel outcome map for one dashboard fetch.
type Result struct {
	DashboardID string                 `json:"dashboard_id"`
	Title       string                 `json:"title"`
	Panels      map[string]PanelResult `json:"panels"`
}

// Aggregator fetches all panel data for a dashboard.
type Aggregator struct {
	client *signoz.Client
	logger *zap.Logger
}

// New creates an Aggregator over the given downstream client.
func New(client *signoz.Client, logger *zap.Logger) *Aggregator {
	return &Aggregator{client: client, logger: logger}
}

// FetchData resolves the dashboard, queries every panel concurrently, and
// merges the outcomes keyed by panel id. A single panel failing or timing
// out records an error entry for that panel only; the call still succeeds.
func (a *Aggregator) FetchData(ctx context.Context, idOrName string, rng timerange.Range, stepSec int, variables map[string]any) (*Result, error) {
	detail, err := a.resolve(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	result := &Result{
		DashboardID: detail.ID,
		Title:       detail.Data.Title,
		Panels:      make(map[string]PanelResult, len(detail.Data.Widgets)),
	}
	// An empty panel list is a valid empty result, not an error.
	widgets := detail.Data.Widgets
	if len(widgets) == 0 {
		return result, nil
	}

	if variables == nil {
		variables = detail.Data.Variables
	}

	type slot struct {
		key string
		res PanelResult
	}
	slots := make([]slot, len(widgets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxPanelConcurrency)
	for i, w := range widgets {
		g.Go(func() error {
			key := w.ID
			if key == "" {
				key = fmt.Sprintf("panel_%d", i)
			}
			slots[i] = slot{key: key, res: a.fetchPanel(gctx, w, rng, stepSec, variables)}
			return nil
		})
	}
	// Workers only record outcomes, they never return errors, so Wait is
	// purely a join point.
	_ = g.Wait()

	for _, s := range slots {
		result.Panels[s.key] = s.res
	}
	return result, nil
}

// fetchPanel issues one query_range request for a single panel. Failures
// are folded into the panel result; they never abort sibling panels.
func (a *Aggregator) fetchPanel(ctx context.Context, w signoz.Widget, rng timerange.Range, stepSec int, variables map[string]any) PanelResult {
	title := w.Title
	if title == "" {
		title = "Panel_" + w.ID
	}

	if w.Query.QueryType != "builder" || w.Query.Builder == nil || len(w.Query.Builder.QueryData) == 0 {
		return PanelResult{Status: StatusSkipped, Title: title, Message: "no builder queries in panel"}
	}

	seq := &query.LetterSeq{}
	queries := make(map[string]any, len(w.Query.Builder.QueryData))
	for _, raw := range w.Query.Builder.QueryData {
		letter, q := query.NormalizePanelQuery(raw, seq, stepSec)
		queries[letter] = q
	}

	payload := query.BuilderPayload(queries, w.PanelKind(), rng, stepSec, variables)
	payload.CompositeQuery.FillGaps = false

	data, err := a.client.QueryRange(ctx, payload)
	if err != nil {
		a.logger.Warn("panel query failed",
			zap.String("panel", w.ID),
			zap.String("title", title),
			zap.Error(err))
		return PanelResult{Status: StatusError, Title: title, Message: err.Error()}
	}
	return PanelResult{Status: StatusSuccess, Title: title, Data: data}
}

// resolve maps an id-or-name reference onto a dashboard detail. Name
// matching is case-insensitive on the title; zero matches produce fuzzy
// suggestions, multiple matches are rejected as ambiguous.
func (a *Aggregator) resolve(ctx context.Context, idOrName string) (*signoz.DashboardDetail, error) {
	ref := strings.TrimSpace(idOrName)
	if ref == "" {
		return nil, &NotFoundError{Ref: idOrName}
	}

	items, err := a.client.ListDashboards(ctx)
	if err != nil {
		return nil, &AggregationError{Ref: ref, Err: err}
	}

	var matches []signoz.DashboardListItem
	var titles []string
	for _, it := range items {
		titles = append(titles, it.Data.Title)
		if it.ID == ref || it.UUID == ref {
			matches = []signoz.DashboardListItem{it}
			break
		}
		if strings.EqualFold(it.Data.Title, ref) {
			matches = append(matches, it)
		}
	}

	switch len(matches) {
	case 0:
		ranks := fuzzy.RankFindNormalizedFold(ref, titles)
		sort.Sort(ranks)
		suggestions := make([]string, 0, 3)
		for i, r := range ranks {
			if i == 3 {
				break
			}
			suggestions = append(suggestions, r.Target)
		}
		return nil, &NotFoundError{Ref: ref, Suggestions: suggestions}
	case 1:
		detail, err := a.client.GetDashboard(ctx, matches[0].ID)
		if err != nil {
			return nil, &AggregationError{Ref: ref, Err: err}
		}
		if detail.ID == "" {
			detail.ID = matches[0].ID
		}
		return detail, nil
	default:
		ambiguous := make([]string, 0, len(matches))
		for _, m := range matches {
			ambiguous = append(ambiguous, fmt.Sprintf("%s (%s)", m.Data.Title, m.ID))
		}
		return nil, &NotFoundError{Ref: ref, Ambiguous: ambiguous}
	}
}

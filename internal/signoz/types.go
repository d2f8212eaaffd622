package signoz

import "encoding/json"

// Wire types for the SigNoz HTTP API. Field names are a compatibility
// contract with the published API and must not be renamed.

// QueryRangeParams is the request body for POST /api/v4/query_range.
type QueryRangeParams struct {
	Start          int64          `json:"start"`
	End            int64          `json:"end"`
	Step           int            `json:"step"`
	Variables      map[string]any `json:"variables"`
	FormatForWeb   bool           `json:"formatForWeb"`
	CompositeQuery CompositeQuery `json:"compositeQuery"`
}

// CompositeQuery selects one of the three query dialects. Exactly one of
// BuilderQueries, ChQueries, or PromqlQuery is populated per request.
type CompositeQuery struct {
	QueryType      string                     `json:"queryType"`
	PanelType      string                     `json:"panelType,omitempty"`
	FillGaps       bool                       `json:"fillGaps,omitempty"`
	BuilderQueries map[string]any             `json:"builderQueries,omitempty"`
	ChQueries      map[string]ClickHouseQuery `json:"chQueries,omitempty"`
	PromqlQuery    *PromQuery                 `json:"promqlQuery,omitempty"`
}

// BuilderQuery is a single structured aggregation query. The zero values of
// Functions, Having, and OrderBy must still marshal as empty arrays, so
// constructors keep them non-nil.
type BuilderQuery struct {
	QueryName          string         `json:"queryName"`
	Expression         string         `json:"expression"`
	DataSource         string         `json:"dataSource"`
	AggregateOperator  string         `json:"aggregateOperator"`
	AggregateAttribute AttributeKey   `json:"aggregateAttribute"`
	TimeAggregation    string         `json:"timeAggregation"`
	SpaceAggregation   string         `json:"spaceAggregation"`
	Functions          []any          `json:"functions"`
	Filters            *FilterSet     `json:"filters"`
	Disabled           bool           `json:"disabled"`
	StepInterval       int            `json:"stepInterval"`
	Having             []any          `json:"having"`
	Limit              *int           `json:"limit"`
	OrderBy            []any          `json:"orderBy"`
	GroupBy            []AttributeKey `json:"groupBy"`
	Legend             string         `json:"legend"`
	ReduceTo           string         `json:"reduceTo,omitempty"`
	PageSize           int            `json:"pageSize,omitempty"`
}

// AttributeKey identifies a metric, column, tag, or resource attribute.
type AttributeKey struct {
	Key      string `json:"key"`
	DataType string `json:"dataType"`
	IsColumn bool   `json:"isColumn"`
	Type     string `json:"type"`
}

// FilterSet is a conjunction or disjunction of filter items.
type FilterSet struct {
	Op    string       `json:"op"`
	Items []FilterItem `json:"items"`
}

// FilterItem is a single (attribute, operator, value) predicate.
type FilterItem struct {
	Key   AttributeKey `json:"key"`
	Op    string       `json:"op"`
	Value any          `json:"value"`
}

// ClickHouseQuery is a raw SQL pass-through query.
type ClickHouseQuery struct {
	Name     string `json:"name"`
	Legend   string `json:"legend"`
	Disabled bool   `json:"disabled"`
	Query    string `json:"query"`
}

// PromQuery is a raw PromQL pass-through query.
type PromQuery struct {
	Query string `json:"query"`
}

// servicesRequest is the body for POST /api/v1/services. The API expects
// nanosecond timestamps serialized as strings.
type servicesRequest struct {
	Start string            `json:"start"`
	End   string            `json:"end"`
	Tags  []json.RawMessage `json:"tags"`
}

// DashboardListItem is one entry of GET /api/v1/dashboards. Dashboard
// metadata lives under the nested data object.
type DashboardListItem struct {
	ID        string        `json:"id"`
	UUID      string        `json:"uuid,omitempty"`
	CreatedAt string        `json:"createdAt,omitempty"`
	UpdatedAt string        `json:"updatedAt,omitempty"`
	Data      DashboardMeta `json:"data"`
}

// DashboardMeta is the displayable metadata of a dashboard.
type DashboardMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type dashboardListResponse struct {
	Data []DashboardListItem `json:"data"`
}

// DashboardDetail is the payload of GET /api/v1/dashboards/{id}. Panels are
// nested under data.widgets.
type DashboardDetail struct {
	ID   string        `json:"id"`
	UUID string        `json:"uuid,omitempty"`
	Data DashboardData `json:"data"`
}

// DashboardData holds the dashboard definition itself.
type DashboardData struct {
	Title     string         `json:"title"`
	Variables map[string]any `json:"variables,omitempty"`
	Widgets   []Widget       `json:"widgets"`
}

// Widget is a single panel of a dashboard.
type Widget struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PanelTypes  string    `json:"panelTypes,omitempty"`
	PanelType   string    `json:"panelType,omitempty"`
	Type        string    `json:"type,omitempty"`
	Query       QueryBody `json:"query"`
}

// PanelKind returns the panel type, tolerating the three field spellings
// seen across dashboard schema versions.
func (w Widget) PanelKind() string {
	for _, v := range []string{w.PanelTypes, w.PanelType, w.Type} {
		if v != "" {
			return v
		}
	}
	return "graph"
}

// QueryBody is the stored query of a widget. Builder query entries keep
// their raw map form: dashboards carry schema-version-specific keys that a
// typed struct would silently drop on the round trip back to the API.
type QueryBody struct {
	QueryType     string       `json:"queryType"`
	Builder       *BuilderBody `json:"builder,omitempty"`
	ClickhouseSQL []any        `json:"clickhouse_sql,omitempty"`
	Promql        []any        `json:"promql,omitempty"`
}

// BuilderBody wraps the builder query list of a widget.
type BuilderBody struct {
	QueryData []map[string]any `json:"queryData"`
}

type dashboardDetailResponse struct {
	Data DashboardDetail `json:"data"`
}

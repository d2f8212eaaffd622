// Package signoz is the single chokepoint for all outbound calls to the
// SigNoz HTTP API: auth header, TLS-verify policy, and request timeout are
// enforced here and nowhere else.
package signoz

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// APIKeyHeader is the auth header the SigNoz API expects.
const APIKeyHeader = "SIGNOZ-API-KEY"

// maxErrorBody caps how much of a downstream response body is preserved in
// error payloads.
const maxErrorBody = 2048

// ErrorKind classifies a downstream call failure.
type ErrorKind string

const (
	// KindTimeout means the bounded request timeout expired.
	KindTimeout ErrorKind = "timeout"
	// KindRemoteError means the API answered with a non-2xx status.
	KindRemoteError ErrorKind = "remote_error"
	// KindNetworkError means the request never produced a response.
	KindNetworkError ErrorKind = "network_error"
)

// ClientError is the error type for all downstream failures. It preserves
// enough of the response to aid diagnosis; the API key never appears in it.
type ClientError struct {
	Kind   ErrorKind
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *ClientError) Error() string {
	switch e.Kind {
	case KindRemoteError:
		return fmt.Sprintf("signoz %s: HTTP %d: %s", e.Op, e.Status, e.Body)
	case KindTimeout:
		return fmt.Sprintf("signoz %s: request timed out", e.Op)
	default:
		return fmt.Sprintf("signoz %s: %v", e.Op, e.Err)
	}
}

func (e *ClientError) Unwrap() error { return e.Err }

// Options configure a Client. Host is the only required field.
type Options struct {
	Host string
	// APIKey, when empty, leaves the auth header off entirely: some
	// deployments run unauthenticated.
	APIKey string
	// InsecureSkipVerify disables certificate validation. A documented
	// trade-off for self-signed test deployments, not a bug.
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// Client is a thin wrapper over the SigNoz HTTP API. Safe for concurrent
// use; the underlying connection pool is the only cross-call shared state.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	logger  *zap.Logger
}

// New creates a Client from resolved configuration.
func New(opts Options, logger *zap.Logger) (*Client, error) {
	host := strings.TrimRight(strings.TrimSpace(opts.Host), "/")
	if host == "" {
		return nil, errors.New("signoz host is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		baseURL: host,
		apiKey:  opts.APIKey,
		hc:      &http.Client{Timeout: timeout, Transport: transport},
		logger:  logger,
	}, nil
}

// Host returns the configured base URL, for connectivity reports.
func (c *Client) Host() string { return c.baseURL }

// do performs exactly one attempt of an HTTP exchange. Callers own any
// retry policy; this layer has none.
func (c *Client) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	var r *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", op, err)
		}
		r = bytes.NewReader(data)
	} else {
		r = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	c.logger.Debug("signoz request", zap.String("op", op), zap.String("method", method), zap.String("path", path))

	resp, err := c.hc.Do(req)
	if err != nil {
		kind := KindNetworkError
		if isTimeout(err) {
			kind = KindTimeout
		}
		c.logger.Warn("signoz request failed", zap.String("op", op), zap.Error(err))
		return nil, &ClientError{Kind: kind, Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("signoz remote error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode))
		return nil, &ClientError{
			Kind:   KindRemoteError,
			Op:     op,
			Status: resp.StatusCode,
			Body:   truncate(string(data), maxErrorBody),
		}
	}
	return data, nil
}

// Health checks GET /api/v1/health.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, "health", http.MethodGet, "/api/v1/health", nil)
	return err
}

// ListDashboards fetches GET /api/v1/dashboards.
func (c *Client) ListDashboards(ctx context.Context) ([]DashboardListItem, error) {
	data, err := c.do(ctx, "list_dashboards", http.MethodGet, "/api/v1/dashboards", nil)
	if err != nil {
		return nil, err
	}
	var out dashboardListResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode dashboards list: %w", err)
	}
	return out.Data, nil
}

// GetDashboard fetches GET /api/v1/dashboards/{id}.
func (c *Client) GetDashboard(ctx context.Context, id string) (*DashboardDetail, error) {
	data, err := c.do(ctx, "get_dashboard", http.MethodGet, "/api/v1/dashboards/"+id, nil)
	if err != nil {
		return nil, err
	}
	var out dashboardDetailResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode dashboard detail: %w", err)
	}
	return &out.Data, nil
}

// ListServices posts to /api/v1/services for the given window in epoch
// nanoseconds. The result is passed through as-is.
func (c *Client) ListServices(ctx context.Context, startNs, endNs int64) (json.RawMessage, error) {
	body := servicesRequest{
		Start: strconv.FormatInt(startNs, 10),
		End:   strconv.FormatInt(endNs, 10),
		Tags:  []json.RawMessage{},
	}
	return c.do(ctx, "list_services", http.MethodPost, "/api/v1/services", body)
}

// QueryRange posts a composite query to /api/v4/query_range and returns the
// raw response body.
func (c *Client) QueryRange(ctx context.Context, params *QueryRangeParams) (json.RawMessage, error) {
	return c.do(ctx, "query_range", http.MethodPost, "/api/v4/query_range", params)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}

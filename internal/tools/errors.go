package tools

import (
	"encoding/json"
	"errors"

	"github.com/observekit/signoz-mcp-server/internal/dashboards"
	"github.com/observekit/signoz-mcp-server/internal/query"
	"github.com/observekit/signoz-mcp-server/internal/signoz"
	"github.com/observekit/signoz-mcp-server/internal/timerange"
	"github.com/observekit/signoz-mcp-server/pkg/mcp"
)

// Error kinds carried in tool error envelopes. Callers branch on kind, so
// these strings are part of the tool contract.
const (
	kindValidation    = "validation"
	kindNotFound      = "not_found"
	kindTime          = "time"
	kindTranslation   = "translation"
	kindAggregation   = "aggregation"
	kindClientTimeout = "client_timeout"
	kindClientRemote  = "client_remote"
	kindClientNetwork = "client_network"
	kindInternal      = "internal"
)

// kindOf classifies an error from the lower layers into a tool error kind.
// Aggregation errors wrap client errors, so they are checked first.
func kindOf(err error) string {
	var (
		timeErr  *timerange.Error
		transErr *query.TranslationError
		nfErr    *dashboards.NotFoundError
		aggErr   *dashboards.AggregationError
		cliErr   *signoz.ClientError
	)
	switch {
	case errors.As(err, &timeErr):
		return kindTime
	case errors.As(err, &transErr):
		return kindTranslation
	case errors.As(err, &nfErr):
		return kindNotFound
	case errors.As(err, &aggErr):
		return kindAggregation
	case errors.As(err, &cliErr):
		switch cliErr.Kind {
		case signoz.KindTimeout:
			return kindClientTimeout
		case signoz.KindRemoteError:
			return kindClientRemote
		default:
			return kindClientNetwork
		}
	default:
		return kindInternal
	}
}

// errorResult wraps a structured error envelope in a tool result. The
// envelope rides as JSON text so clients can parse kind and message.
func errorResult(kind, message string) *mcp.CallToolResult {
	payload, _ := json.Marshal(map[string]string{
		"status":  "error",
		"kind":    kind,
		"message": message,
	})
	return &mcp.CallToolResult{
		Content: []mcp.ContentBlock{{Type: "text", Text: string(payload)}},
		IsError: true,
	}
}

// errorFrom builds an error result classified from a lower-layer error.
func errorFrom(err error) *mcp.CallToolResult {
	return errorResult(kindOf(err), err.Error())
}

// jsonResult marshals a success payload into a text content block.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(kindInternal, "encode result: "+err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.ContentBlock{{Type: "text", Text: string(data)}},
	}
}

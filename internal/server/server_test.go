package server

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/observekit/signoz-mcp-server/internal/signoz"
	"github.com/observekit/signoz-mcp-server/internal/tools"
	"github.com/observekit/signoz-mcp-server/pkg/mcp"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	client, err := signoz.New(signoz.Options{Host: "http://127.0.0.1:1"}, zap.NewNop())
	require.NoError(t, err)
	handler, err := tools.NewHandler(client, zap.NewNop())
	require.NoError(t, err)
	return New(handler, zap.NewNop())
}

func request(id int, method, params string) *mcp.Request {
	req := &mcp.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(strconv.Itoa(id)),
		Method:  method,
	}
	if params != "" {
		req.Params = json.RawMessage(params)
	}
	return req
}

func TestDispatchInitialize(t *testing.T) {
	s := newTestServer(t)

	resp := s.Dispatch(context.Background(), request(1, "initialize", `{"protocolVersion":"2025-03-26"}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result mcp.InitializeResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, ProtocolVersion, result.ProtocolVersion)
	assert.Equal(t, serverName, result.ServerInfo.Name)
	require.NotNil(t, result.Capabilities.Tools)
}

func TestDispatchInitializeRejectsOldProtocol(t *testing.T) {
	s := newTestServer(t)

	resp := s.Dispatch(context.Background(), request(1, "initialize", `{"protocolVersion":"2024-11-05"}`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.InvalidParams, resp.Error.Code)
}

func TestDispatchPing(t *testing.T) {
	s := newTestServer(t)

	resp := s.Dispatch(context.Background(), request(2, "ping", ""))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{}`, string(resp.Result))
}

func TestDispatchToolsList(t *testing.T) {
	s := newTestServer(t)

	resp := s.Dispatch(context.Background(), request(3, "tools/list", ""))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result mcp.ListToolsResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Len(t, result.Tools, len(tools.Definitions()))
	for _, tool := range result.Tools {
		assert.NotEmpty(t, tool.Name)
		assert.NotEmpty(t, tool.InputSchema, "tool %s has no input schema", tool.Name)
	}
}

func TestDispatchMethodNotFound(t *testing.T) {
	s := newTestServer(t)

	resp := s.Dispatch(context.Background(), request(4, "resources/list", ""))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.MethodNotFound, resp.Error.Code)
}

func TestDispatchDropsNotifications(t *testing.T) {
	s := newTestServer(t)

	resp := s.Dispatch(context.Background(), &mcp.Request{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	})
	assert.Nil(t, resp)

	// Requests without an id are notifications even off the notifications/
	// prefix, and must not be answered.
	resp = s.Dispatch(context.Background(), &mcp.Request{
		JSONRPC: "2.0",
		Method:  "ping",
	})
	assert.Nil(t, resp)
}

func TestDispatchToolsCallRequiresName(t *testing.T) {
	s := newTestServer(t)

	resp := s.Dispatch(context.Background(), request(5, "tools/call", `{"arguments":{}}`))
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.InvalidParams, resp.Error.Code)
}

func TestDispatchToolsCallUnknownToolIsResult(t *testing.T) {
	s := newTestServer(t)

	// Unknown tools are a tool-level error envelope, not a protocol error.
	resp := s.Dispatch(context.Background(), request(6, "tools/call", `{"name":"nope"}`))
	require.NotNil(t, resp)
	require.Nil(t, resp.Error)

	var result mcp.CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.True(t, result.IsError)
}

func TestDispatchRejectsWrongJSONRPCVersion(t *testing.T) {
	s := newTestServer(t)

	resp := s.Dispatch(context.Background(), &mcp.Request{
		JSONRPC: "1.0",
		ID:      json.RawMessage("7"),
		Method:  "ping",
	})
	require.NotNil(t, resp)
	require.NotNil(t, resp.Error)
	assert.Equal(t, mcp.InvalidRequest, resp.Error.Code)
}

// Package server speaks the protocol surface: JSON-RPC dispatch shared by
// the stdio and HTTP transports.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/observekit/signoz-mcp-server/internal/tools"
	"github.com/observekit/signoz-mcp-server/pkg/mcp"
)

const (
	// ProtocolVersion is the protocol revision this server implements.
	// Initialize accepts any revision from the same year.
	ProtocolVersion = "2025-06-18"

	serverName    = "signoz-mcp-server"
	serverVersion = "0.1.0"
)

// Server dispatches JSON-RPC requests to the tool handler. One instance
// serves both transports.
type Server struct {
	handler *tools.Handler
	logger  *zap.Logger
}

// New creates a Server over the given tool handler.
func New(handler *tools.Handler, logger *zap.Logger) *Server {
	return &Server{handler: handler, logger: logger}
}

// Dispatch handles one request and returns the response to send, or nil
// when the message is a notification and must not be answered.
func (s *Server) Dispatch(ctx context.Context, req *mcp.Request) *mcp.Response {
	if strings.HasPrefix(req.Method, "notifications/") {
		return nil
	}
	if req.IsNotification() {
		s.logger.Debug("dropping notification", zap.String("method", req.Method))
		return nil
	}
	if req.JSONRPC != "2.0" {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidRequest, "jsonrpc must be \"2.0\"")
	}

	switch req.Method {
	case "initialize":
		return s.initialize(req)
	case "ping":
		return s.respond(req.ID, struct{}{})
	case "tools/list":
		return s.respond(req.ID, mcp.ListToolsResult{Tools: s.handler.Tools()})
	case "tools/call":
		return s.callTool(ctx, req)
	default:
		return mcp.NewErrorResponse(req.ID, mcp.MethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) initialize(req *mcp.Request) *mcp.Response {
	var params mcp.InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "invalid initialize params: "+err.Error())
		}
	}
	// Same-year protocol revisions are wire compatible for the subset this
	// server implements.
	if params.ProtocolVersion != "" && !strings.HasPrefix(params.ProtocolVersion, "2025-") {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams,
			fmt.Sprintf("unsupported protocol version %q", params.ProtocolVersion))
	}

	s.logger.Info("client initialized", zap.String("protocol_version", params.ProtocolVersion))
	return s.respond(req.ID, mcp.InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities: mcp.ServerCapabilities{
			Tools: &mcp.ToolsCapability{ListChanged: false},
		},
		ServerInfo: mcp.ServerInfo{Name: serverName, Version: serverVersion},
	})
}

func (s *Server) callTool(ctx context.Context, req *mcp.Request) *mcp.Response {
	var params mcp.CallToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "invalid tools/call params: "+err.Error())
	}
	if params.Name == "" {
		return mcp.NewErrorResponse(req.ID, mcp.InvalidParams, "tool name is required")
	}
	return s.respond(req.ID, s.handler.Handle(ctx, params.Name, params.Arguments))
}

func (s *Server) respond(id json.RawMessage, result any) *mcp.Response {
	resp, err := mcp.NewResponse(id, result)
	if err != nil {
		s.logger.Error("encode response", zap.Error(err))
		return mcp.NewErrorResponse(id, mcp.InternalError, "failed to encode response")
	}
	return resp
}

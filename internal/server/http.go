package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/observekit/signoz-mcp-server/pkg/mcp"
)

// maxRequestBody caps an HTTP request body; composite queries are small.
const maxRequestBody = 4 << 20

// HTTPServer exposes the JSON-RPC surface over POST /mcp, plus a liveness
// endpoint at /health.
type HTTPServer struct {
	core   *Server
	srv    *http.Server
	logger *zap.Logger
}

// NewHTTP builds the HTTP transport around the dispatch core.
func NewHTTP(core *Server, port int, logger *zap.Logger) *HTTPServer {
	h := &HTTPServer{core: core, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", h.handleMCP)
	mux.HandleFunc("/health", h.handleHealth)

	h.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return h
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (h *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("http server listening", zap.String("addr", h.srv.Addr))
		errCh <- h.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return h.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (h *HTTPServer) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.writeResponse(w, http.StatusMethodNotAllowed,
			mcp.NewErrorResponse(nil, mcp.InvalidRequest, "method not allowed: use POST"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		h.writeResponse(w, http.StatusBadRequest,
			mcp.NewErrorResponse(nil, mcp.ParseError, "read request body: "+err.Error()))
		return
	}

	var req mcp.Request
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeResponse(w, http.StatusBadRequest,
			mcp.NewErrorResponse(nil, mcp.ParseError, "parse request: "+err.Error()))
		return
	}

	resp := h.core.Dispatch(r.Context(), &req)
	if resp == nil {
		// Notification: acknowledged, no body.
		w.WriteHeader(http.StatusAccepted)
		return
	}

	status := http.StatusOK
	if resp.Error != nil {
		status = statusFor(resp.Error.Code)
	}
	h.writeResponse(w, status, resp)
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *HTTPServer) writeResponse(w http.ResponseWriter, status int, resp *mcp.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("write http response", zap.Error(err))
	}
}

// statusFor maps JSON-RPC error codes onto HTTP statuses: caller mistakes
// are 4xx, everything else is a server error.
func statusFor(code int) int {
	switch code {
	case mcp.ParseError, mcp.InvalidRequest, mcp.InvalidParams:
		return http.StatusBadRequest
	case mcp.MethodNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

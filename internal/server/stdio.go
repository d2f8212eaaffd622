package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/observekit/signoz-mcp-server/pkg/mcp"
)

// ServeStdio runs the message loop over the given streams until EOF or
// context cancellation. Malformed lines get a parse-error response; the loop
// keeps reading.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	t := mcp.NewTransport(r, w)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, err := t.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("stdin closed, shutting down")
				return nil
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				if werr := t.WriteResponse(mcp.NewErrorResponse(nil, mcp.ParseError, err.Error())); werr != nil {
					return werr
				}
				continue
			}
			return err
		}

		resp := s.Dispatch(ctx, req)
		if resp == nil {
			continue
		}
		if err := t.WriteResponse(resp); err != nil {
			s.logger.Error("write response", zap.Error(err))
			return err
		}
	}
}

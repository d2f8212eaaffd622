package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Transport frames JSON-RPC messages over a byte stream, one message per
// line. Writes are serialized so concurrent handlers cannot interleave
// partial messages on stdout.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex
}

// NewTransport creates a transport over the given reader and writer,
// typically stdin and stdout.
func NewTransport(r io.Reader, w io.Writer) *Transport {
	return &Transport{
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// ReadMessage reads the next JSON-RPC message. Blank lines are skipped;
// some clients emit them as keep-alives.
func (t *Transport) ReadMessage() (*Request, error) {
	for {
		line, err := t.reader.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			return nil, fmt.Errorf("failed to parse message: %w", err)
		}
		return &req, nil
	}
}

// WriteResponse writes a JSON-RPC response followed by a newline.
func (t *Transport) WriteResponse(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return t.writeLine(data)
}

// WriteNotification writes a server-initiated JSON-RPC notification.
func (t *Transport) WriteNotification(method string, params any) error {
	var paramsData json.RawMessage
	if params != nil {
		var err error
		paramsData, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}

	data, err := json.Marshal(Notification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  paramsData,
	})
	if err != nil {
		return err
	}
	return t.writeLine(data)
}

func (t *Transport) writeLine(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.writer, "%s\n", data)
	return err
}

package mcp

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
)

func TestReadMessageSkipsBlankLines(t *testing.T) {
	in := "\n  \n" + `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n"
	tr := NewTransport(strings.NewReader(in), io.Discard)

	req, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if req.Method != "ping" {
		t.Errorf("Method = %q, want ping", req.Method)
	}

	if _, err := tr.ReadMessage(); err != io.EOF {
		t.Errorf("second read: err = %v, want io.EOF", err)
	}
}

func TestReadMessageRejectsMalformedJSON(t *testing.T) {
	tr := NewTransport(strings.NewReader("{oops\n"), io.Discard)
	if _, err := tr.ReadMessage(); err == nil {
		t.Fatal("want parse error")
	}
}

func TestIsNotification(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"", true},
		{"null", true},
		{"1", false},
		{`"abc"`, false},
	}
	for _, tc := range cases {
		req := &Request{ID: json.RawMessage(tc.id)}
		if got := req.IsNotification(); got != tc.want {
			t.Errorf("IsNotification(id=%q) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestWriteResponseFraming(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(strings.NewReader(""), &buf)

	resp, err := NewResponse(json.RawMessage("1"), map[string]string{"ok": "yes"})
	if err != nil {
		t.Fatalf("NewResponse: %v", err)
	}
	if err := tr.WriteResponse(resp); err != nil {
		t.Fatalf("WriteResponse: %v", err)
	}

	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		t.Error("message not newline terminated")
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("want exactly one line, got %q", out)
	}
}

func TestConcurrentWritesDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(strings.NewReader(""), &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := NewErrorResponse(json.RawMessage("1"), InternalError, strings.Repeat("x", 512))
			_ = tr.WriteResponse(resp)
		}()
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var resp Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			t.Fatalf("interleaved write produced invalid JSON line: %v", err)
		}
	}
}

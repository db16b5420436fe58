// ABOUTME: HTTP request block for calling external JSON APIs from a pipeline node.
// ABOUTME: Timeouts come from block config; JSON response bodies are decoded into the output for templating.
package blocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flumehq/flume/engine"
)

const defaultHTTPTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read into the run state.
const maxResponseBytes = 4 << 20

// HTTPRequestBlock performs an HTTP request. Inputs: url (required), method
// (default GET), body (JSON-encoded when a map or list), headers (map).
// Config: timeout_ms. Output: status, body, and json (the decoded body when
// the response is JSON).
type HTTPRequestBlock struct {
	client *http.Client
}

// NewHTTPRequestBlock creates the block with the given client.
// A nil client defaults to one with a 30s timeout.
func NewHTTPRequestBlock(client *http.Client) *HTTPRequestBlock {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPRequestBlock{client: client}
}

func (b *HTTPRequestBlock) ID() string { return "http_request" }

func (b *HTTPRequestBlock) Execute(ctx context.Context, inputs map[string]any, bctx *engine.BlockContext) (map[string]any, error) {
	url := stringInput(inputs, "url", "")
	if url == "" {
		return nil, fmt.Errorf("http_request requires a url input")
	}
	method := strings.ToUpper(stringInput(inputs, "method", http.MethodGet))

	if timeoutMs, err := toFloat(bctx.Config["timeout_ms"]); err == nil && timeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}

	var reqBody io.Reader
	contentType := ""
	if raw, ok := inputs["body"]; ok && raw != nil {
		switch t := raw.(type) {
		case string:
			reqBody = strings.NewReader(t)
		default:
			encoded, err := json.Marshal(t)
			if err != nil {
				return nil, fmt.Errorf("encode request body: %w", err)
			}
			reqBody = bytes.NewReader(encoded)
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if headers, ok := inputs["headers"].(map[string]any); ok {
		for k, v := range headers {
			req.Header.Set(k, engine.Stringify(v))
		}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	out := map[string]any{
		"status": float64(resp.StatusCode),
		"body":   string(data),
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		var decoded any
		if err := json.Unmarshal(data, &decoded); err == nil {
			out["json"] = decoded
		}
	}
	return out, nil
}

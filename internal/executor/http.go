package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vk/multiversego/internal/ctxlog"
)

// HTTPExecutor delegates the unit of analysis to a remote service. The
// payload is POSTed as JSON; any 2xx response is a success, and a JSON
// object body supplies the universe's result columns. Per-visit deadlines
// come from ctx, so the client itself carries no timeout.
type HTTPExecutor struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHTTPExecutor builds a remote executor for the given endpoint.
func NewHTTPExecutor(url string, headers map[string]string) (*HTTPExecutor, error) {
	if url == "" {
		return nil, errors.New("http executor needs a URL")
	}
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return &HTTPExecutor{url: url, headers: headers, client: client}, nil
}

func (e *HTTPExecutor) Name() string { return "http" }

// Execute POSTs the payload and decodes the response body.
func (e *HTTPExecutor) Execute(ctx context.Context, payload *Payload) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode settings payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range e.headers {
		req.Header.Set(key, value)
	}

	logger.Debug("Calling remote executor.", "universe_id", payload.UniverseID, "url", e.url)
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &ExecutionError{UniverseID: payload.UniverseID, Executor: e.Name(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExecutionError{
			UniverseID: payload.UniverseID,
			Executor:   e.Name(),
			Err:        fmt.Errorf("read response body: %w", err),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ExecutionError{
			UniverseID: payload.UniverseID,
			Executor:   e.Name(),
			Err:        fmt.Errorf("unexpected status %d: %s", resp.StatusCode, summarizeBody(data)),
		}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return &Result{}, nil
	}
	var columns map[string]any
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, &ExecutionError{
			UniverseID: payload.UniverseID,
			Executor:   e.Name(),
			Err:        fmt.Errorf("parse response body: %w", err),
		}
	}
	return &Result{Columns: columns}, nil
}

// summarizeBody keeps error messages readable when a service returns a
// large error page.
func summarizeBody(data []byte) string {
	const limit = 256
	body := string(bytes.TrimSpace(data))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

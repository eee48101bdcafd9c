// Package dify is a client for the dialog backend's chat API. The caller's
// bearer token is relayed per request rather than held by the client.
package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client posts chat requests to the dialog backend.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a client for the given chat endpoint URL.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		// No overall timeout: streaming responses are open-ended and
		// bounded by the upstream, not by us.
		httpClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 60 * time.Second,
			},
		},
	}
}

// SendBlocking posts a blocking-mode request and decodes the full reply.
// authorization is the caller's raw Authorization header value, forwarded
// verbatim.
func (c *Client) SendBlocking(ctx context.Context, authorization string, req Request) (*Response, error) {
	resp, err := c.send(ctx, authorization, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("dialog backend returned status %d: %s", resp.StatusCode, string(data))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode dialog response: %w", err)
	}
	return &out, nil
}

// SendStreaming posts a streaming-mode request and returns the raw response.
// The caller owns resp.Body and reads SSE frames from it until EOF.
func (c *Client) SendStreaming(ctx context.Context, authorization string, req Request) (*http.Response, error) {
	resp, err := c.send(ctx, authorization, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		resp.Body.Close()
		return nil, fmt.Errorf("dialog backend returned status %d: %s", resp.StatusCode, string(data))
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, authorization string, req Request) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dialog request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build dialog request: %w", err)
	}
	httpReq.Header.Set("Authorization", authorization)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call dialog backend: %w", err)
	}
	return resp, nil
}

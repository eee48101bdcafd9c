// Package replicate is a minimal client for the image backend's
// model-scoped predictions API with webhook delivery.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// PredictionInput carries the generation parameters for a prediction.
type PredictionInput struct {
	Prompt          string `json:"prompt"`
	AspectRatio     string `json:"aspect_ratio"`
	OutputFormat    string `json:"output_format"`
	SafetyTolerance int    `json:"safety_tolerance"`
	Raw             bool   `json:"raw"`
	NumOutputs      int    `json:"num_outputs,omitempty"`
}

// PredictionRequest is the body posted to the predictions endpoint.
type PredictionRequest struct {
	Input   PredictionInput `json:"input"`
	Webhook string          `json:"webhook,omitempty"`
}

// Prediction is the backend's acknowledgement of a created prediction.
type Prediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// WebhookPayload is the body the backend POSTs to our webhook endpoint
// when a prediction finishes. Output is a list of result URLs; some models
// deliver a single string instead, which UnmarshalJSON normalizes.
type WebhookPayload struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Output OutputURLs `json:"output,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// OutputURLs accepts either a JSON array of strings or a bare string.
type OutputURLs []string

func (o *OutputURLs) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*o = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*o = nil
		} else {
			*o = []string{single}
		}
		return nil
	}
	return fmt.Errorf("output is neither a string nor a string array")
}

// Client calls the image backend API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a backend client.
// baseURL is e.g. "https://api.replicate.com/v1".
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreatePrediction starts an async prediction for the given model
// (e.g. "black-forest-labs/flux-1.1-dev"). Results arrive later at the
// webhook URL in req.Webhook.
func (c *Client) CreatePrediction(ctx context.Context, model string, req PredictionRequest) (*Prediction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build prediction request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call predictions endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("predictions endpoint returned status %d: %s", resp.StatusCode, string(data))
	}

	var prediction Prediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("failed to decode prediction response: %w", err)
	}
	return &prediction, nil
}

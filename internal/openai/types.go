// Package openai defines the OpenAI-compatible wire types the gateway
// accepts and emits, and the translation to and from the dialog backend.
package openai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageContent accepts either a plain string or an ordered list of
// {type, text} parts; parts are joined with a single space.
type MessageContent string

func (m *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = MessageContent(s)
		return nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			texts = append(texts, p.Text)
		}
		*m = MessageContent(strings.Join(texts, " "))
		return nil
	}

	return fmt.Errorf("content must be a string or a list of content parts")
}

// Message is one entry in a chat conversation.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// ChatRequest is the body of POST /v1/chat/completions.
type ChatRequest struct {
	Model       string            `json:"model,omitempty"`
	Messages    []Message         `json:"messages"`
	Stream      bool              `json:"stream,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	TopP        *float64          `json:"top_p,omitempty"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
	Tools       []json.RawMessage `json:"tools,omitempty"`
	User        string            `json:"user,omitempty"`
}

// ResponseMessage is the assistant message inside a blocking chat response.
type ResponseMessage struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	ToolCalls []json.RawMessage `json:"tool_calls,omitempty"`
	Files     []json.RawMessage `json:"files,omitempty"`
}

// Choice is one completion alternative in a blocking response.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// Usage reports token accounting. The dialog backend does not expose
// counts, so the relay reports zeros.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the body of a blocking chat completion.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Delta is the incremental payload of a streaming chunk.
type Delta struct {
	Content   string            `json:"content,omitempty"`
	ToolCalls []json.RawMessage `json:"tool_calls,omitempty"`
	Files     []json.RawMessage `json:"files,omitempty"`
}

// ChunkChoice is one choice inside a streaming chunk.
type ChunkChoice struct {
	Index        int     `json:"index"`
	Delta        Delta   `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

// ChatChunk is one streaming SSE frame body.
type ChatChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// ImageRequest is the body of POST /v1/images/generations.
type ImageRequest struct {
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	Model          string `json:"model,omitempty"`
	CallbackURL    string `json:"callback_url,omitempty"`
	User           string `json:"user,omitempty"`
}

// ImageData is one generated image in an image response. Exactly one of
// url or b64_json is set depending on the requested response_format;
// ipfs_url accompanies url when content pinning succeeded.
type ImageData struct {
	URL     string `json:"url,omitempty"`
	B64JSON string `json:"b64_json,omitempty"`
	IPFSURL string `json:"ipfs_url,omitempty"`
}

// ImageResponse is the body of a successful image generation.
type ImageResponse struct {
	Created int64       `json:"created"`
	Data    []ImageData `json:"data"`
}

// ErrorDetail is the error payload inside an ErrorResponse. TaskID is set
// only on timeout-continuation responses so the client can correlate the
// later callback.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	TaskID  string `json:"task_id,omitempty"`
}

// ErrorResponse is the OpenAI-shaped error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

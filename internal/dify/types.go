package dify

import "encoding/json"

// Inputs carries the app-level inputs for a chat message.
type Inputs struct {
	ConversationHistory string `json:"conversation_history"`
}

// Request is the body posted to the dialog backend's chat endpoint.
type Request struct {
	Inputs       Inputs            `json:"inputs"`
	Query        []string          `json:"query"`
	ResponseMode string            `json:"response_mode"`
	User         string            `json:"user,omitempty"`
	Temperature  *float64          `json:"temperature,omitempty"`
	TopP         *float64          `json:"top_p,omitempty"`
	MaxTokens    *int              `json:"max_tokens,omitempty"`
	Tools        []json.RawMessage `json:"tools,omitempty"`
}

// Response is the backend's blocking-mode reply.
type Response struct {
	ConversationID string            `json:"conversation_id"`
	MessageID      string            `json:"message_id"`
	CreatedAt      int64             `json:"created_at"`
	Answer         string            `json:"answer"`
	ToolCalls      []json.RawMessage `json:"tool_calls,omitempty"`
	Files          []json.RawMessage `json:"files,omitempty"`
}

// Event is one streaming-mode SSE frame body. Frames whose Event is not
// "message" carry bookkeeping (e.g. "message_end", "ping") and are dropped
// by the relay.
type Event struct {
	Event     string            `json:"event"`
	TaskID    string            `json:"task_id"`
	MessageID string            `json:"message_id"`
	CreatedAt int64             `json:"created_at"`
	Answer    string            `json:"answer"`
	ToolCalls []json.RawMessage `json:"tool_calls,omitempty"`
	Files     []json.RawMessage `json:"files,omitempty"`
}

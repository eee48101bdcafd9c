package openai

import (
	"fmt"
	"strings"
	"time"

	"oaigate/internal/dify"
)

// DefaultModel is reported in responses when the caller named no model.
const DefaultModel = "dify-transformed"

const imageVendor = "black-forest-labs"

// modelAliases maps OpenAI-style image model names to backend models.
var modelAliases = map[string]string{
	"dall-e-3-pro":       imageVendor + "/flux-1.1-pro",
	"dall-e-3-pro-ultra": imageVendor + "/flux-1.1-pro-ultra",
	"dall-e-3-schnell":   imageVendor + "/flux-1.1-schnell",
}

// ResolveImageModel maps a requested model alias to the backend model.
// Unknown or absent aliases fall back to the dev model.
func ResolveImageModel(alias string) string {
	if backend, ok := modelAliases[alias]; ok {
		return backend
	}
	return imageVendor + "/flux-1.1-dev"
}

// sizeAspects maps requested WxH sizes to backend aspect ratios.
var sizeAspects = map[string]string{
	"1024x1024": "1:1",
	"1024x1792": "9:16",
	"1792x1024": "16:9",
}

// ResolveAspectRatio maps a requested size string to a backend aspect
// ratio, defaulting to 3:2.
func ResolveAspectRatio(size string) string {
	if aspect, ok := sizeAspects[size]; ok {
		return aspect
	}
	return "3:2"
}

// ToDialogRequest translates an OpenAI chat request into a dialog backend
// request: all but the last message become the conversation history, the
// last message's content becomes the query.
func ToDialogRequest(req *ChatRequest) dify.Request {
	last := req.Messages[len(req.Messages)-1]

	history := make([]string, 0, len(req.Messages)-1)
	for _, m := range req.Messages[:len(req.Messages)-1] {
		history = append(history, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}

	mode := "blocking"
	if req.Stream {
		mode = "streaming"
	}

	user := req.User
	if user == "" {
		user = "proxy"
	}

	return dify.Request{
		Inputs:       dify.Inputs{ConversationHistory: strings.Join(history, "\n")},
		Query:        []string{string(last.Content)},
		ResponseMode: mode,
		User:         user,
		Temperature:  req.Temperature,
		TopP:         req.TopP,
		MaxTokens:    req.MaxTokens,
		Tools:        req.Tools,
	}
}

// FromDialogResponse builds a blocking chat completion from the backend's
// reply.
func FromDialogResponse(resp *dify.Response, model string) ChatResponse {
	if model == "" {
		model = DefaultModel
	}
	now := time.Now()
	return ChatResponse{
		ID:      fmt.Sprintf("chatcmpl-%d", now.UnixMilli()),
		Object:  "chat.completion",
		Created: now.Unix(),
		Model:   model,
		Choices: []Choice{{
			Index: 0,
			Message: ResponseMessage{
				Role:      "assistant",
				Content:   resp.Answer,
				ToolCalls: resp.ToolCalls,
				Files:     resp.Files,
			},
			FinishReason: "stop",
		}},
	}
}

// ChunkFromEvent builds a streaming chunk from one backend message event.
func ChunkFromEvent(event *dify.Event, model string) ChatChunk {
	if model == "" {
		model = DefaultModel
	}
	now := time.Now()
	return ChatChunk{
		ID:      fmt.Sprintf("chatcmpl-%d", now.UnixMilli()),
		Object:  "chat.completion.chunk",
		Created: now.Unix(),
		Model:   model,
		Choices: []ChunkChoice{{
			Index: 0,
			Delta: Delta{
				Content:   event.Answer,
				ToolCalls: event.ToolCalls,
				Files:     event.Files,
			},
			FinishReason: nil,
		}},
	}
}

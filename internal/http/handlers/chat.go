package handlers

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"oaigate/internal/dify"
	"oaigate/internal/openai"
)

// ChatHandler relays OpenAI chat completions to the dialog backend.
type ChatHandler struct {
	backend *dify.Client
	logger  *slog.Logger
}

// NewChatHandler creates a chat relay handler.
func NewChatHandler(backend *dify.Client, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{backend: backend, logger: logger}
}

// ChatCompletions handles POST /v1/chat/completions.
// This is a raw HTTP handler (not huma): the OpenAI wire contract and the
// SSE streaming path both need exact control of the response bytes.
func (h *ChatHandler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	authorization := r.Header.Get("Authorization")
	if !strings.HasPrefix(authorization, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "missing bearer token", "invalid_request_error")
		return
	}

	var req openai.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error(), "invalid_request_error")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty", "invalid_request_error")
		return
	}

	dialogReq := openai.ToDialogRequest(&req)

	if req.Stream {
		h.streamCompletion(w, r, authorization, dialogReq, req.Model)
		return
	}

	resp, err := h.backend.SendBlocking(r.Context(), authorization, dialogReq)
	if err != nil {
		h.logger.Error("dialog backend call failed", "error", err)
		writeError(w, http.StatusBadGateway, "dialog backend unavailable", "bad_gateway")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(openai.FromDialogResponse(resp, req.Model))
}

// streamCompletion re-frames the backend's SSE stream into OpenAI chunk
// frames. Frames are forwarded in arrival order; malformed frames are
// dropped without tearing down the stream.
func (h *ChatHandler) streamCompletion(w http.ResponseWriter, r *http.Request, authorization string, dialogReq dify.Request, model string) {
	upstream, err := h.backend.SendStreaming(r.Context(), authorization, dialogReq)
	if err != nil {
		h.logger.Error("dialog backend stream failed", "error", err)
		writeError(w, http.StatusBadGateway, "dialog backend unavailable", "bad_gateway")
		return
	}
	defer upstream.Body.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", "internal_error")
		return
	}

	// Streams are bounded by the upstream, not by our write deadline.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	scanner := bufio.NewScanner(upstream.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		frame := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if frame == "" || frame == "[DONE]" {
			continue
		}

		var event dify.Event
		if err := json.Unmarshal([]byte(frame), &event); err != nil {
			h.logger.Debug("dropping malformed stream frame", "error", err)
			continue
		}
		if event.Event != "message" || strings.TrimSpace(event.Answer) == "" {
			continue
		}

		chunk, err := json.Marshal(openai.ChunkFromEvent(&event, model))
		if err != nil {
			h.logger.Error("failed to encode stream chunk", "error", err)
			continue
		}

		if _, err := w.Write(append(append([]byte("data: "), chunk...), '\n', '\n')); err != nil {
			// Client went away; abandon the upstream.
			return
		}
		flusher.Flush()
	}

	if err := scanner.Err(); err != nil {
		h.logger.Warn("upstream stream ended with error", "error", err)
	}

	_, _ = w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

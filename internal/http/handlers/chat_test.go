package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"oaigate/internal/dify"
	"oaigate/internal/openai"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChatCompletions_MissingBearer(t *testing.T) {
	h := NewChatHandler(dify.NewClient("http://unused.invalid"), discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	rec := httptest.NewRecorder()

	h.ChatCompletions(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	var errResp openai.ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &errResp)
	if errResp.Error.Type != "invalid_request_error" {
		t.Errorf("error type = %q", errResp.Error.Type)
	}
}

func TestChatCompletions_EmptyMessages(t *testing.T) {
	h := NewChatHandler(dify.NewClient("http://unused.invalid"), discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		strings.NewReader(`{"messages":[]}`))
	req.Header.Set("Authorization", "Bearer sk-test")
	rec := httptest.NewRecorder()

	h.ChatCompletions(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestChatCompletions_Blocking(t *testing.T) {
	var gotAuth string
	var gotReq dify.Request
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(dify.Response{Answer: "hello there"})
	}))
	defer backend.Close()

	h := NewChatHandler(dify.NewClient(backend.URL), discardLogger())

	body := `{"model":"gpt-4","messages":[{"role":"system","content":"be brief"},{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer sk-test")
	rec := httptest.NewRecorder()

	h.ChatCompletions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth relayed as %q", gotAuth)
	}
	if gotReq.ResponseMode != "blocking" {
		t.Errorf("response_mode = %q", gotReq.ResponseMode)
	}
	if gotReq.Inputs.ConversationHistory != "system: be brief" {
		t.Errorf("history = %q", gotReq.Inputs.ConversationHistory)
	}

	var resp openai.ChatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Object != "chat.completion" || resp.Model != "gpt-4" {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Choices[0].Message.Content != "hello there" {
		t.Errorf("content = %q", resp.Choices[0].Message.Content)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("finish_reason = %q", resp.Choices[0].FinishReason)
	}
}

func TestChatCompletions_ContentParts(t *testing.T) {
	var gotReq dify.Request
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(dify.Response{Answer: "ok"})
	}))
	defer backend.Close()

	h := NewChatHandler(dify.NewClient(backend.URL), discardLogger())

	body := `{"messages":[{"role":"user","content":[{"type":"text","text":"hello"},{"type":"text","text":"world"}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer sk-test")
	rec := httptest.NewRecorder()

	h.ChatCompletions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(gotReq.Query) != 1 || gotReq.Query[0] != "hello world" {
		t.Errorf("query = %v, want parts joined with a space", gotReq.Query)
	}
}

func TestChatCompletions_BackendDown(t *testing.T) {
	h := NewChatHandler(dify.NewClient("http://127.0.0.1:1"), discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set("Authorization", "Bearer sk-test")
	rec := httptest.NewRecorder()

	h.ChatCompletions(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestChatCompletions_Streaming(t *testing.T) {
	frames := []string{
		`data: {"event":"message","answer":"Hel"}`,
		``,
		`data: {"event":"message","answer":"lo"}`,
		``,
		`data: {"event":"message_end","answer":""}`,
		``,
		`data: not-json-at-all`,
		``,
		`data: {"event":"message","answer":"   "}`,
		``,
	}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var dreq dify.Request
		_ = json.NewDecoder(r.Body).Decode(&dreq)
		if dreq.ResponseMode != "streaming" {
			t.Errorf("response_mode = %q", dreq.ResponseMode)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			_, _ = w.Write([]byte(frame + "\n"))
		}
	}))
	defer backend.Close()

	h := NewChatHandler(dify.NewClient(backend.URL), discardLogger())

	body := `{"stream":true,"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer sk-test")
	rec := httptest.NewRecorder()

	h.ChatCompletions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	out := rec.Body.String()
	if !strings.HasSuffix(out, "data: [DONE]\n\n") {
		t.Errorf("stream missing [DONE] terminator: %q", out)
	}

	var chunks []openai.ChatChunk
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "data: {") {
			continue
		}
		var chunk openai.ChatChunk
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
			t.Fatalf("bad chunk %q: %v", line, err)
		}
		if chunk.Object != "chat.completion.chunk" {
			t.Errorf("object = %q", chunk.Object)
		}
		chunks = append(chunks, chunk)
	}

	// Only the two message events survive; bookkeeping, garbage, and
	// whitespace-only frames are dropped, and [DONE] is the only
	// terminator.
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %q", len(chunks), out)
	}
	if chunks[0].Choices[0].Delta.Content != "Hel" || chunks[1].Choices[0].Delta.Content != "lo" {
		t.Errorf("chunk contents = %q, %q", chunks[0].Choices[0].Delta.Content, chunks[1].Choices[0].Delta.Content)
	}
	for _, chunk := range chunks {
		if chunk.Choices[0].FinishReason != nil {
			t.Errorf("finish_reason = %v, want null", *chunk.Choices[0].FinishReason)
		}
	}
}

package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":    "cmpl-1",
		"model": "mistral-large-latest",
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestMistralChat(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, chatResponse(`{"findings":[]}`))
	defer srv.Close()

	c := NewMistralClient(MistralConfig{APIKey: "test-key", BaseURL: srv.URL})
	res, err := c.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "sys"},
			{Role: "user", Content: "text"},
		},
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if res.Content != `{"findings":[]}` {
		t.Errorf("unexpected content: %q", res.Content)
	}
	if res.TotalTokens != 15 {
		t.Errorf("unexpected token count: %d", res.TotalTokens)
	}
	if res.RequestID == "" {
		t.Error("expected generated request ID")
	}
}

func TestMistralChatJSONModeSetsResponseFormat(t *testing.T) {
	var captured mistralChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(chatResponse("{}"))
	}))
	defer srv.Close()

	c := NewMistralClient(MistralConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "x"}},
		JSONMode: true,
	}); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_object" {
		t.Errorf("expected json_object response format, got %+v", captured.ResponseFormat)
	}
}

func TestMistralChatServerError(t *testing.T) {
	srv := newTestServer(t, http.StatusInternalServerError, map[string]any{
		"error": map[string]any{"message": "boom", "type": "internal"},
	})
	defer srv.Close()

	c := NewMistralClient(MistralConfig{APIKey: "test-key", BaseURL: srv.URL})
	_, err := c.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Errorf("500 should be transient, got %v", err)
	}
}

func TestMistralChatClientErrorNotTransient(t *testing.T) {
	srv := newTestServer(t, http.StatusBadRequest, map[string]any{
		"error": map[string]any{"message": "bad request", "type": "invalid"},
	})
	defer srv.Close()

	c := NewMistralClient(MistralConfig{APIKey: "test-key", BaseURL: srv.URL})
	_, err := c.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if IsTransient(err) {
		t.Errorf("400 should not be transient, got %v", err)
	}
}

func TestIsTransientRateLimit(t *testing.T) {
	err := &APIError{Provider: MistralName, StatusCode: http.StatusTooManyRequests, Message: "slow down"}
	if !IsTransient(err) {
		t.Error("429 should be transient")
	}
}

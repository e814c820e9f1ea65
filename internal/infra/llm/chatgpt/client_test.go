package chatgpt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientRejectsEmptyAPIKey(t *testing.T) {
	if _, err := NewClient("", "http://example.com"); err == nil {
		t.Fatalf("expected error for empty api key")
	}
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	c, err := NewClient("key", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.baseURL != "https://api.openai.com/v1" {
		t.Fatalf("expected default base url, got %s", c.baseURL)
	}
}

func TestCreateChatCompletionDecodesUsageAndChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("expected bearer auth header, got %s", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hello"}},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	client, err := NewClient("test-key", srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "gpt-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Message.Content != "hello" {
		t.Fatalf("unexpected choices: %#v", resp.Choices)
	}
	usage := resp.TokenUsage()
	if usage.TotalTokens != 15 || usage.IsZero() {
		t.Fatalf("unexpected usage: %#v", usage)
	}
}

func TestCreateChatCompletionSurfacesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "gpt-test"})
	if err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", statusErr.StatusCode)
	}
}

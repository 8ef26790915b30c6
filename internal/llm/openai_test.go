package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestOpenAICompleterSendsParamsAndReturnsContent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-3.5-turbo",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "{\"title\":\"Legs\"}"}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(Options{APIKey: "test-key", BaseURL: srv.URL, Model: "gpt-3.5-turbo"})
	out, err := c.Complete(context.Background(), Request{System: "sys", User: "usr", Temperature: 0.7, MaxTokens: 1000})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"title":"Legs"}` {
		t.Errorf("content = %q", out)
	}

	if got["model"] != "gpt-3.5-turbo" || got["temperature"] != 0.7 || got["max_tokens"] != float64(1000) {
		t.Errorf("unexpected request params %v", got)
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %v", got["messages"])
	}
}

func TestOpenAICompleterDoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(Options{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Complete(context.Background(), Request{System: "s", User: "u"}); err == nil {
		t.Fatal("expected an error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected exactly one call, got %d", n)
	}
}

func TestOpenAICompleterEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(Options{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.Complete(context.Background(), Request{}); !errors.Is(err, ErrEmptyReply) {
		t.Errorf("got %v, want ErrEmptyReply", err)
	}
}

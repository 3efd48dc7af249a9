package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("Authorization = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != "gpt-4o-mini" {
			t.Fatalf("model = %v", body["model"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"GENERAL_CHAT\n"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client, err := NewOpenAI(Config{BaseURL: srv.URL + "/v1/", APIKey: "test-key", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("NewOpenAI() error = %v", err)
	}
	got, err := client.Generate(context.Background(), "classify")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "GENERAL_CHAT" {
		t.Fatalf("Generate() = %q", got)
	}
}

func TestOpenAIChatStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Stream   bool `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !body.Stream || len(body.Messages) != 2 || body.Messages[0].Role != "assistant" {
			t.Fatalf("request = %#v", body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Par", "is"} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	client, _ := NewOpenAI(Config{BaseURL: srv.URL + "/v1", APIKey: "k", Model: "m"})
	got, err := Collect(client.Chat(context.Background(), []Message{
		{Role: RoleAssistant, Content: "Hi!"},
		{Role: RoleUser, Content: "What is the capital of France?"},
	}))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got != "Paris" {
		t.Fatalf("Collect() = %q", got)
	}
}

func TestOpenAIChatSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client, _ := NewOpenAI(Config{BaseURL: srv.URL + "/v1", APIKey: "k", Model: "m"})
	_, err := Collect(client.Chat(context.Background(), nil))
	if err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Fatalf("Collect() error = %v", err)
	}
}

func TestInstrumentPassesThrough(t *testing.T) {
	fake := &scriptedClient{generate: "SELECT 1", fragments: []string{"a", "b"}}
	client := Instrument(fake, "fake", slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := client.Generate(context.Background(), "p")
	if err != nil || got != "SELECT 1" {
		t.Fatalf("Generate() = %q, %v", got, err)
	}
	streamed, err := Collect(client.Chat(context.Background(), nil))
	if err != nil || streamed != "ab" {
		t.Fatalf("Collect() = %q, %v", streamed, err)
	}
	if client.Model() != "scripted" {
		t.Fatalf("Model() = %q", client.Model())
	}
}

type scriptedClient struct {
	generate  string
	fragments []string
}

func (s *scriptedClient) Generate(context.Context, string) (string, error) {
	return s.generate, nil
}

func (s *scriptedClient) Chat(context.Context, []Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range s.fragments {
			if !yield(f, nil) {
				return
			}
		}
	}
}

func (s *scriptedClient) Ping(context.Context) error { return nil }

func (s *scriptedClient) Model() string { return "scripted" }

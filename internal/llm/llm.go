// Package llm talks to the language model that generates SQL, classifies
// intents and answers free-form chat.
package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/querydesk/querydesk/internal/observability"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a language model backend. Generate is a single blocking
// completion. Chat returns an ordered, finite sequence of text fragments; the
// sequence yields at most one error and stops after it. Breaking out of the
// range loop or cancelling ctx ends the underlying request.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, messages []Message) iter.Seq2[string, error]
	Ping(ctx context.Context) error
	Model() string
}

type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// StatusError is returned when the backend answers with a non-success HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model backend status=%d body=%s", e.StatusCode, e.Body)
}

// New builds the configured backend, wrapped with metrics and debug logging.
func New(cfg Config, logger *slog.Logger) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	var (
		client Client
		err    error
	)
	switch provider {
	case ProviderOllama, "":
		provider = ProviderOllama
		client, err = NewOllama(cfg)
	case ProviderOpenAI:
		client, err = NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(client, provider, logger), nil
}

// Collect drains a chat stream into one string.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for fragment, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(fragment)
	}
	return b.String(), nil
}

type instrumented struct {
	next     Client
	provider string
	logger   *slog.Logger
}

// Instrument records call counts and latency for every call made through client.
func Instrument(client Client, provider string, logger *slog.Logger) Client {
	return &instrumented{next: client, provider: provider, logger: observability.Component(logger, "llm")}
}

func (c *instrumented) Model() string {
	return c.next.Model()
}

func (c *instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := c.next.Generate(ctx, prompt)
	elapsed := time.Since(start)
	observability.ObserveLLMCall(c.provider, "generate", err, elapsed)
	c.logger.DebugContext(ctx, "llm generate",
		slog.String("model", c.next.Model()),
		slog.Int("prompt_len", len(prompt)),
		slog.Int("response_len", len(out)),
		slog.Duration("elapsed", elapsed),
		slog.Any("error", err),
	)
	return out, err
}

func (c *instrumented) Chat(ctx context.Context, messages []Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		start := time.Now()
		fragments := 0
		var streamErr error
		defer func() {
			elapsed := time.Since(start)
			observability.ObserveLLMCall(c.provider, "chat", streamErr, elapsed)
			c.logger.DebugContext(ctx, "llm chat",
				slog.String("model", c.next.Model()),
				slog.Int("messages", len(messages)),
				slog.Int("fragments", fragments),
				slog.Duration("elapsed", elapsed),
				slog.Any("error", streamErr),
			)
		}()
		for fragment, err := range c.next.Chat(ctx, messages) {
			if err != nil {
				streamErr = err
				yield("", err)
				return
			}
			fragments++
			if !yield(fragment, nil) {
				return
			}
		}
	}
}

func (c *instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.next.Ping(ctx)
	observability.ObserveLLMCall(c.provider, "ping", err, time.Since(start))
	return err
}

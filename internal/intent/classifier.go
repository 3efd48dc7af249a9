// Package intent routes a question to the SQL path or to free-form chat.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/observability"
)

type Label string

const (
	DatabaseQuery Label = "DATABASE_QUERY"
	GeneralChat   Label = "GENERAL_CHAT"
)

// Result is either a classification or a degraded default. Degraded results
// always carry GeneralChat and the error that forced the fallback.
type Result struct {
	Label    Label  `json:"label"`
	Degraded bool   `json:"degraded"`
	Raw      string `json:"-"`
	Err      error  `json:"-"`
}

func Classified(label Label, raw string) Result {
	return Result{Label: label, Raw: raw}
}

func Degraded(err error) Result {
	return Result{Label: GeneralChat, Degraded: true, Err: err}
}

type Classifier struct {
	client llm.Client
	logger *slog.Logger
}

func NewClassifier(client llm.Client, logger *slog.Logger) *Classifier {
	return &Classifier{client: client, logger: observability.Component(logger, "intent")}
}

// Classify never fails: a model error yields a degraded GeneralChat result.
func (c *Classifier) Classify(ctx context.Context, question string) Result {
	var result Result
	if c.client == nil {
		result = Degraded(fmt.Errorf("language model client is not configured"))
	} else if raw, err := c.client.Generate(ctx, BuildPrompt(question)); err != nil {
		result = Degraded(fmt.Errorf("classify intent: %w", err))
	} else {
		result = Classified(ParseLabel(raw), raw)
	}

	observability.ObserveIntent(string(result.Label), result.Degraded)
	if result.Degraded {
		c.logger.WarnContext(ctx, "intent classification degraded to general chat",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.Any("error", result.Err),
		)
	} else {
		c.logger.DebugContext(ctx, "intent classified",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("label", string(result.Label)),
		)
	}
	return result
}

// ParseLabel maps free model text to a label. Any response containing
// DATABASE_QUERY selects the SQL path; everything else is chat.
func ParseLabel(raw string) Label {
	if strings.Contains(strings.TrimSpace(raw), string(DatabaseQuery)) {
		return DatabaseQuery
	}
	return GeneralChat
}

func BuildPrompt(question string) string {
	var b strings.Builder
	b.WriteString("You are a routing agent. Classify the user's question into exactly one of two categories.\n\n")
	b.WriteString("1. `DATABASE_QUERY`: choose this ONLY when the user explicitly asks to retrieve, find, show, list, count ")
	b.WriteString("or query data about suppliers, products, inventory, stock levels or business locations. ")
	b.WriteString("The question MUST be answerable with a single SQL SELECT statement.\n")
	b.WriteString("   Examples:\n")
	for _, example := range databaseExamples {
		fmt.Fprintf(&b, "   - %q\n", example)
	}
	b.WriteString("\n2. `GENERAL_CHAT`: choose this for ALL other questions, including greetings, pleasantries, ")
	b.WriteString("general knowledge, math, requests to write code or text, and questions about earlier answers.\n")
	b.WriteString("   Examples:\n")
	for _, example := range chatExamples {
		fmt.Fprintf(&b, "   - %q\n", example)
	}
	b.WriteString("\nRespond with ONLY the category name (`DATABASE_QUERY` or `GENERAL_CHAT`) and nothing else.\n\n")
	fmt.Fprintf(&b, "User Question: \"%s\"", question)
	return b.String()
}

var databaseExamples = []string{
	"Show me all suppliers from the USA.",
	"How many units of 'Chai' are in stock?",
	"List the companies in London.",
	"who is the supplier with the most products?",
}

var chatExamples = []string{
	"Hello, how are you?",
	"That was very helpful, thank you!",
	"What is the capital of France?",
	"Can you write a poem about robots?",
	"Why did the last query return no results?",
}

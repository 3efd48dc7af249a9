// Package nl2sql turns a natural-language question into a single read-only
// SQL statement for one view.
package nl2sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/query"
)

// InvalidQuerySentinel is what the model is told to answer for write requests.
const InvalidQuerySentinel = "INVALID QUERY"

type Generator struct {
	client llm.Client
}

func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate asks the model for SQL answering question against schema and
// returns the raw model text. It makes exactly one model call.
func (g *Generator) Generate(ctx context.Context, question string, schema query.SchemaDescription) (string, error) {
	if g.client == nil {
		return "", fmt.Errorf("language model client is not configured")
	}
	raw, err := g.client.Generate(ctx, BuildPrompt(question, schema))
	if err != nil {
		return "", fmt.Errorf("generate sql: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// BuildPrompt renders the one-shot SQL generation prompt.
func BuildPrompt(question string, schema query.SchemaDescription) string {
	view := schema.View
	var b strings.Builder
	b.WriteString("You are an expert MariaDB SQL assistant. Translate the user's question into one SQL query ")
	b.WriteString("against the view described below.\n\n")
	b.WriteString("### Database Schema\n")
	b.WriteString(schema.Render())
	b.WriteString("\n\n### Rules\n")
	fmt.Fprintf(&b, "1. Query only the view `%s`. It is the only object you may reference.\n", view)
	b.WriteString("2. Answer with a single SELECT statement that begins with SELECT. ")
	b.WriteString("Do not add explanations, comments or markdown code fences.\n")
	fmt.Fprintf(&b, "3. If the question asks to INSERT, UPDATE, DELETE or otherwise change data, answer with exactly: %s\n", InvalidQuerySentinel)
	b.WriteString("4. Use MariaDB syntax and single-quoted string literals.\n\n")
	b.WriteString("### Example\n")
	b.WriteString("User Question: \"Show me suppliers in London\"\n")
	fmt.Fprintf(&b, "Your Response: SELECT * FROM %s WHERE City = 'London';\n\n", view)
	b.WriteString("### Task\n")
	fmt.Fprintf(&b, "User Question: \"%s\"\n", question)
	b.WriteString("Generated SQL Query:")
	return b.String()
}

package nl2sql

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/query"
)

var supplierSchema = query.SchemaDescription{
	View: "SUPPLIER_VIEW",
	Columns: []query.Column{
		{Name: "CompanyName", Type: "varchar(40)"},
		{Name: "City", Type: "varchar(15)"},
		{Name: "Country", Type: "varchar(15)"},
	},
}

func TestBuildPromptContainsSchemaQuestionAndRules(t *testing.T) {
	prompt := BuildPrompt("List the companies in London", supplierSchema)
	for _, want := range []string{
		"View Name: SUPPLIER_VIEW",
		"  - City (Type: varchar(15))",
		"`SUPPLIER_VIEW`",
		InvalidQuerySentinel,
		"SELECT * FROM SUPPLIER_VIEW WHERE City = 'London';",
		`User Question: "List the companies in London"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if !strings.HasSuffix(prompt, "Generated SQL Query:") {
		t.Fatalf("prompt should end with the answer cue:\n%s", prompt)
	}
}

func TestGenerateMakesOneCallAndTrims(t *testing.T) {
	client := &fakeLLM{response: "\n SELECT * FROM SUPPLIER_VIEW; \n"}
	got, err := NewGenerator(client).Generate(context.Background(), "Show me all suppliers", supplierSchema)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "SELECT * FROM SUPPLIER_VIEW;" {
		t.Fatalf("Generate() = %q", got)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1", client.calls)
	}
	if !strings.Contains(client.lastPrompt, "Show me all suppliers") {
		t.Fatalf("prompt = %q", client.lastPrompt)
	}
}

func TestGenerateWrapsModelError(t *testing.T) {
	boom := errors.New("connection refused")
	client := &fakeLLM{err: boom}
	_, err := NewGenerator(client).Generate(context.Background(), "q", supplierSchema)
	if !errors.Is(err, boom) {
		t.Fatalf("Generate() error = %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want exactly one attempt", client.calls)
	}
}

func TestGenerateWithoutClient(t *testing.T) {
	if _, err := NewGenerator(nil).Generate(context.Background(), "q", supplierSchema); err == nil {
		t.Fatal("Generate() expected error without client")
	}
}

type fakeLLM struct {
	response   string
	err        error
	calls      int
	lastPrompt string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.response, f.err
}

func (f *fakeLLM) Chat(context.Context, []llm.Message) iter.Seq2[string, error] {
	return func(func(string, error) bool) {}
}

func (f *fakeLLM) Ping(context.Context) error { return nil }

func (f *fakeLLM) Model() string { return "fake" }

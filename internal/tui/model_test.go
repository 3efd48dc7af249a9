package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/querydesk/querydesk/internal/archive"
	"github.com/querydesk/querydesk/internal/chat"
	"github.com/querydesk/querydesk/internal/intent"
	"github.com/querydesk/querydesk/internal/query"
)

type fakeProcessor struct {
	questions []string
}

func (f *fakeProcessor) ProcessTurn(_ context.Context, conv chat.Conversation, question string, sink chat.Sink) (chat.Conversation, chat.TurnReport) {
	f.questions = append(f.questions, question)
	sink.StateChanged(chat.StateQuerying)
	result := query.Result{
		Columns:  []string{"CompanyName", "Country"},
		Rows:     []query.Row{{"CompanyName": "Exotic Liquids", "Country": "UK"}},
		RowCount: 1,
	}
	out := conv.With(
		chat.UserText(question),
		chat.AssistantText(chat.QueryExplanation),
		chat.Turn{Role: chat.RoleAssistant, Kind: chat.KindSQLQuery, Text: "SELECT CompanyName, Country FROM SUPPLIER_VIEW"},
		chat.Turn{Role: chat.RoleAssistant, Kind: chat.KindTable, Table: &result},
	)
	return out, chat.TurnReport{Intent: intent.Classified(intent.DatabaseQuery, "DATABASE_QUERY")}
}

type fakeArchive struct {
	saved []chat.Conversation
	convs map[string]chat.Conversation
}

func (f *fakeArchive) Save(_ context.Context, conv chat.Conversation) (archive.Manifest, error) {
	f.saved = append(f.saved, conv)
	return archive.Manifest{ID: "c-1", Title: "t", TurnCount: conv.Len()}, nil
}

func (f *fakeArchive) Load(_ context.Context, id string) (chat.Conversation, error) {
	conv, ok := f.convs[id]
	if !ok {
		return chat.Conversation{}, archive.ErrNotFound
	}
	return conv, nil
}

func (f *fakeArchive) List(context.Context) ([]archive.Manifest, error) {
	return []archive.Manifest{{ID: "c-1", Title: "Show me all suppliers"}}, nil
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func press(t *testing.T, m Model, key tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(tea.KeyMsg{Type: key})
	return next.(Model), cmd
}

func apply(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestSubmitRunsTurnAndRendersTable(t *testing.T) {
	processor := &fakeProcessor{}
	m := NewModel(Options{Processor: processor, ModelName: "llama3", View: "SUPPLIER_VIEW"}, nil)

	m = typeText(t, m, "Show me all suppliers")
	m, cmd := press(t, m, tea.KeyEnter)
	if cmd == nil || !m.busy || m.input != "" {
		t.Fatalf("after enter: busy=%v input=%q cmd=%v", m.busy, m.input, cmd != nil)
	}
	if view := m.View(); !strings.Contains(view, "Show me all suppliers") {
		t.Fatalf("pending question not shown:\n%s", view)
	}

	m = apply(t, m, cmd())
	if m.busy || m.conv.Len() != 4 {
		t.Fatalf("busy=%v turns=%d", m.busy, m.conv.Len())
	}
	if len(processor.questions) != 1 || processor.questions[0] != "Show me all suppliers" {
		t.Fatalf("questions = %#v", processor.questions)
	}
	view := m.View()
	for _, want := range []string{"Exotic Liquids", "SELECT CompanyName, Country FROM SUPPLIER_VIEW", "1 row(s)"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestEnterIgnoredWhileBusy(t *testing.T) {
	m := NewModel(Options{Processor: &fakeProcessor{}}, nil)
	m = typeText(t, m, "first")
	m, _ = press(t, m, tea.KeyEnter)
	m = typeText(t, m, "second")
	if _, cmd := press(t, m, tea.KeyEnter); cmd != nil {
		t.Fatal("enter while busy should not start another turn")
	}
}

func TestProgressMessagesUpdateStatusAndPartialText(t *testing.T) {
	m := NewModel(Options{Processor: &fakeProcessor{}}, nil)
	m = typeText(t, m, "hi there")
	m, _ = press(t, m, tea.KeyEnter)

	m = apply(t, m, stateMsg(chat.StateChatting))
	m = apply(t, m, intentMsg(intent.Degraded(errors.New("timeout"))))
	m = apply(t, m, fragmentMsg("Hello, how can"))

	view := m.View()
	for _, want := range []string{"Thinking...", "Intent detected: GENERAL_CHAT", "defaulted", "Hello, how can"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestSaveAndLoadCommands(t *testing.T) {
	store := &fakeArchive{convs: map[string]chat.Conversation{
		"c-9": {ID: "c-9", Turns: []chat.Turn{chat.UserText("old question"), chat.AssistantText("old answer")}},
	}}
	m := NewModel(Options{Processor: &fakeProcessor{}, Archive: store}, nil)

	m = typeText(t, m, "/save")
	m, cmd := press(t, m, tea.KeyEnter)
	if cmd != nil || m.status != "nothing to save yet" {
		t.Fatalf("empty save: status=%q", m.status)
	}

	m = typeText(t, m, "question")
	m, cmd = press(t, m, tea.KeyEnter)
	m = apply(t, m, cmd())

	m = typeText(t, m, "/save")
	m, cmd = press(t, m, tea.KeyEnter)
	m = apply(t, m, cmd())
	if len(store.saved) != 1 || m.conv.ID != "c-1" || !strings.Contains(m.status, "saved conversation c-1") {
		t.Fatalf("save: saved=%d id=%q status=%q", len(store.saved), m.conv.ID, m.status)
	}

	m = typeText(t, m, "/load c-9")
	m, cmd = press(t, m, tea.KeyEnter)
	m = apply(t, m, cmd())
	if m.conv.ID != "c-9" || m.conv.Len() != 2 {
		t.Fatalf("load: conv = %#v", m.conv)
	}

	m = typeText(t, m, "/load missing")
	m, cmd = press(t, m, tea.KeyEnter)
	m = apply(t, m, cmd())
	if !strings.Contains(m.status, "load failed") || m.conv.ID != "c-9" {
		t.Fatalf("load missing: status=%q id=%q", m.status, m.conv.ID)
	}

	m = typeText(t, m, "/list")
	m, cmd = press(t, m, tea.KeyEnter)
	m = apply(t, m, cmd())
	if !strings.Contains(m.status, "c-1") {
		t.Fatalf("list status = %q", m.status)
	}

	m = typeText(t, m, "/new")
	m, _ = press(t, m, tea.KeyEnter)
	if m.conv.Len() != 0 || m.conv.ID != "" {
		t.Fatalf("new: conv = %#v", m.conv)
	}
}

func TestCommandsWithoutArchive(t *testing.T) {
	m := NewModel(Options{Processor: &fakeProcessor{}}, nil)
	m = typeText(t, m, "/list")
	m, cmd := press(t, m, tea.KeyEnter)
	if cmd != nil || !strings.Contains(m.status, "not configured") {
		t.Fatalf("status = %q", m.status)
	}
}

func TestQuitCommand(t *testing.T) {
	m := NewModel(Options{}, nil)
	m = typeText(t, m, "/quit")
	m, cmd := press(t, m, tea.KeyEnter)
	if cmd == nil || !m.quitting {
		t.Fatal("quit should return tea.Quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("quit command did not produce tea.QuitMsg")
	}
	if m.View() != "" {
		t.Fatal("view should be empty after quitting")
	}
}

func TestRenderTableTruncatesLongResults(t *testing.T) {
	result := &query.Result{Columns: []string{"n"}, RowCount: maxTableRows + 5}
	for i := 0; i < maxTableRows+5; i++ {
		result.Rows = append(result.Rows, query.Row{"n": i})
	}
	lines := renderTable(result)
	if last := lines[len(lines)-1]; !strings.Contains(last, "showing first 50") {
		t.Fatalf("summary = %q", last)
	}
	if got := formatCell(nil); got != "NULL" {
		t.Fatalf("formatCell(nil) = %q", got)
	}
}

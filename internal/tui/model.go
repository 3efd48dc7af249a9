// Package tui is the terminal chat front-end. It renders the conversation and
// streams assistant text while the orchestrator works.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/querydesk/querydesk/internal/archive"
	"github.com/querydesk/querydesk/internal/chat"
	"github.com/querydesk/querydesk/internal/intent"
)

type TurnProcessor interface {
	ProcessTurn(ctx context.Context, conv chat.Conversation, question string, sink chat.Sink) (chat.Conversation, chat.TurnReport)
}

type Archive interface {
	Save(ctx context.Context, conv chat.Conversation) (archive.Manifest, error)
	Load(ctx context.Context, id string) (chat.Conversation, error)
	List(ctx context.Context) ([]archive.Manifest, error)
}

type Options struct {
	Processor TurnProcessor
	Archive   Archive
	ModelName string
	View      string
	// TurnTimeout bounds one ProcessTurn call. Zero means no limit.
	TurnTimeout time.Duration
}

type Model struct {
	opts   Options
	sink   chat.Sink
	conv   chat.Conversation
	input  string
	status string

	busy     bool
	pending  string
	state    chat.State
	intent   *intent.Result
	partial  string
	scroll   int
	width    int
	height   int
	quitting bool
}

func NewModel(opts Options, sink chat.Sink) Model {
	if sink == nil {
		sink = chat.NopSink{}
	}
	return Model{opts: opts, sink: sink, state: chat.StateIdle, width: 80, height: 24}
}

func (m Model) Conversation() chat.Conversation {
	return m.conv
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateMsg:
		m.state = chat.State(msg)
	case intentMsg:
		result := intent.Result(msg)
		m.intent = &result
	case fragmentMsg:
		m.partial = string(msg)
		m.scroll = 0

	case turnDoneMsg:
		m.busy = false
		m.pending = ""
		m.partial = ""
		m.state = chat.StateIdle
		m.conv = msg.Conversation
		m.scroll = 0
		if msg.Report.Err != nil {
			m.status = "last turn failed"
		} else {
			m.status = ""
		}

	case savedMsg:
		if msg.Err != nil {
			m.status = "save failed: " + msg.Err.Error()
		} else {
			m.conv.ID = msg.Manifest.ID
			m.status = fmt.Sprintf("saved conversation %s (%d turns)", msg.Manifest.ID, msg.Manifest.TurnCount)
		}
	case listedMsg:
		m.status = formatList(msg)
	case loadedMsg:
		if msg.Err != nil {
			m.status = "load failed: " + msg.Err.Error()
		} else {
			m.conv = msg.Conversation
			m.intent = nil
			m.scroll = 0
			m.status = fmt.Sprintf("loaded conversation %s", msg.Conversation.ID)
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyBackspace:
		if runes := []rune(m.input); len(runes) > 0 {
			m.input = string(runes[:len(runes)-1])
		}
	case tea.KeyPgUp:
		m.scroll += m.bodyHeight() / 2
	case tea.KeyPgDown:
		m.scroll = max(0, m.scroll-m.bodyHeight()/2)
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input)
	if text == "" || m.busy {
		return m, nil
	}
	m.input = ""
	if strings.HasPrefix(text, "/") {
		return m.command(text)
	}

	m.busy = true
	m.pending = text
	m.partial = ""
	m.intent = nil
	m.status = ""
	m.scroll = 0
	conv, processor, sink, timeout := m.conv, m.opts.Processor, m.sink, m.opts.TurnTimeout
	return m, func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		out, report := processor.ProcessTurn(ctx, conv, text, sink)
		return turnDoneMsg{Conversation: out, Report: report}
	}
}

func (m Model) command(text string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		m.quitting = true
		return m, tea.Quit
	case "/new":
		m.conv = chat.Conversation{}
		m.intent = nil
		m.status = "started a new conversation"
		return m, nil
	}

	store := m.opts.Archive
	if store == nil {
		m.status = "conversation archive is not configured"
		return m, nil
	}
	switch name {
	case "/save":
		if m.conv.Len() == 0 {
			m.status = "nothing to save yet"
			return m, nil
		}
		conv := m.conv
		return m, func() tea.Msg {
			manifest, err := store.Save(context.Background(), conv)
			return savedMsg{Manifest: manifest, Err: err}
		}
	case "/list":
		return m, func() tea.Msg {
			manifests, err := store.List(context.Background())
			return listedMsg{Manifests: manifests, Err: err}
		}
	case "/load":
		if arg == "" {
			m.status = "usage: /load <conversation-id>"
			return m, nil
		}
		return m, func() tea.Msg {
			conv, err := store.Load(context.Background(), arg)
			return loadedMsg{Conversation: conv, Err: err}
		}
	default:
		m.status = fmt.Sprintf("unknown command %s (try /new, /save, /load <id>, /list, /quit)", name)
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	header := styleTitle.Render("querydesk") + styleDimmed.Render(fmt.Sprintf("  %s · %s", m.opts.ModelName, m.opts.View))
	body := m.bodyLines()
	height := m.bodyHeight()
	end := max(0, len(body)-m.scroll)
	start := max(0, end-height)
	visible := body[start:end]

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(visible, "\n"))
	for i := len(visible); i < height; i++ {
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if m.busy {
		b.WriteString(stylePrompt.Render("Ask> ") + styleDimmed.Render("waiting for response..."))
	} else {
		b.WriteString(stylePrompt.Render("Ask> ") + m.input + "█")
	}
	return b.String()
}

func (m Model) bodyHeight() int {
	return max(3, m.height-5)
}

func (m Model) bodyLines() []string {
	var lines []string
	if m.conv.Len() == 0 && !m.busy {
		lines = append(lines,
			"Ask about suppliers, products or stock levels, or just chat.",
			styleDimmed.Render("Commands: /new  /save  /load <id>  /list  /quit"),
		)
	}
	for _, turn := range m.conv.Turns {
		lines = append(lines, renderTurn(turn, m.width)...)
		lines = append(lines, "")
	}
	if m.busy {
		lines = append(lines, renderTurn(chat.UserText(m.pending), m.width)...)
		lines = append(lines, "")
		if m.partial != "" {
			lines = append(lines, renderTurn(chat.AssistantText(m.partial+"▌"), m.width)...)
		}
	}
	return lines
}

func (m Model) statusLine() string {
	var parts []string
	if m.busy {
		parts = append(parts, styleWarning.Render(stateLabel(m.state)))
	}
	if m.intent != nil {
		label := "Intent detected: " + string(m.intent.Label)
		if m.intent.Degraded {
			label += " (classifier unavailable, defaulted)"
		}
		parts = append(parts, label)
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return styleStatusBar.Render(strings.Join(parts, " · "))
}

func stateLabel(state chat.State) string {
	switch state {
	case chat.StateClassifying:
		return "Analyzing your question..."
	case chat.StateQuerying:
		return "Connecting to database and executing query..."
	case chat.StateChatting:
		return "Thinking..."
	default:
		return "Working..."
	}
}

func formatList(msg listedMsg) string {
	if msg.Err != nil {
		return "list failed: " + msg.Err.Error()
	}
	if len(msg.Manifests) == 0 {
		return "no saved conversations"
	}
	items := make([]string, 0, len(msg.Manifests))
	for _, manifest := range msg.Manifests {
		items = append(items, fmt.Sprintf("%s %q", manifest.ID, manifest.Title))
	}
	return "saved: " + strings.Join(items, ", ")
}

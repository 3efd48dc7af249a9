package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/querydesk/querydesk/internal/chat"
	"github.com/querydesk/querydesk/internal/intent"
)

// programSink forwards orchestrator callbacks into the Bubble Tea event loop.
// The program is attached after construction because the model must exist
// before tea.NewProgram.
type programSink struct {
	mu      sync.Mutex
	program *tea.Program
}

func (s *programSink) attach(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = p
}

func (s *programSink) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *programSink) StateChanged(state chat.State) { s.send(stateMsg(state)) }

func (s *programSink) IntentDetected(result intent.Result) { s.send(intentMsg(result)) }

func (s *programSink) Fragment(accumulated string) { s.send(fragmentMsg(accumulated)) }

// Turns are rendered from the conversation in turnDoneMsg.
func (s *programSink) TurnAppended(chat.Turn) {}

package tui

import (
	"github.com/querydesk/querydesk/internal/archive"
	"github.com/querydesk/querydesk/internal/chat"
	"github.com/querydesk/querydesk/internal/intent"
)

// Progress of the turn in flight, forwarded from the orchestrator's sink.
type (
	stateMsg    chat.State
	intentMsg   intent.Result
	fragmentMsg string
)

// turnDoneMsg carries the conversation returned by ProcessTurn.
type turnDoneMsg struct {
	Conversation chat.Conversation
	Report       chat.TurnReport
}

type savedMsg struct {
	Manifest archive.Manifest
	Err      error
}

type listedMsg struct {
	Manifests []archive.Manifest
	Err       error
}

type loadedMsg struct {
	Conversation chat.Conversation
	Err          error
}

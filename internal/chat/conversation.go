// Package chat drives one conversation turn: classify the question, then
// answer it with live rows or with streamed model text.
package chat

import (
	"slices"

	"github.com/querydesk/querydesk/internal/llm"
	"github.com/querydesk/querydesk/internal/query"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Kind string

const (
	KindText     Kind = "text"
	KindSQLQuery Kind = "sql_query"
	KindTable    Kind = "table"
)

// Turn is one displayed message. Table is set only for KindTable turns.
type Turn struct {
	Role  Role          `json:"role"`
	Kind  Kind          `json:"kind"`
	Text  string        `json:"text,omitempty"`
	Table *query.Result `json:"table,omitempty"`
	Error bool          `json:"error,omitempty"`
}

func UserText(text string) Turn {
	return Turn{Role: RoleUser, Kind: KindText, Text: text}
}

func AssistantText(text string) Turn {
	return Turn{Role: RoleAssistant, Kind: KindText, Text: text}
}

func AssistantError(text string) Turn {
	return Turn{Role: RoleAssistant, Kind: KindText, Text: text, Error: true}
}

// Conversation is an append-only list of turns. Values are never mutated in
// place; With returns a copy.
type Conversation struct {
	ID    string `json:"id,omitempty"`
	Turns []Turn `json:"turns"`
}

func (c Conversation) With(turns ...Turn) Conversation {
	out := c
	out.Turns = append(slices.Clip(c.Turns), turns...)
	return out
}

func (c Conversation) Len() int {
	return len(c.Turns)
}

// TextHistory returns the text turns as model messages. SQL and table turns
// are left out.
func (c Conversation) TextHistory() []llm.Message {
	messages := make([]llm.Message, 0, len(c.Turns))
	for _, turn := range c.Turns {
		if turn.Kind != KindText {
			continue
		}
		role := llm.RoleAssistant
		if turn.Role == RoleUser {
			role = llm.RoleUser
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Text})
	}
	return messages
}

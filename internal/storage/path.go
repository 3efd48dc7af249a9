package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

const conversationsRoot = "conversations"

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// ConversationPrefix is the key prefix shared by every object of one archived
// conversation.
func ConversationPrefix(conversationID string) (string, error) {
	if err := validatePathComponent(conversationID, "conversation id"); err != nil {
		return "", err
	}
	return path.Join(conversationsRoot, conversationID) + "/", nil
}

func TranscriptPath(conversationID string) (string, error) {
	prefix, err := ConversationPrefix(conversationID)
	if err != nil {
		return "", err
	}
	return prefix + "transcript.json", nil
}

func TurnTablePath(conversationID string, turnIndex int) (string, error) {
	prefix, err := ConversationPrefix(conversationID)
	if err != nil {
		return "", err
	}
	if turnIndex < 0 {
		return "", fmt.Errorf("turn index must be >= 0")
	}
	return prefix + fmt.Sprintf("turn-%05d.parquet", turnIndex), nil
}

// ConversationsPrefix is the prefix under which every archived conversation
// lives.
func ConversationsPrefix() string {
	return conversationsRoot + "/"
}

// ConversationIDFromTranscript returns the conversation id encoded in a
// transcript key, or false when key is not a transcript.
func ConversationIDFromTranscript(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, ConversationsPrefix())
	if !ok {
		return "", false
	}
	id, file, ok := strings.Cut(rest, "/")
	if !ok || file != "transcript.json" || validatePathComponent(id, "conversation id") != nil {
		return "", false
	}
	return id, true
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
